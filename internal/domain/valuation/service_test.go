package valuation

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockforge/internal/core/apperror"
	"stockforge/internal/core/id"
	"stockforge/internal/core/types"
	"stockforge/internal/domain/ledger"
	"stockforge/internal/domain/valuation/method"
)

// Fakes. The tx manager serializes transactions with one mutex, a coarse
// stand-in for the per-pair row locks the postgres repo takes.

type fakeTxManager struct {
	mu sync.Mutex
}

func (m *fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(ctx)
}

type fakeRepo struct {
	mu     sync.Mutex
	layers []*Layer
	cogs   []*COGSTransaction
}

func (r *fakeRepo) CreateLayer(ctx context.Context, layer *Layer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *layer
	r.layers = append(r.layers, &cp)
	return nil
}

func (r *fakeRepo) GetLayer(ctx context.Context, layerID id.ID) (*Layer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.layers {
		if l.ID == layerID {
			cp := *l
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("layer", layerID.String())
}

func (r *fakeRepo) ListOpenLayers(ctx context.Context, organizationID string, productID, warehouseID id.ID, m method.Method) ([]*Layer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*Layer
	for _, l := range r.layers {
		if l.OrganizationID == organizationID && l.ProductID == productID &&
			l.WarehouseID == warehouseID && l.QuantityRemaining > 0 {
			cp := *l
			out = append(out, &cp)
		}
	}
	sortLayersForMethod(out, m)
	return out, nil
}

func (r *fakeRepo) ListOpenLayersForUpdate(ctx context.Context, organizationID string, productID, warehouseID id.ID, m method.Method) ([]*Layer, error) {
	return r.ListOpenLayers(ctx, organizationID, productID, warehouseID, m)
}

func (r *fakeRepo) UpdateLayerRemaining(ctx context.Context, layers []*Layer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, upd := range layers {
		for _, l := range r.layers {
			if l.ID == upd.ID {
				l.QuantityRemaining = upd.QuantityRemaining
				l.IsConsumed = upd.IsConsumed
				l.UpdatedAt = time.Now().UTC()
			}
		}
	}
	return nil
}

func (r *fakeRepo) ListLayers(ctx context.Context, organizationID string, productID, warehouseID id.ID) ([]*Layer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Layer
	for _, l := range r.layers {
		if l.OrganizationID == organizationID && l.ProductID == productID && l.WarehouseID == warehouseID {
			cp := *l
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeRepo) CreateCOGS(ctx context.Context, txn *COGSTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *txn
	r.cogs = append(r.cogs, &cp)
	return nil
}

func (r *fakeRepo) ListCOGS(ctx context.Context, f COGSFilter) ([]COGSTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []COGSTransaction
	for _, c := range r.cogs {
		if c.OrganizationID == f.OrganizationID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *fakeRepo) ValueOnHand(ctx context.Context, organizationID string, warehouseID *id.ID) ([]ProductValue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	type pair struct {
		product   id.ID
		warehouse id.ID
	}
	byPair := map[pair]*ProductValue{}
	for _, l := range r.layers {
		if l.OrganizationID != organizationID || l.QuantityRemaining <= 0 {
			continue
		}
		if warehouseID != nil && l.WarehouseID != *warehouseID {
			continue
		}
		k := pair{l.ProductID, l.WarehouseID}
		pv, ok := byPair[k]
		if !ok {
			pv = &ProductValue{ProductID: l.ProductID, WarehouseID: l.WarehouseID, Value: types.ZeroMoney()}
			byPair[k] = pv
		}
		pv.Quantity += l.QuantityRemaining
		pv.Value = pv.Value.Add(l.QuantityRemaining.Decimal().Mul(l.UnitCost))
		pv.LayerCount++
	}

	var out []ProductValue
	for _, pv := range byPair {
		out = append(out, *pv)
	}
	return out, nil
}

func sortLayersForMethod(layers []*Layer, m method.Method) {
	sort.Slice(layers, func(i, j int) bool {
		a, b := layers[i], layers[j]
		if !a.ReceiptDate.Equal(b.ReceiptDate) {
			if m == method.LIFO {
				return a.ReceiptDate.After(b.ReceiptDate)
			}
			return a.ReceiptDate.Before(b.ReceiptDate)
		}
		return bytes.Compare(a.ID[:], b.ID[:]) < 0
	})
}

type fakeLedgerRepo struct {
	mu     sync.Mutex
	levels map[ledger.Key]*ledger.StockLevel
}

func newFakeLedgerRepo() *fakeLedgerRepo {
	return &fakeLedgerRepo{levels: map[ledger.Key]*ledger.StockLevel{}}
}

func (r *fakeLedgerRepo) Get(ctx context.Context, key ledger.Key) (*ledger.StockLevel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if lvl, ok := r.levels[key]; ok {
		cp := *lvl
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeLedgerRepo) GetForUpdate(ctx context.Context, key ledger.Key) (*ledger.StockLevel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lvl, ok := r.levels[key]
	if !ok {
		lvl = &ledger.StockLevel{
			OrganizationID: key.OrganizationID,
			ProductID:      key.ProductID,
			WarehouseID:    key.WarehouseID,
			LocationID:     key.LocationID,
		}
		r.levels[key] = lvl
	}
	cp := *lvl
	return &cp, nil
}

func (r *fakeLedgerRepo) ApplyDelta(ctx context.Context, delta ledger.Delta) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	lvl, ok := r.levels[delta.Key]
	if !ok {
		lvl = &ledger.StockLevel{
			OrganizationID: delta.Key.OrganizationID,
			ProductID:      delta.Key.ProductID,
			WarehouseID:    delta.Key.WarehouseID,
			LocationID:     delta.Key.LocationID,
		}
		r.levels[delta.Key] = lvl
	}
	lvl.QuantityOnHand += delta.OnHand
	lvl.QuantityReserved += delta.Reserved
	if delta.CountStamp != nil {
		at := delta.CountStamp.CountedAt
		by := delta.CountStamp.CountedBy
		lvl.LastCountedAt = &at
		lvl.LastCountedBy = &by
	}
	lvl.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *fakeLedgerRepo) ListByWarehouse(ctx context.Context, organizationID string, warehouseID id.ID) ([]ledger.StockLevel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ledger.StockLevel
	for _, lvl := range r.levels {
		if lvl.OrganizationID == organizationID && lvl.WarehouseID == warehouseID {
			out = append(out, *lvl)
		}
	}
	return out, nil
}

func (r *fakeLedgerRepo) ListByOrganization(ctx context.Context, organizationID string) ([]ledger.StockLevel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ledger.StockLevel
	for _, lvl := range r.levels {
		if lvl.OrganizationID == organizationID {
			out = append(out, *lvl)
		}
	}
	return out, nil
}

// Test fixture.

type fixture struct {
	svc        *Service
	repo       *fakeRepo
	ledgerRepo *fakeLedgerRepo
	org        string
	product    id.ID
	warehouse  id.ID
}

func newFixture() *fixture {
	repo := &fakeRepo{}
	ledgerRepo := newFakeLedgerRepo()
	return &fixture{
		svc:        NewService(repo, ledger.NewService(ledgerRepo), &fakeTxManager{}),
		repo:       repo,
		ledgerRepo: ledgerRepo,
		org:        "org-1",
		product:    id.New(),
		warehouse:  id.New(),
	}
}

func (f *fixture) receive(t *testing.T, day int, qty, cost string) *Layer {
	t.Helper()
	layer, err := f.svc.Receive(context.Background(), ReceiveInput{
		OrganizationID: f.org,
		ProductID:      f.product,
		WarehouseID:    f.warehouse,
		Quantity:       mustQty(qty),
		UnitCost:       types.MustMoney(cost),
		ReceiptDate:    time.Date(2026, 1, day, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return layer
}

func (f *fixture) onHand(t *testing.T) types.Quantity {
	t.Helper()
	av, err := ledger.NewService(f.ledgerRepo).GetAvailability(context.Background(), ledger.Key{
		OrganizationID: f.org,
		ProductID:      f.product,
		WarehouseID:    f.warehouse,
	})
	require.NoError(t, err)
	return av.OnHand
}

func TestReceive_CreatesLayerAndIncrementsLedger(t *testing.T) {
	f := newFixture()

	layer := f.receive(t, 1, "10", "5.00")

	assert.Equal(t, mustQty("10"), layer.QuantityReceived)
	assert.Equal(t, mustQty("10"), layer.QuantityRemaining)
	assert.True(t, layer.TotalCost.Equal(types.MustMoney("50")))
	assert.False(t, layer.IsConsumed)
	assert.Equal(t, mustQty("10"), f.onHand(t))
}

func TestReceive_Validation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	tests := []struct {
		name string
		in   ReceiveInput
	}{
		{"missing org", ReceiveInput{ProductID: f.product, WarehouseID: f.warehouse, Quantity: mustQty("1"), UnitCost: types.MustMoney("1")}},
		{"missing product", ReceiveInput{OrganizationID: f.org, WarehouseID: f.warehouse, Quantity: mustQty("1"), UnitCost: types.MustMoney("1")}},
		{"zero quantity", ReceiveInput{OrganizationID: f.org, ProductID: f.product, WarehouseID: f.warehouse, UnitCost: types.MustMoney("1")}},
		{"negative quantity", ReceiveInput{OrganizationID: f.org, ProductID: f.product, WarehouseID: f.warehouse, Quantity: mustQty("-1"), UnitCost: types.MustMoney("1")}},
		{"zero cost", ReceiveInput{OrganizationID: f.org, ProductID: f.product, WarehouseID: f.warehouse, Quantity: mustQty("1")}},
		{"negative cost", ReceiveInput{OrganizationID: f.org, ProductID: f.product, WarehouseID: f.warehouse, Quantity: mustQty("1"), UnitCost: types.MustMoney("-2")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Receive(ctx, tt.in)
			require.Error(t, err)
			appErr, ok := apperror.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, apperror.CodeValidation, appErr.Code)
		})
	}

	assert.Empty(t, f.repo.layers)
}

func TestConsume_FIFO(t *testing.T) {
	f := newFixture()
	l1 := f.receive(t, 1, "10", "5.00")
	l2 := f.receive(t, 2, "5", "7.00")

	res, err := f.svc.Consume(context.Background(), ConsumeInput{
		OrganizationID:  f.org,
		ProductID:       f.product,
		WarehouseID:     f.warehouse,
		Quantity:        mustQty("12"),
		Method:          method.FIFO,
		TransactionType: TypeSale,
	})
	require.NoError(t, err)

	assert.Equal(t, mustQty("12"), res.QuantityConsumed)
	assert.True(t, res.TotalCost.Equal(types.MustMoney("64")), "got %s", res.TotalCost)
	assert.True(t, res.AverageUnitCost.Equal(types.MustMoney("5.333333")), "got %s", res.AverageUnitCost)

	require.Len(t, res.Layers, 2)
	assert.Equal(t, l1.ID, res.Layers[0].LayerID)
	assert.Equal(t, l2.ID, res.Layers[1].LayerID)

	stored1, err := f.repo.GetLayer(context.Background(), l1.ID)
	require.NoError(t, err)
	assert.True(t, stored1.IsConsumed)
	stored2, err := f.repo.GetLayer(context.Background(), l2.ID)
	require.NoError(t, err)
	assert.Equal(t, mustQty("3"), stored2.QuantityRemaining)

	require.Len(t, f.repo.cogs, 1)
	assert.Equal(t, method.FIFO, f.repo.cogs[0].Method)
	assert.True(t, f.repo.cogs[0].TotalCost.Equal(types.MustMoney("64")))

	assert.Equal(t, mustQty("3"), f.onHand(t))
}

func TestConsume_LIFO(t *testing.T) {
	f := newFixture()
	l1 := f.receive(t, 1, "10", "5.00")
	l2 := f.receive(t, 2, "5", "7.00")

	res, err := f.svc.Consume(context.Background(), ConsumeInput{
		OrganizationID:  f.org,
		ProductID:       f.product,
		WarehouseID:     f.warehouse,
		Quantity:        mustQty("12"),
		Method:          method.LIFO,
		TransactionType: TypeSale,
	})
	require.NoError(t, err)

	// 5 x 7.00 off the newest layer, then 7 x 5.00 off the oldest.
	assert.True(t, res.TotalCost.Equal(types.MustMoney("70")), "got %s", res.TotalCost)
	assert.True(t, res.AverageUnitCost.Equal(types.MustMoney("5.833333")), "got %s", res.AverageUnitCost)

	require.Len(t, res.Layers, 2)
	assert.Equal(t, l2.ID, res.Layers[0].LayerID)
	assert.Equal(t, l1.ID, res.Layers[1].LayerID)

	stored1, err := f.repo.GetLayer(context.Background(), l1.ID)
	require.NoError(t, err)
	assert.Equal(t, mustQty("3"), stored1.QuantityRemaining)
	stored2, err := f.repo.GetLayer(context.Background(), l2.ID)
	require.NoError(t, err)
	assert.True(t, stored2.IsConsumed)
}

func TestConsume_SameDayTieBrokenByInsertionOrder(t *testing.T) {
	f := newFixture()
	first := f.receive(t, 1, "4", "5.00")
	second := f.receive(t, 1, "4", "9.00")

	res, err := f.svc.Consume(context.Background(), ConsumeInput{
		OrganizationID:  f.org,
		ProductID:       f.product,
		WarehouseID:     f.warehouse,
		Quantity:        mustQty("4"),
		Method:          method.FIFO,
		TransactionType: TypeSale,
	})
	require.NoError(t, err)

	// UUIDv7 ids sort by creation time, so the earlier insert wins the tie.
	require.Len(t, res.Layers, 1)
	assert.Equal(t, first.ID, res.Layers[0].LayerID)
	assert.True(t, res.TotalCost.Equal(types.MustMoney("20")))
	_ = second
}

func TestConsume_ZeroQuantityIsNoOp(t *testing.T) {
	f := newFixture()
	f.receive(t, 1, "10", "5.00")

	res, err := f.svc.Consume(context.Background(), ConsumeInput{
		OrganizationID:  f.org,
		ProductID:       f.product,
		WarehouseID:     f.warehouse,
		Quantity:        mustQty("0"),
		Method:          method.FIFO,
		TransactionType: TypeSale,
	})
	require.NoError(t, err)

	assert.True(t, res.QuantityConsumed.IsZero())
	assert.True(t, res.TotalCost.IsZero())
	assert.Empty(t, res.Layers)
	assert.Empty(t, f.repo.cogs)
	assert.Equal(t, mustQty("10"), f.onHand(t))
}

func TestConsume_NegativeQuantityRejected(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Consume(context.Background(), ConsumeInput{
		OrganizationID:  f.org,
		ProductID:       f.product,
		WarehouseID:     f.warehouse,
		Quantity:        mustQty("-1"),
		Method:          method.FIFO,
		TransactionType: TypeSale,
	})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestConsume_PartialFulfillment(t *testing.T) {
	f := newFixture()
	f.receive(t, 1, "10", "5.00")
	f.receive(t, 2, "5", "7.00")

	res, err := f.svc.Consume(context.Background(), ConsumeInput{
		OrganizationID:  f.org,
		ProductID:       f.product,
		WarehouseID:     f.warehouse,
		Quantity:        mustQty("20"),
		Method:          method.FIFO,
		TransactionType: TypeSale,
	})
	require.NoError(t, err)

	assert.Equal(t, mustQty("20"), res.QuantityRequested)
	assert.Equal(t, mustQty("15"), res.QuantityConsumed)
	assert.Equal(t, mustQty("5"), res.Shortfall())
	assert.True(t, res.TotalCost.Equal(types.MustMoney("85")))

	for _, l := range f.repo.layers {
		assert.True(t, l.IsConsumed)
	}
	assert.Equal(t, mustQty("0"), f.onHand(t))

	// COGS records what actually moved, not what was asked for.
	require.Len(t, f.repo.cogs, 1)
	assert.Equal(t, mustQty("15"), f.repo.cogs[0].Quantity)
}

func TestConsume_FailOnShortage(t *testing.T) {
	f := newFixture()
	f.receive(t, 1, "10", "5.00")

	_, err := f.svc.Consume(context.Background(), ConsumeInput{
		OrganizationID:  f.org,
		ProductID:       f.product,
		WarehouseID:     f.warehouse,
		Quantity:        mustQty("20"),
		Method:          method.FIFO,
		TransactionType: TypeSale,
		FailOnShortage:  true,
	})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInsufficientStock, appErr.Code)

	// Nothing moved.
	assert.Equal(t, mustQty("10"), f.repo.layers[0].QuantityRemaining)
	assert.Empty(t, f.repo.cogs)
	assert.Equal(t, mustQty("10"), f.onHand(t))
}

func TestConsume_NoOpenLayers(t *testing.T) {
	f := newFixture()

	res, err := f.svc.Consume(context.Background(), ConsumeInput{
		OrganizationID:  f.org,
		ProductID:       f.product,
		WarehouseID:     f.warehouse,
		Quantity:        mustQty("5"),
		Method:          method.FIFO,
		TransactionType: TypeScrap,
	})
	require.NoError(t, err)

	assert.True(t, res.QuantityConsumed.IsZero())
	assert.Equal(t, mustQty("5"), res.Shortfall())
	assert.Empty(t, f.repo.cogs)
}

// Conservation: received quantity and value always equal what remains in
// open layers plus what left through COGS.
func TestConsume_Conservation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	receipts := []struct {
		day  int
		qty  string
		cost string
	}{
		{1, "10", "5.00"}, {2, "7.5", "6.20"}, {3, "3.25", "4.80"}, {4, "20", "5.55"},
	}
	totalReceivedQty := types.Quantity(0)
	totalReceivedValue := types.ZeroMoney()
	for _, rc := range receipts {
		l := f.receive(t, rc.day, rc.qty, rc.cost)
		totalReceivedQty += l.QuantityReceived
		totalReceivedValue = totalReceivedValue.Add(l.TotalCost)
	}

	for _, qty := range []string{"4", "11.5", "0.75", "6"} {
		_, err := f.svc.Consume(ctx, ConsumeInput{
			OrganizationID:  f.org,
			ProductID:       f.product,
			WarehouseID:     f.warehouse,
			Quantity:        mustQty(qty),
			Method:          method.FIFO,
			TransactionType: TypeSale,
		})
		require.NoError(t, err)
	}

	var remainingQty, consumedQty types.Quantity
	remainingValue := types.ZeroMoney()
	for _, l := range f.repo.layers {
		remainingQty += l.QuantityRemaining
		remainingValue = remainingValue.Add(l.QuantityRemaining.Decimal().Mul(l.UnitCost))
	}
	consumedValue := types.ZeroMoney()
	for _, c := range f.repo.cogs {
		consumedQty += c.Quantity
		consumedValue = consumedValue.Add(c.TotalCost)
	}

	assert.Equal(t, totalReceivedQty, remainingQty+consumedQty)
	assert.True(t, totalReceivedValue.Equal(remainingValue.Add(consumedValue)),
		"received %s, remaining %s + consumed %s", totalReceivedValue, remainingValue, consumedValue)
	assert.Equal(t, remainingQty, f.onHand(t))
}

// Concurrent consumers must never double-spend a layer. The fake tx manager
// serializes transactions the way row locks serialize them in postgres.
func TestConsume_Concurrent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.receive(t, 1, "60", "5.00")
	f.receive(t, 2, "40", "7.00")

	const workers = 10
	var wg sync.WaitGroup
	errs := make([]error, workers)
	results := make([]*ConsumptionResult, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.svc.Consume(ctx, ConsumeInput{
				OrganizationID:  f.org,
				ProductID:       f.product,
				WarehouseID:     f.warehouse,
				Quantity:        mustQty("5"),
				Method:          method.FIFO,
				TransactionType: TypeSale,
			})
		}(i)
	}
	wg.Wait()

	var consumed types.Quantity
	consumedValue := types.ZeroMoney()
	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, mustQty("5"), results[i].QuantityConsumed)
		consumed += results[i].QuantityConsumed
		consumedValue = consumedValue.Add(results[i].TotalCost)
	}

	assert.Equal(t, mustQty("50"), consumed)

	var remaining types.Quantity
	remainingValue := types.ZeroMoney()
	for _, l := range f.repo.layers {
		remaining += l.QuantityRemaining
		remainingValue = remainingValue.Add(l.QuantityRemaining.Decimal().Mul(l.UnitCost))
	}
	assert.Equal(t, mustQty("50"), remaining)

	// 60 x 5.00 + 40 x 7.00 received in total.
	assert.True(t, types.MustMoney("580").Equal(remainingValue.Add(consumedValue)),
		"remaining %s + consumed %s", remainingValue, consumedValue)
	assert.Equal(t, mustQty("50"), f.onHand(t))
}

func TestValueOnHand(t *testing.T) {
	f := newFixture()
	f.receive(t, 1, "10", "5.00")
	f.receive(t, 2, "5", "7.00")

	_, err := f.svc.Consume(context.Background(), ConsumeInput{
		OrganizationID:  f.org,
		ProductID:       f.product,
		WarehouseID:     f.warehouse,
		Quantity:        mustQty("12"),
		Method:          method.FIFO,
		TransactionType: TypeSale,
	})
	require.NoError(t, err)

	values, err := f.svc.ValueOnHand(context.Background(), f.org, &f.warehouse)
	require.NoError(t, err)
	require.Len(t, values, 1)

	assert.Equal(t, f.product, values[0].ProductID)
	assert.Equal(t, mustQty("3"), values[0].Quantity)
	assert.Equal(t, 1, values[0].LayerCount)
	assert.True(t, values[0].Value.Equal(types.MustMoney("21")), "got %s", values[0].Value)
}

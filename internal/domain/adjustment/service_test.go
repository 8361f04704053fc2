package adjustment

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockforge/internal/core/apperror"
	"stockforge/internal/core/id"
	"stockforge/internal/core/types"
	"stockforge/internal/domain/audit"
	"stockforge/internal/domain/ledger"
	"stockforge/pkg/numerator"
)

type fakeTxManager struct {
	mu sync.Mutex
}

func (m *fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(ctx)
}

type fakeRepo struct {
	mu   sync.Mutex
	docs map[id.ID]*StockAdjustment
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{docs: map[id.ID]*StockAdjustment{}}
}

func (r *fakeRepo) Create(ctx context.Context, adj *StockAdjustment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *adj
	cp.Lines = append([]Line(nil), adj.Lines...)
	r.docs[adj.ID] = &cp
	return nil
}

func (r *fakeRepo) GetByID(ctx context.Context, adjustmentID id.ID) (*StockAdjustment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	adj, ok := r.docs[adjustmentID]
	if !ok {
		return nil, apperror.NewNotFound("stock_adjustment", adjustmentID.String())
	}
	cp := *adj
	cp.Lines = append([]Line(nil), adj.Lines...)
	return &cp, nil
}

func (r *fakeRepo) GetByIDForUpdate(ctx context.Context, adjustmentID id.ID) (*StockAdjustment, error) {
	return r.GetByID(ctx, adjustmentID)
}

func (r *fakeRepo) Update(ctx context.Context, adj *StockAdjustment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[adj.ID]; !ok {
		return apperror.NewNotFound("stock_adjustment", adj.ID.String())
	}
	cp := *adj
	cp.Lines = append([]Line(nil), adj.Lines...)
	r.docs[adj.ID] = &cp
	return nil
}

func (r *fakeRepo) SetStatus(ctx context.Context, adjustmentID id.ID, status Status, by *string, at *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	adj, ok := r.docs[adjustmentID]
	if !ok {
		return apperror.NewNotFound("stock_adjustment", adjustmentID.String())
	}
	adj.Status = status
	switch status {
	case StatusConfirmed:
		adj.ConfirmedBy = by
		adj.ConfirmedAt = at
	}
	return nil
}

func (r *fakeRepo) List(ctx context.Context, f Filter) ([]*StockAdjustment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*StockAdjustment
	for _, adj := range r.docs {
		if adj.OrganizationID != f.OrganizationID {
			continue
		}
		if f.Status != nil && adj.Status != *f.Status {
			continue
		}
		cp := *adj
		out = append(out, &cp)
	}
	return out, nil
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
	return r.Get(ctx, key)
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

type fakeNumbers struct {
	mu   sync.Mutex
	next int64
}

func (f *fakeNumbers) GetNextNumber(ctx context.Context, cfg numerator.Config, opts *numerator.Options, period time.Time) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	return fmt.Sprintf("%s-%d-%05d", cfg.Prefix, period.Year(), f.next), nil
}

type fakeAuditor struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (f *fakeAuditor) Record(ctx context.Context, entry audit.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeAuditor) RecordChange(ctx context.Context, entityType string, entityID id.ID, action audit.Action, changes map[string]any) error {
	return f.Record(ctx, audit.Entry{EntityType: entityType, EntityID: entityID, Action: action})
}

func (f *fakeAuditor) EntityHistory(ctx context.Context, entityType string, entityID id.ID, limit int) ([]audit.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []audit.Entry
	for _, e := range f.entries {
		if e.EntityType == entityType && e.EntityID == entityID {
			out = append(out, e)
		}
	}
	return out, nil
}

func qty(units int64) types.Quantity { return types.NewQuantityFromUnits(units) }

type fixture struct {
	svc        *Service
	repo       *fakeRepo
	ledgerRepo *fakeLedgerRepo
	auditor    *fakeAuditor
	org        string
	warehouse  id.ID
	product    id.ID
}

func newFixture() *fixture {
	repo := newFakeRepo()
	ledgerRepo := newFakeLedgerRepo()
	auditor := &fakeAuditor{}
	return &fixture{
		svc:        NewService(repo, ledger.NewService(ledgerRepo), &fakeNumbers{}, auditor, &fakeTxManager{}),
		repo:       repo,
		ledgerRepo: ledgerRepo,
		auditor:    auditor,
		org:        "org-1",
		warehouse:  id.New(),
		product:    id.New(),
	}
}

func (f *fixture) key() ledger.Key {
	return ledger.Key{OrganizationID: f.org, ProductID: f.product, WarehouseID: f.warehouse}
}

func (f *fixture) seedOnHand(t *testing.T, units int64) {
	t.Helper()
	err := f.ledgerRepo.ApplyDelta(context.Background(), ledger.Delta{Key: f.key(), OnHand: qty(units)})
	require.NoError(t, err)
}

func (f *fixture) onHand(t *testing.T) types.Quantity {
	t.Helper()
	lvl, err := f.ledgerRepo.Get(context.Background(), f.key())
	require.NoError(t, err)
	if lvl == nil {
		return 0
	}
	return lvl.QuantityOnHand
}

func TestCreate_SnapshotsSystemQuantity(t *testing.T) {
	f := newFixture()
	f.seedOnHand(t, 10)

	adj, err := f.svc.Create(context.Background(), CreateInput{
		OrganizationID: f.org,
		WarehouseID:    f.warehouse,
		CountedBy:      "alice",
		Lines: []LineInput{
			{ProductID: f.product, CountedQuantity: qty(13)},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, StatusDraft, adj.Status)
	assert.Regexp(t, `^ADJ-\d{4}-00001$`, adj.Number)
	require.Len(t, adj.Lines, 1)
	assert.Equal(t, qty(10), adj.Lines[0].SystemQuantity)
	assert.Equal(t, qty(13), adj.Lines[0].CountedQuantity)
	assert.Equal(t, qty(3), adj.Lines[0].Difference)
}

func TestCreate_SequentialNumbers(t *testing.T) {
	f := newFixture()

	first, err := f.svc.Create(context.Background(), CreateInput{
		OrganizationID: f.org, WarehouseID: f.warehouse, CountedBy: "alice",
	})
	require.NoError(t, err)
	second, err := f.svc.Create(context.Background(), CreateInput{
		OrganizationID: f.org, WarehouseID: f.warehouse, CountedBy: "alice",
	})
	require.NoError(t, err)

	assert.NotEqual(t, first.Number, second.Number)
	assert.Regexp(t, `00002$`, second.Number)
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	tests := []struct {
		name string
		in   CreateInput
	}{
		{"missing org", CreateInput{WarehouseID: f.warehouse, CountedBy: "alice"}},
		{"missing warehouse", CreateInput{OrganizationID: f.org, CountedBy: "alice"}},
		{"missing counted by", CreateInput{OrganizationID: f.org, WarehouseID: f.warehouse}},
		{"negative count", CreateInput{
			OrganizationID: f.org, WarehouseID: f.warehouse, CountedBy: "alice",
			Lines: []LineInput{{ProductID: f.product, CountedQuantity: qty(-1)}},
		}},
		{"duplicate lines", CreateInput{
			OrganizationID: f.org, WarehouseID: f.warehouse, CountedBy: "alice",
			Lines: []LineInput{
				{ProductID: f.product, CountedQuantity: qty(1)},
				{ProductID: f.product, CountedQuantity: qty(2)},
			},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, tt.in)
			require.Error(t, err)
			appErr, ok := apperror.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, apperror.CodeValidation, appErr.Code)
		})
	}
}

func TestConfirm_AppliesDifferences(t *testing.T) {
	f := newFixture()
	f.seedOnHand(t, 10)

	adj, err := f.svc.Create(context.Background(), CreateInput{
		OrganizationID: f.org,
		WarehouseID:    f.warehouse,
		CountedBy:      "alice",
		Lines:          []LineInput{{ProductID: f.product, CountedQuantity: qty(13)}},
	})
	require.NoError(t, err)

	confirmed, err := f.svc.Confirm(context.Background(), adj.ID, "bob")
	require.NoError(t, err)

	assert.Equal(t, StatusConfirmed, confirmed.Status)
	require.NotNil(t, confirmed.ConfirmedBy)
	assert.Equal(t, "bob", *confirmed.ConfirmedBy)
	assert.Equal(t, qty(13), f.onHand(t))

	// Count metadata lands on the ledger row.
	lvl, err := f.ledgerRepo.Get(context.Background(), f.key())
	require.NoError(t, err)
	require.NotNil(t, lvl.LastCountedBy)
	assert.Equal(t, "alice", *lvl.LastCountedBy)
}

func TestConfirm_ShrinkageGoesNegativeDelta(t *testing.T) {
	f := newFixture()
	f.seedOnHand(t, 10)

	adj, err := f.svc.Create(context.Background(), CreateInput{
		OrganizationID: f.org,
		WarehouseID:    f.warehouse,
		CountedBy:      "alice",
		Lines:          []LineInput{{ProductID: f.product, CountedQuantity: qty(7)}},
	})
	require.NoError(t, err)

	_, err = f.svc.Confirm(context.Background(), adj.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, qty(7), f.onHand(t))
}

func TestConfirm_Twice(t *testing.T) {
	f := newFixture()
	f.seedOnHand(t, 10)

	adj, err := f.svc.Create(context.Background(), CreateInput{
		OrganizationID: f.org,
		WarehouseID:    f.warehouse,
		CountedBy:      "alice",
		Lines:          []LineInput{{ProductID: f.product, CountedQuantity: qty(13)}},
	})
	require.NoError(t, err)

	_, err = f.svc.Confirm(context.Background(), adj.ID, "bob")
	require.NoError(t, err)

	_, err = f.svc.Confirm(context.Background(), adj.ID, "bob")
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInvalidState, appErr.Code)

	// Differences applied exactly once.
	assert.Equal(t, qty(13), f.onHand(t))
}

func TestConfirm_NotFound(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Confirm(context.Background(), id.New(), "bob")
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

func TestConfirm_MissingConfirmedBy(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Confirm(context.Background(), id.New(), "")
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestUpdate_ConfirmedIsImmutable(t *testing.T) {
	f := newFixture()

	adj, err := f.svc.Create(context.Background(), CreateInput{
		OrganizationID: f.org, WarehouseID: f.warehouse, CountedBy: "alice",
	})
	require.NoError(t, err)
	_, err = f.svc.Confirm(context.Background(), adj.ID, "bob")
	require.NoError(t, err)

	reason := "recount"
	_, err = f.svc.Update(context.Background(), adj.ID, UpdateInput{Reason: &reason})
	require.Error(t, err)
	assert.True(t, apperror.IsInvalidState(err))
}

func TestCancel(t *testing.T) {
	f := newFixture()
	f.seedOnHand(t, 10)

	adj, err := f.svc.Create(context.Background(), CreateInput{
		OrganizationID: f.org,
		WarehouseID:    f.warehouse,
		CountedBy:      "alice",
		Lines:          []LineInput{{ProductID: f.product, CountedQuantity: qty(99)}},
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.Cancel(context.Background(), adj.ID, "bob"))

	stored, err := f.svc.GetByID(context.Background(), adj.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, stored.Status)

	// Cancelled counts never touch the ledger.
	assert.Equal(t, qty(10), f.onHand(t))

	// And cannot be confirmed afterwards.
	_, err = f.svc.Confirm(context.Background(), adj.ID, "bob")
	require.Error(t, err)
	assert.True(t, apperror.IsInvalidState(err))
}

func TestPrepareSheet(t *testing.T) {
	f := newFixture()
	f.seedOnHand(t, 10)

	lines, err := f.svc.PrepareSheet(context.Background(), f.org, f.warehouse)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, f.product, lines[0].ProductID)
	assert.Equal(t, qty(10), lines[0].CountedQuantity)
}

func TestConfirm_RecordsAudit(t *testing.T) {
	f := newFixture()

	adj, err := f.svc.Create(context.Background(), CreateInput{
		OrganizationID: f.org, WarehouseID: f.warehouse, CountedBy: "alice",
	})
	require.NoError(t, err)
	_, err = f.svc.Confirm(context.Background(), adj.ID, "bob")
	require.NoError(t, err)

	history, err := f.auditor.EntityHistory(context.Background(), "stock_adjustment", adj.ID, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, audit.ActionCreate, history[0].Action)
	assert.Equal(t, audit.ActionConfirm, history[1].Action)
}

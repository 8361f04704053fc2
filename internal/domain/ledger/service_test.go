package ledger

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockforge/internal/core/apperror"
	"stockforge/internal/core/id"
	"stockforge/internal/core/types"
)

type memRepo struct {
	mu     sync.Mutex
	levels map[Key]*StockLevel
	writes int
}

func newMemRepo() *memRepo {
	return &memRepo{levels: map[Key]*StockLevel{}}
}

func (r *memRepo) Get(ctx context.Context, key Key) (*StockLevel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if lvl, ok := r.levels[key]; ok {
		cp := *lvl
		return &cp, nil
	}
	return nil, nil
}

func (r *memRepo) GetForUpdate(ctx context.Context, key Key) (*StockLevel, error) {
	return r.Get(ctx, key)
}

func (r *memRepo) ApplyDelta(ctx context.Context, delta Delta) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes++
	lvl, ok := r.levels[delta.Key]
	if !ok {
		lvl = &StockLevel{
			OrganizationID: delta.Key.OrganizationID,
			ProductID:      delta.Key.ProductID,
			WarehouseID:    delta.Key.WarehouseID,
			LocationID:     delta.Key.LocationID,
		}
		r.levels[delta.Key] = lvl
	}
	lvl.QuantityOnHand += delta.OnHand
	lvl.QuantityReserved += delta.Reserved
	return nil
}

func (r *memRepo) ListByWarehouse(ctx context.Context, organizationID string, warehouseID id.ID) ([]StockLevel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []StockLevel
	for _, lvl := range r.levels {
		if lvl.OrganizationID == organizationID && lvl.WarehouseID == warehouseID {
			out = append(out, *lvl)
		}
	}
	return out, nil
}

func (r *memRepo) ListByOrganization(ctx context.Context, organizationID string) ([]StockLevel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []StockLevel
	for _, lvl := range r.levels {
		if lvl.OrganizationID == organizationID {
			out = append(out, *lvl)
		}
	}
	return out, nil
}

func units(n int64) types.Quantity { return types.NewQuantityFromUnits(n) }

func testKey() Key {
	return Key{OrganizationID: "org-1", ProductID: id.New(), WarehouseID: id.New()}
}

func TestGetAvailability_MissingRowReadsAsZero(t *testing.T) {
	svc := NewService(newMemRepo())

	av, err := svc.GetAvailability(context.Background(), testKey())
	require.NoError(t, err)
	assert.True(t, av.OnHand.IsZero())
	assert.True(t, av.Reserved.IsZero())
	assert.True(t, av.Available.IsZero())

	exists, err := svc.Exists(context.Background(), testKey())
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestApplyDelta_CreatesAndIncrements(t *testing.T) {
	svc := NewService(newMemRepo())
	key := testKey()
	ctx := context.Background()

	require.NoError(t, svc.ApplyDelta(ctx, Delta{Key: key, OnHand: units(10)}))
	require.NoError(t, svc.ApplyDelta(ctx, Delta{Key: key, OnHand: units(-4)}))

	av, err := svc.GetAvailability(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, units(6), av.OnHand)
}

func TestApplyDelta_ZeroDeltaSkipsWrite(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)

	require.NoError(t, svc.ApplyDelta(context.Background(), Delta{Key: testKey()}))
	assert.Equal(t, 0, repo.writes)
}

func TestApplyDelta_Validation(t *testing.T) {
	svc := NewService(newMemRepo())
	ctx := context.Background()

	err := svc.ApplyDelta(ctx, Delta{Key: Key{ProductID: id.New(), WarehouseID: id.New()}, OnHand: units(1)})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)

	err = svc.ApplyDelta(ctx, Delta{Key: Key{OrganizationID: "org-1"}, OnHand: units(1)})
	require.Error(t, err)
}

func TestApplyDelta_AllowsNegativeOnHand(t *testing.T) {
	svc := NewService(newMemRepo())
	key := testKey()
	ctx := context.Background()

	// Shrinkage adjustments may drive on-hand below zero; the ledger
	// records reality, it does not guard it.
	require.NoError(t, svc.ApplyDelta(ctx, Delta{Key: key, OnHand: units(-3)}))

	av, err := svc.GetAvailability(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, units(-3), av.OnHand)
}

func TestReserveRelease(t *testing.T) {
	svc := NewService(newMemRepo())
	key := testKey()
	ctx := context.Background()

	require.NoError(t, svc.ApplyDelta(ctx, Delta{Key: key, OnHand: units(10)}))
	require.NoError(t, svc.Reserve(ctx, key, units(4)))

	av, err := svc.GetAvailability(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, units(10), av.OnHand)
	assert.Equal(t, units(4), av.Reserved)
	assert.Equal(t, units(6), av.Available)

	require.NoError(t, svc.Release(ctx, key, units(4)))
	av, err = svc.GetAvailability(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, units(10), av.Available)

	err = svc.Reserve(ctx, key, units(0))
	require.Error(t, err)
	err = svc.Release(ctx, key, units(-1))
	require.Error(t, err)
}

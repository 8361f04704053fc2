package ledger

import (
	"context"
	"fmt"

	"stockforge/internal/core/apperror"
	"stockforge/internal/core/id"
	"stockforge/internal/core/types"
	"stockforge/pkg/logger"
)

// Service provides ledger operations. Transactions are managed by the
// caller (the valuation or adjustment service) so that ledger writes stay
// atomic with the mutation that caused them.
type Service struct {
	repo Repository
}

// NewService creates a new ledger service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// GetAvailability returns on-hand, reserved, and derived available quantity.
// A missing row reads as zero rather than an error; callers that need to
// distinguish can use Exists.
func (s *Service) GetAvailability(ctx context.Context, key Key) (Availability, error) {
	level, err := s.repo.Get(ctx, key)
	if err != nil {
		return Availability{}, fmt.Errorf("get stock level: %w", err)
	}
	if level == nil {
		return Availability{}, nil
	}

	return Availability{
		OnHand:    level.QuantityOnHand,
		Reserved:  level.QuantityReserved,
		Available: level.Available(),
	}, nil
}

// Exists reports whether a ledger row has been created for the key.
func (s *Service) Exists(ctx context.Context, key Key) (bool, error) {
	level, err := s.repo.Get(ctx, key)
	if err != nil {
		return false, err
	}
	return level != nil, nil
}

// ApplyDelta applies an atomic on-hand/reserved increment. The row is
// created with zero starting quantities if absent. On-hand may go negative;
// the ledger does not guard availability; adjustments and unchecked
// decrements are allowed to drive it below zero.
func (s *Service) ApplyDelta(ctx context.Context, delta Delta) error {
	if delta.Key.OrganizationID == "" {
		return apperror.NewValidation("organization is required")
	}
	if id.IsNil(delta.Key.ProductID) || id.IsNil(delta.Key.WarehouseID) {
		return apperror.NewValidation("product and warehouse are required")
	}
	if delta.OnHand.IsZero() && delta.Reserved.IsZero() && delta.CountStamp == nil {
		return nil
	}

	if err := s.repo.ApplyDelta(ctx, delta); err != nil {
		return fmt.Errorf("apply ledger delta: %w", err)
	}

	logger.Debug(ctx, "ledger delta applied",
		"product_id", delta.Key.ProductID,
		"warehouse_id", delta.Key.WarehouseID,
		"on_hand_delta", delta.OnHand,
		"reserved_delta", delta.Reserved,
	)

	return nil
}

// Reserve increases the reserved quantity for a key.
func (s *Service) Reserve(ctx context.Context, key Key, qty types.Quantity) error {
	if !qty.IsPositive() {
		return apperror.NewValidation("reserve quantity must be positive")
	}
	return s.ApplyDelta(ctx, Delta{Key: key, Reserved: qty})
}

// Release decreases the reserved quantity for a key.
func (s *Service) Release(ctx context.Context, key Key, qty types.Quantity) error {
	if !qty.IsPositive() {
		return apperror.NewValidation("release quantity must be positive")
	}
	return s.ApplyDelta(ctx, Delta{Key: key, Reserved: qty.Neg()})
}

// ListByWarehouse returns all ledger rows of a warehouse.
func (s *Service) ListByWarehouse(ctx context.Context, organizationID string, warehouseID id.ID) ([]StockLevel, error) {
	return s.repo.ListByWarehouse(ctx, organizationID, warehouseID)
}

// ListByOrganization returns all ledger rows in scope.
func (s *Service) ListByOrganization(ctx context.Context, organizationID string) ([]StockLevel, error) {
	return s.repo.ListByOrganization(ctx, organizationID)
}

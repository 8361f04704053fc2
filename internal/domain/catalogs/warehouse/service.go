package warehouse

import (
	"context"
	"fmt"

	"stockforge/internal/core/id"
	"stockforge/internal/domain/filter"
	"stockforge/pkg/logger"
)

// Service provides business operations for the warehouse catalog.
type Service struct {
	repo Repository
}

// NewService creates a new warehouse service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create validates and stores a new warehouse.
func (s *Service) Create(ctx context.Context, w *Warehouse) error {
	if err := w.Validate(ctx); err != nil {
		return err
	}

	if err := s.repo.Create(ctx, w); err != nil {
		return fmt.Errorf("create warehouse: %w", err)
	}

	logger.Info(ctx, "warehouse created", "id", w.ID, "code", w.Code)
	return nil
}

// GetByID retrieves a warehouse.
func (s *Service) GetByID(ctx context.Context, warehouseID id.ID) (*Warehouse, error) {
	return s.repo.GetByID(ctx, warehouseID)
}

// Update validates and stores warehouse changes.
func (s *Service) Update(ctx context.Context, w *Warehouse) error {
	if err := w.Validate(ctx); err != nil {
		return err
	}
	return s.repo.Update(ctx, w)
}

// List retrieves warehouses for an organization.
func (s *Service) List(ctx context.Context, organizationID string, spec filter.Spec) ([]*Warehouse, error) {
	return s.repo.List(ctx, organizationID, spec)
}

// AddLocation creates a location under a warehouse.
func (s *Service) AddLocation(ctx context.Context, l *Location) error {
	if err := l.Validate(ctx); err != nil {
		return err
	}
	if _, err := s.repo.GetByID(ctx, l.WarehouseID); err != nil {
		return err
	}
	return s.repo.CreateLocation(ctx, l)
}

// ListLocations returns locations of a warehouse.
func (s *Service) ListLocations(ctx context.Context, warehouseID id.ID) ([]*Location, error) {
	return s.repo.ListLocations(ctx, warehouseID)
}

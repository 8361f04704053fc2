package product

import (
	"context"
	"fmt"

	"stockforge/internal/core/id"
	"stockforge/internal/core/types"
	"stockforge/internal/domain/filter"
	"stockforge/pkg/logger"
)

// Service provides business operations for the product catalog.
type Service struct {
	repo Repository
}

// NewService creates a new product service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create validates and stores a new product.
func (s *Service) Create(ctx context.Context, p *Product) error {
	if err := p.Validate(ctx); err != nil {
		return err
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return fmt.Errorf("create product: %w", err)
	}

	logger.Info(ctx, "product created", "id", p.ID, "code", p.Code)
	return nil
}

// GetByID retrieves a product.
func (s *Service) GetByID(ctx context.Context, productID id.ID) (*Product, error) {
	return s.repo.GetByID(ctx, productID)
}

// Update validates and stores product changes.
func (s *Service) Update(ctx context.Context, p *Product) error {
	if err := p.Validate(ctx); err != nil {
		return err
	}
	return s.repo.Update(ctx, p)
}

// SetReorderThresholds updates the replenishment thresholds. Identity fields
// stay immutable; thresholds are the mutable part of a product.
func (s *Service) SetReorderThresholds(ctx context.Context, productID id.ID, point, quantity types.Quantity) error {
	p, err := s.repo.GetByID(ctx, productID)
	if err != nil {
		return err
	}

	p.ReorderPoint = point
	p.ReorderQuantity = quantity
	if err := p.Validate(ctx); err != nil {
		return err
	}

	return s.repo.Update(ctx, p)
}

// List retrieves products for an organization.
func (s *Service) List(ctx context.Context, organizationID string, spec filter.Spec) ([]*Product, error) {
	return s.repo.List(ctx, organizationID, spec)
}

package product

import (
	"context"

	"stockforge/internal/core/id"
	"stockforge/internal/domain/filter"
)

// Repository defines the interface for Product persistence.
type Repository interface {
	Create(ctx context.Context, p *Product) error
	GetByID(ctx context.Context, productID id.ID) (*Product, error)
	GetByCode(ctx context.Context, organizationID, code string) (*Product, error)
	Update(ctx context.Context, p *Product) error
	List(ctx context.Context, organizationID string, spec filter.Spec) ([]*Product, error)
}

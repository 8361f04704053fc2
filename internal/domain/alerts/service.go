package alerts

import (
	"context"
	"fmt"
	"time"

	"stockforge/internal/core/apperror"
	"stockforge/internal/core/id"
	"stockforge/internal/core/tx"
	"stockforge/internal/core/types"
	"stockforge/internal/domain/catalogs/product"
	"stockforge/internal/domain/filter"
	"stockforge/internal/domain/ledger"
	"stockforge/pkg/logger"
)

// Service evaluates reorder conditions and maintains the alert cache.
type Service struct {
	products  product.Repository
	ledger    *ledger.Service
	repo      Repository
	txManager tx.ReadOnlyManager
}

// NewService creates an alert service. repo may be nil for a pure-report
// deployment; Sweep then becomes unavailable. txManager may be nil; the
// evaluation reads then run without a shared snapshot.
func NewService(products product.Repository, ledgerService *ledger.Service, repo Repository, txManager tx.ReadOnlyManager) *Service {
	return &Service{
		products:  products,
		ledger:    ledgerService,
		repo:      repo,
		txManager: txManager,
	}
}

// Evaluate runs the stateless at-risk sweep over one organization's ledger.
// A pair is at risk when the product's reorder point is positive and
// available stock has fallen to or below it.
func (s *Service) Evaluate(ctx context.Context, organizationID string) ([]ReorderSuggestion, error) {
	if organizationID == "" {
		return nil, apperror.NewValidation("organization is required")
	}

	// Products and levels come from two queries; a read-only transaction
	// keeps them on one snapshot so a concurrent receipt cannot skew the
	// comparison.
	var products map[id.ID]*product.Product
	var levels []ledger.StockLevel
	read := func(ctx context.Context) error {
		var err error
		if products, err = s.activeProducts(ctx, organizationID); err != nil {
			return err
		}
		if levels, err = s.ledger.ListByOrganization(ctx, organizationID); err != nil {
			return fmt.Errorf("list stock levels: %w", err)
		}
		return nil
	}

	var err error
	if s.txManager != nil {
		err = s.txManager.ReadOnly(ctx, read)
	} else {
		err = read(ctx)
	}
	if err != nil {
		return nil, err
	}

	// One pair may be split across locations; aggregate before comparing.
	type pair struct {
		product   id.ID
		warehouse id.ID
	}
	available := map[pair]types.Quantity{}
	for _, lvl := range levels {
		k := pair{lvl.ProductID, lvl.WarehouseID}
		available[k] += lvl.Available()
	}

	var out []ReorderSuggestion
	for k, avail := range available {
		p, ok := products[k.product]
		if !ok || !p.ReorderPoint.IsPositive() {
			continue
		}
		if avail > p.ReorderPoint {
			continue
		}
		out = append(out, ReorderSuggestion{
			ProductID:         p.ID,
			ProductCode:       p.Code,
			ProductName:       p.Name,
			WarehouseID:       k.warehouse,
			Available:         avail,
			ReorderPoint:      p.ReorderPoint,
			SuggestedQuantity: suggestedQuantity(p.ReorderPoint, avail),
		})
	}
	return out, nil
}

// Sweep refreshes the persisted alert cache from a fresh evaluation:
// raises alerts for at-risk pairs, updates ones whose severity changed,
// and resolves alerts for pairs that recovered.
func (s *Service) Sweep(ctx context.Context, organizationID string) error {
	if s.repo == nil {
		return apperror.NewInternal(fmt.Errorf("alert persistence is not configured"))
	}

	suggestions, err := s.Evaluate(ctx, organizationID)
	if err != nil {
		return err
	}

	type pair struct {
		product   id.ID
		warehouse id.ID
	}
	atRisk := make(map[pair]ReorderSuggestion, len(suggestions))
	for _, sg := range suggestions {
		atRisk[pair{sg.ProductID, sg.WarehouseID}] = sg
	}

	var raised, updated, resolved int

	for _, sg := range suggestions {
		alertType, severity := classify(sg.Available)

		existing, err := s.repo.GetActive(ctx, organizationID, sg.ProductID, sg.WarehouseID)
		if err != nil {
			return err
		}
		if existing == nil {
			alert := &StockAlert{
				ID:             id.New(),
				OrganizationID: organizationID,
				ProductID:      sg.ProductID,
				WarehouseID:    sg.WarehouseID,
				Type:           alertType,
				Severity:       severity,
				Available:      sg.Available,
				ReorderPoint:   sg.ReorderPoint,
				RaisedAt:       time.Now().UTC(),
			}
			if err := s.repo.Create(ctx, alert); err != nil {
				return err
			}
			raised++
			continue
		}

		if existing.Type != alertType || existing.Severity != severity || existing.Available != sg.Available {
			existing.Type = alertType
			existing.Severity = severity
			existing.Available = sg.Available
			existing.ReorderPoint = sg.ReorderPoint
			if err := s.repo.Update(ctx, existing); err != nil {
				return err
			}
			updated++
		}
	}

	active, err := s.repo.ListActive(ctx, organizationID)
	if err != nil {
		return err
	}
	for _, alert := range active {
		if _, still := atRisk[pair{alert.ProductID, alert.WarehouseID}]; still {
			continue
		}
		if err := s.repo.Resolve(ctx, organizationID, alert.ProductID, alert.WarehouseID); err != nil {
			return err
		}
		resolved++
	}

	logger.Info(ctx, "alert sweep completed",
		"organization_id", organizationID,
		"at_risk", len(suggestions),
		"raised", raised,
		"updated", updated,
		"resolved", resolved,
	)
	return nil
}

// ListActive returns the unresolved alert cache for an organization.
func (s *Service) ListActive(ctx context.Context, organizationID string) ([]*StockAlert, error) {
	if s.repo == nil {
		return nil, apperror.NewInternal(fmt.Errorf("alert persistence is not configured"))
	}
	if organizationID == "" {
		return nil, apperror.NewValidation("organization is required")
	}
	return s.repo.ListActive(ctx, organizationID)
}

func (s *Service) activeProducts(ctx context.Context, organizationID string) (map[id.ID]*product.Product, error) {
	var spec filter.Spec
	spec.Where("is_active", filter.Equal, true)
	list, err := s.products.List(ctx, organizationID, spec)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	byID := make(map[id.ID]*product.Product, len(list))
	for _, p := range list {
		byID[p.ID] = p
	}
	return byID, nil
}

// suggestedQuantity restocks to twice the reorder point, rounded up to
// whole units and floored at zero.
func suggestedQuantity(reorderPoint, available types.Quantity) types.Quantity {
	target := reorderPoint*2 - available
	if target.IsNegative() {
		target = 0
	}
	return target.CeilUnits()
}

func classify(available types.Quantity) (AlertType, Severity) {
	if available <= 0 {
		return TypeOutOfStock, SeverityCritical
	}
	return TypeLowStock, SeverityWarning
}

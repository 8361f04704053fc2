package valuation

import (
	"context"
	"fmt"
	"time"

	"stockforge/internal/core/apperror"
	"stockforge/internal/core/id"
	"stockforge/internal/core/tx"
	"stockforge/internal/domain/ledger"
	"stockforge/internal/domain/valuation/method"
	"stockforge/pkg/logger"
)

// Service orchestrates receipts and consumptions. Each mutation runs in one
// transaction: layer changes and the matching ledger delta commit together,
// so readers never observe a half-applied movement.
type Service struct {
	repo      Repository
	ledger    *ledger.Service
	txManager tx.Manager
}

// NewService creates a new valuation service.
func NewService(repo Repository, ledgerService *ledger.Service, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		ledger:    ledgerService,
		txManager: txManager,
	}
}

// Receive records a goods receipt: appends one immutable cost layer and
// increments the warehouse-wide ledger row by the received quantity.
func (s *Service) Receive(ctx context.Context, in ReceiveInput) (*Layer, error) {
	if err := in.Validate(ctx); err != nil {
		return nil, err
	}

	layer := NewLayer(in.OrganizationID, in.ProductID, in.WarehouseID, in.Quantity, in.UnitCost, in.ReceiptDate, in.Reference)
	layer.Notes = in.Notes

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.CreateLayer(ctx, layer); err != nil {
			return fmt.Errorf("create layer: %w", err)
		}

		return s.ledger.ApplyDelta(ctx, ledger.Delta{
			Key: ledger.Key{
				OrganizationID: in.OrganizationID,
				ProductID:      in.ProductID,
				WarehouseID:    in.WarehouseID,
			},
			OnHand: in.Quantity,
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "inventory received",
		"layer_id", layer.ID,
		"product_id", in.ProductID,
		"warehouse_id", in.WarehouseID,
		"quantity", in.Quantity,
		"unit_cost", in.UnitCost,
	)

	return layer, nil
}

// Consume drains open layers in method order, emits a COGS transaction and
// decrements the ledger, all in one transaction serialized per
// (product, warehouse) by the layer row locks.
//
// When open layers cannot cover the request the engine under-fulfills
// silently: QuantityConsumed < QuantityRequested and no error. Callers must
// inspect the result. Set FailOnShortage to get InsufficientStock instead.
func (s *Service) Consume(ctx context.Context, in ConsumeInput) (*ConsumptionResult, error) {
	if err := in.Validate(ctx); err != nil {
		return nil, err
	}

	// Zero-quantity consumption is a no-op by contract: nothing to lock,
	// nothing to record.
	if in.Quantity.IsZero() {
		return &ConsumptionResult{Method: in.Method}, nil
	}

	txnDate := in.TransactionDate
	if txnDate.IsZero() {
		txnDate = time.Now().UTC()
	}

	var result *ConsumptionResult

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		layers, err := s.repo.ListOpenLayersForUpdate(ctx, in.OrganizationID, in.ProductID, in.WarehouseID, in.Method)
		if err != nil {
			return fmt.Errorf("lock open layers: %w", err)
		}

		if in.FailOnShortage {
			if available := openQuantity(layers); available < in.Quantity {
				return apperror.NewInsufficientStock(
					in.ProductID.String(),
					in.Quantity.String(),
					available.String(),
				)
			}
		}

		drained := drainLayers(layers, in.Quantity)

		result = &ConsumptionResult{
			QuantityRequested: in.Quantity,
			QuantityConsumed:  drained.consumed,
			TotalCost:         drained.totalCost,
			AverageUnitCost:   averageUnitCost(drained.totalCost, drained.consumed),
			Method:            in.Method,
			Layers:            drained.entries,
		}

		if drained.consumed.IsZero() {
			return nil
		}

		if err := s.repo.UpdateLayerRemaining(ctx, drained.touched); err != nil {
			return fmt.Errorf("update layers: %w", err)
		}

		txn := &COGSTransaction{
			ID:              id.New(),
			OrganizationID:  in.OrganizationID,
			ProductID:       in.ProductID,
			WarehouseID:     in.WarehouseID,
			TransactionType: in.TransactionType,
			TransactionDate: txnDate,
			ReferenceID:     in.ReferenceID,
			Quantity:        drained.consumed,
			UnitCost:        result.AverageUnitCost,
			TotalCost:       drained.totalCost,
			Method:          in.Method,
			CreatedAt:       time.Now().UTC(),
		}
		if err := s.repo.CreateCOGS(ctx, txn); err != nil {
			return fmt.Errorf("create cogs transaction: %w", err)
		}

		return s.ledger.ApplyDelta(ctx, ledger.Delta{
			Key: ledger.Key{
				OrganizationID: in.OrganizationID,
				ProductID:      in.ProductID,
				WarehouseID:    in.WarehouseID,
			},
			OnHand: drained.consumed.Neg(),
		})
	})
	if err != nil {
		return nil, err
	}

	if result.Shortfall().IsPositive() {
		logger.Warn(ctx, "consumption under-fulfilled",
			"product_id", in.ProductID,
			"warehouse_id", in.WarehouseID,
			"requested", in.Quantity,
			"consumed", result.QuantityConsumed,
		)
	}

	logger.Info(ctx, "inventory consumed",
		"product_id", in.ProductID,
		"warehouse_id", in.WarehouseID,
		"method", in.Method,
		"quantity", result.QuantityConsumed,
		"total_cost", result.TotalCost,
	)

	return result, nil
}

// ListOpenLayers returns open layers of a pair in method order.
func (s *Service) ListOpenLayers(ctx context.Context, organizationID string, productID, warehouseID id.ID, m method.Method) ([]*Layer, error) {
	if !m.IsValid() {
		return nil, apperror.NewValidation("invalid valuation method").
			WithDetail("value", string(m))
	}
	return s.repo.ListOpenLayers(ctx, organizationID, productID, warehouseID, m)
}

// LayerHistory returns the full layer history of a pair, consumed layers
// included.
func (s *Service) LayerHistory(ctx context.Context, organizationID string, productID, warehouseID id.ID) ([]*Layer, error) {
	return s.repo.ListLayers(ctx, organizationID, productID, warehouseID)
}

// ListCOGS returns COGS transactions matching the filter.
func (s *Service) ListCOGS(ctx context.Context, f COGSFilter) ([]COGSTransaction, error) {
	if f.OrganizationID == "" {
		return nil, apperror.NewValidation("organization is required")
	}
	return s.repo.ListCOGS(ctx, f)
}

// ValueOnHand reports the open-layer value per product.
func (s *Service) ValueOnHand(ctx context.Context, organizationID string, warehouseID *id.ID) ([]ProductValue, error) {
	if organizationID == "" {
		return nil, apperror.NewValidation("organization is required")
	}
	return s.repo.ValueOnHand(ctx, organizationID, warehouseID)
}

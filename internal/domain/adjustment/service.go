package adjustment

import (
	"context"
	"fmt"
	"time"

	"stockforge/internal/core/apperror"
	appctx "stockforge/internal/core/context"
	"stockforge/internal/core/id"
	"stockforge/internal/core/tx"
	"stockforge/internal/core/types"
	"stockforge/internal/domain/audit"
	"stockforge/internal/domain/ledger"
	"stockforge/pkg/logger"
	"stockforge/pkg/numerator"
)

const entityType = "stock_adjustment"

// NumberGenerator assigns document numbers. Satisfied by numerator.Service.
type NumberGenerator interface {
	GetNextNumber(ctx context.Context, cfg numerator.Config, opts *numerator.Options, period time.Time) (string, error)
}

// Service orchestrates the adjustment document lifecycle.
type Service struct {
	repo      Repository
	ledger    *ledger.Service
	numbers   NumberGenerator
	auditor   audit.Recorder
	txManager tx.Manager

	numberCfg numerator.Config
}

// NewService creates a new adjustment service. auditor may be nil.
func NewService(repo Repository, ledgerService *ledger.Service, numbers NumberGenerator, auditor audit.Recorder, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		ledger:    ledgerService,
		numbers:   numbers,
		auditor:   auditor,
		txManager: txManager,
		numberCfg: numerator.DefaultConfig("ADJ"),
	}
}

// LineInput is one counted line supplied by the caller.
type LineInput struct {
	ProductID       id.ID
	LocationID      *id.ID
	CountedQuantity types.Quantity
	Notes           string
}

// CreateInput describes a new adjustment draft.
type CreateInput struct {
	OrganizationID string
	WarehouseID    id.ID
	CountedBy      string
	CountedAt      time.Time // zero value means now
	Reason         string
	Notes          string
	Lines          []LineInput
}

// Create builds a draft document. System quantities are snapshotted from
// the ledger at creation time; differences are computed against that
// snapshot, not against stock at confirmation time.
func (s *Service) Create(ctx context.Context, in CreateInput) (*StockAdjustment, error) {
	adj := NewAdjustment(in.OrganizationID, in.WarehouseID, in.CountedBy, in.CountedAt)
	adj.Reason = in.Reason
	adj.Notes = in.Notes

	for _, li := range in.Lines {
		system, err := s.systemQuantity(ctx, in.OrganizationID, li.ProductID, in.WarehouseID, li.LocationID)
		if err != nil {
			return nil, err
		}
		line := NewLine(adj.ID, li.ProductID, li.LocationID, system, li.CountedQuantity)
		line.Notes = li.Notes
		adj.Lines = append(adj.Lines, line)
	}

	if err := adj.Validate(ctx); err != nil {
		return nil, err
	}

	number, err := s.numbers.GetNextNumber(ctx, s.numberCfg, nil, adj.CountedAt)
	if err != nil {
		return nil, fmt.Errorf("assign document number: %w", err)
	}
	adj.Number = number

	if err := s.repo.Create(ctx, adj); err != nil {
		return nil, err
	}

	s.recordAudit(ctx, adj, audit.ActionCreate, map[string]any{
		"number": adj.Number,
		"lines":  len(adj.Lines),
	})

	logger.Info(ctx, "adjustment draft created",
		"adjustment_id", adj.ID,
		"number", adj.Number,
		"warehouse_id", adj.WarehouseID,
		"lines", len(adj.Lines),
	)

	return adj, nil
}

// PrepareSheet returns line inputs prefilled from the current ledger of a
// warehouse. Counted quantities start equal to system quantities, so an
// untouched sheet confirms to zero differences.
func (s *Service) PrepareSheet(ctx context.Context, organizationID string, warehouseID id.ID) ([]LineInput, error) {
	if organizationID == "" {
		return nil, apperror.NewValidation("organization is required")
	}
	levels, err := s.ledger.ListByWarehouse(ctx, organizationID, warehouseID)
	if err != nil {
		return nil, fmt.Errorf("list stock levels: %w", err)
	}

	lines := make([]LineInput, 0, len(levels))
	for _, lvl := range levels {
		lines = append(lines, LineInput{
			ProductID:       lvl.ProductID,
			LocationID:      lvl.LocationID,
			CountedQuantity: lvl.QuantityOnHand,
		})
	}
	return lines, nil
}

// GetByID loads a document with lines.
func (s *Service) GetByID(ctx context.Context, adjustmentID id.ID) (*StockAdjustment, error) {
	return s.repo.GetByID(ctx, adjustmentID)
}

// List returns document headers matching the filter.
func (s *Service) List(ctx context.Context, f Filter) ([]*StockAdjustment, error) {
	if f.OrganizationID == "" {
		return nil, apperror.NewValidation("organization is required")
	}
	return s.repo.List(ctx, f)
}

// UpdateInput carries editable fields of a draft.
type UpdateInput struct {
	Reason *string
	Notes  *string
	// Lines, when non-nil, replaces all lines. System quantities are
	// re-snapshotted from the ledger.
	Lines []LineInput
}

// Update edits a draft document. Confirmed and cancelled documents are
// immutable.
func (s *Service) Update(ctx context.Context, adjustmentID id.ID, in UpdateInput) (*StockAdjustment, error) {
	adj, err := s.repo.GetByID(ctx, adjustmentID)
	if err != nil {
		return nil, err
	}
	if !adj.IsDraft() {
		return nil, apperror.NewInvalidState("only draft adjustments can be edited").
			WithDetail("status", string(adj.Status))
	}

	if in.Reason != nil {
		adj.Reason = *in.Reason
	}
	if in.Notes != nil {
		adj.Notes = *in.Notes
	}
	if in.Lines != nil {
		adj.Lines = adj.Lines[:0]
		for _, li := range in.Lines {
			system, err := s.systemQuantity(ctx, adj.OrganizationID, li.ProductID, adj.WarehouseID, li.LocationID)
			if err != nil {
				return nil, err
			}
			line := NewLine(adj.ID, li.ProductID, li.LocationID, system, li.CountedQuantity)
			line.Notes = li.Notes
			adj.Lines = append(adj.Lines, line)
		}
	}

	if err := adj.Validate(ctx); err != nil {
		return nil, err
	}

	adj.Touch()
	if err := s.repo.Update(ctx, adj); err != nil {
		return nil, err
	}

	s.recordAudit(ctx, adj, audit.ActionUpdate, map[string]any{"lines": len(adj.Lines)})

	return adj, nil
}

// Confirm applies a draft's line differences to the ledger and freezes the
// document. Confirming anything but a draft is an invalid state error, so a
// double confirm cannot apply differences twice.
func (s *Service) Confirm(ctx context.Context, adjustmentID id.ID, confirmedBy string) (*StockAdjustment, error) {
	if confirmedBy == "" {
		confirmedBy = s.userFromContext(ctx)
	}
	if confirmedBy == "" {
		return nil, apperror.NewValidation("confirmed by is required")
	}

	var adj *StockAdjustment

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		adj, err = s.repo.GetByIDForUpdate(ctx, adjustmentID)
		if err != nil {
			return err
		}
		if !adj.IsDraft() {
			return apperror.NewInvalidState("only draft adjustments can be confirmed").
				WithDetail("adjustmentId", adjustmentID.String()).
				WithDetail("status", string(adj.Status))
		}

		now := time.Now().UTC()
		stamp := &ledger.CountStamp{CountedAt: adj.CountedAt, CountedBy: adj.CountedBy}

		for _, line := range adj.Lines {
			if line.Difference.IsZero() {
				// Zero differences still stamp the count date on the row.
				delta := ledger.Delta{Key: s.lineKey(adj, line), CountStamp: stamp}
				if err := s.ledger.ApplyDelta(ctx, delta); err != nil {
					return err
				}
				continue
			}
			delta := ledger.Delta{
				Key:        s.lineKey(adj, line),
				OnHand:     line.Difference,
				CountStamp: stamp,
			}
			if err := s.ledger.ApplyDelta(ctx, delta); err != nil {
				return err
			}
		}

		if err := s.repo.SetStatus(ctx, adj.ID, StatusConfirmed, &confirmedBy, &now); err != nil {
			return err
		}
		adj.Status = StatusConfirmed
		adj.ConfirmedBy = &confirmedBy
		adj.ConfirmedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, adj, audit.ActionConfirm, map[string]any{
		"number":       adj.Number,
		"confirmed_by": confirmedBy,
	})

	logger.Info(ctx, "adjustment confirmed",
		"adjustment_id", adj.ID,
		"number", adj.Number,
		"lines", len(adj.Lines),
	)

	return adj, nil
}

// Cancel voids a draft document. No ledger changes are made.
func (s *Service) Cancel(ctx context.Context, adjustmentID id.ID, cancelledBy string) error {
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		adj, err := s.repo.GetByIDForUpdate(ctx, adjustmentID)
		if err != nil {
			return err
		}
		if !adj.IsDraft() {
			return apperror.NewInvalidState("only draft adjustments can be cancelled").
				WithDetail("status", string(adj.Status))
		}
		now := time.Now().UTC()
		return s.repo.SetStatus(ctx, adj.ID, StatusCancelled, &cancelledBy, &now)
	})
	if err != nil {
		return err
	}

	if s.auditor != nil {
		_ = s.auditor.RecordChange(ctx, entityType, adjustmentID, audit.ActionCancel, nil)
	}
	return nil
}

func (s *Service) lineKey(adj *StockAdjustment, line Line) ledger.Key {
	return ledger.Key{
		OrganizationID: adj.OrganizationID,
		ProductID:      line.ProductID,
		WarehouseID:    adj.WarehouseID,
		LocationID:     line.LocationID,
	}
}

func (s *Service) systemQuantity(ctx context.Context, organizationID string, productID, warehouseID id.ID, locationID *id.ID) (types.Quantity, error) {
	av, err := s.ledger.GetAvailability(ctx, ledger.Key{
		OrganizationID: organizationID,
		ProductID:      productID,
		WarehouseID:    warehouseID,
		LocationID:     locationID,
	})
	if err != nil {
		return 0, fmt.Errorf("read system quantity: %w", err)
	}
	return av.OnHand, nil
}

func (s *Service) userFromContext(ctx context.Context) string {
	if user := appctx.GetUser(ctx); user != nil {
		return user.UserID
	}
	return ""
}

// recordAudit writes an audit entry, logging instead of failing when the
// trail is unavailable.
func (s *Service) recordAudit(ctx context.Context, adj *StockAdjustment, action audit.Action, changes map[string]any) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.RecordChange(ctx, entityType, adj.ID, action, changes); err != nil {
		logger.Warn(ctx, "audit record failed", "adjustment_id", adj.ID, "error", err)
	}
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/madukaneranga/Kixora-sub002/internal/domain"
	"github.com/madukaneranga/Kixora-sub002/internal/event"
	"github.com/madukaneranga/Kixora-sub002/internal/repository"
	apperrors "github.com/madukaneranga/Kixora-sub002/pkg/errors"
)

// Ledger is the single source of truth for whether N units of a variant can
// be sold right now. Availability checks are cheap point-in-time reads;
// Decrement is the sole state-changing choke point and re-verifies the
// preconditions under a row lock.
type Ledger struct {
	repo              repository.InventoryRepository
	producer          *event.Producer
	logger            *slog.Logger
	lowStockThreshold int
}

// NewLedger creates a new inventory ledger service.
func NewLedger(
	repo repository.InventoryRepository,
	producer *event.Producer,
	logger *slog.Logger,
	lowStockThreshold int,
) *Ledger {
	return &Ledger{
		repo:              repo,
		producer:          producer,
		logger:            logger,
		lowStockThreshold: lowStockThreshold,
	}
}

// CheckAvailability reads the variant's stock snapshot. The answer can be
// stale by the time a subsequent write happens; Decrement re-checks under
// its own lock. An unknown variant reads as unavailable with zero stock
// rather than an error, so cart flows degrade to "not sellable".
func (l *Ledger) CheckAvailability(ctx context.Context, variantID string, quantity int) (domain.Availability, error) {
	if variantID == "" {
		return domain.Availability{}, apperrors.InvalidInput("variant_id is required")
	}
	if quantity < 0 {
		return domain.Availability{}, apperrors.InvalidInput("quantity must be non-negative")
	}

	rec, err := l.repo.GetByVariant(ctx, variantID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return domain.Availability{VariantID: variantID, Available: 0, Active: false}, nil
		}
		return domain.Availability{}, fmt.Errorf("check availability: %w", err)
	}

	return domain.Availability{
		VariantID: rec.VariantID,
		Available: rec.StockCount,
		Active:    rec.Active(),
	}, nil
}

// Decrement atomically reduces the variant's stock by quantity, recording
// orderID as the movement reference. Stock shortfalls and inactive variants
// come back as typed errors carrying the available count; the counter is
// untouched in every failure case.
func (l *Ledger) Decrement(ctx context.Context, variantID string, quantity int, orderID string) error {
	if variantID == "" {
		return apperrors.InvalidInput("variant_id is required")
	}
	if quantity <= 0 {
		return apperrors.InvalidInput("quantity must be positive")
	}

	var refID *string
	if orderID != "" {
		refID = &orderID
	}

	if err := l.repo.Decrement(ctx, variantID, quantity, refID); err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}

	l.logger.InfoContext(ctx, "stock decremented",
		slog.String("variant_id", variantID),
		slog.Int("quantity", quantity),
		slog.String("order_id", orderID),
	)

	rec, err := l.repo.GetByVariant(ctx, variantID)
	if err != nil {
		l.logger.ErrorContext(ctx, "failed to re-read inventory after decrement",
			slog.String("variant_id", variantID),
			slog.String("error", err.Error()),
		)
		return nil
	}

	if err := l.producer.PublishInventoryDecremented(ctx, rec, quantity, orderID); err != nil {
		l.logger.ErrorContext(ctx, "failed to publish inventory.decremented event",
			slog.String("variant_id", variantID),
			slog.String("error", err.Error()),
		)
	}

	if rec.StockCount <= l.lowStockThreshold {
		if err := l.producer.PublishInventoryLowStock(ctx, rec, l.lowStockThreshold); err != nil {
			l.logger.ErrorContext(ctx, "failed to publish inventory.low_stock event",
				slog.String("variant_id", variantID),
				slog.String("error", err.Error()),
			)
		}
	}

	return nil
}

// Restock increases the variant's stock, creating the record when absent.
// Fed by the restock consumer and the ops endpoint.
func (l *Ledger) Restock(ctx context.Context, variantID, productID string, quantity int, referenceID string) (*domain.InventoryRecord, error) {
	if variantID == "" {
		return nil, apperrors.InvalidInput("variant_id is required")
	}
	if productID == "" {
		return nil, apperrors.InvalidInput("product_id is required")
	}
	if quantity <= 0 {
		return nil, apperrors.InvalidInput("quantity must be positive")
	}

	var refID *string
	if referenceID != "" {
		refID = &referenceID
	}

	if err := l.repo.Restock(ctx, variantID, productID, quantity, refID); err != nil {
		return nil, fmt.Errorf("restock: %w", err)
	}

	rec, err := l.repo.GetByVariant(ctx, variantID)
	if err != nil {
		return nil, fmt.Errorf("get inventory after restock: %w", err)
	}

	if err := l.producer.PublishInventoryRestocked(ctx, rec, quantity); err != nil {
		l.logger.ErrorContext(ctx, "failed to publish inventory.restocked event",
			slog.String("variant_id", variantID),
			slog.String("error", err.Error()),
		)
	}

	l.logger.InfoContext(ctx, "stock restocked",
		slog.String("variant_id", variantID),
		slog.Int("quantity", quantity),
		slog.Int("new_stock", rec.StockCount),
	)

	return rec, nil
}

// SetVariantActive flips the variant's active flag.
func (l *Ledger) SetVariantActive(ctx context.Context, variantID string, active bool) error {
	if variantID == "" {
		return apperrors.InvalidInput("variant_id is required")
	}

	if err := l.repo.SetVariantActive(ctx, variantID, active); err != nil {
		return fmt.Errorf("set variant active: %w", err)
	}

	l.logger.InfoContext(ctx, "variant active flag updated",
		slog.String("variant_id", variantID),
		slog.Bool("active", active),
	)

	return nil
}

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/madukaneranga/Kixora-sub002/internal/domain"
	"github.com/madukaneranga/Kixora-sub002/pkg/database"
	apperrors "github.com/madukaneranga/Kixora-sub002/pkg/errors"
)

// InventoryRepository implements repository.InventoryRepository using PostgreSQL.
type InventoryRepository struct {
	pool database.DBTX
}

// NewInventoryRepository creates a new PostgreSQL-backed inventory repository.
func NewInventoryRepository(pool database.DBTX) *InventoryRepository {
	return &InventoryRepository{pool: pool}
}

// GetByVariant retrieves the inventory record for a variant.
func (r *InventoryRepository) GetByVariant(ctx context.Context, variantID string) (*domain.InventoryRecord, error) {
	query := `
		SELECT variant_id, product_id, stock_count, variant_active, product_active, updated_at
		FROM inventory
		WHERE variant_id = $1`

	var rec domain.InventoryRecord
	err := r.pool.QueryRow(ctx, query, variantID).Scan(
		&rec.VariantID,
		&rec.ProductID,
		&rec.StockCount,
		&rec.VariantActive,
		&rec.ProductActive,
		&rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("variant", variantID)
		}
		return nil, fmt.Errorf("get inventory by variant: %w", err)
	}

	return &rec, nil
}

// Decrement atomically reduces the stock counter for a variant. The row is
// locked with SELECT FOR UPDATE, the preconditions are re-read under that
// lock, and the counter plus the audit movement are written in the same
// transaction. It never takes the counter below zero, however many callers
// target the variant concurrently.
func (r *InventoryRepository) Decrement(ctx context.Context, variantID string, quantity int, refID *string) error {
	if quantity <= 0 {
		return apperrors.InvalidInput("decrement quantity must be positive")
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin decrement transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	lockQuery := `
		SELECT stock_count, variant_active, product_active
		FROM inventory
		WHERE variant_id = $1
		FOR UPDATE`

	var (
		stockCount    int
		variantActive bool
		productActive bool
	)
	if err := tx.QueryRow(ctx, lockQuery, variantID).Scan(&stockCount, &variantActive, &productActive); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NotFound("variant", variantID)
		}
		return fmt.Errorf("lock inventory row: %w", err)
	}

	if !variantActive || !productActive {
		return apperrors.VariantInactive(variantID)
	}
	if stockCount < quantity {
		return apperrors.InsufficientStock(variantID, quantity, stockCount)
	}

	updateQuery := `
		UPDATE inventory
		SET stock_count = stock_count - $1, updated_at = NOW()
		WHERE variant_id = $2`

	if _, err := tx.Exec(ctx, updateQuery, quantity, variantID); err != nil {
		return fmt.Errorf("decrement stock count: %w", err)
	}

	movementQuery := `
		INSERT INTO stock_movements (variant_id, quantity_change, reason, reference_id)
		VALUES ($1, $2, $3, $4)`

	if _, err := tx.Exec(ctx, movementQuery, variantID, -quantity, domain.MovementReasonOrder, refID); err != nil {
		return fmt.Errorf("insert stock movement: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit decrement transaction: %w", err)
	}

	return nil
}

// Restock increases the stock counter, creating the record if it does not
// exist yet, and records the movement in the same transaction.
func (r *InventoryRepository) Restock(ctx context.Context, variantID, productID string, quantity int, refID *string) error {
	if quantity <= 0 {
		return apperrors.InvalidInput("restock quantity must be positive")
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin restock transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	upsertQuery := `
		INSERT INTO inventory (variant_id, product_id, stock_count, variant_active, product_active, updated_at)
		VALUES ($1, $2, $3, TRUE, TRUE, NOW())
		ON CONFLICT (variant_id) DO UPDATE SET
			stock_count = inventory.stock_count + $3,
			updated_at = NOW()`

	if _, err := tx.Exec(ctx, upsertQuery, variantID, productID, quantity); err != nil {
		return fmt.Errorf("upsert inventory: %w", err)
	}

	movementQuery := `
		INSERT INTO stock_movements (variant_id, quantity_change, reason, reference_id)
		VALUES ($1, $2, $3, $4)`

	if _, err := tx.Exec(ctx, movementQuery, variantID, quantity, domain.MovementReasonRestock, refID); err != nil {
		return fmt.Errorf("insert stock movement: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit restock transaction: %w", err)
	}

	return nil
}

// SetVariantActive flips the variant's active flag.
func (r *InventoryRepository) SetVariantActive(ctx context.Context, variantID string, active bool) error {
	query := `
		UPDATE inventory
		SET variant_active = $1, updated_at = NOW()
		WHERE variant_id = $2`

	ct, err := r.pool.Exec(ctx, query, active, variantID)
	if err != nil {
		return fmt.Errorf("set variant active: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("variant", variantID)
	}

	return nil
}

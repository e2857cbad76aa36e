package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/madukaneranga/Kixora-sub002/internal/domain"
	"github.com/madukaneranga/Kixora-sub002/pkg/database"
	apperrors "github.com/madukaneranga/Kixora-sub002/pkg/errors"
)

// OrderRepository implements repository.OrderRepository using PostgreSQL.
type OrderRepository struct {
	pool database.DBTX
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool database.DBTX) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create inserts a new order and its items atomically within a transaction.
func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	orderQuery := `
		INSERT INTO orders (id, user_id, status, payment_status, subtotal_amount, total_amount, currency, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = tx.Exec(ctx, orderQuery,
		o.ID,
		o.UserID,
		o.Status,
		o.PaymentStatus,
		o.SubtotalAmount,
		o.TotalAmount,
		o.Currency,
		o.CreatedAt,
		o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	itemQuery := `
		INSERT INTO order_items (id, order_id, product_id, variant_id, title, unit_price, quantity)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	for _, item := range o.Items {
		_, err = tx.Exec(ctx, itemQuery,
			item.ID,
			item.OrderID,
			item.ProductID,
			item.VariantID,
			item.Title,
			item.UnitPrice,
			item.Quantity,
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// GetByID retrieves an order by its ID, eagerly loading its items.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	query := `
		SELECT id, user_id, status, payment_status, subtotal_amount, total_amount, currency,
			   payment_method, payment_message, masked_instrument, provider_reference,
			   created_at, updated_at
		FROM orders
		WHERE id = $1`

	var o domain.Order
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&o.ID,
		&o.UserID,
		&o.Status,
		&o.PaymentStatus,
		&o.SubtotalAmount,
		&o.TotalAmount,
		&o.Currency,
		&o.PaymentMethod,
		&o.PaymentMessage,
		&o.MaskedInstrument,
		&o.ProviderReference,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("order", id)
		}
		return nil, fmt.Errorf("get order by id: %w", err)
	}

	items, err := r.loadOrderItems(ctx, id)
	if err != nil {
		return nil, err
	}
	o.Items = items

	return &o, nil
}

// ListByUser returns a page of a user's orders, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string, offset, limit int) ([]domain.Order, int, error) {
	query := `
		SELECT id, user_id, status, payment_status, subtotal_amount, total_amount, currency,
			   payment_method, payment_message, masked_instrument, provider_reference,
			   created_at, updated_at,
			   count(*) OVER() AS total_count
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders by user: %w", err)
	}
	defer rows.Close()

	var (
		orders     []domain.Order
		totalCount int
	)

	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(
			&o.ID,
			&o.UserID,
			&o.Status,
			&o.PaymentStatus,
			&o.SubtotalAmount,
			&o.TotalAmount,
			&o.Currency,
			&o.PaymentMethod,
			&o.PaymentMessage,
			&o.MaskedInstrument,
			&o.ProviderReference,
			&o.CreatedAt,
			&o.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan order row: %w", err)
		}
		o.Items = []domain.OrderItem{}
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate order rows: %w", err)
	}

	if orders == nil {
		orders = []domain.Order{}
	}

	return orders, totalCount, nil
}

// SetProviderReference stores the gateway's payment-session reference.
func (r *OrderRepository) SetProviderReference(ctx context.Context, id, reference string) error {
	query := `
		UPDATE orders
		SET provider_reference = $1, updated_at = $2
		WHERE id = $3`

	ct, err := r.pool.Exec(ctx, query, reference, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set provider reference: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("order", id)
	}

	return nil
}

// ApplyPaymentResult writes the webhook outcome. The WHERE clause pins the
// current status to 'pending', so two concurrent deliveries for the same
// order cannot both transition it; the loser sees zero rows affected.
func (r *OrderRepository) ApplyPaymentResult(ctx context.Context, id string, result domain.PaymentResult) (bool, error) {
	query := `
		UPDATE orders
		SET status = $1,
			payment_status = $2,
			payment_method = $3,
			payment_message = $4,
			masked_instrument = $5,
			provider_reference = COALESCE(NULLIF($6, ''), provider_reference),
			updated_at = $7
		WHERE id = $8 AND status = 'pending'`

	ct, err := r.pool.Exec(ctx, query,
		result.Status,
		result.PaymentStatus,
		result.PaymentMethod,
		result.PaymentMessage,
		result.MaskedInstrument,
		result.ProviderReference,
		time.Now().UTC(),
		id,
	)
	if err != nil {
		return false, fmt.Errorf("apply payment result: %w", err)
	}

	return ct.RowsAffected() == 1, nil
}

// loadOrderItems retrieves all items belonging to a given order.
func (r *OrderRepository) loadOrderItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	query := `
		SELECT id, order_id, product_id, variant_id, title, unit_price, quantity
		FROM order_items
		WHERE order_id = $1
		ORDER BY id`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.VariantID,
			&item.Title,
			&item.UnitPrice,
			&item.Quantity,
		); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order item rows: %w", err)
	}

	if items == nil {
		items = []domain.OrderItem{}
	}

	return items, nil
}

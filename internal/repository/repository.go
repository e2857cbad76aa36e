package repository

import (
	"context"

	"github.com/madukaneranga/Kixora-sub002/internal/domain"
)

// CartMirrorRepository is the server-persisted mirror of a bound identity's
// cart. The local cart is authoritative; the mirror converges via Replace.
type CartMirrorRepository interface {
	// Get retrieves the mirrored cart for a user.
	Get(ctx context.Context, userID string) (*domain.Cart, error)

	// Replace overwrites the mirror with the given cart (delete-then-set
	// semantics, idempotent).
	Replace(ctx context.Context, userID string, cart *domain.Cart) error

	// Delete removes the mirror for a user.
	Delete(ctx context.Context, userID string) error
}

// InventoryRepository owns the per-variant stock counters.
type InventoryRepository interface {
	// GetByVariant retrieves the inventory record for a variant.
	GetByVariant(ctx context.Context, variantID string) (*domain.InventoryRecord, error)

	// Decrement atomically reduces the stock counter. It re-checks the
	// active flags and the counter under a row lock and aborts with no
	// partial effect on any precondition failure.
	Decrement(ctx context.Context, variantID string, quantity int, refID *string) error

	// Restock increases the stock counter, creating the record if absent.
	Restock(ctx context.Context, variantID, productID string, quantity int, refID *string) error

	// SetVariantActive flips the variant's active flag.
	SetVariantActive(ctx context.Context, variantID string, active bool) error
}

// OrderRepository persists checkout snapshots and their payment lifecycle.
type OrderRepository interface {
	// Create inserts an order and its immutable line items in one transaction.
	Create(ctx context.Context, order *domain.Order) error

	// GetByID retrieves an order with its items.
	GetByID(ctx context.Context, id string) (*domain.Order, error)

	// ListByUser returns a page of a user's orders, newest first.
	ListByUser(ctx context.Context, userID string, offset, limit int) ([]domain.Order, int, error)

	// SetProviderReference stores the gateway's payment-session reference.
	SetProviderReference(ctx context.Context, id, reference string) error

	// ApplyPaymentResult writes the webhook outcome. The update is a
	// compare-and-set against status='pending'; it reports false when the
	// order had already left the pending state (duplicate delivery).
	ApplyPaymentResult(ctx context.Context, id string, result domain.PaymentResult) (bool, error)
}

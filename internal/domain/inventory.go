package domain

import "time"

// InventoryRecord is the per-variant stock counter and its active flags.
// StockCount never goes negative; the only state-changing path is the
// ledger's atomic decrement plus external restock feeds.
type InventoryRecord struct {
	VariantID     string    `json:"variant_id"`
	ProductID     string    `json:"product_id"`
	StockCount    int       `json:"stock_count"`
	VariantActive bool      `json:"variant_active"`
	ProductActive bool      `json:"product_active"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Active reports whether both the variant and its parent product are active.
func (r *InventoryRecord) Active() bool {
	return r.VariantActive && r.ProductActive
}

// Availability is a point-in-time stock snapshot returned by availability
// checks. It can be stale by the time a subsequent write happens; the
// decrement re-checks under a row lock.
type Availability struct {
	VariantID string `json:"variant_id"`
	Available int    `json:"available"`
	Active    bool   `json:"active"`
}

// CanSatisfy reports whether the snapshot allows selling qty units.
func (a Availability) CanSatisfy(qty int) bool {
	return a.Active && a.Available >= qty
}

// Stock movement reasons recorded alongside every counter change.
const (
	MovementReasonOrder   = "order"
	MovementReasonRestock = "restock"
)

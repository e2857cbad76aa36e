package domain

import "time"

// Identity is the owning identity of a cart. The zero value is anonymous
// (device-local cart only); a non-empty UserID means the cart has a
// server-persisted mirror.
type Identity struct {
	UserID string `json:"user_id,omitempty"`
}

// IsAnonymous reports whether the identity has no bound user.
func (i Identity) IsAnonymous() bool {
	return i.UserID == ""
}

// CartLine is a single purchasable variant in a cart. At most one line per
// VariantID may exist in a cart.
type CartLine struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id"`
	Title     string `json:"title"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	// CachedMaxStock is the last-known available unit count, advisory only.
	// It is refreshed on stock-gated updates and merges, never trusted for
	// the final decrement.
	CachedMaxStock int `json:"cached_max_stock,omitempty"`
}

// LineTotal returns the total price for this line in cents.
func (l *CartLine) LineTotal() int64 {
	return l.UnitPrice * int64(l.Quantity)
}

// Cart is an ordered collection of cart lines plus its owning identity.
type Cart struct {
	ID        string     `json:"id"`
	Identity  Identity   `json:"identity"`
	Lines     []CartLine `json:"lines"`
	Currency  string     `json:"currency"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Subtotal calculates the running subtotal of all lines in cents.
func (c *Cart) Subtotal() int64 {
	var total int64
	for i := range c.Lines {
		total += c.Lines[i].LineTotal()
	}
	return total
}

// ItemCount returns the total number of units across all lines.
func (c *Cart) ItemCount() int {
	var count int
	for i := range c.Lines {
		count += c.Lines[i].Quantity
	}
	return count
}

// FindLineByVariant returns the index of the line holding the given variant,
// or -1 if absent.
func (c *Cart) FindLineByVariant(variantID string) int {
	for i := range c.Lines {
		if c.Lines[i].VariantID == variantID {
			return i
		}
	}
	return -1
}

// FindLine returns the index of the line with the given line ID, or -1.
func (c *Cart) FindLine(lineID string) int {
	for i := range c.Lines {
		if c.Lines[i].ID == lineID {
			return i
		}
	}
	return -1
}

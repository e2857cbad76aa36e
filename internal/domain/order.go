package domain

import "time"

// Order status constants.
const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusCancelled = "cancelled"
	OrderStatusShipped   = "shipped"
	OrderStatusDelivered = "delivered"
)

// Payment status constants.
const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusFailed  = "failed"
)

// Order is a checkout snapshot. Items are immutable after creation; status
// and payment status are mutated exclusively by the webhook processor,
// shipping states by fulfillment.
type Order struct {
	ID                string      `json:"id"`
	UserID            string      `json:"user_id"`
	Items             []OrderItem `json:"items"`
	SubtotalAmount    int64       `json:"subtotal_amount"`
	TotalAmount       int64       `json:"total_amount"`
	Currency          string      `json:"currency"`
	Status            string      `json:"status"`
	PaymentStatus     string      `json:"payment_status"`
	PaymentMethod     string      `json:"payment_method,omitempty"`
	PaymentMessage    string      `json:"payment_message,omitempty"`
	MaskedInstrument  string      `json:"masked_instrument,omitempty"`
	ProviderReference string      `json:"provider_reference,omitempty"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

// OrderItem is a line item captured at checkout time.
type OrderItem struct {
	ID        string `json:"id"`
	OrderID   string `json:"order_id"`
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id"`
	Title     string `json:"title"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
}

// LineTotal returns the total price for this line item.
func (i *OrderItem) LineTotal() int64 {
	return i.UnitPrice * int64(i.Quantity)
}

// ValidStatuses returns all valid order statuses.
func ValidStatuses() []string {
	return []string{
		OrderStatusPending,
		OrderStatusConfirmed,
		OrderStatusCancelled,
		OrderStatusShipped,
		OrderStatusDelivered,
	}
}

// AllowedTransitions defines which status transitions are valid. Shipped and
// delivered are reached by fulfillment, outside the payment pipeline.
func AllowedTransitions() map[string][]string {
	return map[string][]string{
		OrderStatusPending:   {OrderStatusConfirmed, OrderStatusCancelled},
		OrderStatusConfirmed: {OrderStatusShipped},
		OrderStatusShipped:   {OrderStatusDelivered},
		OrderStatusCancelled: {},
		OrderStatusDelivered: {},
	}
}

// CanTransitionTo checks if the order can move to the target status.
func (o *Order) CanTransitionTo(target string) bool {
	allowed, ok := AllowedTransitions()[o.Status]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == target {
			return true
		}
	}
	return false
}

// PaymentResult is the order transition computed from a verified gateway
// notification, plus the audit metadata stored alongside it.
type PaymentResult struct {
	Status            string `json:"status"`
	PaymentStatus     string `json:"payment_status"`
	PaymentMethod     string `json:"payment_method,omitempty"`
	PaymentMessage    string `json:"payment_message,omitempty"`
	MaskedInstrument  string `json:"masked_instrument,omitempty"`
	ProviderReference string `json:"provider_reference,omitempty"`
}

// PaymentSettled reports whether the payment pipeline has reached a terminal
// state for this order. A notification arriving after that is a duplicate.
func (o *Order) PaymentSettled() bool {
	return o.Status != OrderStatusPending || o.PaymentStatus != PaymentStatusPending
}

package domain

// Gateway numeric status codes carried in webhook notifications.
const (
	GatewayStatusPaid    = 2
	GatewayStatusFailed  = -1
	GatewayStatusPending = -2
)

// WebhookNotification is an untrusted, externally delivered gateway message.
// Amount is kept as the exact decimal string the gateway sent because it
// participates byte-for-byte in the signature.
type WebhookNotification struct {
	MerchantID       string `json:"merchant_id"`
	OrderID          string `json:"order_id"`
	Amount           string `json:"amount"`
	Currency         string `json:"currency"`
	StatusCode       int    `json:"status_code"`
	Signature        string `json:"signature"`
	PaymentMethod    string `json:"payment_method,omitempty"`
	StatusMessage    string `json:"status_message,omitempty"`
	MaskedInstrument string `json:"masked_instrument,omitempty"`
	ProviderRef      string `json:"provider_ref,omitempty"`
}

// Outcome maps the gateway status code to the (status, paymentStatus) pair
// the order transitions to. Unknown codes are treated as failures.
func (n *WebhookNotification) Outcome() (orderStatus, paymentStatus string) {
	switch n.StatusCode {
	case GatewayStatusPaid:
		return OrderStatusConfirmed, PaymentStatusPaid
	case GatewayStatusPending:
		return OrderStatusPending, PaymentStatusPending
	case GatewayStatusFailed:
		return OrderStatusCancelled, PaymentStatusFailed
	default:
		return OrderStatusCancelled, PaymentStatusFailed
	}
}

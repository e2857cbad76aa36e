package gateway

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/madukaneranga/Kixora-sub002/internal/domain"
	apperrors "github.com/madukaneranga/Kixora-sub002/pkg/errors"
)

// Scheme computes and verifies the gateway's request signatures. The gateway
// family uses two sibling digests that must never be conflated:
//
//   - payment-creation (outgoing redirect): no currency field, shared secret
//     concatenated raw;
//   - webhook notification (incoming): currency and status code included,
//     shared secret pre-hashed before concatenation.
//
// Both are uppercase hex SHA-256 over the exact field order below, and both
// compare case-insensitively.
type Scheme struct {
	MerchantID string

	secret     string
	secretHash string // uppercase hex SHA-256 of the shared secret
}

// NewScheme builds a signature scheme for the given merchant credentials.
func NewScheme(merchantID, secret string) *Scheme {
	return &Scheme{
		MerchantID: merchantID,
		secret:     secret,
		secretHash: hexUpper(secret),
	}
}

// CreationSignature signs an outgoing payment-creation request:
// SHA256(merchantID || orderID || amount || secret), uppercase hex.
func (s *Scheme) CreationSignature(orderID, amount string) string {
	return hexUpper(s.MerchantID + orderID + amount + s.secret)
}

// NotificationSignature recomputes the expected signature of an incoming
// webhook notification:
// SHA256(merchantID || orderID || amount || currency || statusCode || SHA256hex(secret)),
// uppercase hex. The amount string must be the exact bytes the gateway sent.
func (s *Scheme) NotificationSignature(orderID, amount, currency string, statusCode int) string {
	return hexUpper(s.MerchantID + orderID + amount + currency + strconv.Itoa(statusCode) + s.secretHash)
}

// VerifyNotification authenticates a notification. A merchant mismatch or a
// signature mismatch rejects the message outright; no state change may follow.
func (s *Scheme) VerifyNotification(n *domain.WebhookNotification) error {
	if subtle.ConstantTimeCompare([]byte(n.MerchantID), []byte(s.MerchantID)) != 1 {
		return apperrors.InvalidInput("merchant id mismatch")
	}

	expected := s.NotificationSignature(n.OrderID, n.Amount, n.Currency, n.StatusCode)
	supplied := strings.ToUpper(n.Signature)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(supplied)) != 1 {
		return apperrors.InvalidInput("invalid signature")
	}

	return nil
}

func hexUpper(s string) string {
	sum := sha256.Sum256([]byte(s))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

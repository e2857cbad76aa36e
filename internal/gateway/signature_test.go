package gateway

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/madukaneranga/Kixora-sub002/internal/domain"
)

const (
	testMerchantID = "1211149"
	testSecret     = "super-secret"
)

func testScheme() *Scheme {
	return NewScheme(testMerchantID, testSecret)
}

func sha256Upper(s string) string {
	sum := sha256.Sum256([]byte(s))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

func validNotification() *domain.WebhookNotification {
	n := &domain.WebhookNotification{
		MerchantID: testMerchantID,
		OrderID:    "ord-1",
		Amount:     "149.90",
		Currency:   "USD",
		StatusCode: domain.GatewayStatusPaid,
	}
	n.Signature = testScheme().NotificationSignature(n.OrderID, n.Amount, n.Currency, n.StatusCode)
	return n
}

func TestCreationSignature_FieldOrderAndCasing(t *testing.T) {
	s := testScheme()

	got := s.CreationSignature("ord-1", "149.90")
	want := sha256Upper(testMerchantID + "ord-1" + "149.90" + testSecret)
	assert.Equal(t, want, got)
	assert.Equal(t, strings.ToUpper(got), got)
	assert.Len(t, got, 64)
}

func TestNotificationSignature_UsesHashedSecretAndCurrency(t *testing.T) {
	s := testScheme()

	got := s.NotificationSignature("ord-1", "149.90", "USD", 2)
	want := sha256Upper(testMerchantID + "ord-1" + "149.90" + "USD" + "2" + sha256Upper(testSecret))
	assert.Equal(t, want, got)
}

func TestSignatureVariants_NeverCollide(t *testing.T) {
	s := testScheme()

	// Same order and amount, different hash construction: a creation
	// signature must never validate a notification.
	creation := s.CreationSignature("ord-1", "149.90")
	notification := s.NotificationSignature("ord-1", "149.90", "USD", 2)
	assert.NotEqual(t, creation, notification)
}

func TestNotificationSignature_NegativeStatusCode(t *testing.T) {
	s := testScheme()

	got := s.NotificationSignature("ord-1", "149.90", "USD", -1)
	want := sha256Upper(testMerchantID + "ord-1" + "149.90" + "USD" + "-1" + sha256Upper(testSecret))
	assert.Equal(t, want, got)
}

func TestVerifyNotification_Valid(t *testing.T) {
	s := testScheme()

	assert.NoError(t, s.VerifyNotification(validNotification()))
}

func TestVerifyNotification_CaseInsensitiveSignature(t *testing.T) {
	s := testScheme()

	n := validNotification()
	n.Signature = strings.ToLower(n.Signature)
	assert.NoError(t, s.VerifyNotification(n))
}

func TestVerifyNotification_TamperedAmount(t *testing.T) {
	s := testScheme()

	// The signature was computed over the original amount; changing the
	// amount field alone must invalidate it.
	n := validNotification()
	n.Amount = "1.00"
	assert.Error(t, s.VerifyNotification(n))
}

func TestVerifyNotification_TamperedStatusCode(t *testing.T) {
	s := testScheme()

	n := validNotification()
	n.StatusCode = domain.GatewayStatusFailed
	assert.Error(t, s.VerifyNotification(n))
}

func TestVerifyNotification_MerchantMismatch(t *testing.T) {
	s := testScheme()

	n := validNotification()
	n.MerchantID = "9999999"
	assert.Error(t, s.VerifyNotification(n))
}

func TestVerifyNotification_GarbageSignature(t *testing.T) {
	s := testScheme()

	n := validNotification()
	n.Signature = "not-a-digest"
	assert.Error(t, s.VerifyNotification(n))
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		minor int64
		want  string
	}{
		{14990, "149.90"},
		{100, "1.00"},
		{5, "0.05"},
		{0, "0.00"},
		{123456789, "1234567.89"},
		{-250, "-2.50"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatAmount(tt.minor))
	}
}

func TestParseStatusCode(t *testing.T) {
	code, err := ParseStatusCode(" 2 ")
	require.NoError(t, err)
	assert.Equal(t, 2, code)

	code, err = ParseStatusCode("-2")
	require.NoError(t, err)
	assert.Equal(t, -2, code)

	_, err = ParseStatusCode("paid")
	assert.Error(t, err)
}

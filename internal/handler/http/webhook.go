package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/madukaneranga/Kixora-sub002/internal/domain"
	"github.com/madukaneranga/Kixora-sub002/internal/gateway"
	"github.com/madukaneranga/Kixora-sub002/internal/service"
	apperrors "github.com/madukaneranga/Kixora-sub002/pkg/errors"
)

// WebhookHandler receives payment-gateway notifications. The endpoint is
// publicly reachable and carries no session authentication; the notification
// signature is the authentication. Responses follow the gateway convention:
// a plain-text body, "OK" on success.
type WebhookHandler struct {
	processor *service.WebhookProcessor
	logger    *slog.Logger
}

// NewWebhookHandler creates a new webhook HTTP handler.
func NewWebhookHandler(processor *service.WebhookProcessor, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		processor: processor,
		logger:    logger,
	}
}

// HandleNotification handles POST /webhooks/payment
func (h *WebhookHandler) HandleNotification(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	notification, err := parseNotification(r)
	if err != nil {
		h.logger.WarnContext(r.Context(), "unparseable webhook payload",
			slog.String("error", err.Error()),
		)
		writePlain(w, http.StatusBadRequest, "BAD REQUEST")
		return
	}

	if err := h.processor.Process(r.Context(), notification); err != nil {
		status := apperrors.HTTPStatus(err)
		if status >= http.StatusInternalServerError {
			h.logger.ErrorContext(r.Context(), "webhook processing failed",
				slog.String("order_id", notification.OrderID),
				slog.String("error", err.Error()),
			)
			writePlain(w, http.StatusInternalServerError, "ERROR")
			return
		}
		writePlain(w, status, http.StatusText(status))
		return
	}

	writePlain(w, http.StatusOK, "OK")
}

// parseNotification decodes the gateway payload, which arrives either
// form-encoded or as JSON depending on the gateway's configuration.
func parseNotification(r *http.Request) (*domain.WebhookNotification, error) {
	ct := r.Header.Get("Content-Type")

	if strings.HasPrefix(ct, "application/json") {
		var n domain.WebhookNotification
		if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
			return nil, err
		}
		return &n, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, err
	}

	statusCode, err := gateway.ParseStatusCode(r.PostFormValue("status_code"))
	if err != nil {
		return nil, err
	}

	return &domain.WebhookNotification{
		MerchantID:       r.PostFormValue("merchant_id"),
		OrderID:          r.PostFormValue("order_id"),
		Amount:           r.PostFormValue("amount"),
		Currency:         r.PostFormValue("currency"),
		StatusCode:       statusCode,
		Signature:        r.PostFormValue("signature"),
		PaymentMethod:    r.PostFormValue("payment_method"),
		StatusMessage:    r.PostFormValue("status_message"),
		MaskedInstrument: r.PostFormValue("masked_instrument"),
		ProviderRef:      r.PostFormValue("provider_ref"),
	}, nil
}

func writePlain(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

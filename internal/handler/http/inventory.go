package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/madukaneranga/Kixora-sub002/internal/service"
	"github.com/madukaneranga/Kixora-sub002/pkg/httputil"
	"github.com/madukaneranga/Kixora-sub002/pkg/validator"
)

// InventoryHandler handles HTTP requests for stock availability and the
// operational restock endpoint.
type InventoryHandler struct {
	ledger *service.Ledger
	logger *slog.Logger
}

// NewInventoryHandler creates a new inventory HTTP handler.
func NewInventoryHandler(ledger *service.Ledger, logger *slog.Logger) *InventoryHandler {
	return &InventoryHandler{
		ledger: ledger,
		logger: logger,
	}
}

// RestockRequest is the JSON request body for the restock endpoint.
type RestockRequest struct {
	ProductID   string `json:"product_id" validate:"required"`
	Quantity    int    `json:"quantity" validate:"required,gt=0"`
	ReferenceID string `json:"reference_id"`
}

// SetActiveRequest is the JSON request body for flipping a variant's flag.
type SetActiveRequest struct {
	Active bool `json:"active"`
}

// CheckAvailability handles GET /api/v1/inventory/{variantID}/availability
func (h *InventoryHandler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	variantID := chi.URLParam(r, "variantID")

	quantity := 1
	if q := r.URL.Query().Get("quantity"); q != "" {
		v, err := strconv.Atoi(q)
		if err != nil || v < 0 {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "quantity must be a non-negative integer"},
			})
			return
		}
		quantity = v
	}

	avail, err := h.ledger.CheckAvailability(r.Context(), variantID, quantity)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: struct {
		VariantID  string `json:"variant_id"`
		Available  int    `json:"available"`
		Active     bool   `json:"active"`
		CanSatisfy bool   `json:"can_satisfy"`
	}{
		VariantID:  avail.VariantID,
		Available:  avail.Available,
		Active:     avail.Active,
		CanSatisfy: avail.CanSatisfy(quantity),
	}})
}

// Restock handles POST /api/v1/inventory/{variantID}/restock
func (h *InventoryHandler) Restock(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req RestockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	variantID := chi.URLParam(r, "variantID")

	rec, err := h.ledger.Restock(r.Context(), variantID, req.ProductID, req.Quantity, req.ReferenceID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: rec})
}

// SetActive handles PATCH /api/v1/inventory/{variantID}/active
func (h *InventoryHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req SetActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	variantID := chi.URLParam(r, "variantID")

	if err := h.ledger.SetVariantActive(r.Context(), variantID, req.Active); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]any{
		"variant_id": variantID,
		"active":     req.Active,
	}})
}

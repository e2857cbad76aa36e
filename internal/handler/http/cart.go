package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/madukaneranga/Kixora-sub002/internal/domain"
	"github.com/madukaneranga/Kixora-sub002/internal/service"
	"github.com/madukaneranga/Kixora-sub002/pkg/httputil"
	"github.com/madukaneranga/Kixora-sub002/pkg/validator"
)

// CartHandler handles HTTP requests for cart endpoints.
type CartHandler struct {
	engine *service.Engine
	logger *slog.Logger
}

// NewCartHandler creates a new cart HTTP handler.
func NewCartHandler(engine *service.Engine, logger *slog.Logger) *CartHandler {
	return &CartHandler{
		engine: engine,
		logger: logger,
	}
}

// --- Request DTOs ---

// AddLineRequest is the JSON request body for adding a cart line.
type AddLineRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	VariantID string `json:"variant_id" validate:"required"`
	Title     string `json:"title" validate:"required"`
	UnitPrice int64  `json:"unit_price" validate:"gte=0"`
	Quantity  int    `json:"quantity" validate:"required,gte=1"`
}

// UpdateQuantityRequest is the JSON request body for a quantity update.
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity" validate:"gte=0"`
}

// ChangeIdentityRequest is the JSON request body for an identity transition.
// An empty user_id unbinds the cart (sign-out); is_new marks a freshly
// created account with no prior cart history.
type ChangeIdentityRequest struct {
	UserID string `json:"user_id"`
	IsNew  bool   `json:"is_new"`
}

// cartView is the cart read model exposed to callers.
type cartView struct {
	Cart      *domain.Cart `json:"cart"`
	Subtotal  int64        `json:"subtotal"`
	ItemCount int          `json:"item_count"`
}

// updateView is the result of a stock-gated quantity update. OK is false
// when the stock gate rejected the change; Available then carries the
// count to render "Only N available". Available is always emitted, so a
// rejection with zero stock still reads as an explicit "available": 0.
type updateView struct {
	cartView
	OK        bool `json:"ok"`
	Available int  `json:"available"`
}

func newCartView(cart *domain.Cart) cartView {
	return cartView{
		Cart:      cart,
		Subtotal:  cart.Subtotal(),
		ItemCount: cart.ItemCount(),
	}
}

// --- Handlers ---

// GetCart handles GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	sid, _ := sessionIDFromContext(r.Context())

	cart, err := h.engine.GetCart(r.Context(), sid)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: newCartView(cart)})
}

// AddLine handles POST /api/v1/cart/items
func (h *CartHandler) AddLine(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req AddLineRequest
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

	sid, _ := sessionIDFromContext(r.Context())

	cart, err := h.engine.AddLine(r.Context(), sid, service.AddLineInput{
		ProductID: req.ProductID,
		VariantID: req.VariantID,
		Title:     req.Title,
		UnitPrice: req.UnitPrice,
		Quantity:  req.Quantity,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: newCartView(cart)})
}

// UpdateQuantity handles PATCH /api/v1/cart/items/{lineID}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req UpdateQuantityRequest
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

	sid, _ := sessionIDFromContext(r.Context())
	lineID := chi.URLParam(r, "lineID")

	result, err := h.engine.UpdateQuantity(r.Context(), sid, lineID, req.Quantity)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	view := updateView{
		cartView:  newCartView(result.Cart),
		OK:        result.OK,
		Available: result.Available,
	}

	// A stock-gated rejection is an expected outcome for the caller, not a
	// transport error; it still rides a 200 with ok=false.
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: view})
}

// RemoveLine handles DELETE /api/v1/cart/items/{lineID}
func (h *CartHandler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	sid, _ := sessionIDFromContext(r.Context())
	lineID := chi.URLParam(r, "lineID")

	cart, err := h.engine.RemoveLine(r.Context(), sid, lineID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: newCartView(cart)})
}

// Clear handles DELETE /api/v1/cart
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	sid, _ := sessionIDFromContext(r.Context())

	cart, err := h.engine.Clear(r.Context(), sid)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: newCartView(cart)})
}

// ChangeIdentity handles POST /api/v1/cart/identity
func (h *CartHandler) ChangeIdentity(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req ChangeIdentityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	sid, _ := sessionIDFromContext(r.Context())

	result, err := h.engine.ChangeIdentity(r.Context(), sid, domain.Identity{UserID: req.UserID}, req.IsNew)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: struct {
		cartView
		Notice string `json:"notice,omitempty"`
	}{
		cartView: newCartView(result.Cart),
		Notice:   result.Notice,
	}})
}

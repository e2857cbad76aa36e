package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/madukaneranga/Kixora-sub002/internal/domain"
	"github.com/madukaneranga/Kixora-sub002/internal/event"
	"github.com/madukaneranga/Kixora-sub002/internal/gateway"
	"github.com/madukaneranga/Kixora-sub002/internal/repository"
	apperrors "github.com/madukaneranga/Kixora-sub002/pkg/errors"
	"github.com/madukaneranga/Kixora-sub002/pkg/pagination"
)

// CheckoutResult carries the created pending order and the gateway redirect
// the shopper is sent to.
type CheckoutResult struct {
	Order       *domain.Order `json:"order"`
	RedirectURL string        `json:"redirect_url"`
}

// OrderService snapshots reconciled carts into pending orders and serves the
// read-only order history. Status transitions after creation belong to the
// webhook processor.
type OrderService struct {
	orders   repository.OrderRepository
	engine   *Engine
	gateway  *gateway.Client
	producer *event.Producer
	logger   *slog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(
	orders repository.OrderRepository,
	engine *Engine,
	gw *gateway.Client,
	producer *event.Producer,
	logger *slog.Logger,
) *OrderService {
	return &OrderService{
		orders:   orders,
		engine:   engine,
		gateway:  gw,
		producer: producer,
		logger:   logger,
	}
}

// Checkout freezes the session's cart into an immutable pending order,
// registers a payment session at the gateway, and clears the cart. The
// order's line items never change afterwards; only the webhook processor
// moves its status.
func (s *OrderService) Checkout(ctx context.Context, sessionID string) (*CheckoutResult, error) {
	if sessionID == "" {
		return nil, apperrors.InvalidInput("session id is required")
	}

	cart, err := s.engine.GetCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if cart.Identity.IsAnonymous() {
		return nil, apperrors.Unauthorized("sign in to check out")
	}
	if len(cart.Lines) == 0 {
		return nil, apperrors.InvalidInput("cart is empty")
	}

	now := time.Now().UTC()
	order := &domain.Order{
		ID:            uuid.New().String(),
		UserID:        cart.Identity.UserID,
		Items:         make([]domain.OrderItem, 0, len(cart.Lines)),
		Currency:      cart.Currency,
		Status:        domain.OrderStatusPending,
		PaymentStatus: domain.PaymentStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	for i := range cart.Lines {
		line := &cart.Lines[i]
		order.Items = append(order.Items, domain.OrderItem{
			ID:        uuid.New().String(),
			OrderID:   order.ID,
			ProductID: line.ProductID,
			VariantID: line.VariantID,
			Title:     line.Title,
			UnitPrice: line.UnitPrice,
			Quantity:  line.Quantity,
		})
	}
	order.SubtotalAmount = cart.Subtotal()
	order.TotalAmount = order.SubtotalAmount

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	redirectURL, reference, err := s.gateway.CreatePayment(ctx, order)
	if err != nil {
		// The pending order stands; the shopper can retry payment and the
		// gateway never learned about this attempt.
		return nil, fmt.Errorf("create payment session: %w", err)
	}

	if reference != "" {
		if err := s.orders.SetProviderReference(ctx, order.ID, reference); err != nil {
			s.logger.ErrorContext(ctx, "failed to store provider reference",
				slog.String("order_id", order.ID),
				slog.String("error", err.Error()),
			)
		} else {
			order.ProviderReference = reference
		}
	}

	if _, err := s.engine.Clear(ctx, sessionID); err != nil {
		s.logger.ErrorContext(ctx, "failed to clear cart after checkout",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "checkout complete",
		slog.String("order_id", order.ID),
		slog.String("user_id", order.UserID),
		slog.Int("item_count", len(order.Items)),
		slog.Int64("total_amount", order.TotalAmount),
	)

	return &CheckoutResult{Order: order, RedirectURL: redirectURL}, nil
}

// GetOrder retrieves one order for display. Callers may only read their own
// orders.
func (s *OrderService) GetOrder(ctx context.Context, orderID, userID string) (*domain.Order, error) {
	if orderID == "" {
		return nil, apperrors.InvalidInput("order id is required")
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}

	if userID != "" && order.UserID != userID {
		return nil, apperrors.NotFound("order", orderID)
	}

	return order, nil
}

// ListOrders returns a page of the user's order history, newest first.
func (s *OrderService) ListOrders(ctx context.Context, userID string, params pagination.Params) (pagination.Result[domain.Order], error) {
	if userID == "" {
		return pagination.Result[domain.Order]{}, apperrors.InvalidInput("user id is required")
	}

	orders, total, err := s.orders.ListByUser(ctx, userID, params.Offset, params.PerPage)
	if err != nil {
		return pagination.Result[domain.Order]{}, fmt.Errorf("list orders: %w", err)
	}

	return pagination.NewResult(orders, total, params), nil
}

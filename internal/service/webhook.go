package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/madukaneranga/Kixora-sub002/internal/domain"
	"github.com/madukaneranga/Kixora-sub002/internal/event"
	"github.com/madukaneranga/Kixora-sub002/internal/gateway"
	"github.com/madukaneranga/Kixora-sub002/internal/repository"
)

// WebhookProcessor authenticates asynchronous gateway notifications and
// applies exactly one state transition to the matching order. The gateway
// delivers at least once; duplicates are absorbed by the terminal-state
// guard plus the repository's compare-and-set write.
type WebhookProcessor struct {
	orders   repository.OrderRepository
	ledger   *Ledger
	scheme   *gateway.Scheme
	producer *event.Producer
	logger   *slog.Logger
}

// NewWebhookProcessor creates a new payment webhook processor.
func NewWebhookProcessor(
	orders repository.OrderRepository,
	ledger *Ledger,
	scheme *gateway.Scheme,
	producer *event.Producer,
	logger *slog.Logger,
) *WebhookProcessor {
	return &WebhookProcessor{
		orders:   orders,
		ledger:   ledger,
		scheme:   scheme,
		producer: producer,
		logger:   logger,
	}
}

// Process verifies and applies one notification delivery:
//
//  1. authenticate merchant and signature (reject, no state change);
//  2. load the order (not found rejects);
//  3. duplicate guard: a settled order absorbs the delivery with no mutation;
//  4. compare-and-set the status pair plus gateway audit metadata;
//  5. iff the payment is confirmed, decrement stock for every line item;
//     a failed decrement is logged for manual reconciliation, never rolled
//     back into the order status.
func (p *WebhookProcessor) Process(ctx context.Context, n *domain.WebhookNotification) error {
	if err := p.scheme.VerifyNotification(n); err != nil {
		p.logger.WarnContext(ctx, "webhook rejected",
			slog.String("order_id", n.OrderID),
			slog.String("error", err.Error()),
		)
		return err
	}

	order, err := p.orders.GetByID(ctx, n.OrderID)
	if err != nil {
		return fmt.Errorf("load order for webhook: %w", err)
	}

	// The signature covers the amount the gateway saw, so a mismatch here
	// means the order was created with a different total, not tampering.
	// Flag it for investigation and keep going.
	if sent := gateway.FormatAmount(order.TotalAmount); sent != n.Amount {
		p.logger.WarnContext(ctx, "webhook amount differs from order total",
			slog.String("order_id", order.ID),
			slog.String("order_amount", sent),
			slog.String("webhook_amount", n.Amount),
		)
	}

	if order.PaymentSettled() {
		p.logger.InfoContext(ctx, "duplicate webhook for settled order ignored",
			slog.String("order_id", order.ID),
			slog.String("status", order.Status),
			slog.String("payment_status", order.PaymentStatus),
		)
		return nil
	}

	status, paymentStatus := n.Outcome()

	if n.StatusCode == domain.GatewayStatusPending {
		// Awaiting a definitive notification; the order stays pending and
		// a later delivery still passes the guard.
		p.logger.InfoContext(ctx, "webhook reports payment still pending",
			slog.String("order_id", order.ID),
		)
		return nil
	}

	result := domain.PaymentResult{
		Status:            status,
		PaymentStatus:     paymentStatus,
		PaymentMethod:     n.PaymentMethod,
		PaymentMessage:    n.StatusMessage,
		MaskedInstrument:  n.MaskedInstrument,
		ProviderReference: n.ProviderRef,
	}

	applied, err := p.orders.ApplyPaymentResult(ctx, order.ID, result)
	if err != nil {
		return fmt.Errorf("apply payment result: %w", err)
	}
	if !applied {
		// A concurrent delivery won the compare-and-set.
		p.logger.InfoContext(ctx, "payment result already applied by concurrent delivery",
			slog.String("order_id", order.ID),
		)
		return nil
	}

	order.Status = status
	order.PaymentStatus = paymentStatus
	order.PaymentMethod = n.PaymentMethod
	order.PaymentMessage = n.StatusMessage

	p.logger.InfoContext(ctx, "payment webhook applied",
		slog.String("order_id", order.ID),
		slog.Int("gateway_status", n.StatusCode),
		slog.String("status", status),
		slog.String("payment_status", paymentStatus),
	)

	if paymentStatus == domain.PaymentStatusPaid {
		p.decrementFanOut(ctx, order)
		if err := p.producer.PublishOrderPaymentConfirmed(ctx, order); err != nil {
			p.logger.ErrorContext(ctx, "failed to publish order.payment_confirmed event",
				slog.String("order_id", order.ID),
				slog.String("error", err.Error()),
			)
		}
		return nil
	}

	if err := p.producer.PublishOrderPaymentFailed(ctx, order); err != nil {
		p.logger.ErrorContext(ctx, "failed to publish order.payment_failed event",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}

	return nil
}

// decrementFanOut reduces stock for every line item of a freshly confirmed
// order. One line's failure does not stop the rest and never rolls the
// order back; the shortfall is an ops follow-up, not a transaction.
func (p *WebhookProcessor) decrementFanOut(ctx context.Context, order *domain.Order) {
	for i := range order.Items {
		item := &order.Items[i]
		if err := p.ledger.Decrement(ctx, item.VariantID, item.Quantity, order.ID); err != nil {
			p.logger.ErrorContext(ctx, "stock decrement failed for confirmed order, manual reconciliation required",
				slog.String("order_id", order.ID),
				slog.String("variant_id", item.VariantID),
				slog.Int("quantity", item.Quantity),
				slog.String("error", err.Error()),
			)
		}
	}
}

package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/madukaneranga/Kixora-sub002/internal/domain"
	pkgkafka "github.com/madukaneranga/Kixora-sub002/pkg/kafka"
)

// TopicInventoryRestock is the externally produced restock feed the
// storefront consumes. Warehouse systems own the topic; this service only
// folds the deltas into the ledger.
const TopicInventoryRestock = "storefront.inventory.restock"

// ConsumerGroup is the Kafka consumer group for the storefront service.
const ConsumerGroup = "storefront-service"

// idempotencyTTL bounds how long processed event IDs are remembered.
// Redeliveries normally arrive within seconds of the original.
const idempotencyTTL = 24 * time.Hour

// RestockData is the payload of a restock feed message.
type RestockData struct {
	VariantID   string `json:"variant_id"`
	ProductID   string `json:"product_id"`
	Quantity    int    `json:"quantity"`
	ReferenceID string `json:"reference_id,omitempty"`
}

// Restocker is the ledger operation the consumer drives.
type Restocker interface {
	Restock(ctx context.Context, variantID, productID string, quantity int, referenceID string) (*domain.InventoryRecord, error)
}

// RestockConsumer applies external restock events to the inventory ledger.
// Malformed events go to the dead-letter topic instead of blocking the
// partition; transient ledger failures are returned for retry.
type RestockConsumer struct {
	restocker Restocker
	dlq       *pkgkafka.DLQProducer
	logger    *slog.Logger
}

// NewRestockConsumer creates a new restock event consumer.
func NewRestockConsumer(restocker Restocker, dlq *pkgkafka.DLQProducer, logger *slog.Logger) *RestockConsumer {
	return &RestockConsumer{
		restocker: restocker,
		dlq:       dlq,
		logger:    logger,
	}
}

// Handler returns the consumer's handler wrapped with at-least-once
// duplicate suppression.
func (c *RestockConsumer) Handler() pkgkafka.Handler {
	store := pkgkafka.NewMemoryIdempotencyStore(idempotencyTTL)
	return pkgkafka.IdempotentHandler(store, c.Handle, c.logger)
}

// Handle processes one restock event.
func (c *RestockConsumer) Handle(ctx context.Context, event *pkgkafka.Event) error {
	var data RestockData
	if err := event.UnmarshalData(&data); err != nil {
		c.deadLetter(ctx, event, fmt.Errorf("unmarshal restock payload: %w", err))
		return nil
	}

	if data.VariantID == "" || data.ProductID == "" || data.Quantity <= 0 {
		c.deadLetter(ctx, event, fmt.Errorf("invalid restock payload: variant=%q product=%q quantity=%d",
			data.VariantID, data.ProductID, data.Quantity))
		return nil
	}

	refID := data.ReferenceID
	if refID == "" {
		refID = event.EventID
	}

	if _, err := c.restocker.Restock(ctx, data.VariantID, data.ProductID, data.Quantity, refID); err != nil {
		return fmt.Errorf("apply restock event: %w", err)
	}

	c.logger.InfoContext(ctx, "restock event applied",
		slog.String("event_id", event.EventID),
		slog.String("variant_id", data.VariantID),
		slog.Int("quantity", data.Quantity),
	)

	return nil
}

// deadLetter forwards an unprocessable event to the DLQ and logs the cause.
// Returning nil afterwards commits the original message.
func (c *RestockConsumer) deadLetter(ctx context.Context, event *pkgkafka.Event, cause error) {
	c.logger.ErrorContext(ctx, "restock event dead-lettered",
		slog.String("event_id", event.EventID),
		slog.String("error", cause.Error()),
	)

	if c.dlq == nil {
		return
	}

	raw, err := event.Marshal()
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to marshal event for DLQ",
			slog.String("event_id", event.EventID),
			slog.String("error", err.Error()),
		)
		return
	}

	msg := kafka.Message{
		Topic: TopicInventoryRestock,
		Key:   []byte(event.AggregateID),
		Value: raw,
	}
	if err := c.dlq.Publish(ctx, msg, cause, ConsumerGroup); err != nil {
		c.logger.ErrorContext(ctx, "failed to publish to DLQ",
			slog.String("event_id", event.EventID),
			slog.String("error", err.Error()),
		)
	}
}

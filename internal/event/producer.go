package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/madukaneranga/Kixora-sub002/internal/domain"
	pkgkafka "github.com/madukaneranga/Kixora-sub002/pkg/kafka"
)

// Kafka topic constants for storefront domain events.
const (
	TopicCartUpdated           = "storefront.cart.updated"
	TopicCartCleared           = "storefront.cart.cleared"
	TopicOrderPaymentConfirmed = "storefront.order.payment_confirmed"
	TopicOrderPaymentFailed    = "storefront.order.payment_failed"
	TopicInventoryDecremented  = "storefront.inventory.decremented"
	TopicInventoryLowStock     = "storefront.inventory.low_stock"
	TopicInventoryRestocked    = "storefront.inventory.restocked"
)

// Aggregate type constants.
const (
	AggregateTypeCart      = "cart"
	AggregateTypeOrder     = "order"
	AggregateTypeInventory = "inventory"
)

// Source identifier for events originating from the storefront service.
const SourceStorefront = "storefront-service"

// CartUpdatedData is the payload for a cart.updated event.
type CartUpdatedData struct {
	CartID    string `json:"cart_id"`
	UserID    string `json:"user_id,omitempty"`
	ItemCount int    `json:"item_count"`
	Subtotal  int64  `json:"subtotal"`
}

// CartClearedData is the payload for a cart.cleared event.
type CartClearedData struct {
	CartID string `json:"cart_id"`
	UserID string `json:"user_id,omitempty"`
}

// OrderPaymentData is the payload for payment_confirmed and payment_failed
// events.
type OrderPaymentData struct {
	OrderID       string `json:"order_id"`
	UserID        string `json:"user_id"`
	TotalAmount   int64  `json:"total_amount"`
	Currency      string `json:"currency"`
	PaymentStatus string `json:"payment_status"`
	PaymentMethod string `json:"payment_method,omitempty"`
}

// InventoryDecrementedData is the payload for an inventory.decremented event.
type InventoryDecrementedData struct {
	VariantID string `json:"variant_id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Remaining int    `json:"remaining"`
	OrderID   string `json:"order_id,omitempty"`
}

// InventoryLowStockData is the payload for an inventory.low_stock event.
type InventoryLowStockData struct {
	VariantID string `json:"variant_id"`
	ProductID string `json:"product_id"`
	Available int    `json:"available"`
	Threshold int    `json:"threshold"`
}

// InventoryRestockedData is the payload for an inventory.restocked event.
type InventoryRestockedData struct {
	VariantID string `json:"variant_id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	NewStock  int    `json:"new_stock"`
}

// Producer publishes storefront domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the storefront service.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishCartUpdated publishes a cart.updated event.
func (p *Producer) PublishCartUpdated(ctx context.Context, cart *domain.Cart) error {
	data := CartUpdatedData{
		CartID:    cart.ID,
		UserID:    cart.Identity.UserID,
		ItemCount: cart.ItemCount(),
		Subtotal:  cart.Subtotal(),
	}

	event, err := pkgkafka.NewEvent(TopicCartUpdated, cart.ID, AggregateTypeCart, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create cart.updated event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicCartUpdated, event); err != nil {
		return fmt.Errorf("publish cart.updated event: %w", err)
	}

	p.logger.DebugContext(ctx, "published cart.updated event",
		slog.String("cart_id", cart.ID),
	)

	return nil
}

// PublishCartCleared publishes a cart.cleared event.
func (p *Producer) PublishCartCleared(ctx context.Context, cart *domain.Cart) error {
	data := CartClearedData{
		CartID: cart.ID,
		UserID: cart.Identity.UserID,
	}

	event, err := pkgkafka.NewEvent(TopicCartCleared, cart.ID, AggregateTypeCart, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create cart.cleared event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicCartCleared, event); err != nil {
		return fmt.Errorf("publish cart.cleared event: %w", err)
	}

	p.logger.DebugContext(ctx, "published cart.cleared event",
		slog.String("cart_id", cart.ID),
	)

	return nil
}

// PublishOrderPaymentConfirmed publishes an order.payment_confirmed event.
func (p *Producer) PublishOrderPaymentConfirmed(ctx context.Context, order *domain.Order) error {
	return p.publishOrderPayment(ctx, TopicOrderPaymentConfirmed, order)
}

// PublishOrderPaymentFailed publishes an order.payment_failed event.
func (p *Producer) PublishOrderPaymentFailed(ctx context.Context, order *domain.Order) error {
	return p.publishOrderPayment(ctx, TopicOrderPaymentFailed, order)
}

func (p *Producer) publishOrderPayment(ctx context.Context, topic string, order *domain.Order) error {
	data := OrderPaymentData{
		OrderID:       order.ID,
		UserID:        order.UserID,
		TotalAmount:   order.TotalAmount,
		Currency:      order.Currency,
		PaymentStatus: order.PaymentStatus,
		PaymentMethod: order.PaymentMethod,
	}

	event, err := pkgkafka.NewEvent(topic, order.ID, AggregateTypeOrder, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published order payment event",
		slog.String("topic", topic),
		slog.String("order_id", order.ID),
	)

	return nil
}

// PublishInventoryDecremented publishes an inventory.decremented event.
func (p *Producer) PublishInventoryDecremented(ctx context.Context, record *domain.InventoryRecord, quantity int, orderID string) error {
	data := InventoryDecrementedData{
		VariantID: record.VariantID,
		ProductID: record.ProductID,
		Quantity:  quantity,
		Remaining: record.StockCount,
		OrderID:   orderID,
	}

	event, err := pkgkafka.NewEvent(TopicInventoryDecremented, record.VariantID, AggregateTypeInventory, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create inventory.decremented event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicInventoryDecremented, event); err != nil {
		return fmt.Errorf("publish inventory.decremented event: %w", err)
	}

	p.logger.DebugContext(ctx, "published inventory.decremented event",
		slog.String("variant_id", record.VariantID),
	)

	return nil
}

// PublishInventoryLowStock publishes an inventory.low_stock event.
func (p *Producer) PublishInventoryLowStock(ctx context.Context, record *domain.InventoryRecord, threshold int) error {
	data := InventoryLowStockData{
		VariantID: record.VariantID,
		ProductID: record.ProductID,
		Available: record.StockCount,
		Threshold: threshold,
	}

	event, err := pkgkafka.NewEvent(TopicInventoryLowStock, record.VariantID, AggregateTypeInventory, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create inventory.low_stock event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicInventoryLowStock, event); err != nil {
		return fmt.Errorf("publish inventory.low_stock event: %w", err)
	}

	return nil
}

// PublishInventoryRestocked publishes an inventory.restocked event.
func (p *Producer) PublishInventoryRestocked(ctx context.Context, record *domain.InventoryRecord, quantity int) error {
	data := InventoryRestockedData{
		VariantID: record.VariantID,
		ProductID: record.ProductID,
		Quantity:  quantity,
		NewStock:  record.StockCount,
	}

	event, err := pkgkafka.NewEvent(TopicInventoryRestocked, record.VariantID, AggregateTypeInventory, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create inventory.restocked event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicInventoryRestocked, event); err != nil {
		return fmt.Errorf("publish inventory.restocked event: %w", err)
	}

	return nil
}

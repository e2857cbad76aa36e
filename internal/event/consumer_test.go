package event

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/madukaneranga/Kixora-sub002/internal/domain"
	pkgkafka "github.com/madukaneranga/Kixora-sub002/pkg/kafka"
)

type stubRestocker struct {
	calls []RestockData
	err   error
}

func (s *stubRestocker) Restock(ctx context.Context, variantID, productID string, quantity int, referenceID string) (*domain.InventoryRecord, error) {
	s.calls = append(s.calls, RestockData{
		VariantID:   variantID,
		ProductID:   productID,
		Quantity:    quantity,
		ReferenceID: referenceID,
	})
	if s.err != nil {
		return nil, s.err
	}
	return &domain.InventoryRecord{VariantID: variantID, ProductID: productID, StockCount: quantity}, nil
}

func consumerTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func restockEvent(t *testing.T, data any) *pkgkafka.Event {
	t.Helper()
	event, err := pkgkafka.NewEvent("inventory.restock", "var-1", AggregateTypeInventory, "warehouse-feed", data)
	require.NoError(t, err)
	return event
}

func TestHandle_AppliesRestock(t *testing.T) {
	restocker := &stubRestocker{}
	c := NewRestockConsumer(restocker, nil, consumerTestLogger())

	event := restockEvent(t, RestockData{
		VariantID:   "var-1",
		ProductID:   "prod-1",
		Quantity:    25,
		ReferenceID: "shipment-9",
	})

	err := c.Handle(context.Background(), event)
	require.NoError(t, err)

	require.Len(t, restocker.calls, 1)
	assert.Equal(t, "var-1", restocker.calls[0].VariantID)
	assert.Equal(t, "prod-1", restocker.calls[0].ProductID)
	assert.Equal(t, 25, restocker.calls[0].Quantity)
	assert.Equal(t, "shipment-9", restocker.calls[0].ReferenceID)
}

func TestHandle_MissingReferenceFallsBackToEventID(t *testing.T) {
	restocker := &stubRestocker{}
	c := NewRestockConsumer(restocker, nil, consumerTestLogger())

	event := restockEvent(t, RestockData{VariantID: "var-1", ProductID: "prod-1", Quantity: 5})

	err := c.Handle(context.Background(), event)
	require.NoError(t, err)

	require.Len(t, restocker.calls, 1)
	assert.Equal(t, event.EventID, restocker.calls[0].ReferenceID)
}

func TestHandle_InvalidPayloadCommitsWithoutApplying(t *testing.T) {
	restocker := &stubRestocker{}
	c := NewRestockConsumer(restocker, nil, consumerTestLogger())

	// Zero quantity is unprocessable; the handler must not ask for a retry.
	event := restockEvent(t, RestockData{VariantID: "var-1", ProductID: "prod-1", Quantity: 0})

	err := c.Handle(context.Background(), event)
	assert.NoError(t, err)
	assert.Empty(t, restocker.calls)
}

func TestHandle_MalformedDataCommitsWithoutApplying(t *testing.T) {
	restocker := &stubRestocker{}
	c := NewRestockConsumer(restocker, nil, consumerTestLogger())

	event := restockEvent(t, "not-a-restock-object")

	err := c.Handle(context.Background(), event)
	assert.NoError(t, err)
	assert.Empty(t, restocker.calls)
}

func TestHandle_TransientLedgerErrorIsRetried(t *testing.T) {
	restocker := &stubRestocker{err: assert.AnError}
	c := NewRestockConsumer(restocker, nil, consumerTestLogger())

	event := restockEvent(t, RestockData{VariantID: "var-1", ProductID: "prod-1", Quantity: 5})

	err := c.Handle(context.Background(), event)
	assert.Error(t, err)
}

func TestHandler_SuppressesDuplicateDeliveries(t *testing.T) {
	restocker := &stubRestocker{}
	c := NewRestockConsumer(restocker, nil, consumerTestLogger())
	handler := c.Handler()

	event := restockEvent(t, RestockData{VariantID: "var-1", ProductID: "prod-1", Quantity: 5})

	require.NoError(t, handler(context.Background(), event))
	require.NoError(t, handler(context.Background(), event))

	assert.Len(t, restocker.calls, 1)
}

package stock

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onlinestore/fulfillment/internal/extern"
	"github.com/onlinestore/fulfillment/pkg/bus"
	"github.com/onlinestore/fulfillment/pkg/event"
)

// recordingCatalog records decrement calls in arrival order and fails the
// products listed in failFor.
type recordingCatalog struct {
	calls   []struct {
		ProductID string
		Quantity  int
	}
	failFor map[string]error
}

func (c *recordingCatalog) FindOne(_ context.Context, productID string) (extern.Product, error) {
	return extern.Product{ID: productID}, nil
}

func (c *recordingCatalog) DecreaseStock(_ context.Context, productID string, quantity int) error {
	c.calls = append(c.calls, struct {
		ProductID string
		Quantity  int
	}{productID, quantity})
	if err, ok := c.failFor[productID]; ok {
		return err
	}
	return nil
}

func TestDecreaseStock_SequentialInItemOrder(t *testing.T) {
	catalog := &recordingCatalog{}
	consumer := NewConsumer(catalog)

	err := consumer.DecreaseStock(context.Background(), "order-1", []event.OrderItem{
		{ProductID: "A", Quantity: 2},
		{ProductID: "B", Quantity: 1},
	})
	require.NoError(t, err)

	require.Len(t, catalog.calls, 2)
	assert.Equal(t, "A", catalog.calls[0].ProductID)
	assert.Equal(t, 2, catalog.calls[0].Quantity)
	assert.Equal(t, "B", catalog.calls[1].ProductID)
	assert.Equal(t, 1, catalog.calls[1].Quantity)
}

func TestDecreaseStock_ContinuesPastFailure(t *testing.T) {
	decrementFailed := errors.New("out of stock")
	catalog := &recordingCatalog{failFor: map[string]error{"A": decrementFailed}}
	consumer := NewConsumer(catalog)

	err := consumer.DecreaseStock(context.Background(), "order-1", []event.OrderItem{
		{ProductID: "A", Quantity: 2},
		{ProductID: "B", Quantity: 1},
	})

	// The failure is captured, the remaining items are still decremented,
	// and nothing is rolled back.
	assert.ErrorIs(t, err, decrementFailed)
	require.Len(t, catalog.calls, 2)
	assert.Equal(t, "B", catalog.calls[1].ProductID)
}

func TestConsumer_ReactsToOrderCreated(t *testing.T) {
	catalog := &recordingCatalog{}
	consumer := NewConsumer(catalog)

	memBus := bus.NewMemory(nil)
	require.NoError(t, consumer.Subscribe(memBus, "stock-service-group"))

	require.NoError(t, memBus.Publish(context.Background(), event.TopicOrderCreated, event.OrderCreated{
		OrderID: "order-1",
		UserID:  "U1",
		Items: []event.OrderItem{
			{ProductID: "A", Quantity: 2},
			{ProductID: "B", Quantity: 1},
		},
	}))

	require.Len(t, catalog.calls, 2)
	assert.Equal(t, "A", catalog.calls[0].ProductID)
}

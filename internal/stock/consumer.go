// Package stock reacts to order.created events by decrementing catalog
// inventory over RPC.
package stock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/onlinestore/fulfillment/internal/extern"
	"github.com/onlinestore/fulfillment/pkg/bus"
	"github.com/onlinestore/fulfillment/pkg/event"
)

type Consumer struct {
	catalog extern.CatalogClient
}

func NewConsumer(catalog extern.CatalogClient) *Consumer {
	return &Consumer{catalog: catalog}
}

func (c *Consumer) Subscribe(b bus.Bus, group string) error {
	return b.Subscribe(event.TopicOrderCreated, group, c.handleOrderCreated)
}

func (c *Consumer) handleOrderCreated(ctx context.Context, env bus.Envelope) error {
	var ev event.OrderCreated
	if err := json.Unmarshal(env.Payload, &ev); err != nil {
		return fmt.Errorf("decoding order created event: %w", err)
	}
	return c.DecreaseStock(ctx, ev.OrderID, ev.Items)
}

// DecreaseStock issues one decrement call per line item, strictly in order,
// each awaited before the next begins. A failed call is captured and the
// loop continues; decrements that already went through are not rolled back,
// so a partial failure leaves the order partially decremented.
func (c *Consumer) DecreaseStock(ctx context.Context, orderID string, items []event.OrderItem) error {
	var errs []error
	for _, item := range items {
		if err := c.catalog.DecreaseStock(ctx, item.ProductID, item.Quantity); err != nil {
			log.Printf("Failed to decrease stock for product %s (order %s): %v", item.ProductID, orderID, err)
			errs = append(errs, fmt.Errorf("product %s: %w", item.ProductID, err))
			continue
		}
		log.Printf("Stock decreased for product %s (order %s)", item.ProductID, orderID)
	}
	return errors.Join(errs...)
}

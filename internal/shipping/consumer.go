// Package shipping owns the Shipment aggregate. Shipments are created
// reactively from order.created events and updated from order.statusChanged
// events; their status field has its own lifecycle, separate from the order
// status model.
package shipping

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/onlinestore/fulfillment/internal/model"
	"github.com/onlinestore/fulfillment/pkg/bus"
	"github.com/onlinestore/fulfillment/pkg/event"
)

// The creating event does not carry a delivery address; it is filled in
// later through the shipping service's own channels.
const placeholderAddress = "address pending"

type Consumer struct {
	store Store
}

func NewConsumer(store Store) *Consumer {
	return &Consumer{store: store}
}

func (c *Consumer) Subscribe(b bus.Bus, group string) error {
	if err := b.Subscribe(event.TopicOrderCreated, group, c.handleOrderCreated); err != nil {
		return err
	}
	return b.Subscribe(event.TopicOrderStatusChanged, group, c.handleOrderStatusChanged)
}

// handleOrderCreated opens a shipment for the order. A redelivered
// order.created event opens a second shipment; nothing deduplicates here.
func (c *Consumer) handleOrderCreated(ctx context.Context, env bus.Envelope) error {
	var ev event.OrderCreated
	if err := json.Unmarshal(env.Payload, &ev); err != nil {
		return fmt.Errorf("decoding order created event: %w", err)
	}

	shipment, err := c.CreateShipment(ctx, ev.Items)
	if err != nil {
		return err
	}
	log.Printf("Shipment %s created for order %s (tracking %s)", shipment.ID, ev.OrderID, shipment.TrackingNumber)
	return nil
}

// CreateShipment opens a new shipment with a freshly generated tracking
// number. The tracking number is assigned exactly once, here.
func (c *Consumer) CreateShipment(ctx context.Context, items []event.OrderItem) (model.Shipment, error) {
	productIDs := make([]string, 0, len(items))
	for _, item := range items {
		productIDs = append(productIDs, item.ProductID)
	}

	now := time.Now().UTC()
	shipment := model.Shipment{
		ID:             uuid.New().String(),
		ProductIDs:     productIDs,
		TrackingNumber: newTrackingNumber(),
		Address:        placeholderAddress,
		Status:         model.ShipmentStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := c.store.Save(ctx, shipment); err != nil {
		return model.Shipment{}, err
	}
	return shipment, nil
}

func (c *Consumer) handleOrderStatusChanged(ctx context.Context, env bus.Envelope) error {
	var ev event.OrderStatusChanged
	if err := json.Unmarshal(env.Payload, &ev); err != nil {
		return fmt.Errorf("decoding order status changed event: %w", err)
	}
	// The shipment is addressed by its own id, not derived from the order
	// id; events without one cannot be applied.
	if ev.ShipmentID == "" {
		return &model.NotFoundError{Resource: "shipment", ID: "(none)"}
	}
	_, err := c.UpdateStatus(ctx, ev.ShipmentID, mapOrderStatus(model.OrderStatus(ev.NewStatus)))
	return err
}

// UpdateStatus sets the shipment's status, failing with NotFound if no
// shipment exists for that id.
func (c *Consumer) UpdateStatus(ctx context.Context, shipmentID string, status model.ShipmentStatus) (model.Shipment, error) {
	shipment, err := c.store.Get(ctx, shipmentID)
	if err != nil {
		return model.Shipment{}, err
	}

	shipment.Status = status
	shipment.UpdatedAt = time.Now().UTC()
	if err := c.store.Save(ctx, shipment); err != nil {
		return model.Shipment{}, err
	}
	log.Printf("Shipment %s status updated to %s", shipmentID, status)
	return shipment, nil
}

// mapOrderStatus translates the order status model into the shipment's own
// status field.
func mapOrderStatus(status model.OrderStatus) model.ShipmentStatus {
	switch status {
	case model.OrderStatusProcessing, model.OrderStatusConfirmed:
		return model.ShipmentStatusPreparing
	case model.OrderStatusShipped:
		return model.ShipmentStatusShipped
	case model.OrderStatusCancelled:
		return model.ShipmentStatusCancelled
	default:
		return model.ShipmentStatusPending
	}
}

func newTrackingNumber() string {
	return fmt.Sprintf("TRK-%d", 1000000000+rand.Int63n(9000000000))
}

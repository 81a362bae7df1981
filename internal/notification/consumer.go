// Package notification turns order and payment events into outbound email.
// It is a side-effecting leaf: no state beyond the delivery attempt itself.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/onlinestore/fulfillment/internal/extern"
	"github.com/onlinestore/fulfillment/pkg/bus"
	"github.com/onlinestore/fulfillment/pkg/event"
)

// Mailer is the outbound mail collaborator.
type Mailer interface {
	SendOrderConfirmation(to, orderID string, totalAmount float64, items []event.OrderItem) error
	SendPaymentReceipt(to, orderID, transactionID string, amount float64) error
	SendPaymentFailed(to, orderID string, amount float64) error
	SendWelcome(to string) error
	SendPasswordReset(to, resetToken string) error
}

type Consumer struct {
	mailer Mailer
	users  extern.UserClient
	orders extern.OrderClient
}

func NewConsumer(mailer Mailer, users extern.UserClient, orders extern.OrderClient) *Consumer {
	return &Consumer{
		mailer: mailer,
		users:  users,
		orders: orders,
	}
}

func (c *Consumer) Subscribe(b bus.Bus, group string) error {
	if err := b.Subscribe(event.TopicOrderCreated, group, c.handleOrderCreated); err != nil {
		return err
	}
	if err := b.Subscribe(event.TopicPaymentCompleted, group, c.handlePaymentCompleted); err != nil {
		return err
	}
	return b.Subscribe(event.TopicPaymentFailed, group, c.handlePaymentFailed)
}

func (c *Consumer) handleOrderCreated(ctx context.Context, env bus.Envelope) error {
	var ev event.OrderCreated
	if err := json.Unmarshal(env.Payload, &ev); err != nil {
		return fmt.Errorf("decoding order created event: %w", err)
	}

	user, err := c.users.FindOne(ctx, ev.UserID)
	if err != nil {
		return fmt.Errorf("resolving user %s: %w", ev.UserID, err)
	}
	if err := c.mailer.SendOrderConfirmation(user.Email, ev.OrderID, ev.TotalAmount, ev.Items); err != nil {
		return fmt.Errorf("sending order confirmation for order %s: %w", ev.OrderID, err)
	}
	log.Printf("Order confirmation sent to %s for order %s", user.Email, ev.OrderID)
	return nil
}

func (c *Consumer) handlePaymentCompleted(ctx context.Context, env bus.Envelope) error {
	var ev event.PaymentCompleted
	if err := json.Unmarshal(env.Payload, &ev); err != nil {
		return fmt.Errorf("decoding payment completed event: %w", err)
	}

	email, err := c.buyerEmail(ctx, ev.OrderID)
	if err != nil {
		return err
	}
	if err := c.mailer.SendPaymentReceipt(email, ev.OrderID, ev.TransactionID, ev.Amount); err != nil {
		return fmt.Errorf("sending payment receipt for order %s: %w", ev.OrderID, err)
	}
	log.Printf("Payment receipt sent to %s for order %s", email, ev.OrderID)
	return nil
}

func (c *Consumer) handlePaymentFailed(ctx context.Context, env bus.Envelope) error {
	var ev event.PaymentFailed
	if err := json.Unmarshal(env.Payload, &ev); err != nil {
		return fmt.Errorf("decoding payment failed event: %w", err)
	}

	email, err := c.buyerEmail(ctx, ev.OrderID)
	if err != nil {
		return err
	}
	if err := c.mailer.SendPaymentFailed(email, ev.OrderID, ev.Amount); err != nil {
		return fmt.Errorf("sending payment failure notice for order %s: %w", ev.OrderID, err)
	}
	log.Printf("Payment failure notice sent to %s for order %s", email, ev.OrderID)
	return nil
}

// Payment events carry only the order reference, so the buyer is resolved
// through the order service and then the user service.
func (c *Consumer) buyerEmail(ctx context.Context, orderID string) (string, error) {
	order, err := c.orders.FindOne(ctx, orderID)
	if err != nil {
		return "", fmt.Errorf("resolving order %s: %w", orderID, err)
	}
	user, err := c.users.FindOne(ctx, order.UserID)
	if err != nil {
		return "", fmt.Errorf("resolving user %s: %w", order.UserID, err)
	}
	return user.Email, nil
}

// SendWelcome and SendPasswordReset expose the remaining mail flows for the
// user service collaborators.
func (c *Consumer) SendWelcome(email string) error {
	return c.mailer.SendWelcome(email)
}

func (c *Consumer) SendPasswordReset(email, token string) error {
	return c.mailer.SendPasswordReset(email, token)
}

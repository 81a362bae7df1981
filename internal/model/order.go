package model

import "time"

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusConfirmed  OrderStatus = "CONFIRMED"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

// orderTransitions is the full transition table for the order lifecycle.
// SHIPPED -> CANCELLED covers the return/cancel-after-ship case; CANCELLED
// is terminal.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:  {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusCancelled},
	OrderStatusCancelled:  {},
}

// CanTransitionTo reports whether the transition table permits moving from s
// to next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Valid reports whether s is a known order status value.
func (s OrderStatus) Valid() bool {
	_, ok := orderTransitions[s]
	return ok
}

// OrderItem is a single line item within an order. The price is the unit
// price at the time the order was created; line items are immutable once the
// order exists.
type OrderItem struct {
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// Order is the aggregate owned by the order service. Items and TotalAmount
// are fixed at creation; everything after that goes through the status state
// machine.
type Order struct {
	ID              string      `gorm:"primaryKey" json:"id"`
	UserID          string      `gorm:"index" json:"user_id"`
	Items           []OrderItem `gorm:"serializer:json" json:"items"`
	TotalAmount     float64     `json:"total_amount"`
	Status          OrderStatus `json:"status"`
	ShippingAddress string      `json:"shipping_address"`
	Notes           string      `json:"notes,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

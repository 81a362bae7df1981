package event

import "time"

// Broadcast topics. Delivery is at-least-once with no ordering guarantee
// across partitions; payloads carry no delivery id and no idempotency key,
// so consumers may observe redeliveries.
const (
	TopicOrderCreated       = "order.created"
	TopicOrderStatusChanged = "order.statusChanged"
	TopicPaymentCompleted   = "payment.completed"
	TopicPaymentFailed      = "payment.failed"
)

type OrderItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type OrderCreated struct {
	OrderID     string      `json:"orderId"`
	UserID      string      `json:"userId"`
	Items       []OrderItem `json:"items"`
	TotalAmount float64     `json:"totalAmount"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// OrderStatusChanged carries the order's new status. ShipmentID is only set
// when the publisher knows which shipment the change applies to; the order
// service itself does not track shipment ids.
type OrderStatusChanged struct {
	OrderID    string `json:"orderId"`
	NewStatus  string `json:"newStatus"`
	ShipmentID string `json:"shipmentId,omitempty"`
}

type PaymentCompleted struct {
	OrderID       string    `json:"orderId"`
	PaymentID     string    `json:"paymentId"`
	TransactionID string    `json:"transactionId"`
	Amount        float64   `json:"amount"`
	PaidAt        time.Time `json:"paidAt"`
}

type PaymentFailed struct {
	OrderID   string  `json:"orderId"`
	PaymentID string  `json:"paymentId"`
	Amount    float64 `json:"amount"`
}

package model

import "time"

// ShipmentStatus is the shipment's own lifecycle, independent from the order
// status model.
type ShipmentStatus string

const (
	ShipmentStatusPending   ShipmentStatus = "PENDING"
	ShipmentStatusPreparing ShipmentStatus = "PREPARING"
	ShipmentStatusShipped   ShipmentStatus = "SHIPPED"
	ShipmentStatusDelivered ShipmentStatus = "DELIVERED"
	ShipmentStatusCancelled ShipmentStatus = "CANCELLED"
)

// Shipment references its order loosely through the ordered product ids; the
// shipping service may run as an independent deployment with no foreign key
// into the order store. TrackingNumber is assigned exactly once, at creation.
type Shipment struct {
	ID             string         `json:"id"`
	ProductIDs     []string       `json:"product_ids"`
	TrackingNumber string         `json:"tracking_number"`
	Address        string         `json:"address"`
	Status         ShipmentStatus `json:"status"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

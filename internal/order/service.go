package order

import (
	"context"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/onlinestore/fulfillment/internal/extern"
	"github.com/onlinestore/fulfillment/internal/model"
	"github.com/onlinestore/fulfillment/pkg/bus"
	"github.com/onlinestore/fulfillment/pkg/event"
)

var validate = validator.New()

type CreateItemDTO struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

type CreateOrderDTO struct {
	UserID          string          `json:"userId" validate:"required"`
	Items           []CreateItemDTO `json:"items" validate:"required,min=1,dive"`
	ShippingAddress string          `json:"shippingAddress" validate:"required"`
}

type UpdateOrderDTO struct {
	Status          string `json:"status,omitempty"`
	ShippingAddress string `json:"shippingAddress,omitempty"`
}

// Service owns the Order aggregate and its status state machine. Buyer and
// product references are resolved synchronously over RPC at creation;
// order.created and order.statusChanged go out on the event bus.
type Service struct {
	repo    Repository
	users   extern.UserClient
	catalog extern.CatalogClient
	bus     bus.Bus
}

func NewService(repo Repository, users extern.UserClient, catalog extern.CatalogClient, b bus.Bus) *Service {
	return &Service{
		repo:    repo,
		users:   users,
		catalog: catalog,
		bus:     b,
	}
}

// Create resolves the buyer and every referenced product, persists the order
// with status PENDING, and publishes order.created. The total is the sum of
// the resolved unit prices; the requested quantity deliberately does not
// factor in, matching the behavior callers already depend on.
func (s *Service) Create(ctx context.Context, dto CreateOrderDTO) (model.Order, error) {
	if err := validate.Struct(dto); err != nil {
		return model.Order{}, &model.InvalidStateError{Message: err.Error()}
	}

	if _, err := s.users.FindOne(ctx, dto.UserID); err != nil {
		return model.Order{}, err
	}

	var totalAmount float64
	items := make([]model.OrderItem, 0, len(dto.Items))
	for _, item := range dto.Items {
		product, err := s.catalog.FindOne(ctx, item.ProductID)
		if err != nil {
			return model.Order{}, err
		}
		items = append(items, model.OrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     product.Price,
		})
		totalAmount += product.Price
	}

	now := time.Now().UTC()
	order := model.Order{
		ID:              uuid.New().String(),
		UserID:          dto.UserID,
		Items:           items,
		TotalAmount:     totalAmount,
		Status:          model.OrderStatusPending,
		ShippingAddress: dto.ShippingAddress,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.Create(ctx, &order); err != nil {
		return model.Order{}, err
	}

	s.publishCreated(ctx, order)
	return order, nil
}

func (s *Service) FindOne(ctx context.Context, id string) (model.Order, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) FindByUser(ctx context.Context, userID string) ([]model.Order, error) {
	if _, err := s.users.FindOne(ctx, userID); err != nil {
		return nil, err
	}
	return s.repo.FindByUser(ctx, userID)
}

// Update applies a direct status assignment (no transition check, matching
// the generic update path) and/or a new shipping address. Line items and
// total are immutable.
func (s *Service) Update(ctx context.Context, id string, dto UpdateOrderDTO) (model.Order, error) {
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return model.Order{}, err
	}

	if dto.Status != "" && model.OrderStatus(dto.Status).Valid() {
		order.Status = model.OrderStatus(dto.Status)
	}
	if dto.ShippingAddress != "" {
		order.ShippingAddress = dto.ShippingAddress
	}
	order.UpdatedAt = time.Now().UTC()

	if err := s.repo.Save(ctx, &order); err != nil {
		return model.Order{}, err
	}
	return order, nil
}

// UpdateStatus advances the order through its state machine. A transition
// the table does not permit fails and leaves the stored status untouched.
func (s *Service) UpdateStatus(ctx context.Context, id string, status model.OrderStatus) (model.Order, error) {
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return model.Order{}, err
	}

	if !order.Status.CanTransitionTo(status) {
		return model.Order{}, &model.InvalidTransitionError{
			From: string(order.Status),
			To:   string(status),
		}
	}

	order.Status = status
	order.UpdatedAt = time.Now().UTC()
	if err := s.repo.Save(ctx, &order); err != nil {
		return model.Order{}, err
	}

	if err := s.bus.Publish(ctx, event.TopicOrderStatusChanged, event.OrderStatusChanged{
		OrderID:   order.ID,
		NewStatus: string(order.Status),
	}); err != nil {
		log.Printf("Warning: failed to publish status change for order %s: %v", order.ID, err)
	}
	return order, nil
}

// Remove deletes an order. Only pending or cancelled orders can be deleted.
func (s *Service) Remove(ctx context.Context, id string) error {
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	if order.Status != model.OrderStatusPending && order.Status != model.OrderStatusCancelled {
		return &model.InvalidStateError{Message: "only pending or cancelled orders can be deleted"}
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) publishCreated(ctx context.Context, order model.Order) {
	items := make([]event.OrderItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, event.OrderItem{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	err := s.bus.Publish(ctx, event.TopicOrderCreated, event.OrderCreated{
		OrderID:     order.ID,
		UserID:      order.UserID,
		Items:       items,
		TotalAmount: order.TotalAmount,
		CreatedAt:   order.CreatedAt,
	})
	if err != nil {
		log.Printf("Warning: failed to publish order created event for order %s: %v", order.ID, err)
		return
	}
	log.Printf("Order created event published: %s", order.ID)
}

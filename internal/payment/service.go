package payment

import (
	"context"
	"log"
	"math/rand"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/onlinestore/fulfillment/internal/extern"
	"github.com/onlinestore/fulfillment/internal/model"
	"github.com/onlinestore/fulfillment/pkg/bus"
	"github.com/onlinestore/fulfillment/pkg/event"
)

var validate = validator.New()

type CreatePaymentDTO struct {
	OrderID string  `json:"orderId" validate:"required"`
	Amount  float64 `json:"amount" validate:"required,gt=0"`
	Method  string  `json:"method" validate:"required"`
}

type UpdatePaymentDTO struct {
	Status        string `json:"status,omitempty"`
	TransactionID string `json:"transactionId,omitempty"`
}

// Service owns the Payment aggregate. It reaches back into the order service
// over RPC to advance order status, and publishes payment outcomes on the
// event bus.
type Service struct {
	repo        Repository
	orders      extern.OrderClient
	bus         bus.Bus
	successRate float64
	randFloat   func() float64
}

func NewService(repo Repository, orders extern.OrderClient, b bus.Bus, successRate float64) *Service {
	return &Service{
		repo:        repo,
		orders:      orders,
		bus:         b,
		successRate: successRate,
		randFloat:   rand.Float64,
	}
}

// Create records a payment attempt for an existing order. The amount is
// fixed here and never mutated afterwards.
func (s *Service) Create(ctx context.Context, dto CreatePaymentDTO) (model.Payment, error) {
	if err := validate.Struct(dto); err != nil {
		return model.Payment{}, &model.InvalidStateError{Message: err.Error()}
	}
	method := model.PaymentMethod(dto.Method)
	if !method.Valid() {
		return model.Payment{}, &model.InvalidStateError{Message: "unknown payment method: " + dto.Method}
	}

	if _, err := s.orders.FindOne(ctx, dto.OrderID); err != nil {
		return model.Payment{}, err
	}

	now := time.Now().UTC()
	payment := model.Payment{
		ID:        uuid.New().String(),
		OrderID:   dto.OrderID,
		Amount:    dto.Amount,
		Method:    method,
		Status:    model.PaymentStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, &payment); err != nil {
		return model.Payment{}, err
	}
	return payment, nil
}

func (s *Service) FindOne(ctx context.Context, id string) (model.Payment, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) FindByOrder(ctx context.Context, orderID string) ([]model.Payment, error) {
	return s.repo.FindByOrder(ctx, orderID)
}

// ProcessPayment simulates settling a pending payment against a gateway.
// On success the payment completes, gets a fresh transaction id, and the
// order advances to PROCESSING; on failure the payment fails and the order
// is left untouched. The order update happens before the payment record is
// persisted, so an unreachable order service leaves the payment PENDING.
func (s *Service) ProcessPayment(ctx context.Context, id string) (model.Payment, error) {
	payment, err := s.repo.Get(ctx, id)
	if err != nil {
		return model.Payment{}, err
	}
	if payment.Status != model.PaymentStatusPending {
		return model.Payment{}, &model.InvalidStateError{
			Message: "payment " + id + " has already been processed",
		}
	}

	if s.randFloat() < s.successRate {
		payment.Status = model.PaymentStatusCompleted
		payment.TransactionID = "TR-" + uuid.New().String()
		if err := s.orders.UpdateStatus(ctx, payment.OrderID, model.OrderStatusProcessing); err != nil {
			return model.Payment{}, err
		}
	} else {
		payment.Status = model.PaymentStatusFailed
	}

	payment.UpdatedAt = time.Now().UTC()
	if err := s.repo.Save(ctx, &payment); err != nil {
		return model.Payment{}, err
	}

	s.publishOutcome(ctx, payment)
	return payment, nil
}

// Update supports direct status assignment for gateway callbacks, with the
// same side effects as processing: COMPLETED pushes the order to PROCESSING
// and REFUNDED pushes it to CANCELLED.
func (s *Service) Update(ctx context.Context, id string, dto UpdatePaymentDTO) (model.Payment, error) {
	payment, err := s.repo.Get(ctx, id)
	if err != nil {
		return model.Payment{}, err
	}

	if dto.Status != "" {
		next := model.PaymentStatus(dto.Status)
		if !next.Valid() {
			return model.Payment{}, &model.InvalidStateError{Message: "unknown payment status: " + dto.Status}
		}
		if !payment.Status.CanTransitionTo(next) {
			return model.Payment{}, &model.InvalidTransitionError{
				From: string(payment.Status),
				To:   string(next),
			}
		}
		payment.Status = next

		switch next {
		case model.PaymentStatusCompleted:
			if err := s.orders.UpdateStatus(ctx, payment.OrderID, model.OrderStatusProcessing); err != nil {
				return model.Payment{}, err
			}
		case model.PaymentStatusRefunded:
			if err := s.orders.UpdateStatus(ctx, payment.OrderID, model.OrderStatusCancelled); err != nil {
				return model.Payment{}, err
			}
		}
	}

	if dto.TransactionID != "" {
		payment.TransactionID = dto.TransactionID
	}

	payment.UpdatedAt = time.Now().UTC()
	if err := s.repo.Save(ctx, &payment); err != nil {
		return model.Payment{}, err
	}

	if dto.Status != "" {
		s.publishOutcome(ctx, payment)
	}
	return payment, nil
}

// Remove deletes a payment attempt. Completed and refunded payments are kept
// forever; only pending and failed ones can be removed.
func (s *Service) Remove(ctx context.Context, id string) error {
	payment, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	if payment.Status != model.PaymentStatusPending && payment.Status != model.PaymentStatusFailed {
		return &model.InvalidStateError{Message: "completed payments cannot be deleted"}
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) publishOutcome(ctx context.Context, payment model.Payment) {
	var err error
	switch payment.Status {
	case model.PaymentStatusCompleted:
		err = s.bus.Publish(ctx, event.TopicPaymentCompleted, event.PaymentCompleted{
			OrderID:       payment.OrderID,
			PaymentID:     payment.ID,
			TransactionID: payment.TransactionID,
			Amount:        payment.Amount,
			PaidAt:        payment.UpdatedAt,
		})
	case model.PaymentStatusFailed:
		err = s.bus.Publish(ctx, event.TopicPaymentFailed, event.PaymentFailed{
			OrderID:   payment.OrderID,
			PaymentID: payment.ID,
			Amount:    payment.Amount,
		})
	default:
		return
	}
	if err != nil {
		log.Printf("Warning: failed to publish payment outcome for payment %s: %v", payment.ID, err)
	}
}

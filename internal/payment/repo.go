package payment

import (
	"context"
	"sync"

	"github.com/onlinestore/fulfillment/internal/model"
)

type Repository interface {
	Create(ctx context.Context, payment *model.Payment) error
	Get(ctx context.Context, id string) (model.Payment, error)
	FindByOrder(ctx context.Context, orderID string) ([]model.Payment, error)
	Save(ctx context.Context, payment *model.Payment) error
	Delete(ctx context.Context, id string) error
}

type MemoryRepository struct {
	mu       sync.RWMutex
	payments map[string]model.Payment
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{payments: make(map[string]model.Payment)}
}

func (r *MemoryRepository) Create(_ context.Context, payment *model.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payments[payment.ID] = *payment
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, id string) (model.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	payment, ok := r.payments[id]
	if !ok {
		return model.Payment{}, &model.NotFoundError{Resource: "payment", ID: id}
	}
	return payment, nil
}

func (r *MemoryRepository) FindByOrder(_ context.Context, orderID string) ([]model.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var res []model.Payment
	for _, payment := range r.payments {
		if payment.OrderID == orderID {
			res = append(res, payment)
		}
	}
	return res, nil
}

func (r *MemoryRepository) Save(_ context.Context, payment *model.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.payments[payment.ID]; !ok {
		return &model.NotFoundError{Resource: "payment", ID: payment.ID}
	}
	r.payments[payment.ID] = *payment
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.payments[id]; !ok {
		return &model.NotFoundError{Resource: "payment", ID: id}
	}
	delete(r.payments, id)
	return nil
}

package order

import (
	"context"
	"sort"
	"sync"

	"github.com/onlinestore/fulfillment/internal/model"
)

// Repository is the order service's private store. No other service touches
// it; cross-service reads go through RPC.
type Repository interface {
	Create(ctx context.Context, order *model.Order) error
	Get(ctx context.Context, id string) (model.Order, error)
	FindByUser(ctx context.Context, userID string) ([]model.Order, error)
	Save(ctx context.Context, order *model.Order) error
	Delete(ctx context.Context, id string) error
}

// MemoryRepository is an in-memory Repository used by tests and local runs.
type MemoryRepository struct {
	mu     sync.RWMutex
	orders map[string]model.Order
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{orders: make(map[string]model.Order)}
}

func (r *MemoryRepository) Create(_ context.Context, order *model.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[order.ID] = *order
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, id string) (model.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	order, ok := r.orders[id]
	if !ok {
		return model.Order{}, &model.NotFoundError{Resource: "order", ID: id}
	}
	return order, nil
}

func (r *MemoryRepository) FindByUser(_ context.Context, userID string) ([]model.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var res []model.Order
	for _, order := range r.orders {
		if order.UserID == userID {
			res = append(res, order)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.After(res[j].CreatedAt) })
	return res, nil
}

func (r *MemoryRepository) Save(_ context.Context, order *model.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[order.ID]; !ok {
		return &model.NotFoundError{Resource: "order", ID: order.ID}
	}
	r.orders[order.ID] = *order
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[id]; !ok {
		return &model.NotFoundError{Resource: "order", ID: id}
	}
	delete(r.orders, id)
	return nil
}

package order

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/onlinestore/fulfillment/internal/extern"
	"github.com/onlinestore/fulfillment/internal/model"
	"github.com/onlinestore/fulfillment/pkg/bus"
	"github.com/onlinestore/fulfillment/pkg/event"
	"github.com/onlinestore/fulfillment/pkg/rpc"
)

type MockUserClient struct {
	mock.Mock
}

func (m *MockUserClient) FindOne(ctx context.Context, userID string) (extern.User, error) {
	args := m.Called(userID)
	return args.Get(0).(extern.User), args.Error(1)
}

type MockCatalogClient struct {
	mock.Mock
}

func (m *MockCatalogClient) FindOne(ctx context.Context, productID string) (extern.Product, error) {
	args := m.Called(productID)
	return args.Get(0).(extern.Product), args.Error(1)
}

func (m *MockCatalogClient) DecreaseStock(ctx context.Context, productID string, quantity int) error {
	args := m.Called(productID, quantity)
	return args.Error(0)
}

func newTestService(t *testing.T) (*Service, *MockUserClient, *MockCatalogClient, *bus.Memory) {
	t.Helper()
	users := new(MockUserClient)
	catalog := new(MockCatalogClient)
	memBus := bus.NewMemory(nil)
	svc := NewService(NewMemoryRepository(), users, catalog, memBus)
	return svc, users, catalog, memBus
}

func seedOrder(t *testing.T, svc *Service, status model.OrderStatus) model.Order {
	t.Helper()
	order := model.Order{
		ID:     "order-" + string(status),
		UserID: "U1",
		Items:  []model.OrderItem{{ProductID: "P1", Quantity: 1, Price: 10}},
		Status: status,
	}
	require.NoError(t, svc.repo.Create(context.Background(), &order))
	return order
}

func TestCreateOrder(t *testing.T) {
	svc, users, catalog, _ := newTestService(t)

	users.On("FindOne", "U1").Return(extern.User{ID: "U1", Email: "u1@example.com"}, nil)
	catalog.On("FindOne", "P1").Return(extern.Product{ID: "P1", Price: 10, Stock: 5}, nil)

	order, err := svc.Create(context.Background(), CreateOrderDTO{
		UserID:          "U1",
		Items:           []CreateItemDTO{{ProductID: "P1", Quantity: 1}},
		ShippingAddress: "Main St",
	})
	require.NoError(t, err)

	assert.Equal(t, model.OrderStatusPending, order.Status)
	assert.Equal(t, 10.0, order.TotalAmount)
	assert.Equal(t, "Main St", order.ShippingAddress)
	assert.NotEmpty(t, order.ID)

	// PENDING -> PROCESSING is permitted.
	updated, err := svc.UpdateStatus(context.Background(), order.ID, model.OrderStatusProcessing)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusProcessing, updated.Status)

	// PROCESSING -> SHIPPED must pass through CONFIRMED first.
	_, err = svc.UpdateStatus(context.Background(), order.ID, model.OrderStatusShipped)
	var ite *model.InvalidTransitionError
	require.ErrorAs(t, err, &ite)
	assert.Equal(t, "PROCESSING", ite.From)
	assert.Equal(t, "SHIPPED", ite.To)

	stored, err := svc.FindOne(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusProcessing, stored.Status)
}

func TestCreateOrder_TotalSumsUnitPrices(t *testing.T) {
	svc, users, catalog, _ := newTestService(t)

	users.On("FindOne", "U1").Return(extern.User{ID: "U1"}, nil)
	catalog.On("FindOne", "P1").Return(extern.Product{ID: "P1", Price: 10}, nil)
	catalog.On("FindOne", "P2").Return(extern.Product{ID: "P2", Price: 7}, nil)

	order, err := svc.Create(context.Background(), CreateOrderDTO{
		UserID: "U1",
		Items: []CreateItemDTO{
			{ProductID: "P1", Quantity: 3},
			{ProductID: "P2", Quantity: 2},
		},
		ShippingAddress: "Main St",
	})
	require.NoError(t, err)

	// The total is the sum of unit prices; requested quantities do not
	// factor in.
	assert.Equal(t, 17.0, order.TotalAmount)
	assert.Equal(t, 3, order.Items[0].Quantity)
}

func TestCreateOrder_UnknownBuyer(t *testing.T) {
	svc, users, _, _ := newTestService(t)

	users.On("FindOne", "ghost").Return(extern.User{}, &rpc.RemoteError{StatusCode: 404, Message: "user with ID ghost not found"})

	_, err := svc.Create(context.Background(), CreateOrderDTO{
		UserID:          "ghost",
		Items:           []CreateItemDTO{{ProductID: "P1", Quantity: 1}},
		ShippingAddress: "Main St",
	})
	var re *rpc.RemoteError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, 404, re.StatusCode)
}

func TestCreateOrder_UnknownProduct(t *testing.T) {
	svc, users, catalog, _ := newTestService(t)

	users.On("FindOne", "U1").Return(extern.User{ID: "U1"}, nil)
	catalog.On("FindOne", "missing").Return(extern.Product{}, &rpc.RemoteError{StatusCode: 404, Message: "product not found"})

	_, err := svc.Create(context.Background(), CreateOrderDTO{
		UserID:          "U1",
		Items:           []CreateItemDTO{{ProductID: "missing", Quantity: 1}},
		ShippingAddress: "Main St",
	})
	var re *rpc.RemoteError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, 404, re.StatusCode)
}

func TestCreateOrder_PublishesEvent(t *testing.T) {
	svc, users, catalog, memBus := newTestService(t)

	var published []event.OrderCreated
	require.NoError(t, memBus.Subscribe(event.TopicOrderCreated, "test-group", func(_ context.Context, env bus.Envelope) error {
		var ev event.OrderCreated
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return err
		}
		published = append(published, ev)
		return nil
	}))

	users.On("FindOne", "U1").Return(extern.User{ID: "U1"}, nil)
	catalog.On("FindOne", "P1").Return(extern.Product{ID: "P1", Price: 10}, nil)

	order, err := svc.Create(context.Background(), CreateOrderDTO{
		UserID:          "U1",
		Items:           []CreateItemDTO{{ProductID: "P1", Quantity: 2}},
		ShippingAddress: "Main St",
	})
	require.NoError(t, err)

	require.Len(t, published, 1)
	assert.Equal(t, order.ID, published[0].OrderID)
	assert.Equal(t, "U1", published[0].UserID)
	assert.Equal(t, []event.OrderItem{{ProductID: "P1", Quantity: 2}}, published[0].Items)
	assert.Equal(t, 10.0, published[0].TotalAmount)
}

func TestUpdateStatus_TransitionTable(t *testing.T) {
	allStatuses := []model.OrderStatus{
		model.OrderStatusPending,
		model.OrderStatusProcessing,
		model.OrderStatusConfirmed,
		model.OrderStatusShipped,
		model.OrderStatusCancelled,
	}
	allowed := map[model.OrderStatus][]model.OrderStatus{
		model.OrderStatusPending:    {model.OrderStatusProcessing, model.OrderStatusCancelled},
		model.OrderStatusProcessing: {model.OrderStatusConfirmed, model.OrderStatusCancelled},
		model.OrderStatusConfirmed:  {model.OrderStatusShipped, model.OrderStatusCancelled},
		model.OrderStatusShipped:    {model.OrderStatusCancelled},
		model.OrderStatusCancelled:  {},
	}

	for _, from := range allStatuses {
		for _, to := range allStatuses {
			svc, _, _, _ := newTestService(t)
			order := seedOrder(t, svc, from)

			permitted := false
			for _, next := range allowed[from] {
				if next == to {
					permitted = true
				}
			}

			_, err := svc.UpdateStatus(context.Background(), order.ID, to)
			stored, getErr := svc.FindOne(context.Background(), order.ID)
			require.NoError(t, getErr)

			if permitted {
				assert.NoError(t, err, "%s -> %s should be permitted", from, to)
				assert.Equal(t, to, stored.Status)
			} else {
				var ite *model.InvalidTransitionError
				assert.ErrorAs(t, err, &ite, "%s -> %s should be rejected", from, to)
				assert.Equal(t, from, stored.Status, "failed transition %s -> %s must not mutate the order", from, to)
			}
		}
	}
}

func TestUpdateStatus_PublishesStatusChanged(t *testing.T) {
	svc, _, _, memBus := newTestService(t)
	order := seedOrder(t, svc, model.OrderStatusPending)

	var published []event.OrderStatusChanged
	require.NoError(t, memBus.Subscribe(event.TopicOrderStatusChanged, "test-group", func(_ context.Context, env bus.Envelope) error {
		var ev event.OrderStatusChanged
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return err
		}
		published = append(published, ev)
		return nil
	}))

	_, err := svc.UpdateStatus(context.Background(), order.ID, model.OrderStatusProcessing)
	require.NoError(t, err)

	require.Len(t, published, 1)
	assert.Equal(t, order.ID, published[0].OrderID)
	assert.Equal(t, "PROCESSING", published[0].NewStatus)
}

func TestRemove(t *testing.T) {
	cases := []struct {
		status    model.OrderStatus
		removable bool
	}{
		{model.OrderStatusPending, true},
		{model.OrderStatusCancelled, true},
		{model.OrderStatusProcessing, false},
		{model.OrderStatusConfirmed, false},
		{model.OrderStatusShipped, false},
	}

	for _, tc := range cases {
		svc, _, _, _ := newTestService(t)
		order := seedOrder(t, svc, tc.status)

		err := svc.Remove(context.Background(), order.ID)
		if tc.removable {
			assert.NoError(t, err, "order in %s should be removable", tc.status)
			_, getErr := svc.FindOne(context.Background(), order.ID)
			assert.True(t, model.IsNotFound(getErr))
		} else {
			var ise *model.InvalidStateError
			assert.ErrorAs(t, err, &ise, "order in %s should not be removable", tc.status)
			_, getErr := svc.FindOne(context.Background(), order.ID)
			assert.NoError(t, getErr, "order in %s must survive a failed remove", tc.status)
		}
	}
}

func TestUpdate_DirectAssignment(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	order := seedOrder(t, svc, model.OrderStatusPending)

	updated, err := svc.Update(context.Background(), order.ID, UpdateOrderDTO{
		Status:          "SHIPPED",
		ShippingAddress: "New Address 42",
	})
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusShipped, updated.Status)
	assert.Equal(t, "New Address 42", updated.ShippingAddress)

	// An unknown status value is ignored rather than rejected.
	updated, err = svc.Update(context.Background(), order.ID, UpdateOrderDTO{Status: "TELEPORTED"})
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusShipped, updated.Status)
}

func TestFindOne_NotFound(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	_, err := svc.FindOne(context.Background(), "nope")
	assert.True(t, model.IsNotFound(err))
}

package payment

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/onlinestore/fulfillment/internal/model"
	"github.com/onlinestore/fulfillment/pkg/bus"
	"github.com/onlinestore/fulfillment/pkg/event"
	"github.com/onlinestore/fulfillment/pkg/rpc"
)

type MockOrderClient struct {
	mock.Mock
}

func (m *MockOrderClient) FindOne(ctx context.Context, orderID string) (model.Order, error) {
	args := m.Called(orderID)
	return args.Get(0).(model.Order), args.Error(1)
}

func (m *MockOrderClient) UpdateStatus(ctx context.Context, orderID string, status model.OrderStatus) error {
	args := m.Called(orderID, status)
	return args.Error(0)
}

func newTestService(t *testing.T, successRate float64) (*Service, *MockOrderClient, *bus.Memory) {
	t.Helper()
	orders := new(MockOrderClient)
	memBus := bus.NewMemory(nil)
	svc := NewService(NewMemoryRepository(), orders, memBus, successRate)
	return svc, orders, memBus
}

func seedPayment(t *testing.T, svc *Service, status model.PaymentStatus) model.Payment {
	t.Helper()
	payment := model.Payment{
		ID:      "pay-" + string(status),
		OrderID: "order-1",
		Amount:  25,
		Method:  model.PaymentMethodCreditCard,
		Status:  status,
	}
	require.NoError(t, svc.repo.Create(context.Background(), &payment))
	return payment
}

func TestCreatePayment(t *testing.T) {
	svc, orders, _ := newTestService(t, 0.8)
	orders.On("FindOne", "order-1").Return(model.Order{ID: "order-1"}, nil)

	payment, err := svc.Create(context.Background(), CreatePaymentDTO{
		OrderID: "order-1",
		Amount:  25,
		Method:  "credit_card",
	})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPending, payment.Status)
	assert.Empty(t, payment.TransactionID)
}

func TestCreatePayment_OrderMissing(t *testing.T) {
	svc, orders, _ := newTestService(t, 0.8)
	orders.On("FindOne", "ghost").Return(model.Order{}, &rpc.RemoteError{StatusCode: 404, Message: "order with ID ghost not found"})

	_, err := svc.Create(context.Background(), CreatePaymentDTO{
		OrderID: "ghost",
		Amount:  25,
		Method:  "credit_card",
	})
	var re *rpc.RemoteError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, 404, re.StatusCode)
}

func TestProcessPayment_Success(t *testing.T) {
	svc, orders, memBus := newTestService(t, 0.8)
	svc.randFloat = func() float64 { return 0.0 }
	payment := seedPayment(t, svc, model.PaymentStatusPending)

	orders.On("UpdateStatus", "order-1", model.OrderStatusProcessing).Return(nil).Once()

	var completed []event.PaymentCompleted
	require.NoError(t, memBus.Subscribe(event.TopicPaymentCompleted, "test-group", func(_ context.Context, env bus.Envelope) error {
		var ev event.PaymentCompleted
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return err
		}
		completed = append(completed, ev)
		return nil
	}))

	processed, err := svc.ProcessPayment(context.Background(), payment.ID)
	require.NoError(t, err)

	assert.Equal(t, model.PaymentStatusCompleted, processed.Status)
	assert.NotEmpty(t, processed.TransactionID)
	orders.AssertExpectations(t)

	require.Len(t, completed, 1)
	assert.Equal(t, "order-1", completed[0].OrderID)
	assert.Equal(t, processed.TransactionID, completed[0].TransactionID)
}

func TestProcessPayment_TransactionIDsUnique(t *testing.T) {
	svc, orders, _ := newTestService(t, 0.8)
	svc.randFloat = func() float64 { return 0.0 }
	orders.On("UpdateStatus", mock.Anything, model.OrderStatusProcessing).Return(nil)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		payment := model.Payment{
			ID:      uuid.New().String(),
			OrderID: "order-1",
			Amount:  25,
			Method:  model.PaymentMethodCreditCard,
			Status:  model.PaymentStatusPending,
		}
		require.NoError(t, svc.repo.Create(context.Background(), &payment))

		processed, err := svc.ProcessPayment(context.Background(), payment.ID)
		require.NoError(t, err)
		assert.NotEmpty(t, processed.TransactionID)
		assert.False(t, seen[processed.TransactionID], "transaction id %s repeated", processed.TransactionID)
		seen[processed.TransactionID] = true
	}
}

func TestProcessPayment_Failure(t *testing.T) {
	svc, orders, memBus := newTestService(t, 0.8)
	svc.randFloat = func() float64 { return 0.99 }
	payment := seedPayment(t, svc, model.PaymentStatusPending)

	var failed []event.PaymentFailed
	require.NoError(t, memBus.Subscribe(event.TopicPaymentFailed, "test-group", func(_ context.Context, env bus.Envelope) error {
		var ev event.PaymentFailed
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return err
		}
		failed = append(failed, ev)
		return nil
	}))

	processed, err := svc.ProcessPayment(context.Background(), payment.ID)
	require.NoError(t, err)

	assert.Equal(t, model.PaymentStatusFailed, processed.Status)
	assert.Empty(t, processed.TransactionID)
	// A failed payment never touches the order.
	orders.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything)
	require.Len(t, failed, 1)
	assert.Equal(t, "order-1", failed[0].OrderID)
}

func TestProcessPayment_OrderServiceDown(t *testing.T) {
	svc, orders, _ := newTestService(t, 0.8)
	svc.randFloat = func() float64 { return 0.0 }
	payment := seedPayment(t, svc, model.PaymentStatusPending)

	orders.On("UpdateStatus", "order-1", model.OrderStatusProcessing).Return(rpc.ErrUnavailable)

	_, err := svc.ProcessPayment(context.Background(), payment.ID)
	require.Error(t, err)

	// The payment record must not have been committed as completed.
	stored, getErr := svc.repo.Get(context.Background(), payment.ID)
	require.NoError(t, getErr)
	assert.Equal(t, model.PaymentStatusPending, stored.Status)
}

func TestProcessPayment_AlreadyProcessed(t *testing.T) {
	svc, _, _ := newTestService(t, 0.8)
	payment := seedPayment(t, svc, model.PaymentStatusCompleted)

	_, err := svc.ProcessPayment(context.Background(), payment.ID)
	var ise *model.InvalidStateError
	assert.ErrorAs(t, err, &ise)
}

func TestProcessPayment_SuccessFraction(t *testing.T) {
	svc, orders, _ := newTestService(t, 0.8)
	orders.On("UpdateStatus", mock.Anything, model.OrderStatusProcessing).Return(nil)

	const runs = 1000
	completedCount := 0
	for i := 0; i < runs; i++ {
		payment := model.Payment{
			ID:      uuid.New().String(),
			OrderID: "order-1",
			Amount:  25,
			Method:  model.PaymentMethodCreditCard,
			Status:  model.PaymentStatusPending,
		}
		require.NoError(t, svc.repo.Create(context.Background(), &payment))

		processed, err := svc.ProcessPayment(context.Background(), payment.ID)
		require.NoError(t, err)
		if processed.Status == model.PaymentStatusCompleted {
			completedCount++
		}
	}

	fraction := float64(completedCount) / float64(runs)
	// 0.8 +/- 5 percentage points is roughly four standard deviations at
	// this sample size.
	assert.Greater(t, fraction, 0.75)
	assert.Less(t, fraction, 0.85)
}

func TestUpdate_CompletedAdvancesOrder(t *testing.T) {
	svc, orders, _ := newTestService(t, 0.8)
	payment := seedPayment(t, svc, model.PaymentStatusPending)

	orders.On("UpdateStatus", "order-1", model.OrderStatusProcessing).Return(nil).Once()

	updated, err := svc.Update(context.Background(), payment.ID, UpdatePaymentDTO{
		Status:        "COMPLETED",
		TransactionID: "TR-gateway-1",
	})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusCompleted, updated.Status)
	assert.Equal(t, "TR-gateway-1", updated.TransactionID)
	orders.AssertExpectations(t)
}

func TestUpdate_RefundedCancelsOrder(t *testing.T) {
	svc, orders, _ := newTestService(t, 0.8)
	payment := seedPayment(t, svc, model.PaymentStatusCompleted)

	orders.On("UpdateStatus", "order-1", model.OrderStatusCancelled).Return(nil).Once()

	updated, err := svc.Update(context.Background(), payment.ID, UpdatePaymentDTO{Status: "REFUNDED"})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusRefunded, updated.Status)
	orders.AssertExpectations(t)
}

func TestUpdate_NoTransitionsOutOfFailed(t *testing.T) {
	svc, orders, _ := newTestService(t, 0.8)
	payment := seedPayment(t, svc, model.PaymentStatusFailed)

	for _, next := range []string{"PENDING", "COMPLETED", "REFUNDED"} {
		_, err := svc.Update(context.Background(), payment.ID, UpdatePaymentDTO{Status: next})
		var ite *model.InvalidTransitionError
		assert.ErrorAs(t, err, &ite, "FAILED -> %s must be rejected", next)
	}
	orders.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything)
}

func TestRemove(t *testing.T) {
	cases := []struct {
		status    model.PaymentStatus
		removable bool
	}{
		{model.PaymentStatusPending, true},
		{model.PaymentStatusFailed, true},
		{model.PaymentStatusCompleted, false},
		{model.PaymentStatusRefunded, false},
	}

	for _, tc := range cases {
		svc, _, _ := newTestService(t, 0.8)
		payment := seedPayment(t, svc, tc.status)

		err := svc.Remove(context.Background(), payment.ID)
		if tc.removable {
			assert.NoError(t, err, "payment in %s should be removable", tc.status)
		} else {
			var ise *model.InvalidStateError
			assert.ErrorAs(t, err, &ise, "payment in %s should not be removable", tc.status)
		}
	}
}

package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mmeshcher/florist-storefront/internal/cart"
	"github.com/mmeshcher/florist-storefront/internal/catalog"
	"github.com/mmeshcher/florist-storefront/internal/checkout"
	"github.com/mmeshcher/florist-storefront/internal/model"
	"github.com/mmeshcher/florist-storefront/internal/repository"
)

type stubRepo struct {
	mu        sync.Mutex
	orders    []model.PlacedOrder
	recordErr error
	closed    bool
}

func (s *stubRepo) Close() error {
	s.closed = true
	return nil
}

func (s *stubRepo) RecordOrder(_ context.Context, o model.PlacedOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = append(s.orders, o)
	return s.recordErr
}

func newMockService(repo Repository) *Service {
	engine := cart.NewEngine(nil, catalog.Default(), zap.NewNop())
	pipeline := checkout.NewPipeline(nil, engine, nil, zap.NewNop())
	return NewService(engine, pipeline, repo, zap.NewNop())
}

func orderRequest() model.OrderRequest {
	return model.OrderRequest{
		Recipient: model.Address{
			Name: "Jane Doe", Address1: "1 Main St", City: "Austin", State: "TX", ZIP: "78701", Phone: "5125550100",
		},
		Sender:       model.Address{Name: "John Doe", Phone: "5125550101"},
		CardMessage:  "Congratulations",
		DeliveryDate: "2026-10-21",
		PaymentToken: "tok_abc",
	}
}

func TestPlaceOrder_RecordsOrder(t *testing.T) {
	repo := &stubRepo{}
	svc := newMockService(repo)
	ctx := context.Background()

	b, err := svc.CreateCart(ctx)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, b, "MOCK-LV-001", 1)
	require.NoError(t, err)

	confirmation, err := svc.PlaceOrder(ctx, b, orderRequest())
	require.NoError(t, err)
	require.NoError(t, svc.Close())

	require.Len(t, repo.orders, 1)
	assert.Equal(t, confirmation.OrderID, repo.orders[0].OrderID)
	assert.True(t, repo.orders[0].Mock)
	assert.Equal(t, "78701", repo.orders[0].RecipientZIP)
	assert.Equal(t, b.CartID(), repo.orders[0].CartID)
	assert.True(t, repo.closed)
}

func TestPlaceOrder_RecordFailureIsNotSurfaced(t *testing.T) {
	for _, recordErr := range []error{errors.New("db down"), repository.ErrOrderExists} {
		repo := &stubRepo{recordErr: recordErr}
		svc := newMockService(repo)
		ctx := context.Background()

		b, err := svc.CreateCart(ctx)
		require.NoError(t, err)
		_, err = svc.AddItem(ctx, b, "MOCK-GW-001", 2)
		require.NoError(t, err)

		confirmation, err := svc.PlaceOrder(ctx, b, orderRequest())
		require.NoError(t, err)
		assert.NotEmpty(t, confirmation.ConfirmationNumber)
		require.NoError(t, svc.Close())
	}
}

func TestPlaceOrder_FailureIsNotRecorded(t *testing.T) {
	repo := &stubRepo{}
	svc := newMockService(repo)

	b, err := svc.CreateCart(context.Background())
	require.NoError(t, err)

	_, err = svc.PlaceOrder(context.Background(), b, orderRequest())
	assert.ErrorIs(t, err, checkout.ErrEmptyCart)
	require.NoError(t, svc.Close())
	assert.Empty(t, repo.orders)
}

func TestService_WithoutRepository(t *testing.T) {
	svc := newMockService(nil)
	ctx := context.Background()

	b, err := svc.CreateCart(ctx)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, b, "MOCK-SY-001", 1)
	require.NoError(t, err)

	_, err = svc.PlaceOrder(ctx, b, orderRequest())
	require.NoError(t, err)
	assert.NoError(t, svc.Close())
}

func TestService_CartLifecycle(t *testing.T) {
	svc := newMockService(nil)
	ctx := context.Background()

	b, err := svc.CreateCart(ctx)
	require.NoError(t, err)
	assert.True(t, model.IsMockCartID(b.CartID()))

	c, err := svc.AddItem(ctx, b, "MOCK-BD-001", 2)
	require.NoError(t, err)
	assert.Equal(t, 129.98, c.Subtotal)

	c, err = svc.UpdateQuantity(ctx, b, "MOCK-BD-001", 1)
	require.NoError(t, err)
	assert.Equal(t, 64.99, c.Subtotal)

	total, err := svc.ComputeTotal(ctx, b, "10001", "2026-10-21")
	require.NoError(t, err)
	assert.Equal(t, 14.99, total.Delivery)

	dates, err := svc.DeliveryDates(ctx, "10001")
	require.NoError(t, err)
	assert.Len(t, dates, 10)

	c, err = svc.RemoveItem(ctx, b, "MOCK-BD-001")
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())

	require.NoError(t, svc.DestroyCart(ctx, b))

	again, ok := svc.ResolveCart(b.CartID(), b.Payload())
	require.True(t, ok)
	view, err := svc.ViewCart(ctx, again)
	require.NoError(t, err)
	assert.True(t, view.IsEmpty())
}

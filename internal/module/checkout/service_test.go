package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/orderlink/server/internal/gateway"
	"github.com/orderlink/server/internal/module/method"
	"github.com/orderlink/server/internal/module/order"
	"github.com/orderlink/server/internal/module/settings"
	"github.com/orderlink/server/internal/shared/config"
	sharederrors "github.com/orderlink/server/internal/shared/errors"
	"github.com/orderlink/server/internal/shared/events"
)

// MockProvider is a mock implementation of Provider.
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Mode() gateway.Mode {
	return gateway.ModeTest
}

func (m *MockProvider) CreateOrder(ctx context.Context, req *gateway.CreateOrderRequest) (*gateway.Order, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Order), args.Error(1)
}

func (m *MockProvider) CreatePayment(ctx context.Context, req *gateway.CreatePaymentRequest) (*gateway.Payment, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Payment), args.Error(1)
}

func (m *MockProvider) CreateCustomer(ctx context.Context, req *gateway.CreateCustomerRequest) (*gateway.Customer, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Customer), args.Error(1)
}

// MockOrders is a mock implementation of Orders.
type MockOrders struct {
	mock.Mock
}

func (m *MockOrders) Update(ctx context.Context, o *order.Order) error {
	return m.Called(ctx, o).Error(0)
}

func (m *MockOrders) AddNote(ctx context.Context, orderID uuid.UUID, text string) error {
	return m.Called(ctx, orderID, text).Error(0)
}

// MockStatus is a mock implementation of StatusApplier.
type MockStatus struct {
	mock.Mock
}

func (m *MockStatus) ApplyStatus(ctx context.Context, o *order.Order, status order.Status, note string) error {
	return m.Called(ctx, o, status, note).Error(0)
}

// MockVault is a mock implementation of CustomerVault.
type MockVault struct {
	mock.Mock
}

func (m *MockVault) Lookup(ctx context.Context, email string) (string, error) {
	args := m.Called(ctx, email)
	return args.String(0), args.Error(1)
}

func (m *MockVault) Store(ctx context.Context, email, remoteID string) error {
	return m.Called(ctx, email, remoteID).Error(0)
}

type serviceFixture struct {
	provider *MockProvider
	orders   *MockOrders
	status   *MockStatus
	vault    *MockVault
	settings *settings.Store
	svc      *Service
}

func newFixture(s settings.Settings) *serviceFixture {
	f := &serviceFixture{
		provider: new(MockProvider),
		orders:   new(MockOrders),
		status:   new(MockStatus),
		vault:    new(MockVault),
		settings: settings.NewStore(s),
	}
	f.svc = NewService(
		f.provider, f.orders, f.status, f.vault,
		method.NewRegistry(), f.settings, NewRedirects(),
		config.StoreConfig{
			Name:        "Test Shop",
			BaseURL:     "https://shop.example.com",
			WebhookPath: "/webhooks/provider",
			Locale:      "en_US",
		},
		events.NewBus(zap.NewNop()),
		zap.NewNop(),
	)
	return f
}

func testOrder() *order.Order {
	id := uuid.New()
	return &order.Order{
		ID:                id,
		Number:            "1001",
		Key:               "wc_key_abc",
		Status:            order.StatusPending,
		Total:             4995,
		Currency:          "EUR",
		Gateway:           order.GatewayName,
		CustomerFirstName: "Jamie",
		CustomerLastName:  "Doe",
		CustomerEmail:     "jamie@example.com",
		Items: []order.Item{
			{OrderID: id, Type: order.ItemTypeProduct, Name: "Widget", Quantity: 1, Unit: 4995, Total: 4995, CorrelationID: "item-1", ProductValid: true},
		},
	}
}

func TestService_CreatePayment_BankTransferDueDate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(settings.Settings{
		APIMode:             settings.APIModeOrder,
		BankTransferDueDays: 12,
	})
	o := testOrder()

	wantDue := time.Now().AddDate(0, 0, 12).Format(dueDateLayout)

	f.provider.On("CreatePayment", ctx, mock.MatchedBy(func(req *gateway.CreatePaymentRequest) bool {
		return req.Amount == gateway.Amount{Currency: "EUR", Value: "49.95"} &&
			req.Method == "banktransfer" &&
			req.DueDate == wantDue
	})).Return(&gateway.Payment{
		ID:     "tr_bank",
		Mode:   gateway.ModeTest,
		Status: gateway.StatusOpen,
		Method: "banktransfer",
	}, nil).Once()
	f.orders.On("Update", ctx, o).Return(nil).Once()
	f.orders.On("AddNote", ctx, o.ID, mock.Anything).Return(nil).Once()
	f.status.On("ApplyStatus", ctx, o, order.StatusOnHold, mock.Anything).Return(nil).Once()

	result, err := f.svc.CreatePayment(ctx, o, "banktransfer", "https://shop.example.com/thanks")
	require.NoError(t, err)

	// due-date feature forces the payment endpoint even with the order
	// endpoint configured
	f.provider.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)

	id, kind, ok := o.ActiveLinkage()
	require.True(t, ok)
	assert.Equal(t, "tr_bank", id)
	assert.Equal(t, "payment", string(kind))
	assert.Contains(t, result.RedirectURL, "order_id=")
	assert.Contains(t, result.RedirectURL, "filter_flag="+FilterFlag)

	f.provider.AssertExpectations(t)
	f.status.AssertExpectations(t)
}

func TestService_CreatePayment_CustomerStripRetry(t *testing.T) {
	ctx := context.Background()

	customerErr := &gateway.APIError{
		Status: 422,
		Title:  "Unprocessable Entity",
		Detail: "customer does not exist",
		Field:  "customerId",
	}

	t.Run("retries once without customer id", func(t *testing.T) {
		f := newFixture(settings.Settings{APIMode: settings.APIModeOrder, StoreCustomer: true})
		o := testOrder()

		f.vault.On("Lookup", ctx, o.CustomerEmail).Return("cst_stale", nil).Once()
		f.provider.On("CreateOrder", ctx, mock.MatchedBy(func(req *gateway.CreateOrderRequest) bool {
			return req.CustomerID == "cst_stale"
		})).Return(nil, customerErr).Once()
		f.provider.On("CreateOrder", ctx, mock.MatchedBy(func(req *gateway.CreateOrderRequest) bool {
			return req.CustomerID == ""
		})).Return(&gateway.Order{
			ID:     "ord_retry",
			Mode:   gateway.ModeTest,
			Status: "created",
			Method: "ideal",
		}, nil).Once()
		f.orders.On("Update", ctx, o).Return(nil).Once()
		f.orders.On("AddNote", ctx, o.ID, mock.Anything).Return(nil).Once()

		_, err := f.svc.CreatePayment(ctx, o, "ideal", "https://shop.example.com/thanks")
		require.NoError(t, err)

		id, kind, ok := o.ActiveLinkage()
		require.True(t, ok)
		assert.Equal(t, "ord_retry", id)
		assert.Equal(t, "order", string(kind))
		f.provider.AssertExpectations(t)
		f.provider.AssertNotCalled(t, "CreatePayment", mock.Anything, mock.Anything)
	})

	t.Run("pay-later method re-raises without retry", func(t *testing.T) {
		f := newFixture(settings.Settings{APIMode: settings.APIModeOrder, StoreCustomer: true})
		o := testOrder()

		f.vault.On("Lookup", ctx, o.CustomerEmail).Return("cst_stale", nil).Once()
		f.provider.On("CreateOrder", ctx, mock.Anything).Return(nil, customerErr).Once()

		_, err := f.svc.CreatePayment(ctx, o, "klarnapaylater", "https://shop.example.com/thanks")
		require.Error(t, err)
		assert.ErrorIs(t, err, sharederrors.ErrProviderAPI)

		f.provider.AssertNumberOfCalls(t, "CreateOrder", 1)
		f.provider.AssertNotCalled(t, "CreatePayment", mock.Anything, mock.Anything)
	})
}

func TestService_CreatePayment_OrderFallbackToPayment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(settings.Settings{APIMode: settings.APIModeOrder})
	o := testOrder()

	f.provider.On("CreateOrder", ctx, mock.Anything).
		Return(nil, &gateway.APIError{Status: 500, Title: "Internal Server Error"}).Once()
	f.provider.On("CreatePayment", ctx, mock.Anything).Return(&gateway.Payment{
		ID:          "tr_fallback",
		Mode:        gateway.ModeTest,
		Status:      gateway.StatusOpen,
		Method:      "ideal",
		CheckoutURL: "https://pay.example.com/tr_fallback",
	}, nil).Once()
	f.orders.On("Update", ctx, o).Return(nil).Once()
	f.orders.On("AddNote", ctx, o.ID, mock.Anything).Return(nil).Once()

	result, err := f.svc.CreatePayment(ctx, o, "ideal", "https://shop.example.com/thanks")
	require.NoError(t, err)

	assert.Equal(t, "https://pay.example.com/tr_fallback", result.RedirectURL)
	id, _, _ := o.ActiveLinkage()
	assert.Equal(t, "tr_fallback", id)
	f.provider.AssertExpectations(t)
}

func TestService_CreatePayment_InvalidProductForcesPaymentEndpoint(t *testing.T) {
	ctx := context.Background()
	f := newFixture(settings.Settings{APIMode: settings.APIModeOrder})
	o := testOrder()
	o.Items[0].ProductValid = false

	f.provider.On("CreatePayment", ctx, mock.Anything).Return(&gateway.Payment{
		ID: "tr_direct", Mode: gateway.ModeTest, Status: gateway.StatusOpen, Method: "ideal",
	}, nil).Once()
	f.orders.On("Update", ctx, o).Return(nil).Once()
	f.orders.On("AddNote", ctx, o.ID, mock.Anything).Return(nil).Once()

	_, err := f.svc.CreatePayment(ctx, o, "ideal", "https://shop.example.com/thanks")
	require.NoError(t, err)
	f.provider.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
}

func TestService_CreatePayment_NoMetadataOnFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(settings.Settings{APIMode: settings.APIModePayment})
	o := testOrder()

	f.provider.On("CreatePayment", ctx, mock.Anything).
		Return(nil, errors.New("connection refused")).Once()

	_, err := f.svc.CreatePayment(ctx, o, "ideal", "https://shop.example.com/thanks")
	require.Error(t, err)
	assert.ErrorIs(t, err, sharederrors.ErrProviderAPI)

	_, _, ok := o.ActiveLinkage()
	assert.False(t, ok, "no linkage written on failure")
	f.orders.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestService_CreatePayment_DebugAppendsDetail(t *testing.T) {
	ctx := context.Background()
	f := newFixture(settings.Settings{APIMode: settings.APIModePayment, Debug: true})
	o := testOrder()

	f.provider.On("CreatePayment", ctx, mock.Anything).
		Return(nil, errors.New("connection refused")).Once()

	_, err := f.svc.CreatePayment(ctx, o, "ideal", "https://shop.example.com/thanks")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestService_CreatePayment_SubscriptionFirstSequence(t *testing.T) {
	ctx := context.Background()
	f := newFixture(settings.Settings{APIMode: settings.APIModePayment})
	o := testOrder()
	o.Subscription = true

	f.provider.On("CreatePayment", ctx, mock.MatchedBy(func(req *gateway.CreatePaymentRequest) bool {
		return req.SequenceType == gateway.SequenceFirst
	})).Return(&gateway.Payment{
		ID: "tr_first", Mode: gateway.ModeTest, Status: gateway.StatusOpen, Method: "ideal",
	}, nil).Once()
	f.orders.On("Update", ctx, o).Return(nil).Once()
	f.orders.On("AddNote", ctx, o.ID, mock.Anything).Return(nil).Once()

	_, err := f.svc.CreatePayment(ctx, o, "ideal", "https://shop.example.com/thanks")
	require.NoError(t, err)
	f.provider.AssertExpectations(t)
}

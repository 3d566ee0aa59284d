package refund

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/orderlink/server/internal/gateway"
	"github.com/orderlink/server/internal/module/order"
	"github.com/orderlink/server/internal/module/resource"
	"github.com/orderlink/server/internal/shared/events"
)

// MockOrderGetter is a mock implementation of OrderGetter.
type MockOrderGetter struct {
	mock.Mock
}

func (m *MockOrderGetter) Get(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

// MockRemoteOrders is a mock implementation of RemoteOrders.
type MockRemoteOrders struct {
	mock.Mock
}

func (m *MockRemoteOrders) GetOrder(ctx context.Context, id string, embedPayments bool) (*gateway.Order, error) {
	args := m.Called(ctx, id, embedPayments)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Order), args.Error(1)
}

func newRefundRouter(provider *MockProvider, getter *MockOrderGetter, remote *MockRemoteOrders) *gin.Engine {
	gin.SetMode(gin.TestMode)

	svc := NewService(provider, events.NewBus(zap.NewNop()), zap.NewNop())
	h := NewHandler(svc, getter, remote, zap.NewNop())

	router := gin.New()
	h.RegisterRoutes(router)
	return router
}

func postRefund(router *gin.Engine, orderID string, body any) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/orders/"+orderID+"/refunds", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func linkedLocalOrder() *order.Order {
	o := &order.Order{
		ID:       uuid.New(),
		Number:   "2001",
		Key:      "key",
		Status:   order.StatusProcessing,
		Currency: "EUR",
		Gateway:  order.GatewayName,
		Items:    localItems(),
	}
	o.SetLinkage("ord_http", resource.KindOrder)
	return o
}

func TestHandler_RefundItems(t *testing.T) {
	provider := new(MockProvider)
	getter := new(MockOrderGetter)
	remote := new(MockRemoteOrders)
	router := newRefundRouter(provider, getter, remote)

	o := linkedLocalOrder()
	getter.On("Get", mock.Anything, o.ID).Return(o, nil)
	remote.On("GetOrder", mock.Anything, "ord_http", false).Return(remoteOrder(), nil)
	provider.On("CancelOrderLines", mock.Anything, "ord_1", mock.Anything).Return(nil)
	provider.On("RefundOrderLines", mock.Anything, "ord_1", mock.Anything).
		Return(&gateway.Refund{ID: "re_1"}, nil)

	w := postRefund(router, o.ID.String(), RefundRequest{
		CorrelationIDs: []string{"item-1", "item-2"},
		Reason:         "customer request",
	})

	require.Equal(t, http.StatusOK, w.Code)
	provider.AssertExpectations(t)
}

func TestHandler_RefundItems_NoRemoteOrder(t *testing.T) {
	provider := new(MockProvider)
	getter := new(MockOrderGetter)
	remote := new(MockRemoteOrders)
	router := newRefundRouter(provider, getter, remote)

	o := linkedLocalOrder()
	o.ClearLinkage()
	getter.On("Get", mock.Anything, o.ID).Return(o, nil)

	w := postRefund(router, o.ID.String(), RefundRequest{
		CorrelationIDs: []string{"item-1"},
	})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	remote.AssertNotCalled(t, "GetOrder", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandler_RefundItems_UnknownItem(t *testing.T) {
	provider := new(MockProvider)
	getter := new(MockOrderGetter)
	remote := new(MockRemoteOrders)
	router := newRefundRouter(provider, getter, remote)

	o := linkedLocalOrder()
	getter.On("Get", mock.Anything, o.ID).Return(o, nil)

	w := postRefund(router, o.ID.String(), RefundRequest{
		CorrelationIDs: []string{"item-9"},
	})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	remote.AssertNotCalled(t, "GetOrder", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandler_RefundItems_EmptySelection(t *testing.T) {
	router := newRefundRouter(new(MockProvider), new(MockOrderGetter), new(MockRemoteOrders))

	w := postRefund(router, uuid.NewString(), RefundRequest{CorrelationIDs: []string{}})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

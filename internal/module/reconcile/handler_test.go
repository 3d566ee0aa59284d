package reconcile

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/orderlink/server/internal/gateway"
	"github.com/orderlink/server/internal/module/order"
	"github.com/orderlink/server/internal/module/resource"
	"github.com/orderlink/server/internal/module/settings"
)

// MockEventLog is a mock implementation of EventLog.
type MockEventLog struct {
	mock.Mock
}

func (m *MockEventLog) Record(ctx context.Context, event *WebhookEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *MockEventLog) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]WebhookEvent, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]WebhookEvent), args.Error(1)
}

func newWebhookServer(f *reconcilerFixture, log EventLog) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler := NewHandler(f.rec, f.orders, log, zap.NewNop())
	handler.RegisterRoutes(router, "/webhooks/provider")
	return router
}

func postWebhook(router *gin.Engine, orderID, key, resourceID string) *httptest.ResponseRecorder {
	form := url.Values{"id": []string{resourceID}}
	target := "/webhooks/provider?order_id=" + orderID + "&key=" + key

	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandler_HandleWebhook(t *testing.T) {
	t.Run("processed notification returns 200", func(t *testing.T) {
		f := newReconciler(settings.Settings{})
		o := linkedOrder("tr_1", resource.KindPayment)
		log := new(MockEventLog)

		f.orders.On("Get", mock.Anything, o.ID).Return(o, nil).Twice()
		f.provider.On("GetPayment", mock.Anything, "tr_1").Return(paidPayment("tr_1", ""), nil).Once()
		f.statuses.On("MarkPaid", mock.Anything, o, "tr_1").Return(nil).Once()
		log.On("Record", mock.Anything, mock.MatchedBy(func(e *WebhookEvent) bool {
			return e.Outcome == OutcomePaid && e.ResourceID == "tr_1"
		})).Return(nil).Once()

		w := postWebhook(newWebhookServer(f, log), o.ID.String(), o.Key, "tr_1")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"outcome":"paid"`)
		log.AssertExpectations(t)
	})

	t.Run("unknown order returns 404", func(t *testing.T) {
		f := newReconciler(settings.Settings{})
		log := new(MockEventLog)
		missing := uuid.New()

		f.orders.On("Get", mock.Anything, missing).Return(nil, order.ErrOrderNotFound).Once()
		log.On("Record", mock.Anything, mock.Anything).Return(nil)

		w := postWebhook(newWebhookServer(f, log), missing.String(), "any", "tr_1")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("malformed order id returns 404", func(t *testing.T) {
		f := newReconciler(settings.Settings{})
		w := postWebhook(newWebhookServer(f, new(MockEventLog)), "not-a-uuid", "any", "tr_1")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("key mismatch returns 404", func(t *testing.T) {
		f := newReconciler(settings.Settings{})
		o := linkedOrder("tr_1", resource.KindPayment)
		log := new(MockEventLog)

		f.orders.On("Get", mock.Anything, o.ID).Return(o, nil).Once()
		log.On("Record", mock.Anything, mock.Anything).Return(nil).Once()

		w := postWebhook(newWebhookServer(f, log), o.ID.String(), "wrong_key", "tr_1")
		assert.Equal(t, http.StatusNotFound, w.Code)
		f.provider.AssertNotCalled(t, "GetPayment", mock.Anything, mock.Anything)
	})

	t.Run("kind mismatch returns 400", func(t *testing.T) {
		f := newReconciler(settings.Settings{})
		o := linkedOrder("ord_1", resource.KindOrder)
		log := new(MockEventLog)

		f.orders.On("Get", mock.Anything, o.ID).Return(o, nil).Twice()
		log.On("Record", mock.Anything, mock.Anything).Return(nil).Once()

		w := postWebhook(newWebhookServer(f, log), o.ID.String(), o.Key, "tr_1")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("guard skip returns 204", func(t *testing.T) {
		f := newReconciler(settings.Settings{})
		o := linkedOrder("tr_new", resource.KindPayment)
		log := new(MockEventLog)

		f.orders.On("Get", mock.Anything, o.ID).Return(o, nil).Twice()
		log.On("Record", mock.Anything, mock.MatchedBy(func(e *WebhookEvent) bool {
			return e.Outcome == OutcomeSkipped
		})).Return(nil).Once()

		w := postWebhook(newWebhookServer(f, log), o.ID.String(), o.Key, "tr_superseded")
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("missing resource id returns 400", func(t *testing.T) {
		f := newReconciler(settings.Settings{})
		w := postWebhook(newWebhookServer(f, new(MockEventLog)), uuid.NewString(), "key", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("provider failure returns 502", func(t *testing.T) {
		f := newReconciler(settings.Settings{})
		o := linkedOrder("tr_1", resource.KindPayment)
		log := new(MockEventLog)

		f.orders.On("Get", mock.Anything, o.ID).Return(o, nil).Twice()
		f.provider.On("GetPayment", mock.Anything, "tr_1").
			Return(nil, &gateway.APIError{Status: 503, Title: "Service Unavailable"}).Once()
		log.On("Record", mock.Anything, mock.Anything).Return(nil).Once()

		w := postWebhook(newWebhookServer(f, log), o.ID.String(), o.Key, "tr_1")
		assert.Equal(t, http.StatusBadGateway, w.Code)
	})
}

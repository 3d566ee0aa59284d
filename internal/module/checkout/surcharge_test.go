package checkout

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/orderlink/server/internal/module/method"
	"github.com/orderlink/server/internal/module/order"
	"github.com/orderlink/server/internal/module/settings"
)

// MockFeeLines is a mock implementation of FeeLines.
type MockFeeLines struct {
	mock.Mock
}

func (m *MockFeeLines) Update(ctx context.Context, o *order.Order) error {
	return m.Called(ctx, o).Error(0)
}

func (m *MockFeeLines) ReplaceFeeLine(ctx context.Context, orderID uuid.UUID, fee *order.Item) error {
	return m.Called(ctx, orderID, fee).Error(0)
}

func (m *MockFeeLines) DeleteFeeLines(ctx context.Context, orderID uuid.UUID) error {
	return m.Called(ctx, orderID).Error(0)
}

func surchargeOrder() *order.Order {
	id := uuid.New()
	return &order.Order{
		ID:       id,
		Currency: "EUR",
		Total:    10000,
		Items: []order.Item{
			{OrderID: id, Type: order.ItemTypeProduct, Name: "Widget", Quantity: 2, Unit: 5000, Total: 10000},
		},
	}
}

func TestSurcharger_Reconcile(t *testing.T) {
	ctx := context.Background()

	newSurcharger := func(s settings.Settings) (*Surcharger, *MockFeeLines) {
		fees := new(MockFeeLines)
		return NewSurcharger(fees, method.NewRegistry(), settings.NewStore(s), zap.NewNop()), fees
	}

	t.Run("adds fee line fixed plus percent", func(t *testing.T) {
		sc, fees := newSurcharger(settings.Settings{
			Surcharges: map[string]settings.Surcharge{
				"creditcard": {Fixed: 0.25, Percent: 1.9},
			},
		})
		o := surchargeOrder()

		// 0.25 EUR fixed + 1.9% of 100.00 EUR = 25 + 190 cents
		fees.On("ReplaceFeeLine", ctx, o.ID, mock.MatchedBy(func(item *order.Item) bool {
			return item.Total == 215 && item.Name == FeeLineName
		})).Return(nil).Once()
		fees.On("Update", ctx, o).Return(nil).Once()

		require.NoError(t, sc.Reconcile(ctx, o, "creditcard"))
		assert.Equal(t, int64(10215), o.Total)
		fees.AssertExpectations(t)
	})

	t.Run("no-op when fee unchanged", func(t *testing.T) {
		sc, fees := newSurcharger(settings.Settings{
			Surcharges: map[string]settings.Surcharge{
				"creditcard": {Fixed: 0.25, Percent: 1.9},
			},
		})
		o := surchargeOrder()
		o.Items = append(o.Items, order.Item{Type: order.ItemTypeFee, Name: FeeLineName, Quantity: 1, Unit: 215, Total: 215})
		o.Total = 10215

		require.NoError(t, sc.Reconcile(ctx, o, "creditcard"))
		fees.AssertNotCalled(t, "ReplaceFeeLine", mock.Anything, mock.Anything, mock.Anything)
		fees.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("removes fee when method has none configured", func(t *testing.T) {
		sc, fees := newSurcharger(settings.Settings{})
		o := surchargeOrder()
		o.Items = append(o.Items, order.Item{Type: order.ItemTypeFee, Name: FeeLineName, Quantity: 1, Unit: 215, Total: 215})
		o.Total = 10215

		fees.On("DeleteFeeLines", ctx, o.ID).Return(nil).Once()
		fees.On("Update", ctx, o).Return(nil).Once()

		require.NoError(t, sc.Reconcile(ctx, o, "ideal"))
		assert.Equal(t, int64(10000), o.Total)
		assert.Len(t, o.Items, 1)
		fees.AssertExpectations(t)
	})

	t.Run("no fee for surcharge-free method and clean order", func(t *testing.T) {
		sc, fees := newSurcharger(settings.Settings{})
		o := surchargeOrder()

		require.NoError(t, sc.Reconcile(ctx, o, "directdebit"))
		fees.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("replaces stale fee after method switch", func(t *testing.T) {
		sc, fees := newSurcharger(settings.Settings{
			Surcharges: map[string]settings.Surcharge{
				"paypal": {Fixed: 0.35},
			},
		})
		o := surchargeOrder()
		o.Items = append(o.Items, order.Item{Type: order.ItemTypeFee, Name: FeeLineName, Quantity: 1, Unit: 215, Total: 215})
		o.Total = 10215

		fees.On("ReplaceFeeLine", ctx, o.ID, mock.MatchedBy(func(item *order.Item) bool {
			return item.Total == 35
		})).Return(nil).Once()
		fees.On("Update", ctx, o).Return(nil).Once()

		require.NoError(t, sc.Reconcile(ctx, o, "paypal"))
		assert.Equal(t, int64(10035), o.Total)
		fees.AssertExpectations(t)
	})
}

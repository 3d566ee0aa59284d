package resource

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/orderlink/server/internal/gateway"
)

func TestKindOfID(t *testing.T) {
	tests := []struct {
		name   string
		id     string
		kind   Kind
		wantOK bool
	}{
		{"payment id", "tr_WDqYK6vllg", KindPayment, true},
		{"order id", "ord_kEn1PlbGa", KindOrder, true},
		{"customer id", "cst_8wmqcHMN4U", "", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, ok := KindOfID(tt.id)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.kind, kind)
		})
	}
}

func TestRemote_Payment(t *testing.T) {
	paidAt := time.Now()
	remote := FromPayment(&gateway.Payment{
		ID:        "tr_paid",
		Mode:      gateway.ModeLive,
		Status:    gateway.StatusPaid,
		Method:    "ideal",
		MandateID: "mdt_1",
		Amount:    gateway.Amount{Currency: "EUR", Value: "49.95"},
		PaidAt:    &paidAt,
	})

	assert.Equal(t, KindPayment, remote.Kind())
	assert.Equal(t, "tr_paid", remote.ID())
	assert.Equal(t, "tr_paid", remote.TransactionID())
	assert.Equal(t, "ideal", remote.Method())
	assert.Equal(t, "mdt_1", remote.MandateID())
	assert.True(t, remote.IsPaid())
	assert.True(t, remote.IsFinal())
	assert.False(t, remote.IsCompleted())
	assert.Nil(t, remote.Order())
}

func TestRemote_Order(t *testing.T) {
	t.Run("delegates to current embedded payment", func(t *testing.T) {
		remote := FromOrder(&gateway.Order{
			ID:     "ord_1",
			Status: gateway.StatusPaid,
			Method: "klarnapaylater",
			Embedded: &gateway.OrderEmbedded{
				Payments: []gateway.Payment{
					{ID: "tr_retry0", Status: gateway.StatusFailed, Method: "klarnapaylater"},
					{ID: "tr_retry1", Status: gateway.StatusPaid, Method: "ideal", MandateID: "mdt_9"},
				},
			},
		})

		assert.Equal(t, KindOrder, remote.Kind())
		assert.Equal(t, "tr_retry1", remote.TransactionID())
		assert.Equal(t, "ideal", remote.Method())
		assert.Equal(t, "mdt_9", remote.MandateID())
		assert.True(t, remote.IsPaid())
	})

	t.Run("no embedded payments", func(t *testing.T) {
		remote := FromOrder(&gateway.Order{ID: "ord_2", Status: "created", Method: "ideal"})

		assert.Equal(t, "", remote.TransactionID())
		assert.Equal(t, "ideal", remote.Method())
		assert.True(t, remote.IsOpen())
		assert.False(t, remote.IsFailed())
		assert.Nil(t, remote.Payment())
	})

	t.Run("shipping counts as final", func(t *testing.T) {
		remote := FromOrder(&gateway.Order{ID: "ord_3", Status: gateway.StatusShipping})

		assert.True(t, remote.IsShipping())
		assert.True(t, remote.IsFinal())
		assert.False(t, remote.IsPaid())
	})

	t.Run("failed comes from embedded payment", func(t *testing.T) {
		remote := FromOrder(&gateway.Order{
			ID:     "ord_4",
			Status: "created",
			Embedded: &gateway.OrderEmbedded{
				Payments: []gateway.Payment{{ID: "tr_f", Status: gateway.StatusFailed}},
			},
		})

		assert.True(t, remote.IsFailed())
	})
}

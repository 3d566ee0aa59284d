package order

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/orderlink/server/internal/module/resource"
)

func TestOrder_Linkage(t *testing.T) {
	t.Run("payment linkage", func(t *testing.T) {
		o := &Order{ID: uuid.New()}
		o.SetLinkage("tr_abc", resource.KindPayment)

		id, kind, ok := o.ActiveLinkage()
		assert.True(t, ok)
		assert.Equal(t, "tr_abc", id)
		assert.Equal(t, resource.KindPayment, kind)
	})

	t.Run("order linkage replaces payment linkage", func(t *testing.T) {
		o := &Order{ID: uuid.New()}
		o.SetLinkage("tr_abc", resource.KindPayment)
		o.SetLinkage("ord_xyz", resource.KindOrder)

		id, kind, ok := o.ActiveLinkage()
		assert.True(t, ok)
		assert.Equal(t, "ord_xyz", id)
		assert.Equal(t, resource.KindOrder, kind)
		assert.Empty(t, o.MetaValue(MetaPaymentID), "only one linkage slot active at a time")
	})

	t.Run("no linkage", func(t *testing.T) {
		o := &Order{ID: uuid.New()}
		_, _, ok := o.ActiveLinkage()
		assert.False(t, ok)
	})

	t.Run("clear linkage", func(t *testing.T) {
		o := &Order{ID: uuid.New()}
		o.SetLinkage("ord_xyz", resource.KindOrder)
		o.ClearLinkage()

		_, _, ok := o.ActiveLinkage()
		assert.False(t, ok)
	})
}

func TestOrder_Flags(t *testing.T) {
	o := &Order{ID: uuid.New()}

	assert.False(t, o.HasFlag(MetaStockReduced))
	o.SetFlag(MetaStockReduced)
	assert.True(t, o.HasFlag(MetaStockReduced))
	o.ClearFlag(MetaStockReduced)
	assert.False(t, o.HasFlag(MetaStockReduced))
}

func TestOrder_IsFinal(t *testing.T) {
	tests := []struct {
		status Status
		final  bool
	}{
		{StatusPending, false},
		{StatusProcessing, false},
		{StatusOnHold, false},
		{StatusFailed, false},
		{StatusCompleted, true},
		{StatusCancelled, true},
		{StatusRefunded, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			o := &Order{Status: tt.status}
			assert.Equal(t, tt.final, o.IsFinal())
		})
	}
}

func TestOrder_OwnedByGateway(t *testing.T) {
	assert.True(t, (&Order{Gateway: GatewayName}).OwnedByGateway())
	assert.False(t, (&Order{Gateway: "someothergateway"}).OwnedByGateway())
}

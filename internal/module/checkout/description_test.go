package checkout

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/orderlink/server/internal/module/order"
)

func TestDescription(t *testing.T) {
	o := &order.Order{
		Number:            "1001",
		CustomerFirstName: "Jamie",
		CustomerLastName:  "Doe",
		CustomerCompany:   "Acme BV",
	}

	tests := []struct {
		name     string
		template string
		want     string
	}{
		{
			"all tags",
			"{storeName} order {orderNumber} for {customer.firstname} {customer.lastname} ({customer.company})",
			"Test Shop order 1001 for Jamie Doe (Acme BV)",
		},
		{
			"default template shape",
			"{storeName} - Order {orderNumber}",
			"Test Shop - Order 1001",
		},
		{
			"unknown tag left alone",
			"Order {orderNumber} {somethingElse}",
			"Order 1001 {somethingElse}",
		},
		{
			"surrounding whitespace trimmed",
			"  {orderNumber}  ",
			"1001",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Description(tt.template, "Test Shop", o))
		})
	}
}

func TestDescription_EmptyCustomerFields(t *testing.T) {
	o := &order.Order{Number: "55"}
	got := Description("{customer.firstname}{customer.lastname} {orderNumber}", "Shop", o)
	assert.Equal(t, "55", got)
}

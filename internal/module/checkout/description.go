package checkout

import (
	"strings"

	"github.com/orderlink/server/internal/module/order"
)

// Description renders the payment description template for an order.
// Supported tags: {orderNumber}, {storeName}, {customer.firstname},
// {customer.lastname}, {customer.company}. Unknown tags are left as-is.
func Description(template, storeName string, o *order.Order) string {
	r := strings.NewReplacer(
		"{orderNumber}", o.Number,
		"{storeName}", storeName,
		"{customer.firstname}", o.CustomerFirstName,
		"{customer.lastname}", o.CustomerLastName,
		"{customer.company}", o.CustomerCompany,
	)
	return strings.TrimSpace(r.Replace(template))
}

package checkout

import (
	"context"

	"github.com/google/uuid"

	"github.com/orderlink/server/internal/gateway"
	"github.com/orderlink/server/internal/module/order"
)

// Provider is the slice of the provider API checkout needs.
type Provider interface {
	Mode() gateway.Mode
	CreateOrder(ctx context.Context, req *gateway.CreateOrderRequest) (*gateway.Order, error)
	CreatePayment(ctx context.Context, req *gateway.CreatePaymentRequest) (*gateway.Payment, error)
	CreateCustomer(ctx context.Context, req *gateway.CreateCustomerRequest) (*gateway.Customer, error)
}

// Orders is the slice of the order store checkout writes to.
type Orders interface {
	Update(ctx context.Context, o *order.Order) error
	AddNote(ctx context.Context, orderID uuid.UUID, text string) error
}

// StatusApplier advances an order's status with the stock policy
// applied.
type StatusApplier interface {
	ApplyStatus(ctx context.Context, o *order.Order, status order.Status, note string) error
}

// CustomerVault persists provider customer ids against local customers
// for reuse across checkouts.
type CustomerVault interface {
	Lookup(ctx context.Context, email string) (string, error)
	Store(ctx context.Context, email, remoteID string) error
}

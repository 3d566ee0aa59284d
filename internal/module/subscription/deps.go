package subscription

import (
	"context"

	"github.com/google/uuid"

	"github.com/orderlink/server/internal/gateway"
	"github.com/orderlink/server/internal/module/order"
)

// Provider is the slice of the provider API renewals need.
type Provider interface {
	CreatePayment(ctx context.Context, req *gateway.CreatePaymentRequest) (*gateway.Payment, error)
	GetPayment(ctx context.Context, id string) (*gateway.Payment, error)
	GetMandate(ctx context.Context, customerID, mandateID string) (*gateway.Mandate, error)
	ListMandates(ctx context.Context, customerID string) ([]gateway.Mandate, error)
}

// Orders is the slice of the order store renewals use.
type Orders interface {
	Create(ctx context.Context, o *order.Order) error
	Get(ctx context.Context, id uuid.UUID) (*order.Order, error)
	Update(ctx context.Context, o *order.Order) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status order.Status) error
	AddNote(ctx context.Context, orderID uuid.UUID, text string) error
}

// Statuses applies transitions with the stock policy.
type Statuses interface {
	ApplyStatus(ctx context.Context, o *order.Order, status order.Status, note string) error
}

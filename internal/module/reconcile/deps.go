package reconcile

import (
	"context"

	"github.com/google/uuid"

	"github.com/orderlink/server/internal/gateway"
	"github.com/orderlink/server/internal/module/order"
)

// Provider is the slice of the provider API reconciliation reads from.
// Remote state is always fetched fresh; a cached resource is never
// trusted across webhook calls.
type Provider interface {
	GetPayment(ctx context.Context, id string) (*gateway.Payment, error)
	GetOrder(ctx context.Context, id string, embedPayments bool) (*gateway.Order, error)
}

// Orders is the slice of the order store reconciliation uses.
type Orders interface {
	Get(ctx context.Context, id uuid.UUID) (*order.Order, error)
	Update(ctx context.Context, o *order.Order) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status order.Status) error
	AddNote(ctx context.Context, orderID uuid.UUID, text string) error
}

// Statuses applies transitions with the stock policy.
type Statuses interface {
	ApplyStatus(ctx context.Context, o *order.Order, status order.Status, note string) error
	MarkPaid(ctx context.Context, o *order.Order, transactionID string) error
}

// Subscriptions are the renewal-specific hooks reconciliation routes
// into.
type Subscriptions interface {
	// Activate marks a subscription active after its payment confirmed
	// and removes it from the pending-confirmation queue.
	Activate(ctx context.Context, o *order.Order) error

	// HandleRenewalFailure records a failed renewal: shop staff note,
	// no stock restoration, no generic failed-order transition.
	HandleRenewalFailure(ctx context.Context, o *order.Order, reason string) error
}

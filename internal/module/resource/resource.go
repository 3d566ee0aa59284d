package resource

import (
	"strings"

	"github.com/orderlink/server/internal/gateway"
)

// Kind distinguishes the two provider resource families a checkout can
// produce.
type Kind string

const (
	KindPayment Kind = "payment"
	KindOrder   Kind = "order"
)

// KindOfID derives the resource kind from an id's prefix. The second
// return is false when the id matches neither family.
func KindOfID(id string) (Kind, bool) {
	switch {
	case strings.HasPrefix(id, gateway.PaymentIDPrefix):
		return KindPayment, true
	case strings.HasPrefix(id, gateway.OrderIDPrefix):
		return KindOrder, true
	default:
		return "", false
	}
}

// Remote is a provider resource viewed uniformly: either a payment or
// an order. Exactly one of the two fields is set.
type Remote struct {
	payment *gateway.Payment
	order   *gateway.Order
}

// FromPayment wraps a payment resource.
func FromPayment(p *gateway.Payment) *Remote { return &Remote{payment: p} }

// FromOrder wraps an order resource.
func FromOrder(o *gateway.Order) *Remote { return &Remote{order: o} }

// Kind returns which resource family is wrapped.
func (r *Remote) Kind() Kind {
	if r.order != nil {
		return KindOrder
	}
	return KindPayment
}

// ID returns the provider resource id (tr_* or ord_*).
func (r *Remote) ID() string {
	if r.order != nil {
		return r.order.ID
	}
	return r.payment.ID
}

// Status returns the raw provider status string.
func (r *Remote) Status() string {
	if r.order != nil {
		return r.order.Status
	}
	return r.payment.Status
}

// Mode returns the provider API mode the resource was created in.
func (r *Remote) Mode() gateway.Mode {
	if r.order != nil {
		return r.order.Mode
	}
	return r.payment.Mode
}

// Method returns the payment method code. For orders this prefers the
// current embedded payment's method over the order-level one.
func (r *Remote) Method() string {
	if r.order != nil {
		if p := r.order.CurrentPayment(); p != nil && p.Method != "" {
			return p.Method
		}
		return r.order.Method
	}
	return r.payment.Method
}

// Amount returns the resource amount.
func (r *Remote) Amount() gateway.Amount {
	if r.order != nil {
		return r.order.Amount
	}
	return r.payment.Amount
}

// CheckoutURL returns where the customer completes the payment, if any.
func (r *Remote) CheckoutURL() string {
	if r.order != nil {
		return r.order.CheckoutURL
	}
	return r.payment.CheckoutURL
}

// CustomerID returns the attached provider customer id, if any.
func (r *Remote) CustomerID() string {
	if r.order != nil {
		return r.order.CustomerID
	}
	return r.payment.CustomerID
}

// MandateID returns the mandate established or used by the resource.
// For orders it comes from the current embedded payment.
func (r *Remote) MandateID() string {
	if r.order != nil {
		if p := r.order.CurrentPayment(); p != nil {
			return p.MandateID
		}
		return ""
	}
	return r.payment.MandateID
}

// TransactionID returns the payment-level id to record against the
// local order: the payment's own id, or for orders the id of the
// current embedded payment. Empty when an order carries no payment.
func (r *Remote) TransactionID() string {
	if r.order != nil {
		if p := r.order.CurrentPayment(); p != nil {
			return p.ID
		}
		return ""
	}
	return r.payment.ID
}

// Payment returns the wrapped payment, or for orders the current
// embedded payment. Nil when neither is available.
func (r *Remote) Payment() *gateway.Payment {
	if r.order != nil {
		return r.order.CurrentPayment()
	}
	return r.payment
}

// Order returns the wrapped order, or nil for payment resources.
func (r *Remote) Order() *gateway.Order { return r.order }

// IsOpen reports whether the resource is still open for completion.
// Orders have no open status; a created order counts as open.
func (r *Remote) IsOpen() bool {
	if r.order != nil {
		return r.order.IsCreated()
	}
	return r.payment.IsOpen()
}

// IsPending reports whether the resource awaits asynchronous
// confirmation.
func (r *Remote) IsPending() bool {
	if r.order != nil {
		return r.order.Status == gateway.StatusPending
	}
	return r.payment.IsPending()
}

// IsPaid reports whether the resource has been paid.
func (r *Remote) IsPaid() bool {
	if r.order != nil {
		return r.order.IsPaid()
	}
	return r.payment.IsPaid()
}

// IsAuthorized reports whether the resource is authorized but not yet
// captured.
func (r *Remote) IsAuthorized() bool {
	if r.order != nil {
		return r.order.IsAuthorized()
	}
	return r.payment.IsAuthorized()
}

// IsCanceled reports whether the resource was canceled.
func (r *Remote) IsCanceled() bool {
	if r.order != nil {
		return r.order.IsCanceled()
	}
	return r.payment.IsCanceled()
}

// IsExpired reports whether the resource expired unpaid.
func (r *Remote) IsExpired() bool {
	if r.order != nil {
		return r.order.IsExpired()
	}
	return r.payment.IsExpired()
}

// IsFailed reports whether the resource failed. Orders never report
// failed directly; their embedded payment does.
func (r *Remote) IsFailed() bool {
	if r.order != nil {
		if p := r.order.CurrentPayment(); p != nil {
			return p.IsFailed()
		}
		return false
	}
	return r.payment.IsFailed()
}

// IsCompleted reports whether an order resource has been fully shipped
// and settled. Always false for payments.
func (r *Remote) IsCompleted() bool {
	return r.order != nil && r.order.IsCompleted()
}

// IsShipping reports whether an order resource is partially shipped.
// Always false for payments.
func (r *Remote) IsShipping() bool {
	return r.order != nil && r.order.IsShipping()
}

// IsFinal reports whether the resource has reached a settled state a
// later notification must never regress.
func (r *Remote) IsFinal() bool {
	return r.IsPaid() || r.IsAuthorized() || r.IsCompleted() || r.IsShipping()
}

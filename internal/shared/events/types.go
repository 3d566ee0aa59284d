package events

import "github.com/google/uuid"

// Payment lifecycle event type constants.
const (
	PaymentCreatedType   = "PaymentCreated"
	PaymentPaidType      = "PaymentPaid"
	PaymentFailedType    = "PaymentFailed"
	PaymentCancelledType = "PaymentCancelled"
	PaymentExpiredType   = "PaymentExpired"
	LinesCancelledType   = "LinesCancelled"
	LinesRefundedType    = "LinesRefunded"
	RenewalFailedType    = "RenewalFailed"
)

// PaymentCreatedEvent is emitted when a remote payment or order resource
// has been created for a local order.
type PaymentCreatedEvent struct {
	BaseEvent

	// OrderID is the local order the resource was created for.
	OrderID uuid.UUID `json:"order_id"`

	// ResourceID is the remote resource id (tr_* or ord_*).
	ResourceID string `json:"resource_id"`

	// ResourceKind is "payment" or "order".
	ResourceKind string `json:"resource_kind"`

	// Method is the payment method code.
	Method string `json:"method"`

	// Mode is "test" or "live".
	Mode string `json:"mode"`
}

// NewPaymentCreatedEvent creates a new PaymentCreatedEvent.
func NewPaymentCreatedEvent(orderID uuid.UUID, resourceID, resourceKind, method, mode string) *PaymentCreatedEvent {
	return &PaymentCreatedEvent{
		BaseEvent:    NewBaseEvent(PaymentCreatedType, orderID, "Order"),
		OrderID:      orderID,
		ResourceID:   resourceID,
		ResourceKind: resourceKind,
		Method:       method,
		Mode:         mode,
	}
}

// PaymentPaidEvent is emitted when a webhook confirms a payment.
type PaymentPaidEvent struct {
	BaseEvent

	OrderID uuid.UUID `json:"order_id"`

	// ResourceID is the remote resource id that was confirmed.
	ResourceID string `json:"resource_id"`

	// TransactionID is the provider transaction id attached to the order.
	TransactionID string `json:"transaction_id"`

	// Method is the payment method code.
	Method string `json:"method"`
}

// NewPaymentPaidEvent creates a new PaymentPaidEvent.
func NewPaymentPaidEvent(orderID uuid.UUID, resourceID, transactionID, method string) *PaymentPaidEvent {
	return &PaymentPaidEvent{
		BaseEvent:     NewBaseEvent(PaymentPaidType, orderID, "Order"),
		OrderID:       orderID,
		ResourceID:    resourceID,
		TransactionID: transactionID,
		Method:        method,
	}
}

// PaymentStateEvent is the common payload for failed, cancelled and expired
// notifications.
type PaymentStateEvent struct {
	BaseEvent

	OrderID    uuid.UUID `json:"order_id"`
	ResourceID string    `json:"resource_id"`
	Method     string    `json:"method"`
}

// NewPaymentStateEvent creates an event of the given lifecycle type.
func NewPaymentStateEvent(eventType string, orderID uuid.UUID, resourceID, method string) *PaymentStateEvent {
	return &PaymentStateEvent{
		BaseEvent:  NewBaseEvent(eventType, orderID, "Order"),
		OrderID:    orderID,
		ResourceID: resourceID,
		Method:     method,
	}
}

// LineActionEvent is emitted after a line-level cancel or refund call
// succeeded against the remote order resource.
type LineActionEvent struct {
	BaseEvent

	OrderID uuid.UUID `json:"order_id"`

	// RemoteOrderID is the remote order resource the lines belong to.
	RemoteOrderID string `json:"remote_order_id"`

	// CorrelationIDs are the local line correlation ids covered by the call.
	CorrelationIDs []string `json:"correlation_ids"`

	// Reason is the merchant-supplied reason, if any.
	Reason string `json:"reason,omitempty"`
}

// NewLineActionEvent creates a LinesCancelled or LinesRefunded event.
func NewLineActionEvent(eventType string, orderID uuid.UUID, remoteOrderID string, correlationIDs []string, reason string) *LineActionEvent {
	return &LineActionEvent{
		BaseEvent:      NewBaseEvent(eventType, orderID, "Order"),
		OrderID:        orderID,
		RemoteOrderID:  remoteOrderID,
		CorrelationIDs: correlationIDs,
		Reason:         reason,
	}
}

// RenewalFailedEvent is emitted when a subscription renewal attempt failed.
// Shop staff notifications hang off this event; the subscriber is not
// contacted directly.
type RenewalFailedEvent struct {
	BaseEvent

	OrderID uuid.UUID `json:"order_id"`
	Reason  string    `json:"reason"`
}

// NewRenewalFailedEvent creates a new RenewalFailedEvent.
func NewRenewalFailedEvent(orderID uuid.UUID, reason string) *RenewalFailedEvent {
	return &RenewalFailedEvent{
		BaseEvent: NewBaseEvent(RenewalFailedType, orderID, "Order"),
		OrderID:   orderID,
		Reason:    reason,
	}
}

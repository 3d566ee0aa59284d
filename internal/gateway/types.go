package gateway

import (
	"encoding/json"
	"time"
)

// Resource id prefixes. A payment id is prefixed distinctly from an order
// id, which lets callers disambiguate a notified resource without a
// network call.
const (
	PaymentIDPrefix = "tr_"
	OrderIDPrefix   = "ord_"
)

// Mode represents the provider API mode.
type Mode string

const (
	ModeTest Mode = "test"
	ModeLive Mode = "live"
)

// SequenceType tags a payment within a recurring series.
type SequenceType string

const (
	SequenceOneOff    SequenceType = "oneoff"
	SequenceFirst     SequenceType = "first"
	SequenceRecurring SequenceType = "recurring"
)

// Status values reported by the provider for payments and orders.
const (
	StatusOpen       = "open"
	StatusPending    = "pending"
	StatusAuthorized = "authorized"
	StatusPaid       = "paid"
	StatusCanceled   = "canceled"
	StatusExpired    = "expired"
	StatusFailed     = "failed"
	StatusCompleted  = "completed"
	StatusShipping   = "shipping"
)

// Mandate status values.
const (
	MandateValid   = "valid"
	MandateInvalid = "invalid"
	MandatePending = "pending"
)

// Amount is a provider monetary value: ISO currency plus a major-unit
// decimal string (e.g. {"EUR", "49.95"}).
type Amount struct {
	Currency string `json:"currency"`
	Value    string `json:"value"`
}

// Payment is a provider payment resource.
type Payment struct {
	ID           string            `json:"id"`
	Mode         Mode              `json:"mode"`
	Status       string            `json:"status"`
	Amount       Amount            `json:"amount"`
	Description  string            `json:"description"`
	Method       string            `json:"method"`
	SequenceType SequenceType      `json:"sequenceType,omitempty"`
	CustomerID   string            `json:"customerId,omitempty"`
	MandateID    string            `json:"mandateId,omitempty"`
	OrderID      string            `json:"orderId,omitempty"`
	RedirectURL  string            `json:"redirectUrl,omitempty"`
	WebhookURL   string            `json:"webhookUrl,omitempty"`
	CheckoutURL  string            `json:"checkoutUrl,omitempty"`
	Locale       string            `json:"locale,omitempty"`
	DueDate      string            `json:"dueDate,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	Details      json.RawMessage   `json:"details,omitempty"`
	CreatedAt    *time.Time        `json:"createdAt,omitempty"`
	PaidAt       *time.Time        `json:"paidAt,omitempty"`
	CanceledAt   *time.Time        `json:"canceledAt,omitempty"`
	ExpiresAt    *time.Time        `json:"expiresAt,omitempty"`
}

// IsOpen reports whether the payment is open for completion.
func (p *Payment) IsOpen() bool { return p.Status == StatusOpen }

// IsPending reports whether the payment awaits asynchronous confirmation.
func (p *Payment) IsPending() bool { return p.Status == StatusPending }

// IsPaid reports whether the payment has been paid.
func (p *Payment) IsPaid() bool { return p.Status == StatusPaid && p.PaidAt != nil }

// IsAuthorized reports whether the payment is authorized but not captured.
func (p *Payment) IsAuthorized() bool { return p.Status == StatusAuthorized }

// IsCanceled reports whether the payment was canceled.
func (p *Payment) IsCanceled() bool { return p.Status == StatusCanceled }

// IsExpired reports whether the payment expired unpaid.
func (p *Payment) IsExpired() bool { return p.Status == StatusExpired }

// IsFailed reports whether the payment failed.
func (p *Payment) IsFailed() bool { return p.Status == StatusFailed }

// HasMandate reports whether the payment established or used a mandate.
func (p *Payment) HasMandate() bool { return p.MandateID != "" }

// BankTransferDetails is the method-specific payload for bank transfers.
type BankTransferDetails struct {
	BankName    string `json:"bankName,omitempty"`
	BankAccount string `json:"bankAccount,omitempty"`
	BankBIC     string `json:"bankBic,omitempty"`
	Reference   string `json:"transferReference,omitempty"`
}

// DirectDebitDetails is the method-specific payload for direct debits.
type DirectDebitDetails struct {
	ConsumerName    string `json:"consumerName,omitempty"`
	ConsumerAccount string `json:"consumerAccount,omitempty"`
	ConsumerBIC     string `json:"consumerBic,omitempty"`
}

// GiftCardDetails is the method-specific payload for gift card payments.
type GiftCardDetails struct {
	VoucherNumber   string  `json:"voucherNumber,omitempty"`
	GiftCards       []Issue `json:"giftcards,omitempty"`
	RemainderAmount *Amount `json:"remainderAmount,omitempty"`
	RemainderMethod string  `json:"remainderMethod,omitempty"`
}

// Issue is one gift card contribution within a gift card payment.
type Issue struct {
	Issuer        string `json:"issuer"`
	Amount        Amount `json:"amount"`
	VoucherNumber string `json:"voucherNumber,omitempty"`
}

// Order is a provider order resource carrying line items and, when
// embedded, its payments.
type Order struct {
	ID          string            `json:"id"`
	Mode        Mode              `json:"mode"`
	Status      string            `json:"status"`
	Amount      Amount            `json:"amount"`
	OrderNumber string            `json:"orderNumber"`
	Method      string            `json:"method,omitempty"`
	CustomerID  string            `json:"customerId,omitempty"`
	RedirectURL string            `json:"redirectUrl,omitempty"`
	WebhookURL  string            `json:"webhookUrl,omitempty"`
	CheckoutURL string            `json:"checkoutUrl,omitempty"`
	Locale      string            `json:"locale,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Lines       []OrderLine       `json:"lines,omitempty"`
	CreatedAt   *time.Time        `json:"createdAt,omitempty"`
	Embedded    *OrderEmbedded    `json:"_embedded,omitempty"`
}

// OrderEmbedded holds optionally embedded sub-resources of an order.
type OrderEmbedded struct {
	Payments []Payment `json:"payments,omitempty"`
}

// IsCreated reports whether the order has only just been created.
func (o *Order) IsCreated() bool { return o.Status == "created" }

// IsPaid reports whether the order has been paid.
func (o *Order) IsPaid() bool { return o.Status == StatusPaid }

// IsAuthorized reports whether the order is authorized.
func (o *Order) IsAuthorized() bool { return o.Status == StatusAuthorized }

// IsCanceled reports whether the order was canceled.
func (o *Order) IsCanceled() bool { return o.Status == StatusCanceled }

// IsExpired reports whether the order expired unpaid.
func (o *Order) IsExpired() bool { return o.Status == StatusExpired }

// IsCompleted reports whether the order is fully shipped and settled.
func (o *Order) IsCompleted() bool { return o.Status == StatusCompleted }

// IsShipping reports whether the order is partially shipped.
func (o *Order) IsShipping() bool { return o.Status == StatusShipping }

// CurrentPayment returns the most recent embedded payment, or nil when
// payments were not embedded or the order carries none.
func (o *Order) CurrentPayment() *Payment {
	if o.Embedded == nil || len(o.Embedded.Payments) == 0 {
		return nil
	}
	return &o.Embedded.Payments[len(o.Embedded.Payments)-1]
}

// OrderLine is one line of a provider order.
type OrderLine struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Status         string            `json:"status"`
	SKU            string            `json:"sku,omitempty"`
	Quantity       int               `json:"quantity"`
	UnitPrice      Amount            `json:"unitPrice"`
	TotalAmount    Amount            `json:"totalAmount"`
	QuantityShipped  int             `json:"quantityShipped,omitempty"`
	QuantityRefunded int             `json:"quantityRefunded,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// IsShipped reports whether any quantity of the line has been shipped
// (captured); shipped quantities can only be reversed monetarily.
func (l *OrderLine) IsShipped() bool {
	return l.QuantityShipped > 0 || l.Status == StatusShipping || l.Status == StatusCompleted
}

// Mandate is a standing authorization to charge a customer.
type Mandate struct {
	ID         string          `json:"id"`
	Status     string          `json:"status"`
	Method     string          `json:"method"`
	CustomerID string          `json:"customerId,omitempty"`
	Details    json.RawMessage `json:"details,omitempty"`
	CreatedAt  *time.Time      `json:"createdAt,omitempty"`
}

// IsValid reports whether the mandate can be charged.
func (m *Mandate) IsValid() bool { return m.Status == MandateValid }

// Customer is a provider customer resource.
type Customer struct {
	ID       string            `json:"id"`
	Mode     Mode              `json:"mode"`
	Name     string            `json:"name,omitempty"`
	Email    string            `json:"email,omitempty"`
	Locale   string            `json:"locale,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Refund is the result of a refund call.
type Refund struct {
	ID          string      `json:"id"`
	Amount      Amount      `json:"amount"`
	Status      string      `json:"status"`
	Description string      `json:"description,omitempty"`
	PaymentID   string      `json:"paymentId,omitempty"`
	OrderID     string      `json:"orderId,omitempty"`
	Lines       []OrderLine `json:"lines,omitempty"`
	CreatedAt   *time.Time  `json:"createdAt,omitempty"`
}

// --- Request payloads ---

// CreatePaymentRequest is the payload for the payment-create endpoint.
type CreatePaymentRequest struct {
	Amount       Amount            `json:"amount"`
	Description  string            `json:"description"`
	RedirectURL  string            `json:"redirectUrl,omitempty"`
	WebhookURL   string            `json:"webhookUrl,omitempty"`
	Method       string            `json:"method,omitempty"`
	Issuer       string            `json:"issuer,omitempty"`
	Locale       string            `json:"locale,omitempty"`
	CustomerID   string            `json:"customerId,omitempty"`
	MandateID    string            `json:"mandateId,omitempty"`
	SequenceType SequenceType      `json:"sequenceType,omitempty"`
	DueDate      string            `json:"dueDate,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// CreateOrderRequest is the payload for the order-create endpoint.
type CreateOrderRequest struct {
	Amount      Amount             `json:"amount"`
	OrderNumber string             `json:"orderNumber"`
	Lines       []OrderLineRequest `json:"lines"`
	RedirectURL string             `json:"redirectUrl,omitempty"`
	WebhookURL  string             `json:"webhookUrl,omitempty"`
	Method      string             `json:"method,omitempty"`
	Locale      string             `json:"locale,omitempty"`
	CustomerID  string             `json:"customerId,omitempty"`
	Metadata    map[string]string  `json:"metadata,omitempty"`
	Payment     *OrderPaymentParams `json:"payment,omitempty"`
}

// OrderPaymentParams carries payment-level parameters on an order create.
type OrderPaymentParams struct {
	Issuer       string       `json:"issuer,omitempty"`
	CustomerID   string       `json:"customerId,omitempty"`
	SequenceType SequenceType `json:"sequenceType,omitempty"`
	WebhookURL   string       `json:"webhookUrl,omitempty"`
}

// OrderLineRequest is one line of an order-create payload.
type OrderLineRequest struct {
	Name        string            `json:"name"`
	SKU         string            `json:"sku,omitempty"`
	Quantity    int               `json:"quantity"`
	UnitPrice   Amount            `json:"unitPrice"`
	TotalAmount Amount            `json:"totalAmount"`
	VATRate     string            `json:"vatRate,omitempty"`
	VATAmount   *Amount           `json:"vatAmount,omitempty"`
	Type        string            `json:"type,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// LineReference addresses one remote order line in a cancel or refund call.
type LineReference struct {
	ID       string  `json:"id"`
	Quantity int     `json:"quantity,omitempty"`
	Amount   *Amount `json:"amount,omitempty"`
}

// CancelLinesRequest is the payload for the order-line cancel endpoint.
type CancelLinesRequest struct {
	Lines []LineReference `json:"lines"`
}

// RefundLinesRequest is the payload for the order-line refund endpoint.
type RefundLinesRequest struct {
	Lines       []LineReference `json:"lines"`
	Description string          `json:"description,omitempty"`
}

// CreateCustomerRequest is the payload for the customer-create endpoint.
type CreateCustomerRequest struct {
	Name     string            `json:"name,omitempty"`
	Email    string            `json:"email,omitempty"`
	Locale   string            `json:"locale,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// CreateMandateRequest is the payload for the mandate-create endpoint.
type CreateMandateRequest struct {
	Method          string `json:"method"`
	ConsumerName    string `json:"consumerName,omitempty"`
	ConsumerAccount string `json:"consumerAccount,omitempty"`
	ConsumerBIC     string `json:"consumerBic,omitempty"`
}

// MandateList is the response of the mandate-list endpoint.
type MandateList struct {
	Count    int `json:"count"`
	Embedded struct {
		Mandates []Mandate `json:"mandates"`
	} `json:"_embedded"`
}

package method

import (
	"sort"
	"sync"
)

// Definition describes the capabilities of one payment method.
type Definition struct {
	// Code is the provider method code ("ideal", "klarnapaylater", ...).
	Code string

	// Title is the customer-facing name.
	Title string

	// Delayed marks methods whose confirmation arrives asynchronously,
	// possibly days after checkout (bank transfers, direct debits).
	Delayed bool

	// OrdersOnly marks methods the provider accepts exclusively through
	// the order endpoint. These pay-later methods also reject requests
	// that drop required customer data, so no customer-strip retry and
	// no fallback to the payment endpoint is possible for them.
	OrdersOnly bool

	// RecurringSibling is the method code follow-up charges in a
	// recurring series are made with. Empty when the method cannot
	// start a series.
	RecurringSibling string

	// Surcharge marks methods that may carry a payment fee line on the
	// local order.
	Surcharge bool
}

// SupportsRecurring reports whether the method can start a mandate
// series.
func (d Definition) SupportsRecurring() bool { return d.RecurringSibling != "" }

// Registry holds the known payment methods. Unknown codes resolve to a
// conservative default so a new provider method degrades gracefully
// instead of breaking checkout.
type Registry struct {
	mu      sync.RWMutex
	methods map[string]Definition
}

// defaultDefinition is used for method codes not in the registry.
func defaultDefinition(code string) Definition {
	return Definition{Code: code, Title: code}
}

// NewRegistry creates a registry pre-populated with the provider's
// method catalogue.
func NewRegistry() *Registry {
	r := &Registry{methods: make(map[string]Definition)}
	for _, d := range builtins {
		r.methods[d.Code] = d
	}
	return r
}

var builtins = []Definition{
	{Code: "ideal", Title: "iDEAL", RecurringSibling: "directdebit", Surcharge: true},
	{Code: "creditcard", Title: "Credit card", RecurringSibling: "creditcard", Surcharge: true},
	{Code: "bancontact", Title: "Bancontact", RecurringSibling: "directdebit", Surcharge: true},
	{Code: "sofort", Title: "SOFORT Banking", RecurringSibling: "directdebit", Surcharge: true},
	{Code: "eps", Title: "eps", RecurringSibling: "directdebit", Surcharge: true},
	{Code: "giropay", Title: "Giropay", RecurringSibling: "directdebit", Surcharge: true},
	{Code: "banktransfer", Title: "Bank transfer", Delayed: true, Surcharge: true},
	{Code: "directdebit", Title: "SEPA Direct Debit", Delayed: true, RecurringSibling: "directdebit"},
	{Code: "paypal", Title: "PayPal", RecurringSibling: "paypal", Surcharge: true},
	{Code: "applepay", Title: "Apple Pay", RecurringSibling: "creditcard", Surcharge: true},
	{Code: "przelewy24", Title: "Przelewy24", Surcharge: true},
	{Code: "kbc", Title: "KBC/CBC", RecurringSibling: "directdebit", Surcharge: true},
	{Code: "belfius", Title: "Belfius", RecurringSibling: "directdebit", Surcharge: true},
	{Code: "giftcard", Title: "Gift cards", Surcharge: true},
	{Code: "voucher", Title: "Vouchers", OrdersOnly: true},
	{Code: "klarnapaylater", Title: "Klarna Pay later", OrdersOnly: true, Surcharge: true},
	{Code: "klarnapaynow", Title: "Klarna Pay now", OrdersOnly: true, Surcharge: true},
	{Code: "klarnasliceit", Title: "Klarna Slice it", OrdersOnly: true, Surcharge: true},
	{Code: "in3", Title: "in3", OrdersOnly: true, Surcharge: true},
	{Code: "billie", Title: "Billie", OrdersOnly: true, Surcharge: true},
}

// Get resolves a method code. Unknown codes return a default
// definition carrying the code itself.
func (r *Registry) Get(code string) Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if d, ok := r.methods[code]; ok {
		return d
	}
	return defaultDefinition(code)
}

// Contains reports whether the code is a known method.
func (r *Registry) Contains(code string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.methods[code]
	return ok
}

// Register adds or replaces a method definition.
func (r *Registry) Register(d Definition) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.methods[d.Code] = d
}

// Codes returns all registered method codes, sorted.
func (r *Registry) Codes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	codes := make([]string, 0, len(r.methods))
	for code := range r.methods {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Family returns the recurring-charge family of a method: the
// direct-debit class groups every method whose follow-up charges run
// as SEPA debits, any other method is its own family.
func (r *Registry) Family(code string) string {
	if code == "directdebit" {
		return "directdebit"
	}
	if d := r.Get(code); d.RecurringSibling == "directdebit" {
		return "directdebit"
	}
	return code
}

// SameFamily reports whether two methods belong to the same
// recurring-charge family.
func (r *Registry) SameFamily(a, b string) bool {
	return r.Family(a) == r.Family(b)
}

// MandateCompatible reports whether a mandate created through
// mandateMethod can charge follow-ups for a series started with
// seriesMethod. A direct debit mandate serves every method whose
// recurring sibling is directdebit; otherwise the methods must match.
func (r *Registry) MandateCompatible(seriesMethod, mandateMethod string) bool {
	d := r.Get(seriesMethod)
	if d.RecurringSibling == "" {
		return false
	}
	return d.RecurringSibling == mandateMethod || seriesMethod == mandateMethod
}

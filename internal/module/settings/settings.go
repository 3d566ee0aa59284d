package settings

import (
	"sync"

	"github.com/spf13/viper"
)

// APIMode selects which provider endpoint checkout uses by default.
type APIMode string

const (
	APIModeOrder   APIMode = "order"
	APIModePayment APIMode = "payment"
)

// CancelledPolicy decides where a local order goes when its remote
// payment is cancelled: back to pending so the customer can retry, or
// straight to cancelled.
type CancelledPolicy string

const (
	CancelledToPending   CancelledPolicy = "pending"
	CancelledToCancelled CancelledPolicy = "cancelled"
)

// Surcharge is the payment fee configuration for one method.
type Surcharge struct {
	Fixed   float64 `mapstructure:"fixed"`
	Percent float64 `mapstructure:"percent"`
}

// Applies reports whether the surcharge produces a non-zero fee.
func (s Surcharge) Applies() bool { return s.Fixed != 0 || s.Percent != 0 }

// Settings is the engine's runtime configuration.
type Settings struct {
	// APIMode is the default resource family for new checkouts.
	APIMode APIMode `mapstructure:"api_mode"`

	// StoreCustomer attaches a provider customer id to create requests
	// and persists it locally for reuse.
	StoreCustomer bool `mapstructure:"store_customer"`

	// BankTransferDueDays sets the payment window for bank transfers.
	// Zero disables the due-date feature.
	BankTransferDueDays int `mapstructure:"bank_transfer_due_days"`

	// CancelledPolicy is the plugin-wide cancelled-order policy.
	CancelledPolicy CancelledPolicy `mapstructure:"cancelled_policy"`

	// MethodCancelledPolicy overrides the cancelled policy per method.
	MethodCancelledPolicy map[string]CancelledPolicy `mapstructure:"method_cancelled_policy"`

	// Surcharges configures payment fees per method code.
	Surcharges map[string]Surcharge `mapstructure:"surcharges"`

	// DescriptionTemplate is the payment description with substitution
	// tags ({orderNumber}, {storeName}, {customer.firstname}, ...).
	DescriptionTemplate string `mapstructure:"description_template"`

	// AutomaticPaymentsDisabled suppresses the first-payment sequence
	// tag on subscription checkouts.
	AutomaticPaymentsDisabled bool `mapstructure:"automatic_payments_disabled"`

	// Debug appends technical detail to customer-facing failure
	// notices.
	Debug bool `mapstructure:"debug"`
}

// PolicyFor resolves the cancelled policy for a method: per-method
// override first, then the plugin-wide setting, then pending.
func (s *Settings) PolicyFor(method string) CancelledPolicy {
	if p, ok := s.MethodCancelledPolicy[method]; ok && p != "" {
		return p
	}
	if s.CancelledPolicy != "" {
		return s.CancelledPolicy
	}
	return CancelledToPending
}

// SurchargeFor returns the surcharge configured for a method.
func (s *Settings) SurchargeFor(method string) Surcharge {
	return s.Surcharges[method]
}

// Store holds the live settings and serializes concurrent access.
// Checkout, webhook delivery and the renewal sweep all read it.
type Store struct {
	mu sync.RWMutex
	s  Settings
}

// NewStore creates a store from explicit settings.
func NewStore(s Settings) *Store {
	applyDefaults(&s)
	return &Store{s: s}
}

// NewStoreFromViper reads the "engine" section of the given viper
// instance.
func NewStoreFromViper(v *viper.Viper) (*Store, error) {
	var s Settings
	if err := v.UnmarshalKey("engine", &s); err != nil {
		return nil, err
	}
	applyDefaults(&s)
	return &Store{s: s}, nil
}

func applyDefaults(s *Settings) {
	if s.APIMode == "" {
		s.APIMode = APIModeOrder
	}
	if s.CancelledPolicy == "" {
		s.CancelledPolicy = CancelledToPending
	}
	if s.DescriptionTemplate == "" {
		s.DescriptionTemplate = "{storeName} - Order {orderNumber}"
	}
	if s.MethodCancelledPolicy == nil {
		s.MethodCancelledPolicy = map[string]CancelledPolicy{}
	}
	if s.Surcharges == nil {
		s.Surcharges = map[string]Surcharge{}
	}
}

// Get returns a snapshot of the current settings.
func (st *Store) Get() Settings {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.s
}

// Update applies a mutation to the settings under the write lock.
func (st *Store) Update(fn func(*Settings)) {
	st.mu.Lock()
	defer st.mu.Unlock()
	fn(&st.s)
	applyDefaults(&st.s)
}

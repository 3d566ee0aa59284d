package checkout

import (
	"github.com/orderlink/server/internal/module/order"
	"github.com/orderlink/server/internal/module/resource"
)

// RedirectStrategy computes where the buyer is sent after the remote
// resource was created. returnURL is the shop's thank-you page with
// correlation parameters already attached.
type RedirectStrategy func(o *order.Order, res *resource.Remote, returnURL string) string

// defaultRedirect sends the buyer to the provider's hosted checkout
// when one exists, otherwise straight to the thank-you page.
func defaultRedirect(_ *order.Order, res *resource.Remote, returnURL string) string {
	if u := res.CheckoutURL(); u != "" {
		return u
	}
	return returnURL
}

// bankTransferRedirect keeps the buyer on the thank-you page, which
// shows the transfer instructions; there is nothing to complete at the
// provider.
func bankTransferRedirect(_ *order.Order, _ *resource.Remote, returnURL string) string {
	return returnURL
}

// Redirects maps method codes to redirect strategies, with a default
// for everything unlisted.
type Redirects struct {
	strategies map[string]RedirectStrategy
}

// NewRedirects creates the redirect registry.
func NewRedirects() *Redirects {
	return &Redirects{
		strategies: map[string]RedirectStrategy{
			"banktransfer": bankTransferRedirect,
		},
	}
}

// Register adds or replaces a per-method strategy.
func (r *Redirects) Register(method string, s RedirectStrategy) {
	r.strategies[method] = s
}

// Resolve returns the strategy for a method.
func (r *Redirects) Resolve(method string) RedirectStrategy {
	if s, ok := r.strategies[method]; ok {
		return s
	}
	return defaultRedirect
}

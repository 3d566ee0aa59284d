package checkout

import (
	"fmt"
	"net/url"

	"golang.org/x/net/idna"

	"github.com/orderlink/server/internal/module/order"
)

// FilterFlag marks return URLs produced by this integration so the
// shop's landing page can tell them apart from direct visits.
const FilterFlag = "orderlink_return"

// ReturnURL appends the order correlation parameters to the shop's
// return URL and converts an internationalized host to its ASCII form.
// The provider rejects redirect URLs with non-ASCII hosts.
func ReturnURL(base string, o *order.Order) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse return url: %w", err)
	}
	if err := asciiHost(u); err != nil {
		return "", err
	}

	q := u.Query()
	q.Set("order_id", o.ID.String())
	q.Set("key", o.Key)
	q.Set("filter_flag", FilterFlag)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// WebhookURL builds the provider-facing webhook URL carrying the order
// correlation.
func WebhookURL(storeBaseURL, webhookPath string, o *order.Order) (string, error) {
	u, err := url.Parse(storeBaseURL)
	if err != nil {
		return "", fmt.Errorf("parse store url: %w", err)
	}
	if err := asciiHost(u); err != nil {
		return "", err
	}

	u.Path = webhookPath
	q := url.Values{}
	q.Set("order_id", o.ID.String())
	q.Set("key", o.Key)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func asciiHost(u *url.URL) error {
	host, err := idna.ToASCII(u.Hostname())
	if err != nil {
		return fmt.Errorf("encode host %q: %w", u.Hostname(), err)
	}
	if port := u.Port(); port != "" {
		u.Host = host + ":" + port
	} else {
		u.Host = host
	}
	return nil
}

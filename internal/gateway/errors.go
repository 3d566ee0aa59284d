package gateway

import (
	"fmt"
	"strings"

	sharederrors "github.com/orderlink/server/internal/shared/errors"
)

// APIError is a non-2xx response from the provider API.
type APIError struct {
	Status int    `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Field  string `json:"field,omitempty"`
}

func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("provider api error %d (%s): %s [field: %s]", e.Status, e.Title, e.Detail, e.Field)
	}
	return fmt.Sprintf("provider api error %d (%s): %s", e.Status, e.Title, e.Detail)
}

// Unwrap lets callers match with errors.Is against the shared sentinel.
func (e *APIError) Unwrap() error { return sharederrors.ErrProviderAPI }

// IsCustomerRejected reports whether the provider rejected the request
// because of the attached customer id. Payment creation retries once
// without the customer when this is the case.
func (e *APIError) IsCustomerRejected() bool {
	if e.Status != 422 {
		return false
	}
	if strings.EqualFold(e.Field, "customerId") || strings.EqualFold(e.Field, "payment.customerId") {
		return true
	}
	return strings.Contains(strings.ToLower(e.Detail), "customer")
}

// IsNotFound reports whether the provider knows no such resource.
func (e *APIError) IsNotFound() bool { return e.Status == 404 }

package order

import (
	sharederrors "github.com/orderlink/server/internal/shared/errors"
)

var (
	// ErrOrderNotFound is returned when an order does not exist.
	ErrOrderNotFound = sharederrors.NotFound("order")

	// ErrKeyMismatch is returned when a webhook's correlation key does
	// not match the order's key. It maps to 404 so callers cannot probe
	// for existing order ids.
	ErrKeyMismatch = sharederrors.NotFound("order key")
)

package gateway

import (
	"context"
	"net/http"
)

// CreatePayment creates a payment resource.
func (c *Client) CreatePayment(ctx context.Context, req *CreatePaymentRequest) (*Payment, error) {
	var payment Payment
	if err := c.do(ctx, http.MethodPost, "/v2/payments", nil, req, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

// GetPayment fetches a payment resource by id.
func (c *Client) GetPayment(ctx context.Context, id string) (*Payment, error) {
	var payment Payment
	if err := c.do(ctx, http.MethodGet, "/v2/payments/"+id, nil, nil, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

// CancelPayment cancels an open payment resource.
func (c *Client) CancelPayment(ctx context.Context, id string) (*Payment, error) {
	var payment Payment
	if err := c.do(ctx, http.MethodDelete, "/v2/payments/"+id, nil, nil, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

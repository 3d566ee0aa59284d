package gateway

import (
	"context"
	"net/http"
	"net/url"
)

// CreateOrder creates an order resource with its lines.
func (c *Client) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*Order, error) {
	var order Order
	if err := c.do(ctx, http.MethodPost, "/v2/orders", nil, req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrder fetches an order resource by id. With embedPayments the
// provider includes the order's payment resources in the response.
func (c *Client) GetOrder(ctx context.Context, id string, embedPayments bool) (*Order, error) {
	var query url.Values
	if embedPayments {
		query = url.Values{"embed": []string{"payments"}}
	}
	var order Order
	if err := c.do(ctx, http.MethodGet, "/v2/orders/"+id, query, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// CancelOrderLines cancels uncaptured lines on an order resource.
func (c *Client) CancelOrderLines(ctx context.Context, orderID string, req *CancelLinesRequest) error {
	return c.do(ctx, http.MethodDelete, "/v2/orders/"+orderID+"/lines", nil, req, nil)
}

// RefundOrderLines refunds captured lines on an order resource.
func (c *Client) RefundOrderLines(ctx context.Context, orderID string, req *RefundLinesRequest) (*Refund, error) {
	var refund Refund
	if err := c.do(ctx, http.MethodPost, "/v2/orders/"+orderID+"/refunds", nil, req, &refund); err != nil {
		return nil, err
	}
	return &refund, nil
}

package gateway

import (
	"context"
	"net/http"
)

// CreateCustomer creates a customer resource.
func (c *Client) CreateCustomer(ctx context.Context, req *CreateCustomerRequest) (*Customer, error) {
	var customer Customer
	if err := c.do(ctx, http.MethodPost, "/v2/customers", nil, req, &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

// GetCustomer fetches a customer resource by id.
func (c *Client) GetCustomer(ctx context.Context, id string) (*Customer, error) {
	var customer Customer
	if err := c.do(ctx, http.MethodGet, "/v2/customers/"+id, nil, nil, &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

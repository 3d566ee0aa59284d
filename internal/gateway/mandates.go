package gateway

import (
	"context"
	"net/http"
)

// GetMandate fetches one mandate of a customer by id.
func (c *Client) GetMandate(ctx context.Context, customerID, mandateID string) (*Mandate, error) {
	var mandate Mandate
	path := "/v2/customers/" + customerID + "/mandates/" + mandateID
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &mandate); err != nil {
		return nil, err
	}
	return &mandate, nil
}

// ListMandates lists all mandates of a customer.
func (c *Client) ListMandates(ctx context.Context, customerID string) ([]Mandate, error) {
	var list MandateList
	path := "/v2/customers/" + customerID + "/mandates"
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &list); err != nil {
		return nil, err
	}
	return list.Embedded.Mandates, nil
}

// CreateMandate creates a mandate for a customer.
func (c *Client) CreateMandate(ctx context.Context, customerID string, req *CreateMandateRequest) (*Mandate, error) {
	var mandate Mandate
	path := "/v2/customers/" + customerID + "/mandates"
	if err := c.do(ctx, http.MethodPost, path, nil, req, &mandate); err != nil {
		return nil, err
	}
	return &mandate, nil
}

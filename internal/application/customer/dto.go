package customer

import (
	"github.com/customersvc/backend/internal/domain/customer"
)

// CustomerResponse is the wire form of a customer record. Field order and
// names define the exact lookup response body.
type CustomerResponse struct {
	ID        int64  `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// ToCustomerResponse converts a domain customer to its response form
func ToCustomerResponse(c *customer.Customer) CustomerResponse {
	return CustomerResponse{
		ID:        c.ID,
		FirstName: c.FirstName,
		LastName:  c.LastName,
	}
}

// SaveCustomerInput carries the fields of a customer to persist.
// An ID of 0 lets the store assign one.
type SaveCustomerInput struct {
	ID        int64
	FirstName string
	LastName  string
}

// Package customer holds the customer record and the contract of the store that owns it.
package customer

import (
	"unicode/utf8"

	"github.com/customersvc/backend/internal/domain/shared"
)

// MaxNameLength matches the width of the name columns in the customers table
const MaxNameLength = 255

// Customer is a persisted customer record.
// ID is zero until the store assigns one, unless the caller supplies it.
type Customer struct {
	ID        int64
	FirstName string
	LastName  string
}

// NewCustomer creates a validated customer. Pass id 0 to let the store assign it.
func NewCustomer(id int64, firstName, lastName string) (*Customer, error) {
	c := &Customer{
		ID:        id,
		FirstName: firstName,
		LastName:  lastName,
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the record can be stored
func (c *Customer) Validate() error {
	if c.ID < 0 {
		return shared.NewDomainError("INVALID_ID", "Customer id must not be negative")
	}
	if utf8.RuneCountInString(c.FirstName) > MaxNameLength {
		return shared.NewDomainError("INVALID_FIRST_NAME", "First name cannot exceed 255 characters")
	}
	if utf8.RuneCountInString(c.LastName) > MaxNameLength {
		return shared.NewDomainError("INVALID_LAST_NAME", "Last name cannot exceed 255 characters")
	}
	return nil
}

// FullName returns "<first> <last>"
func (c *Customer) FullName() string {
	return c.FirstName + " " + c.LastName
}

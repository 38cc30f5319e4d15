package customer

import (
	"strconv"

	"github.com/customersvc/backend/internal/domain/shared"
)

// AggregateTypeCustomer is the aggregate type carried by customer events
const AggregateTypeCustomer = "Customer"

// EventTypeCustomerSaved is published after a customer is persisted
const EventTypeCustomerSaved = "CustomerSaved"

// CustomerSavedEvent is published after a successful Save
type CustomerSavedEvent struct {
	shared.BaseDomainEvent
	CustomerID int64  `json:"customer_id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Created    bool   `json:"created"`
}

// NewCustomerSavedEvent creates a CustomerSavedEvent for c. created reports
// whether the save was an insert of a new record.
func NewCustomerSavedEvent(c *Customer, created bool) *CustomerSavedEvent {
	return &CustomerSavedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCustomerSaved, AggregateTypeCustomer, strconv.FormatInt(c.ID, 10)),
		CustomerID:      c.ID,
		FirstName:       c.FirstName,
		LastName:        c.LastName,
		Created:         created,
	}
}

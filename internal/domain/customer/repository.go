package customer

import (
	"context"
	"iter"
)

// Repository is the record store for customers.
type Repository interface {
	// Save persists c. With isNew set it is a plain insert and an existing id
	// fails with shared.ErrAlreadyExists; otherwise the row is upserted on id.
	// The returned record carries the id assigned by the store.
	Save(ctx context.Context, c *Customer, isNew bool) (*Customer, error)

	// FindByID looks a customer up by id. An absent id yields found == false
	// and a nil error; err is only set when the store itself fails.
	FindByID(ctx context.Context, id int64) (c *Customer, found bool, err error)

	// FindAll streams every customer in no particular order. Iteration stops
	// after the first error is yielded.
	FindAll(ctx context.Context) iter.Seq2[Customer, error]
}

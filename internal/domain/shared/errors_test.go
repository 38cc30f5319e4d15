package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestDomainError_Error(t *testing.T) {
	assert.Equal(t, "Invalid input provided", ErrInvalidInput.Error())

	wrapped := ErrAlreadyExists.Wrap(errors.New("duplicate key"))
	assert.Equal(t, "Resource already exists: duplicate key", wrapped.Error())
}

func TestDomainError_Is(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{"same sentinel", ErrInvalidInput, ErrInvalidInput, true},
		{"wrapped copy", ErrAlreadyExists.Wrap(errors.New("boom")), ErrAlreadyExists, true},
		{"fmt wrapped", fmt.Errorf("save: %w", ErrAlreadyExists.Wrap(errors.New("boom"))), ErrAlreadyExists, true},
		{"different code", ErrInvalidInput, ErrAlreadyExists, false},
		{"plain error", errors.New("boom"), ErrInvalidInput, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errors.Is(tt.err, tt.target))
		})
	}
}

func TestDomainError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := ErrInvalidInput.Wrap(cause)

	assert.ErrorIs(t, err, cause)
	assert.Nil(t, ErrInvalidInput.Unwrap())
}

func TestNewBaseDomainEvent(t *testing.T) {
	e := NewBaseDomainEvent("CustomerSaved", "Customer", "1234")

	assert.NotEqual(t, uuid.Nil, e.EventID())
	assert.Equal(t, "CustomerSaved", e.EventType())
	assert.Equal(t, "Customer", e.AggregateType())
	assert.Equal(t, "1234", e.AggregateID())
	assert.False(t, e.OccurredAt().IsZero())
}

package customer

import (
	"context"
	"errors"
	"testing"

	"github.com/customersvc/backend/internal/domain/customer"
	"github.com/customersvc/backend/internal/infrastructure/persistence"
	"github.com/customersvc/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSeeder_Run(t *testing.T) {
	ctx := context.Background()
	repo := persistence.NewGormCustomerRepository(testutil.NewSQLiteDB(t))
	svc := NewCustomerService(repo, nil, zap.NewNop())

	core, logs := observer.New(zap.InfoLevel)
	seeder := NewSeeder(svc, zap.New(core))

	require.NoError(t, seeder.Run(ctx))
	// A second run upserts the same record.
	require.NoError(t, seeder.Run(ctx))

	messages := make([]string, 0, logs.Len())
	for _, e := range logs.All() {
		messages = append(messages, e.Message)
	}
	assert.Equal(t, []string{
		"Saving customer with id '1234'",
		"Found customer with id: '1234' and name: 'Test First'",
		"Saving customer with id '1234'",
		"Found customer with id: '1234' and name: 'Test First'",
	}, messages)

	got, found, err := svc.GetByID(ctx, 1234)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, CustomerResponse{ID: 1234, FirstName: "Test", LastName: "First"}, *got)
}

func TestSeeder_Run_LogsStoredID(t *testing.T) {
	repo := new(MockRepository)
	stored := customer.Customer{ID: 5678, FirstName: "Test", LastName: "First"}
	repo.On("Save", mock.Anything, mock.Anything, false).Return(&stored, nil)
	repo.On("FindAll", mock.Anything).Return(seqOf([]customer.Customer{stored}, nil))

	core, logs := observer.New(zap.InfoLevel)
	svc := NewCustomerService(repo, nil, zap.NewNop())

	require.NoError(t, NewSeeder(svc, zap.New(core)).Run(context.Background()))

	assert.Equal(t, 1, logs.FilterMessage("Saving customer with id '5678'").Len())
	assert.Equal(t, 1, logs.FilterMessage("Found customer with id: '5678' and name: 'Test First'").Len())
	repo.AssertExpectations(t)
}

func TestSeeder_Run_SaveFailure(t *testing.T) {
	repo := new(MockRepository)
	repo.On("Save", mock.Anything, mock.Anything, false).Return(nil, errors.New("database is locked"))

	core, logs := observer.New(zap.InfoLevel)
	svc := NewCustomerService(repo, nil, zap.NewNop())

	err := NewSeeder(svc, zap.New(core)).Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "seed customer 1234")
	assert.Zero(t, logs.Len())
	repo.AssertNotCalled(t, "FindAll", mock.Anything)
}

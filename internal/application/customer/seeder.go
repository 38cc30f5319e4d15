package customer

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// DemoCustomer is the record stored by the seeder
var DemoCustomer = SaveCustomerInput{ID: 1234, FirstName: "Test", LastName: "First"}

// Seeder stores the demo customer and logs the resulting contents of the store
type Seeder struct {
	service *CustomerService
	logger  *zap.Logger
}

// NewSeeder creates a new Seeder
func NewSeeder(service *CustomerService, logger *zap.Logger) *Seeder {
	return &Seeder{
		service: service,
		logger:  logger.Named("seeder"),
	}
}

// Run upserts DemoCustomer, so repeated runs leave a single record, logs the
// id the store kept for it and then every stored customer.
func (s *Seeder) Run(ctx context.Context) error {
	saved, err := s.service.Save(ctx, DemoCustomer, false)
	if err != nil {
		return fmt.Errorf("seed customer %d: %w", DemoCustomer.ID, err)
	}
	s.logger.Info(fmt.Sprintf("Saving customer with id '%d'", saved.ID))

	return s.service.ForEach(ctx, func(c CustomerResponse) error {
		s.logger.Info(fmt.Sprintf("Found customer with id: '%d' and name: '%s %s'", c.ID, c.FirstName, c.LastName))
		return nil
	})
}

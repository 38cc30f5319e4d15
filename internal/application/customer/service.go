// Package customer implements the customer use cases on top of the record store.
package customer

import (
	"context"

	"github.com/customersvc/backend/internal/domain/customer"
	"github.com/customersvc/backend/internal/domain/shared"
	"github.com/customersvc/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

const spanService = "customer"

// CustomerService handles customer lookups and saves
type CustomerService struct {
	repo      customer.Repository
	publisher shared.EventPublisher
	metrics   *telemetry.CustomerMetrics
	logger    *zap.Logger
}

// NewCustomerService creates a new CustomerService. publisher may be nil, in
// which case no events are emitted.
func NewCustomerService(repo customer.Repository, publisher shared.EventPublisher, logger *zap.Logger) *CustomerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CustomerService{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
	}
}

// SetMetrics sets the business metrics collector
func (s *CustomerService) SetMetrics(m *telemetry.CustomerMetrics) {
	s.metrics = m
}

// GetByID returns the customer with id. found is false, with a nil error,
// when no such customer exists.
func (s *CustomerService) GetByID(ctx context.Context, id int64) (*CustomerResponse, bool, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "get_by_id",
		telemetry.WithAttribute(telemetry.SpanAttrCustomerID, id))
	defer span.End()

	c, found, err := s.repo.FindByID(ctx, id)
	switch {
	case err != nil:
		telemetry.RecordError(span, err)
		s.recordLookup(ctx, telemetry.LookupError)
		return nil, false, err
	case !found:
		telemetry.SetAttributes(span, telemetry.SpanAttrFound, false)
		s.recordLookup(ctx, telemetry.LookupNotFound)
		return nil, false, nil
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrFound, true)
	s.recordLookup(ctx, telemetry.LookupFound)
	resp := ToCustomerResponse(c)
	return &resp, true, nil
}

// Save validates and persists a customer, then publishes CustomerSaved.
// isNew requests a plain insert that fails with shared.ErrAlreadyExists on
// an existing id; otherwise the record is upserted. A failed publish is
// logged and does not undo the save.
func (s *CustomerService) Save(ctx context.Context, in SaveCustomerInput, isNew bool) (*CustomerResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "save",
		telemetry.WithAttribute(telemetry.SpanAttrCustomerID, in.ID),
		telemetry.WithAttribute(telemetry.SpanAttrCreated, isNew))
	defer span.End()

	c, err := customer.NewCustomer(in.ID, in.FirstName, in.LastName)
	if err != nil {
		return nil, shared.ErrInvalidInput.Wrap(err)
	}

	saved, err := s.repo.Save(ctx, c, isNew)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordSave(ctx, isNew)
	}
	s.publish(ctx, customer.NewCustomerSavedEvent(saved, isNew))

	resp := ToCustomerResponse(saved)
	return &resp, nil
}

// ForEach calls fn for every stored customer until fn or the store fails.
func (s *CustomerService) ForEach(ctx context.Context, fn func(CustomerResponse) error) error {
	for c, err := range s.repo.FindAll(ctx) {
		if err != nil {
			return err
		}
		if err := fn(ToCustomerResponse(&c)); err != nil {
			return err
		}
	}
	return nil
}

func (s *CustomerService) publish(ctx context.Context, event shared.DomainEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish event",
			zap.String("event_type", event.EventType()),
			zap.String("aggregate_id", event.AggregateID()),
			zap.Error(err),
		)
	}
}

func (s *CustomerService) recordLookup(ctx context.Context, result telemetry.LookupResult) {
	if s.metrics != nil {
		s.metrics.RecordLookup(ctx, result)
	}
}

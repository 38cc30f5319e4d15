package telemetry

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrMeterNil is returned when a metrics set is built without a meter.
var ErrMeterNil = errors.New("meter cannot be nil")

const defaultCollectInterval = 5 * time.Minute

// LookupResult labels the outcome of a customer lookup.
type LookupResult string

const (
	LookupFound    LookupResult = "found"
	LookupNotFound LookupResult = "not_found"
	LookupError    LookupResult = "error"
)

// RecordCountProvider reports how many customer records are stored.
type RecordCountProvider interface {
	CountCustomers(ctx context.Context) (int64, error)
}

// CustomerMetrics holds the business metrics of the customer service.
type CustomerMetrics struct {
	logger *zap.Logger

	lookupsTotal *Counter
	savesTotal   *Counter
	records      *Gauge

	provider    RecordCountProvider
	stopCh      chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once
	wg          sync.WaitGroup
}

// CustomerMetricsConfig configures NewCustomerMetrics.
type CustomerMetricsConfig struct {
	Meter    metric.Meter
	Logger   *zap.Logger
	Provider RecordCountProvider
}

// NewCustomerMetrics creates the customer_* instruments on cfg.Meter.
func NewCustomerMetrics(cfg CustomerMetricsConfig) (*CustomerMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	cm := &CustomerMetrics{
		logger:   logger,
		provider: cfg.Provider,
		stopCh:   make(chan struct{}),
	}

	var err error
	if cm.lookupsTotal, err = NewCounter(cfg.Meter, "customer_lookups_total", "Customer lookups by result", "{lookup}"); err != nil {
		return nil, err
	}
	if cm.savesTotal, err = NewCounter(cfg.Meter, "customer_saves_total", "Customer records persisted", "{save}"); err != nil {
		return nil, err
	}
	if cm.records, err = NewGauge(cfg.Meter, "customer_records", "Customer records currently stored", "{record}"); err != nil {
		return nil, err
	}

	return cm, nil
}

// RecordLookup counts one lookup with its outcome.
func (cm *CustomerMetrics) RecordLookup(ctx context.Context, result LookupResult) {
	cm.lookupsTotal.Inc(ctx, AttrLookupResult.String(string(result)))
}

// RecordSave counts one successful save.
func (cm *CustomerMetrics) RecordSave(ctx context.Context, created bool) {
	cm.savesTotal.Inc(ctx, AttrSaveCreated.Bool(created))
}

// StartPeriodicCollection samples the stored record count every interval
// until Stop is called or ctx ends. Only the first call has an effect.
func (cm *CustomerMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration) {
	if cm.provider == nil {
		cm.logger.Debug("No record count provider configured, skipping periodic collection")
		return
	}

	cm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = defaultCollectInterval
		}
		cm.wg.Add(1)
		go cm.runPeriodicCollection(ctx, interval)
	})
}

func (cm *CustomerMetrics) runPeriodicCollection(ctx context.Context, interval time.Duration) {
	defer cm.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	cm.collect(ctx)
	for {
		select {
		case <-cm.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			cm.collect(ctx)
		}
	}
}

func (cm *CustomerMetrics) collect(ctx context.Context) {
	count, err := cm.provider.CountCustomers(ctx)
	if err != nil {
		cm.logger.Warn("Failed to count customer records", zap.Error(err))
		return
	}
	cm.records.Record(ctx, count)
}

// Stop stops periodic collection and waits for the collector to exit.
func (cm *CustomerMetrics) Stop() {
	cm.stopOnce.Do(func() {
		close(cm.stopCh)
	})
	cm.wg.Wait()
}

// GormRecordCountProvider counts rows of the customers table.
type GormRecordCountProvider struct {
	db *gorm.DB
}

// NewGormRecordCountProvider creates a new GormRecordCountProvider.
func NewGormRecordCountProvider(db *gorm.DB) *GormRecordCountProvider {
	return &GormRecordCountProvider{db: db}
}

// CountCustomers returns the number of stored customer records.
func (p *GormRecordCountProvider) CountCustomers(ctx context.Context) (int64, error) {
	var count int64
	if err := p.db.WithContext(ctx).Table("customers").Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

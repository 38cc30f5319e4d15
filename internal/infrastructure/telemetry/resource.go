package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
)

// ServiceVersion is reported on every exported resource
const ServiceVersion = "1.0.0"

// ServiceNamespace groups the customer service with its clients in backends
const ServiceNamespace = "customer"

const shutdownTimeout = 10 * time.Second

// newResource describes this process to the collector. environment is
// app.env and is omitted when empty.
func newResource(serviceName, environment string) (*resource.Resource, error) {
	kvs := []attribute.KeyValue{
		semconv.ServiceName(serviceName),
		semconv.ServiceNamespace(ServiceNamespace),
		semconv.ServiceVersion(ServiceVersion),
	}
	if environment != "" {
		kvs = append(kvs, semconv.DeploymentEnvironmentName(environment))
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(semconv.SchemaURL, kvs...))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

// grpcExporterOptions builds the endpoint options shared by the OTLP trace,
// metric and log exporters.
func grpcExporterOptions[O any](endpoint string, insecure bool, withEndpoint func(string) O, withInsecure func() O) []O {
	opts := []O{withEndpoint(endpoint)}
	if insecure {
		opts = append(opts, withInsecure())
	}
	return opts
}

// shutdownWithin runs shutdown bounded by shutdownTimeout
func shutdownWithin(ctx context.Context, signal string, shutdown func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown %s provider: %w", signal, err)
	}
	return nil
}

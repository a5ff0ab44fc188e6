// Package telemetry sets up OpenTelemetry metrics for toolserver.
// Metrics are exported in the Prometheus format so they can be scraped from the /metrics endpoint.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// Config holds the telemetry settings.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Enabled        bool
}

// Providers holds the initialized OpenTelemetry providers.
// When telemetry is disabled, Meter is a no-op meter and Shutdown does nothing.
type Providers struct {
	Meter metric.Meter

	meterProvider *sdkmetric.MeterProvider
	serviceName   string
	enabled       bool
}

// Init initializes the OpenTelemetry metric provider backed by a Prometheus exporter.
// The exporter registers itself with the default Prometheus registry, which is what promhttp.Handler() serves.
func Init(ctx context.Context, c *Config) (*Providers, error) {
	if c == nil || !c.Enabled {
		p := &Providers{Meter: noop.NewMeterProvider().Meter("toolserver")}
		if c != nil {
			p.serviceName = c.ServiceName
		}
		return p, nil
	}

	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	attrs := []attribute.KeyValue{attribute.String("service.name", c.ServiceName)}
	if c.ServiceVersion != "" {
		attrs = append(attrs, attribute.String("service.version", c.ServiceVersion))
	}
	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(attrs...))
	if err != nil {
		return nil, fmt.Errorf("failed to create otel resource: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	return &Providers{
		Meter:         mp.Meter(c.ServiceName),
		meterProvider: mp,
		serviceName:   c.ServiceName,
		enabled:       true,
	}, nil
}

// IsEnabled returns true if metrics are being collected and exported.
func (p *Providers) IsEnabled() bool {
	return p != nil && p.enabled
}

// GetMeter returns the meter tool call metrics are recorded on.
func (p *Providers) GetMeter() metric.Meter {
	if p == nil || p.Meter == nil {
		return noop.NewMeterProvider().Meter("toolserver")
	}
	return p.Meter
}

// ServiceName returns the name under which telemetry is reported.
func (p *Providers) ServiceName() string {
	if p == nil {
		return ""
	}
	return p.serviceName
}

// Shutdown flushes and stops the providers.
func (p *Providers) Shutdown(ctx context.Context) error {
	if p == nil || p.meterProvider == nil {
		return nil
	}
	if err := p.meterProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown meter provider: %w", err)
	}
	return nil
}

// Package telemetry wires OpenTelemetry metrics for the update pipeline.
// Metrics export through a Prometheus endpoint by default, or over OTLP
// gRPC when an endpoint is configured.
package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// Config holds telemetry configuration.
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	OTLPEndpoint   string
}

// Telemetry holds the meter, tracer and the pipeline's instruments.
// A nil or disabled Telemetry is safe to call; every method no-ops.
type Telemetry struct {
	meterProvider metric.MeterProvider
	tracer        trace.Tracer
	meter         metric.Meter

	fetchesTotal    metric.Int64Counter
	fetchDuration   metric.Float64Histogram
	recordsApplied  metric.Int64Counter
	downloadsTotal  metric.Int64Counter
	downloadsActive metric.Int64UpDownCounter
	downloadDur     metric.Float64Histogram
	dbOpsTotal      metric.Int64Counter
	dbOpDuration    metric.Float64Histogram
}

// New creates a telemetry instance and installs it as the global meter
// provider. Runtime metrics collection starts alongside it.
func New(ctx context.Context, cfg Config) (*Telemetry, error) {
	if !cfg.Enabled {
		return &Telemetry{}, nil
	}

	var reader sdkmetric.Reader

	if cfg.OTLPEndpoint != "" {
		exporter, err := otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create otlp exporter: %w", err)
		}

		reader = sdkmetric.NewPeriodicReader(exporter)
	} else {
		exporter, err := prometheus.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
		}

		reader = exporter
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
	)

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(reader),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(meterProvider)

	if err := runtime.Start(runtime.WithMeterProvider(meterProvider)); err != nil {
		return nil, fmt.Errorf("failed to start runtime instrumentation: %w", err)
	}

	t := &Telemetry{
		meterProvider: meterProvider,
		tracer:        otel.Tracer(cfg.ServiceName),
		meter:         otel.Meter(cfg.ServiceName),
	}

	if err := t.initializeMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	return t, nil
}

// MetricsHandler serves the Prometheus scrape endpoint.
func (t *Telemetry) MetricsHandler() http.Handler {
	return promhttp.Handler()
}

func (t *Telemetry) initializeMetrics() error {
	var err error

	t.fetchesTotal, err = t.meter.Int64Counter(
		"transfer_fetches_total",
		metric.WithDescription("Total number of per-competition transfer fetches"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create transfer_fetches_total counter: %w", err)
	}

	t.fetchDuration, err = t.meter.Float64Histogram(
		"transfer_fetch_duration_seconds",
		metric.WithDescription("Per-competition transfer fetch duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("failed to create transfer_fetch_duration histogram: %w", err)
	}

	t.recordsApplied, err = t.meter.Int64Counter(
		"squad_records_applied_total",
		metric.WithDescription("Total number of transfer records applied to the squad database"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create squad_records_applied_total counter: %w", err)
	}

	t.downloadsTotal, err = t.meter.Int64Counter(
		"asset_downloads_total",
		metric.WithDescription("Total number of asset download attempts"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create asset_downloads_total counter: %w", err)
	}

	t.downloadsActive, err = t.meter.Int64UpDownCounter(
		"asset_downloads_active",
		metric.WithDescription("Number of asset downloads currently in flight"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create asset_downloads_active counter: %w", err)
	}

	t.downloadDur, err = t.meter.Float64Histogram(
		"asset_download_duration_seconds",
		metric.WithDescription("Asset download duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("failed to create asset_download_duration histogram: %w", err)
	}

	t.dbOpsTotal, err = t.meter.Int64Counter(
		"ledger_operations_total",
		metric.WithDescription("Total number of ledger database operations"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create ledger_operations_total counter: %w", err)
	}

	t.dbOpDuration, err = t.meter.Float64Histogram(
		"ledger_operation_duration_seconds",
		metric.WithDescription("Ledger database operation duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("failed to create ledger_operation_duration histogram: %w", err)
	}

	return nil
}

// RecordFetch records the outcome of one per-competition fetch.
func (t *Telemetry) RecordFetch(competitionCount int, status string, duration time.Duration) {
	if t == nil || t.fetchesTotal == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String("status", status))

	t.fetchesTotal.Add(context.Background(), int64(competitionCount), attrs)
	t.fetchDuration.Record(context.Background(), duration.Seconds(), attrs)
}

// RecordApplied records how many transfer records reached the squad file.
func (t *Telemetry) RecordApplied(count int) {
	if t == nil || t.recordsApplied == nil {
		return
	}

	t.recordsApplied.Add(context.Background(), int64(count))
}

// RecordDownload records one asset download attempt.
func (t *Telemetry) RecordDownload(assetType, status string, duration time.Duration) {
	if t == nil || t.downloadsTotal == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("asset_type", assetType),
		attribute.String("status", status),
	)

	t.downloadsTotal.Add(context.Background(), 1, attrs)
	t.downloadDur.Record(context.Background(), duration.Seconds(), attrs)
}

// IncrementActiveDownloads increments the in-flight download gauge.
func (t *Telemetry) IncrementActiveDownloads() {
	if t == nil || t.downloadsActive == nil {
		return
	}

	t.downloadsActive.Add(context.Background(), 1)
}

// DecrementActiveDownloads decrements the in-flight download gauge.
func (t *Telemetry) DecrementActiveDownloads() {
	if t == nil || t.downloadsActive == nil {
		return
	}

	t.downloadsActive.Add(context.Background(), -1)
}

// RecordDBOperation records one ledger operation.
func (t *Telemetry) RecordDBOperation(operation, status string, duration time.Duration) {
	if t == nil || t.dbOpsTotal == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("status", status),
	)

	t.dbOpsTotal.Add(context.Background(), 1, attrs)
	t.dbOpDuration.Record(context.Background(), duration.Seconds(), attrs)
}

package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/config"
	"github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/pkg/contracts"
)

const (
	// InstrumentationName names the tracer and meter of the pipeline
	InstrumentationName = "segment"
)

// Telemetry holds the tracer and meter of one run. With telemetry disabled
// both are no-ops and Shutdown does nothing.
type Telemetry struct {
	Tracer    trace.Tracer
	Meter     metric.Meter
	Metrics   *RunMetrics
	Resources *ResourceMetrics

	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	registry       *prometheus.Registry
	traceFile      *os.File
	metricsFile    string
	logger         *slog.Logger
}

// NoopTelemetry returns telemetry that records nothing
func NoopTelemetry() *Telemetry {
	t := &Telemetry{
		Tracer: tracenoop.NewTracerProvider().Tracer(InstrumentationName),
		Meter:  metricnoop.NewMeterProvider().Meter(InstrumentationName),
		logger: slog.Default(),
	}
	// noop instruments never fail to create
	t.Metrics, _ = CreateRunMetrics(t.Meter)
	t.Resources, _ = NewResourceMetrics(t.Meter)
	return t
}

// InitializeTelemetry sets up tracing to cfg.TraceFile and metrics on a
// private Prometheus registry that Shutdown writes to cfg.MetricsFile.
func InitializeTelemetry(cfg config.TelemetryConfig, logger *slog.Logger) (*Telemetry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !cfg.Enabled {
		t := NoopTelemetry()
		t.logger = logger
		return t, nil
	}

	ctx := context.Background()
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = config.AppName
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(contracts.Version),
		attribute.String("service.instance.id", generateInstanceID()),
	)

	t := &Telemetry{logger: logger, metricsFile: cfg.MetricsFile}

	if err := t.initializeTracing(cfg, res); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	if err := t.initializeMetrics(res); err != nil {
		t.closeTraceFile()
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	logger.InfoContext(ctx, "Telemetry initialized",
		slog.String("service", serviceName),
		slog.String("trace_file", cfg.TraceFile),
		slog.String("metrics_file", cfg.MetricsFile))

	return t, nil
}

// initializeTracing exports spans to the trace file, or drops them when no file is set
func (t *Telemetry) initializeTracing(cfg config.TelemetryConfig, res *resource.Resource) error {
	if cfg.TraceFile == "" {
		t.Tracer = tracenoop.NewTracerProvider().Tracer(InstrumentationName)
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.TraceFile), 0755); err != nil {
		return fmt.Errorf("failed to create trace directory: %w", err)
	}
	f, err := os.Create(cfg.TraceFile)
	if err != nil {
		return fmt.Errorf("failed to create trace file: %w", err)
	}

	exporter, err := stdouttrace.New(
		stdouttrace.WithWriter(f),
		stdouttrace.WithPrettyPrint(),
	)
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	t.traceFile = f
	t.tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	t.Tracer = t.tracerProvider.Tracer(InstrumentationName, trace.WithInstrumentationVersion(contracts.Version))
	return nil
}

// initializeMetrics backs the meter with a private Prometheus registry
func (t *Telemetry) initializeMetrics(res *resource.Resource) error {
	t.registry = prometheus.NewRegistry()

	exporter, err := otelprom.New(otelprom.WithRegisterer(t.registry))
	if err != nil {
		return fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	t.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	t.Meter = t.meterProvider.Meter(InstrumentationName, metric.WithInstrumentationVersion(contracts.Version))

	if t.Metrics, err = CreateRunMetrics(t.Meter); err != nil {
		return err
	}
	t.Resources, err = NewResourceMetrics(t.Meter)
	return err
}

// Registry returns the Prometheus registry backing the meter, nil when disabled
func (t *Telemetry) Registry() *prometheus.Registry {
	return t.registry
}

// Shutdown flushes spans, writes the metrics textfile and releases files
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error

	if t.tracerProvider != nil {
		if err := t.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}
	if err := t.closeTraceFile(); err != nil {
		errs = append(errs, fmt.Errorf("trace file close: %w", err))
	}

	// The registry must be gathered before the meter provider stops collecting
	if t.registry != nil && t.metricsFile != "" {
		if err := os.MkdirAll(filepath.Dir(t.metricsFile), 0755); err != nil {
			errs = append(errs, fmt.Errorf("metrics directory: %w", err))
		} else if err := prometheus.WriteToTextfile(t.metricsFile, t.registry); err != nil {
			errs = append(errs, fmt.Errorf("metrics textfile: %w", err))
		}
	}

	if t.meterProvider != nil {
		if err := t.meterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("telemetry shutdown errors: %w", errors.Join(errs...))
	}

	if t.tracerProvider != nil || t.meterProvider != nil {
		t.logger.InfoContext(ctx, "Telemetry shutdown complete")
	}
	return nil
}

func (t *Telemetry) closeTraceFile() error {
	if t.traceFile == nil {
		return nil
	}
	err := t.traceFile.Close()
	t.traceFile = nil
	return err
}

// RunMetrics holds the instruments recorded during a run
type RunMetrics struct {
	RecordsLoaded   metric.Int64Counter
	RecordsRejected metric.Int64Counter
	RecordsExcluded metric.Int64Counter

	StageDuration metric.Float64Histogram
	StageErrors   metric.Int64Counter

	ClusterCount   metric.Int64Gauge
	KMeansInertia  metric.Float64Gauge
	SegmentMembers metric.Int64Gauge
}

// CreateRunMetrics creates the pipeline instruments on meter
func CreateRunMetrics(meter metric.Meter) (*RunMetrics, error) {
	recordsLoaded, err := meter.Int64Counter(
		"segment_records_loaded_total",
		metric.WithDescription("Total number of customer records loaded"),
	)
	if err != nil {
		return nil, err
	}

	recordsRejected, err := meter.Int64Counter(
		"segment_records_rejected_total",
		metric.WithDescription("Total number of customer records failing validation"),
	)
	if err != nil {
		return nil, err
	}

	recordsExcluded, err := meter.Int64Counter(
		"segment_records_excluded_total",
		metric.WithDescription("Total number of customer records excluded from modeling"),
	)
	if err != nil {
		return nil, err
	}

	stageDuration, err := meter.Float64Histogram(
		"segment_stage_duration_seconds",
		metric.WithDescription("Pipeline stage duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	stageErrors, err := meter.Int64Counter(
		"segment_stage_errors_total",
		metric.WithDescription("Total number of failed pipeline stages"),
	)
	if err != nil {
		return nil, err
	}

	clusterCount, err := meter.Int64Gauge(
		"segment_cluster_count",
		metric.WithDescription("Number of clusters chosen per model"),
	)
	if err != nil {
		return nil, err
	}

	inertia, err := meter.Float64Gauge(
		"segment_kmeans_inertia",
		metric.WithDescription("Within-cluster sum of squares of the final k-means fit"),
	)
	if err != nil {
		return nil, err
	}

	members, err := meter.Int64Gauge(
		"segment_members",
		metric.WithDescription("Number of customers per segment"),
	)
	if err != nil {
		return nil, err
	}

	return &RunMetrics{
		RecordsLoaded:   recordsLoaded,
		RecordsRejected: recordsRejected,
		RecordsExcluded: recordsExcluded,
		StageDuration:   stageDuration,
		StageErrors:     stageErrors,
		ClusterCount:    clusterCount,
		KMeansInertia:   inertia,
		SegmentMembers:  members,
	}, nil
}

// RecordStageMetrics records duration and failure of one pipeline stage
func RecordStageMetrics(ctx context.Context, metrics *RunMetrics, stage string, duration time.Duration, err error) {
	if metrics == nil {
		return
	}

	status := "success"
	if err != nil {
		status = "failure"
		metrics.StageErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("stage", stage),
			attribute.String("error.type", fmt.Sprintf("%T", err)),
		))
	}

	metrics.StageDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.String("status", status),
	))
}

// RecordError records an error on the current span
func RecordError(ctx context.Context, err error, options ...trace.EventOption) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.RecordError(err, options...)
	span.SetStatus(codes.Error, err.Error())
}

// SetSpanAttributes sets attributes on the current span
func SetSpanAttributes(ctx context.Context, attributes map[string]interface{}) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	for k, v := range attributes {
		switch val := v.(type) {
		case string:
			span.SetAttributes(attribute.String(k, val))
		case int:
			span.SetAttributes(attribute.Int(k, val))
		case int64:
			span.SetAttributes(attribute.Int64(k, val))
		case float64:
			span.SetAttributes(attribute.Float64(k, val))
		case bool:
			span.SetAttributes(attribute.Bool(k, val))
		default:
			span.SetAttributes(attribute.String(k, fmt.Sprintf("%v", val)))
		}
	}
}

// generateInstanceID generates a unique instance identifier
func generateInstanceID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s-%d", hostname, time.Now().Unix())
}

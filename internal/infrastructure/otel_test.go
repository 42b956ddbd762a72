package infrastructure

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestInitializeTelemetry_Disabled(t *testing.T) {
	tel, err := InitializeTelemetry(config.TelemetryConfig{Enabled: false}, testLogger())
	require.NoError(t, err)
	require.NotNil(t, tel.Tracer)
	require.NotNil(t, tel.Metrics)
	assert.Nil(t, tel.Registry())

	ctx, span := tel.Tracer.Start(context.Background(), "stage")
	RecordStageMetrics(ctx, tel.Metrics, "stage", time.Millisecond, nil)
	span.End()

	assert.NoError(t, tel.Shutdown(context.Background()))
}

func TestInitializeTelemetry_WritesFiles(t *testing.T) {
	dir := t.TempDir()
	cfg := config.TelemetryConfig{
		Enabled:     true,
		ServiceName: "segment-test",
		TraceFile:   filepath.Join(dir, "trace", "spans.json"),
		MetricsFile: filepath.Join(dir, "metrics.prom"),
	}

	tel, err := InitializeTelemetry(cfg, testLogger())
	require.NoError(t, err)
	require.NotNil(t, tel.Registry())

	ctx, span := tel.Tracer.Start(context.Background(), "derive")
	tel.Metrics.RecordsLoaded.Add(ctx, 8)
	RecordStageMetrics(ctx, tel.Metrics, "derive", 20*time.Millisecond, nil)
	RecordStageMetrics(ctx, tel.Metrics, "kmeans", time.Millisecond, errors.New("boom"))
	span.End()

	require.NoError(t, tel.Shutdown(context.Background()))

	metrics, err := os.ReadFile(cfg.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "segment_records_loaded")
	assert.Contains(t, string(metrics), "segment_stage_duration")
	assert.Contains(t, string(metrics), "segment_stage_errors")

	spans, err := os.ReadFile(cfg.TraceFile)
	require.NoError(t, err)
	assert.Contains(t, string(spans), "derive")
}

func TestInitializeTelemetry_NoTraceFile(t *testing.T) {
	tel, err := InitializeTelemetry(config.TelemetryConfig{Enabled: true}, testLogger())
	require.NoError(t, err)

	_, span := tel.Tracer.Start(context.Background(), "noop")
	assert.False(t, span.IsRecording())
	span.End()

	assert.NoError(t, tel.Shutdown(context.Background()))
}

func TestRecordStageMetrics_NilSafe(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordStageMetrics(context.Background(), nil, "load", time.Second, nil)
	})
}

func TestRecordError_NoSpan(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordError(context.Background(), errors.New("x"))
		SetSpanAttributes(context.Background(), map[string]interface{}{"k": 1})
	})
}

func TestResourceMetrics(t *testing.T) {
	dir := t.TempDir()
	cfg := config.TelemetryConfig{Enabled: true, MetricsFile: filepath.Join(dir, "metrics.prom")}

	tel, err := InitializeTelemetry(cfg, testLogger())
	require.NoError(t, err)
	require.NotNil(t, tel.Resources)

	stats := ReadResourceStats(time.Now().Add(-time.Second))
	assert.Positive(t, stats.Goroutines)
	assert.Positive(t, stats.CPUCount)
	assert.GreaterOrEqual(t, stats.RunTime, time.Second)
	assert.Len(t, stats.LogAttrs(), 6)

	tel.Resources.Record(context.Background(), stats)
	require.NoError(t, tel.Shutdown(context.Background()))

	metrics, err := os.ReadFile(cfg.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "segment_heap_alloc_bytes")
	assert.Contains(t, string(metrics), "segment_run_seconds")
}

func TestResourceMetrics_NilSafe(t *testing.T) {
	var m *ResourceMetrics
	assert.NotPanics(t, func() {
		m.Record(context.Background(), ReadResourceStats(time.Now()))
	})
}

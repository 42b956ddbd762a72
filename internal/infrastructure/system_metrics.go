package infrastructure

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// ResourceMetrics records the Go runtime footprint of a run
type ResourceMetrics struct {
	goroutines metric.Int64Gauge
	heapAlloc  metric.Int64Gauge
	totalAlloc metric.Int64Gauge
	sys        metric.Int64Gauge
	gcCount    metric.Int64Gauge
	gcPause    metric.Float64Histogram
	cpuCount   metric.Int64Gauge
	runTime    metric.Float64Gauge
}

// NewResourceMetrics creates the runtime instruments on meter
func NewResourceMetrics(meter metric.Meter) (*ResourceMetrics, error) {
	goroutines, err := meter.Int64Gauge(
		"segment_goroutines",
		metric.WithDescription("Number of goroutines at the end of the run"),
	)
	if err != nil {
		return nil, err
	}

	heapAlloc, err := meter.Int64Gauge(
		"segment_heap_alloc_bytes",
		metric.WithDescription("Bytes of live heap objects"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	totalAlloc, err := meter.Int64Gauge(
		"segment_total_alloc_bytes",
		metric.WithDescription("Cumulative bytes allocated for heap objects"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	sys, err := meter.Int64Gauge(
		"segment_sys_bytes",
		metric.WithDescription("Memory obtained from the OS in bytes"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	gcCount, err := meter.Int64Gauge(
		"segment_gc_count",
		metric.WithDescription("Completed garbage collection cycles"),
	)
	if err != nil {
		return nil, err
	}

	gcPause, err := meter.Float64Histogram(
		"segment_gc_pause_seconds",
		metric.WithDescription("Duration of the most recent garbage collection pause"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	cpuCount, err := meter.Int64Gauge(
		"segment_cpu_count",
		metric.WithDescription("Number of logical CPUs"),
	)
	if err != nil {
		return nil, err
	}

	runTime, err := meter.Float64Gauge(
		"segment_run_seconds",
		metric.WithDescription("Wall time of the run in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &ResourceMetrics{
		goroutines: goroutines,
		heapAlloc:  heapAlloc,
		totalAlloc: totalAlloc,
		sys:        sys,
		gcCount:    gcCount,
		gcPause:    gcPause,
		cpuCount:   cpuCount,
		runTime:    runTime,
	}, nil
}

// ResourceStats is a snapshot of the runtime
type ResourceStats struct {
	Goroutines  int64
	HeapAlloc   int64
	TotalAlloc  int64
	Sys         int64
	GCCount     uint32
	LastGCPause time.Duration
	CPUCount    int
	RunTime     time.Duration
}

// ReadResourceStats snapshots the runtime; RunTime is measured from start
func ReadResourceStats(start time.Time) ResourceStats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return ResourceStats{
		Goroutines:  int64(runtime.NumGoroutine()),
		HeapAlloc:   int64(mem.HeapAlloc),
		TotalAlloc:  int64(mem.TotalAlloc),
		Sys:         int64(mem.Sys),
		GCCount:     mem.NumGC,
		LastGCPause: time.Duration(mem.PauseNs[(mem.NumGC+255)%256]),
		CPUCount:    runtime.NumCPU(),
		RunTime:     time.Since(start),
	}
}

// Record writes stats to the instruments. A nil receiver records nothing.
func (m *ResourceMetrics) Record(ctx context.Context, stats ResourceStats) {
	if m == nil {
		return
	}

	m.goroutines.Record(ctx, stats.Goroutines)
	m.heapAlloc.Record(ctx, stats.HeapAlloc)
	m.totalAlloc.Record(ctx, stats.TotalAlloc)
	m.sys.Record(ctx, stats.Sys)
	m.gcCount.Record(ctx, int64(stats.GCCount))
	m.cpuCount.Record(ctx, int64(stats.CPUCount))
	m.runTime.Record(ctx, stats.RunTime.Seconds())

	// no pause to report before the first collection
	if stats.GCCount > 0 {
		m.gcPause.Record(ctx, stats.LastGCPause.Seconds())
	}
}

// LogAttrs returns the snapshot as log attributes
func (s ResourceStats) LogAttrs() []any {
	return []any{
		slog.Int64("goroutines", s.Goroutines),
		slog.Int64("heap_alloc_bytes", s.HeapAlloc),
		slog.Int64("total_alloc_bytes", s.TotalAlloc),
		slog.Int64("sys_bytes", s.Sys),
		slog.Int("gc_count", int(s.GCCount)),
		slog.Duration("run_time", s.RunTime),
	}
}

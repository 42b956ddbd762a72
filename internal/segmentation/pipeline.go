package segmentation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/clustering"
	"github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/dataprocessing"
	apperrors "github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/errors"
	"github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/features"
	"github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/infrastructure"
	"github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/normalize"
	"github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/summary"
	"github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/pkg/contracts/domain"
)

// Model names used in logs, metrics and reports
const (
	ModelKMeans = "kmeans"
	ModelWard   = "ward"
)

// Result holds every product of one run. On failure it holds what the
// stages before the failing one produced.
type Result struct {
	RunID     string
	Source    string
	StartedAt time.Time

	Dataset      *domain.Dataset
	Customers    []features.Customer
	FeatureStats features.Stats
	// Modeled maps each matrix row to its index in Customers
	Modeled []int
	Matrix  *normalize.Matrix
	Scaler  *normalize.MinMaxScaler
	Skew    []dataprocessing.SkewResult

	Elbow         *clustering.ElbowResult
	KMeans        *clustering.KMeansResult
	KMeansLabels  []int
	KMeansSummary *summary.Table

	Hierarchy   *clustering.Hierarchy
	Cut         *clustering.Cut
	WardK       int
	WardLabels  []int
	WardSummary *summary.Table

	mu     sync.Mutex
	Stages []*StageReport
}

func (r *Result) addStage(s *StageReport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Stages = append(r.Stages, s)
}

// Stage returns the report of the named stage, or nil
func (r *Result) Stage(name string) *StageReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.Stages {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// Pipeline runs the segmentation stages in order: derive, normalize, then the
// centroid and hierarchical branches concurrently on the same matrix.
type Pipeline struct {
	opts      Options
	logger    *slog.Logger
	telemetry *infrastructure.Telemetry
	loader    *dataprocessing.Loader
	profiler  *dataprocessing.Profiler
}

// NewPipeline creates a pipeline. A nil logger uses slog.Default and nil
// telemetry records nothing.
func NewPipeline(opts Options, logger *slog.Logger, telemetry *infrastructure.Telemetry) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if telemetry == nil {
		telemetry = infrastructure.NoopTelemetry()
	}
	opts.KMeans.Logger = logger

	return &Pipeline{
		opts:      opts,
		logger:    infrastructure.WithComponent(logger, "pipeline"),
		telemetry: telemetry,
		loader:    dataprocessing.NewLoader(logger, opts.Loader),
		profiler:  dataprocessing.NewProfiler(logger, 0, 0),
	}
}

// Run loads the input at path and runs every stage on it
func (p *Pipeline) Run(ctx context.Context, path string) (*Result, error) {
	return p.run(ctx, path, p.process)
}

// Elbow loads the input at path and fits the candidate range only. Neither
// final model is built.
func (p *Pipeline) Elbow(ctx context.Context, path string) (*Result, error) {
	return p.run(ctx, path, func(ctx context.Context, res *Result) error {
		if err := p.prepare(ctx, res); err != nil {
			return err
		}
		_, err := p.selectK(ctx, res)
		return err
	})
}

func (p *Pipeline) run(ctx context.Context, path string, next func(context.Context, *Result) error) (*Result, error) {
	ctx = infrastructure.EnsureRunID(ctx)
	res := p.newResult(ctx, path)

	ctx, span := p.telemetry.Tracer.Start(ctx, "segment.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", res.RunID),
			attribute.String("input.path", path),
		),
	)
	defer span.End()

	err := p.stage(ctx, res, StageLoad, func(ctx context.Context, report *StageReport) error {
		ds, err := p.loader.Load(ctx, path)
		if err != nil {
			var violations apperrors.Violations
			if errors.As(err, &violations) {
				p.telemetry.Metrics.RecordsRejected.Add(ctx, int64(violations.Rows()))
			}
			return err
		}
		res.Dataset = ds
		report.Set("records", ds.Len())
		p.telemetry.Metrics.RecordsLoaded.Add(ctx, int64(ds.Len()))
		return nil
	})
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return res, err
	}

	err = next(ctx, res)
	p.recordResources(ctx, res)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return res, err
	}
	span.SetStatus(codes.Ok, "")
	return res, nil
}

// recordResources snapshots the runtime footprint once the stages are done
func (p *Pipeline) recordResources(ctx context.Context, res *Result) {
	stats := infrastructure.ReadResourceStats(res.StartedAt)
	p.telemetry.Resources.Record(ctx, stats)
	p.logger.DebugContext(ctx, "run resources", stats.LogAttrs()...)
}

// RunDataset runs every stage after loading on an already loaded dataset
func (p *Pipeline) RunDataset(ctx context.Context, ds *domain.Dataset) (*Result, error) {
	ctx = infrastructure.EnsureRunID(ctx)
	res := p.newResult(ctx, ds.Source)
	res.Dataset = ds

	ctx, span := p.telemetry.Tracer.Start(ctx, "segment.run",
		trace.WithAttributes(attribute.String("run.id", res.RunID)))
	defer span.End()

	load := NewStageReport(StageLoad)
	load.Skip("dataset supplied by caller")
	res.addStage(load)
	p.telemetry.Metrics.RecordsLoaded.Add(ctx, int64(ds.Len()))

	err := p.process(ctx, res)
	p.recordResources(ctx, res)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return res, err
	}
	span.SetStatus(codes.Ok, "")
	return res, nil
}

func (p *Pipeline) newResult(ctx context.Context, source string) *Result {
	return &Result{
		RunID:     infrastructure.GetRunID(ctx),
		Source:    source,
		StartedAt: time.Now(),
	}
}

// process runs everything after loading
func (p *Pipeline) process(ctx context.Context, res *Result) error {
	if err := p.prepare(ctx, res); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return p.centroidBranch(gctx, res) })
	g.Go(func() error { return p.hierarchicalBranch(gctx, res) })
	return g.Wait()
}

// prepare derives features, reports skewness and builds the matrix
func (p *Pipeline) prepare(ctx context.Context, res *Result) error {
	err := p.stage(ctx, res, StageDerive, func(ctx context.Context, report *StageReport) error {
		customers, stats, err := features.Derive(res.Dataset.Records, p.opts.Features)
		if err != nil {
			return err
		}
		res.Customers, res.FeatureStats = customers, stats
		report.Set("reference_date", stats.ReferenceDate.Format("2006-01-02"))
		report.Set("zero_orders", stats.ZeroOrders)
		report.Set("excluded", stats.Excluded)
		p.telemetry.Metrics.RecordsExcluded.Add(ctx, int64(stats.Excluded))
		return nil
	})
	if err != nil {
		return err
	}

	modeled, index := features.Modeled(res.Customers)
	res.Modeled = index

	err = p.stage(ctx, res, StageSkew, func(ctx context.Context, report *StageReport) error {
		values, err := features.Columns(modeled, domain.NumericColumns)
		if err != nil {
			return err
		}
		res.Skew, err = p.profiler.SkewReport(ctx, domain.NumericColumns, values)
		return err
	})
	if err != nil {
		return err
	}

	return p.stage(ctx, res, StageNormalize, func(ctx context.Context, report *StageReport) error {
		m, scaler, err := normalize.Normalize(modeled, p.opts.Normalize)
		if err != nil {
			return err
		}
		res.Matrix, res.Scaler = m, scaler
		report.Set("rows", m.Len())
		report.Set("columns", m.Dim())
		return nil
	})
}

func (p *Pipeline) centroidBranch(ctx context.Context, res *Result) error {
	k := p.opts.K
	if k > 0 {
		skip := NewStageReport(StageSelectK)
		skip.Skip(fmt.Sprintf("k fixed to %d by configuration", k))
		res.addStage(skip)
	} else {
		var err error
		if k, err = p.selectK(ctx, res); err != nil {
			return err
		}
	}

	err := p.stage(ctx, res, StageKMeans, func(ctx context.Context, report *StageReport) error {
		km, err := clustering.KMeans(ctx, res.Matrix, k, p.opts.KMeans)
		if err != nil {
			return err
		}
		res.KMeans = km
		res.KMeansLabels = expandLabels(res.Modeled, km.Labels, len(res.Customers))
		report.Set("k", k)
		report.Set("inertia", km.Inertia)
		report.Set("iterations", km.Iterations)

		model := metric.WithAttributes(attribute.String("model", ModelKMeans))
		p.telemetry.Metrics.ClusterCount.Record(ctx, int64(k), model)
		p.telemetry.Metrics.KMeansInertia.Record(ctx, km.Inertia)
		p.recordSegments(ctx, ModelKMeans, res.KMeansLabels)
		return nil
	})
	if err != nil {
		return err
	}

	return p.stage(ctx, res, StageSummarizeKMeans, func(ctx context.Context, report *StageReport) error {
		table, err := summary.Summarize(res.Customers, res.KMeansLabels, p.opts.Summary)
		if err != nil {
			return err
		}
		res.KMeansSummary = table
		report.Set("segments", len(table.Segments))
		return nil
	})
}

func (p *Pipeline) selectK(ctx context.Context, res *Result) (int, error) {
	err := p.stage(ctx, res, StageSelectK, func(ctx context.Context, report *StageReport) error {
		elbow, err := clustering.SelectK(ctx, res.Matrix, p.opts.KRange, p.opts.KMeans)
		if err != nil {
			return err
		}
		res.Elbow = elbow
		report.Set("k", elbow.K)
		report.Set("candidates", len(elbow.Candidates))
		return nil
	})
	if err != nil {
		return 0, err
	}
	return res.Elbow.K, nil
}

func (p *Pipeline) hierarchicalBranch(ctx context.Context, res *Result) error {
	if !p.opts.WardEnabled {
		for _, name := range []string{StageWard, StageCut, StageSummarizeWard} {
			skip := NewStageReport(name)
			skip.Skip("hierarchical clustering disabled")
			res.addStage(skip)
		}
		return nil
	}

	err := p.stage(ctx, res, StageWard, func(ctx context.Context, report *StageReport) error {
		h, err := clustering.Ward(ctx, res.Matrix)
		if err != nil {
			return err
		}
		res.Hierarchy = h
		report.Set("merges", len(h.Merges))
		return nil
	})
	if err != nil {
		return err
	}

	err = p.stage(ctx, res, StageCut, func(ctx context.Context, report *StageReport) error {
		cut, err := clustering.SelectCut(res.Hierarchy.Distances())
		switch {
		case err == nil:
			res.Cut = &cut
			res.WardK = cut.Clusters
			report.Set("height", cut.Height)
			report.Set("implied_clusters", cut.Clusters)
		case p.opts.WardClusters > 0 && errors.Is(err, apperrors.ErrDegenerateClustering):
			p.logger.WarnContext(ctx, "no cut height found, using configured cluster count",
				slog.String("error", err.Error()))
		default:
			return err
		}

		if p.opts.WardClusters > 0 {
			res.WardK = p.opts.WardClusters
		}
		labels, err := res.Hierarchy.Cut(res.WardK)
		if err != nil {
			return err
		}
		res.WardLabels = expandLabels(res.Modeled, labels, len(res.Customers))
		report.Set("clusters", res.WardK)

		p.telemetry.Metrics.ClusterCount.Record(ctx, int64(res.WardK),
			metric.WithAttributes(attribute.String("model", ModelWard)))
		p.recordSegments(ctx, ModelWard, res.WardLabels)
		return nil
	})
	if err != nil {
		return err
	}

	return p.stage(ctx, res, StageSummarizeWard, func(ctx context.Context, report *StageReport) error {
		table, err := summary.Summarize(res.Customers, res.WardLabels, p.opts.Summary)
		if err != nil {
			return err
		}
		res.WardSummary = table
		report.Set("segments", len(table.Segments))
		return nil
	})
}

// stage runs fn inside a span and records its report, log lines and metrics
func (p *Pipeline) stage(ctx context.Context, res *Result, name string, fn func(context.Context, *StageReport) error) error {
	report := NewStageReport(name)
	res.addStage(report)

	ctx, span := p.telemetry.Tracer.Start(ctx, "segment."+name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", res.RunID),
			attribute.String("stage", name),
		),
	)
	defer span.End()

	report.Start()
	p.logger.InfoContext(ctx, "stage_start", slog.String("stage", name))

	err := fn(ctx, report)
	if err != nil {
		report.Fail(err)
		infrastructure.RecordError(ctx, err)
		p.logger.ErrorContext(ctx, "stage_error",
			slog.String("stage", name),
			slog.String("error", err.Error()))
	} else {
		report.Complete()
		infrastructure.SetSpanAttributes(ctx, report.Snapshot())
		span.SetStatus(codes.Ok, "")
		p.logger.InfoContext(ctx, "stage_complete",
			slog.String("stage", name),
			slog.Duration("duration", report.Duration()))
	}

	infrastructure.RecordStageMetrics(ctx, p.telemetry.Metrics, name, report.Duration(), err)
	return err
}

// recordSegments logs and records the size of every segment
func (p *Pipeline) recordSegments(ctx context.Context, model string, labels []int) {
	counts := summary.ValueCounts(labels)
	p.logger.InfoContext(ctx, "segment sizes",
		slog.String("model", model),
		slog.Any("counts", counts))

	for _, c := range counts {
		p.telemetry.Metrics.SegmentMembers.Record(ctx, int64(c.Count), metric.WithAttributes(
			attribute.String("model", model),
			attribute.String("segment", strconv.Itoa(c.Label)),
		))
	}
}

// expandLabels spreads matrix-row labels over all customers; rows left out
// of modeling get summary.Unlabeled.
func expandLabels(modeled, labels []int, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = summary.Unlabeled
	}
	for row, customer := range modeled {
		out[customer] = labels[row]
	}
	return out
}

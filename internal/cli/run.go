package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/config"
	"github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/exporter"
	"github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/infrastructure"
	"github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/render"
	"github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/segmentation"
)

type runFlags struct {
	k            int
	kMin         int
	kMax         int
	seed         int64
	nInit        int
	workers      int
	wardClusters int
	noWard       bool
	zeroOrders   string
	noBOM        bool
	noXLSX       bool
	noHTML       bool
	noJSON       bool
	telemetry    bool
	traceFile    string
	metricsFile  string
}

func newRunCommand(g *globalFlags) *cobra.Command {
	f := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run [input]",
		Short: "Segment customers and write every output",
		Long: `Run the full pipeline on a CSV or XLSX file of customer records: derive
features, normalize, select k, fit k-means and Ward clustering, summarize
both models and write the labeled dataset, reports, workbook and charts.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig(cmd, args, func(cfg *config.Config) { f.apply(cmd, cfg) })
			if err != nil {
				return err
			}
			return runSegmentation(cmd, cfg)
		},
	}

	fs := cmd.Flags()
	fs.IntVarP(&f.k, "k", "k", 0, "fixed k-means cluster count; 0 selects k with the elbow method")
	fs.IntVar(&f.kMin, "k-min", 0, "smallest elbow candidate")
	fs.IntVar(&f.kMax, "k-max", 0, "largest elbow candidate")
	fs.Int64Var(&f.seed, "seed", 0, "random seed for k-means seeding")
	fs.IntVar(&f.nInit, "n-init", 0, "k-means restarts; the lowest inertia wins")
	fs.IntVar(&f.workers, "workers", 0, "concurrent elbow fits")
	fs.IntVar(&f.wardClusters, "ward-clusters", 0, "fixed hierarchical cluster count; 0 uses the cut")
	fs.BoolVar(&f.noWard, "no-ward", false, "skip hierarchical clustering")
	fs.StringVar(&f.zeroOrders, "zero-orders", "", "zero-order policy: exclude, zero or fail")
	fs.BoolVar(&f.noBOM, "no-bom", false, "write the labeled CSV without a UTF-8 BOM")
	fs.BoolVar(&f.noXLSX, "no-xlsx", false, "skip the segment workbook")
	fs.BoolVar(&f.noHTML, "no-html", false, "skip the HTML charts")
	fs.BoolVar(&f.noJSON, "no-json", false, "skip the JSON run report")
	fs.BoolVar(&f.telemetry, "telemetry", false, "record traces and metrics")
	fs.StringVar(&f.traceFile, "trace-file", "", "write spans to this file")
	fs.StringVar(&f.metricsFile, "metrics-file", "", "write Prometheus metrics to this file")

	return cmd
}

// apply copies every flag the user set onto cfg
func (f *runFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	fs := cmd.Flags()
	if fs.Changed("k") {
		cfg.Clustering.K = f.k
	}
	if fs.Changed("k-min") {
		cfg.Clustering.KMin = f.kMin
	}
	if fs.Changed("k-max") {
		cfg.Clustering.KMax = f.kMax
	}
	if fs.Changed("seed") {
		cfg.Clustering.Seed = f.seed
	}
	if fs.Changed("n-init") {
		cfg.Clustering.NInit = f.nInit
	}
	if fs.Changed("workers") {
		cfg.Clustering.Workers = f.workers
	}
	if fs.Changed("ward-clusters") {
		cfg.Clustering.WardClusters = f.wardClusters
	}
	if f.noWard {
		cfg.Clustering.WardEnabled = false
	}
	if fs.Changed("zero-orders") {
		cfg.Features.ZeroOrderPolicy = f.zeroOrders
	}
	if f.noBOM {
		cfg.Output.BOM = false
	}
	if f.noXLSX {
		cfg.Output.XLSX = false
	}
	if f.noHTML {
		cfg.Output.HTML = false
	}
	if f.noJSON {
		cfg.Output.JSON = false
	}
	if f.telemetry {
		cfg.Telemetry.Enabled = true
	}
	if fs.Changed("trace-file") {
		cfg.Telemetry.TraceFile = f.traceFile
	}
	if fs.Changed("metrics-file") {
		cfg.Telemetry.MetricsFile = f.metricsFile
	}
}

// runSegmentation runs the pipeline and writes its outputs. The run report
// is written even when the pipeline fails.
func runSegmentation(cmd *cobra.Command, cfg *config.Config) error {
	s, err := newSession(cmd, cfg)
	if err != nil {
		return err
	}
	defer s.close()

	ctx := infrastructure.EnsureRunID(cmd.Context())
	s.logger.InfoContext(ctx, "segmentation starting",
		slog.String("input", cfg.Input.Path),
		slog.String("output_dir", cfg.Output.Dir),
		slog.Int("k", cfg.Clustering.K))

	pipeline := segmentation.NewPipeline(segmentation.OptionsFromConfig(cfg), s.logger, s.telemetry)
	res, runErr := pipeline.Run(ctx, cfg.Input.Path)

	exp := exporter.NewExporter(cfg.Output.Dir, cfg.Output.BOM, s.logger)
	if cfg.Output.JSON {
		if _, err := exp.WriteRunReport(res, cfg, runErr); err != nil {
			if runErr == nil {
				return s.fail(ctx, "run report failed", err)
			}
			s.logger.ErrorContext(ctx, "run report failed", slog.String("error", err.Error()))
		}
	}
	if runErr != nil {
		return s.fail(ctx, "segmentation failed", runErr)
	}

	if _, err := exp.WriteLabeledCSV(res); err != nil {
		return s.fail(ctx, "labeled dataset failed", err)
	}
	if _, err := exp.WriteSummaryReport(res); err != nil {
		return s.fail(ctx, "summary report failed", err)
	}
	if res.Elbow != nil {
		if _, err := exp.WriteElbowCSV(res.Elbow); err != nil {
			return s.fail(ctx, "elbow table failed", err)
		}
	}
	if cfg.Output.XLSX {
		if _, err := exp.WriteWorkbook(res); err != nil {
			return s.fail(ctx, "workbook failed", err)
		}
	}
	if cfg.Output.HTML {
		if _, err := render.NewRenderer(cfg.Output.Dir, s.logger).WriteAll(res); err != nil {
			return s.fail(ctx, "charts failed", err)
		}
	}

	if err := exporter.WriteSummaryText(cmd.OutOrStdout(), res); err != nil {
		return s.fail(ctx, "summary output failed", err)
	}

	s.logger.InfoContext(ctx, "segmentation complete",
		slog.Int("customers", len(res.Customers)),
		slog.Int("kmeans_clusters", res.KMeans.K),
		slog.Int("ward_clusters", res.WardK))
	return nil
}

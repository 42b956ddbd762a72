package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/clustering"
	"github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/config"
	"github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/exporter"
	"github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/infrastructure"
	"github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/render"
	"github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/segmentation"
)

func newElbowCommand(g *globalFlags) *cobra.Command {
	var (
		kMin, kMax int
		seed       int64
		workers    int
		noHTML     bool
	)

	cmd := &cobra.Command{
		Use:   "elbow [input]",
		Short: "Fit the candidate range and report the elbow",
		Long: `Fit k-means for every k in the candidate range, print the inertia table
with its second differences and the selected k, and write elbow.csv
and elbow.html.
No final model is fitted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig(cmd, args, func(cfg *config.Config) {
				// a fixed k from the config file does not apply here
				cfg.Clustering.K = 0
				fs := cmd.Flags()
				if fs.Changed("k-min") {
					cfg.Clustering.KMin = kMin
				}
				if fs.Changed("k-max") {
					cfg.Clustering.KMax = kMax
				}
				if fs.Changed("seed") {
					cfg.Clustering.Seed = seed
				}
				if fs.Changed("workers") {
					cfg.Clustering.Workers = workers
				}
				if noHTML {
					cfg.Output.HTML = false
				}
			})
			if err != nil {
				return err
			}
			return runElbow(cmd, cfg)
		},
	}

	fs := cmd.Flags()
	fs.IntVar(&kMin, "k-min", 0, "smallest candidate")
	fs.IntVar(&kMax, "k-max", 0, "largest candidate")
	fs.Int64Var(&seed, "seed", 0, "random seed for k-means seeding")
	fs.IntVar(&workers, "workers", 0, "concurrent fits")
	fs.BoolVar(&noHTML, "no-html", false, "skip elbow.html")

	return cmd
}

func runElbow(cmd *cobra.Command, cfg *config.Config) error {
	s, err := newSession(cmd, cfg)
	if err != nil {
		return err
	}
	defer s.close()

	ctx := infrastructure.EnsureRunID(cmd.Context())
	pipeline := segmentation.NewPipeline(segmentation.OptionsFromConfig(cfg), s.logger, s.telemetry)
	res, err := pipeline.Elbow(ctx, cfg.Input.Path)
	if err != nil {
		return s.fail(ctx, "elbow selection failed", err)
	}

	if _, err := exporter.NewExporter(cfg.Output.Dir, cfg.Output.BOM, s.logger).WriteElbowCSV(res.Elbow); err != nil {
		return s.fail(ctx, "elbow table failed", err)
	}
	if cfg.Output.HTML {
		if _, err := render.NewRenderer(cfg.Output.Dir, s.logger).WriteElbow(res.Elbow); err != nil {
			return s.fail(ctx, "elbow chart failed", err)
		}
	}
	return writeElbowTable(cmd.OutOrStdout(), res.Elbow)
}

// writeElbowTable prints one line per candidate. Only interior candidates
// have a second difference.
func writeElbowTable(w io.Writer, e *clustering.ElbowResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "k\tinertia\tsecond diff\t\t")
	for i, c := range e.Candidates {
		score := "-"
		if i > 0 && i <= len(e.Scores) {
			score = fmt.Sprintf("%.4f", e.Scores[i-1])
		}
		mark := ""
		if c.K == e.K {
			mark = "<- elbow"
		}
		fmt.Fprintf(tw, "%d\t%.4f\t%s\t%s\t\n", c.K, c.Inertia, score, mark)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "selected k=%d\n", e.K)
	return err
}

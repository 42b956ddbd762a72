package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/config"
	"github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/dataprocessing"
	"github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/features"
	"github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/segmentation"
	"github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/pkg/contracts/domain"
)

// description is what describe prints
type description struct {
	Profile       *dataprocessing.DatasetProfile `json:"profile"`
	ReferenceDate string                         `json:"reference_date"`
	ZeroOrders    int                            `json:"zero_orders"`
	Skew          []dataprocessing.SkewResult    `json:"skew"`
}

func newDescribeCommand(g *globalFlags) *cobra.Command {
	var (
		asJSON    bool
		topValues int
		headRows  int
	)

	cmd := &cobra.Command{
		Use:   "describe [input]",
		Short: "Profile the input and report skewness",
		Long: `Load the input, print its shape, column types, missing values, descriptive
statistics and the most frequent categorical values, then derive features
and report skewness with D'Agostino's test for every numeric column.
Nothing is written to the output directory.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig(cmd, args, nil)
			if err != nil {
				return err
			}
			return describe(cmd, cfg, asJSON, topValues, headRows)
		},
	}

	fs := cmd.Flags()
	fs.BoolVar(&asJSON, "json", false, "print the description as JSON")
	fs.IntVar(&topValues, "top", dataprocessing.DefaultTopValues, "values listed per categorical column")
	fs.IntVar(&headRows, "head", 5, "leading rows to print")

	return cmd
}

func describe(cmd *cobra.Command, cfg *config.Config, asJSON bool, topValues, headRows int) error {
	s, err := newSession(cmd, cfg)
	if err != nil {
		return err
	}
	defer s.close()

	ctx := cmd.Context()
	opts := segmentation.OptionsFromConfig(cfg)

	ds, err := dataprocessing.NewLoader(s.logger, opts.Loader).Load(ctx, cfg.Input.Path)
	if err != nil {
		return s.fail(ctx, "load failed", err)
	}

	profiler := dataprocessing.NewProfiler(s.logger, topValues, headRows)
	profile, err := profiler.Profile(ctx, ds)
	if err != nil {
		return s.fail(ctx, "profile failed", err)
	}

	customers, stats, err := features.Derive(ds.Records, opts.Features)
	if err != nil {
		return s.fail(ctx, "feature derivation failed", err)
	}
	modeled, _ := features.Modeled(customers)
	values, err := features.Columns(modeled, domain.NumericColumns)
	if err != nil {
		return s.fail(ctx, "feature columns failed", err)
	}
	skew, err := profiler.SkewReport(ctx, domain.NumericColumns, values)
	if err != nil {
		return s.fail(ctx, "skew report failed", err)
	}

	d := description{
		Profile:       profile,
		ReferenceDate: stats.ReferenceDate.Format("2006-01-02"),
		ZeroOrders:    stats.ZeroOrders,
		Skew:          skew,
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(d)
	}
	return d.writeText(out)
}

func (d *description) writeText(w io.Writer) error {
	p := d.Profile
	fmt.Fprintf(w, "Shape: %d rows, %d columns\n", p.Rows, p.Columns)
	fmt.Fprintf(w, "Reference date: %s (%d customers without orders)\n\n", d.ReferenceDate, d.ZeroOrders)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "column\ttype\tmissing\tunique\t")
	for _, c := range p.ColumnInfo {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t\n", c.Name, c.Type, c.Missing, c.Unique)
	}
	fmt.Fprintln(tw)

	if len(p.Head) > 0 {
		fmt.Fprintln(tw, "Head")
		for _, row := range p.Head {
			fmt.Fprintln(tw, strings.Join(row, "\t")+"\t")
		}
		fmt.Fprintln(tw)
	}

	if len(p.Describe) > 0 {
		fmt.Fprintln(tw, "Statistics")
		for _, row := range p.Describe {
			fmt.Fprintln(tw, strings.Join(row, "\t")+"\t")
		}
		fmt.Fprintln(tw)
	}

	for _, c := range p.Categorical {
		fmt.Fprintf(tw, "Top values of %s\n", c.Column)
		for _, v := range c.Values {
			fmt.Fprintf(tw, "  %s\t%d\t\n", v.Value, v.Count)
		}
		fmt.Fprintln(tw)
	}

	fmt.Fprintln(tw, "Skewness")
	fmt.Fprintln(tw, "column\tn\tskew\tz\tp-value\t")
	for _, s := range d.Skew {
		z, pv := "-", "-"
		if s.Tested {
			z = strconv.FormatFloat(s.Z, 'f', 3, 64)
			pv = strconv.FormatFloat(s.PValue, 'g', 4, 64)
		}
		fmt.Fprintf(tw, "%s\t%d\t%.3f\t%s\t%s\t\n", s.Column, s.N, s.Skew, z, pv)
	}

	return tw.Flush()
}

package exporter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/clustering"
	"github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/config"
	"github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/dataprocessing"
	apperrors "github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/errors"
	"github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/normalize"
	"github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/segmentation"
	"github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/summary"
	"github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/pkg/contracts"
)

// MergeTailSize is how many final merges the run report lists
const MergeTailSize = 20

// RunReport is the machine-readable record of one run
type RunReport struct {
	FormatVersion string         `json:"format_version"`
	Version       string         `json:"version"`
	RunID         string         `json:"run_id"`
	Source        string         `json:"source"`
	StartedAt     time.Time      `json:"started_at"`
	FinishedAt    time.Time      `json:"finished_at"`
	Status        string         `json:"status"`
	Error         string         `json:"error,omitempty"`
	Config        *config.Config `json:"config,omitempty"`

	Records       int        `json:"records"`
	ReferenceDate *time.Time `json:"reference_date,omitempty"`
	ZeroOrders    int        `json:"zero_orders"`
	Excluded      int        `json:"excluded"`

	Skew   []dataprocessing.SkewResult `json:"skew,omitempty"`
	Scaler *normalize.MinMaxScaler     `json:"scaler,omitempty"`

	Elbow  *clustering.ElbowResult `json:"elbow,omitempty"`
	KMeans *KMeansReport           `json:"kmeans,omitempty"`
	Ward   *WardReport             `json:"ward,omitempty"`

	Stages []*segmentation.StageReport `json:"stages"`
}

// KMeansReport describes the centroid model
type KMeansReport struct {
	K          int                  `json:"k"`
	Inertia    float64              `json:"inertia"`
	Iterations int                  `json:"iterations"`
	Converged  bool                 `json:"converged"`
	Sizes      []int                `json:"sizes"`
	Counts     []summary.LabelCount `json:"counts"`
	Summary    *summary.Table       `json:"summary,omitempty"`
}

// WardReport describes the hierarchical model
type WardReport struct {
	Clusters  int                  `json:"clusters"`
	Cut       *clustering.Cut      `json:"cut,omitempty"`
	MergeTail []clustering.Merge   `json:"merge_tail"`
	Counts    []summary.LabelCount `json:"counts,omitempty"`
	Summary   *summary.Table       `json:"summary,omitempty"`
}

// BuildRunReport collects a run's results; runErr is the error the run ended with, if any
func BuildRunReport(res *segmentation.Result, cfg *config.Config, runErr error) *RunReport {
	report := &RunReport{
		FormatVersion: contracts.ReportFormatVersion,
		Version:       contracts.Version,
		RunID:         res.RunID,
		Source:        res.Source,
		StartedAt:     res.StartedAt,
		FinishedAt:    time.Now(),
		Status:        "completed",
		Config:        cfg,
		Skew:          res.Skew,
		Scaler:        res.Scaler,
		Elbow:         res.Elbow,
		Stages:        res.Stages,
	}
	if runErr != nil {
		report.Status = "failed"
		report.Error = runErr.Error()
	}

	if res.Dataset != nil {
		report.Records = res.Dataset.Len()
	}
	if res.Customers != nil {
		ref := res.FeatureStats.ReferenceDate
		report.ReferenceDate = &ref
		report.ZeroOrders = res.FeatureStats.ZeroOrders
		report.Excluded = res.FeatureStats.Excluded
	}

	if km := res.KMeans; km != nil {
		report.KMeans = &KMeansReport{
			K:          km.K,
			Inertia:    km.Inertia,
			Iterations: km.Iterations,
			Converged:  km.Converged,
			Sizes:      km.Sizes,
			Counts:     summary.ValueCounts(res.KMeansLabels),
			Summary:    res.KMeansSummary,
		}
	}

	if h := res.Hierarchy; h != nil {
		report.Ward = &WardReport{
			Clusters:  res.WardK,
			Cut:       res.Cut,
			MergeTail: h.Tail(MergeTailSize),
			Summary:   res.WardSummary,
		}
		if res.WardLabels != nil {
			report.Ward.Counts = summary.ValueCounts(res.WardLabels)
		}
	}

	return report
}

// WriteRunReport writes run_report.json
func (e *Exporter) WriteRunReport(res *segmentation.Result, cfg *config.Config, runErr error) (string, error) {
	data, err := json.MarshalIndent(BuildRunReport(res, cfg, runErr), "", "  ")
	if err != nil {
		return "", apperrors.NewIOError("failed to encode run report", err)
	}
	return e.writeFile(config.RunReportFile, append(data, '\n'))
}

// WriteSummaryReport writes the ranked segment tables of both models as text
func (e *Exporter) WriteSummaryReport(res *segmentation.Result) (string, error) {
	var buf bytes.Buffer
	if err := WriteSummaryText(&buf, res); err != nil {
		return "", apperrors.NewIOError("failed to render summary report", err)
	}
	return e.writeFile(config.SummaryReportFile, buf.Bytes())
}

// WriteSummaryText renders the run header, the elbow table, the cut and the
// ranked segment tables of both models.
func WriteSummaryText(w io.Writer, res *segmentation.Result) error {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Customer segmentation run %s\n", res.RunID)
	fmt.Fprintf(&buf, "Source: %s\n", res.Source)
	if res.Customers != nil {
		fmt.Fprintf(&buf, "Customers: %d (reference date %s, %d excluded from modeling)\n",
			len(res.Customers), res.FeatureStats.ReferenceDate.Format("2006-01-02"), res.FeatureStats.Excluded)
	}
	fmt.Fprintln(&buf)

	if res.Elbow != nil {
		fmt.Fprintf(&buf, "Elbow selection: k=%d\n", res.Elbow.K)
		for _, c := range res.Elbow.Candidates {
			fmt.Fprintf(&buf, "  k=%-3d inertia=%.4f\n", c.K, c.Inertia)
		}
		fmt.Fprintln(&buf)
	}

	if res.KMeansSummary != nil {
		title := fmt.Sprintf("K-means segments (k=%d)", res.KMeans.K)
		if err := res.KMeansSummary.WriteText(&buf, title); err != nil {
			return err
		}
	}

	if res.Cut != nil {
		fmt.Fprintf(&buf, "Hierarchical cut at height %.4f (gap %.4f between %.4f and %.4f) implies %d clusters\n\n",
			res.Cut.Height, res.Cut.Gap, res.Cut.Lower, res.Cut.Upper, res.Cut.Clusters)
	}
	if res.WardSummary != nil {
		title := fmt.Sprintf("Hierarchical segments (k=%d)", res.WardK)
		if err := res.WardSummary.WriteText(&buf, title); err != nil {
			return err
		}
	}

	_, err := w.Write(buf.Bytes())
	return err
}

func (e *Exporter) writeFile(name string, data []byte) (string, error) {
	path := filepath.Join(e.dir, name)
	if err := os.MkdirAll(e.dir, 0755); err != nil {
		return "", apperrors.NewIOError("failed to create output directory", err).WithContext("dir", e.dir)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", apperrors.NewIOError(fmt.Sprintf("failed to write %s", name), err).WithContext("path", path)
	}

	e.logger.Info("report written", slog.String("path", path), slog.Int("bytes", len(data)))
	return path, nil
}

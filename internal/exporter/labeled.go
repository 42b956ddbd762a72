package exporter

import (
	"fmt"
	"log/slog"

	"github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/config"
	apperrors "github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/errors"
	"github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/infrastructure"
	"github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/segmentation"
	"github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/pkg/contracts/domain"
)

// Exporter persists the products of a segmentation run under one directory
type Exporter struct {
	dir    string
	bom    bool
	logger *slog.Logger
	csv    *CSVWriter
}

// NewExporter creates an exporter writing into dir
func NewExporter(dir string, bom bool, logger *slog.Logger) *Exporter {
	logger = infrastructure.WithComponent(logger, "exporter")
	return &Exporter{
		dir:    dir,
		bom:    bom,
		logger: logger,
		csv:    NewCSVWriter(dir, logger),
	}
}

// LabeledHeader is the column order of the labeled dataset: the input
// columns as read, then derived features, then flags and labels.
func LabeledHeader(input []string) []string {
	header := make([]string, 0, len(input)+len(domain.DerivedColumns)+3)
	header = append(header, input...)
	header = append(header, domain.DerivedColumns...)
	return append(header, domain.ColZeroOrders, domain.ColCluster, domain.ColWardCluster)
}

// WriteLabeledCSV writes every customer with its original fields, derived
// features and both cluster labels. Unlabeled rows have empty label cells.
func (e *Exporter) WriteLabeledCSV(res *segmentation.Result) (string, error) {
	if res.Dataset == nil || res.Customers == nil {
		return "", apperrors.NewIOError("nothing to write: the run produced no customers", nil)
	}

	stream, err := e.csv.CreateStreamWriter(config.LabeledCSVFile, LabeledHeader(res.Dataset.Header), e.bom)
	if err != nil {
		return "", apperrors.NewIOError("failed to create labeled dataset", err)
	}

	row := make([]string, 0, len(res.Dataset.Header)+len(domain.DerivedColumns)+3)
	for i, c := range res.Customers {
		row = row[:0]
		row = append(row, c.Record.Fields...)
		row = append(row,
			formatFloat(c.TotalOrderNum),
			c.TotalCustomerValue.String(),
			formatInt(c.Recency),
			formatInt(c.Tenure),
			formatFloat(c.AvgOrderValue),
			formatFloat(c.OnlineRatio),
			formatBool(c.ZeroOrders),
			formatLabel(res.KMeansLabels, i),
			formatLabel(res.WardLabels, i),
		)
		if err := stream.WriteRecord(row); err != nil {
			stream.Close()
			return "", apperrors.NewIOError(fmt.Sprintf("failed to write row %d", i+1), err)
		}
	}

	if err := stream.Close(); err != nil {
		return "", apperrors.NewIOError("failed to write labeled dataset", err)
	}

	e.logger.Info("labeled dataset written",
		slog.String("path", stream.Path()),
		slog.Int("rows", len(res.Customers)))
	return stream.Path(), nil
}

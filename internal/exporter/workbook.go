package exporter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/config"
	apperrors "github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/errors"
	"github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/segmentation"
	"github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/summary"
)

// Workbook sheet names
const (
	SheetKMeans  = "kmeans_segments"
	SheetWard    = "ward_segments"
	SheetElbow   = "elbow"
	SheetLinkage = "linkage"
)

// WriteWorkbook writes segments.xlsx with one sheet per summary plus the
// elbow table and the linkage matrix. Sheets without data are left out.
func (e *Exporter) WriteWorkbook(res *segmentation.Result) (string, error) {
	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return "", apperrors.NewIOError("failed to create workbook style", err)
	}

	var sheets []string
	addSheet := func(name string, header []string, rows [][]interface{}) error {
		if len(sheets) == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return err
		}
		sheets = append(sheets, name)

		cells := make([]interface{}, len(header))
		for i, h := range header {
			cells[i] = h
		}
		if err := f.SetSheetRow(name, "A1", &cells); err != nil {
			return err
		}
		if err := f.SetRowStyle(name, 1, 1, bold); err != nil {
			return err
		}
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(name, cell, &row); err != nil {
				return err
			}
		}
		return nil
	}

	if res.KMeansSummary != nil {
		header, rows := summaryRows(res.KMeansSummary)
		if err := addSheet(SheetKMeans, header, rows); err != nil {
			return "", apperrors.NewIOError("failed to write k-means sheet", err)
		}
	}
	if res.WardSummary != nil {
		header, rows := summaryRows(res.WardSummary)
		if err := addSheet(SheetWard, header, rows); err != nil {
			return "", apperrors.NewIOError("failed to write hierarchical sheet", err)
		}
	}
	if res.Elbow != nil {
		rows := make([][]interface{}, len(res.Elbow.Candidates))
		for i, c := range res.Elbow.Candidates {
			selected := ""
			if c.K == res.Elbow.K {
				selected = "selected"
			}
			rows[i] = []interface{}{c.K, c.Inertia, selected}
		}
		if err := addSheet(SheetElbow, []string{"k", "inertia", "choice"}, rows); err != nil {
			return "", apperrors.NewIOError("failed to write elbow sheet", err)
		}
	}
	if res.Hierarchy != nil {
		rows := make([][]interface{}, len(res.Hierarchy.Merges))
		for i, m := range res.Hierarchy.Merges {
			rows[i] = []interface{}{i, m.Left, m.Right, m.Distance, m.Size}
		}
		if err := addSheet(SheetLinkage, []string{"merge", "left", "right", "distance", "size"}, rows); err != nil {
			return "", apperrors.NewIOError("failed to write linkage sheet", err)
		}
	}

	if len(sheets) == 0 {
		return "", apperrors.NewIOError("nothing to write: the run produced no summaries", nil)
	}
	f.SetActiveSheet(0)

	if err := os.MkdirAll(e.dir, 0755); err != nil {
		return "", apperrors.NewIOError("failed to create output directory", err)
	}
	path := filepath.Join(e.dir, config.WorkbookFile)
	if err := f.SaveAs(path); err != nil {
		return "", apperrors.NewIOError(fmt.Sprintf("failed to save %s", config.WorkbookFile), err)
	}

	e.logger.Info("workbook written", slog.String("path", path), slog.Any("sheets", sheets))
	return path, nil
}

// summaryRows flattens a summary table into one row per segment
func summaryRows(t *summary.Table) ([]string, [][]interface{}) {
	header := []string{"segment", "count"}
	for _, f := range t.Features {
		header = append(header, f+"_mean", f+"_min", f+"_max")
	}

	rows := make([][]interface{}, len(t.Segments))
	for i, s := range t.Segments {
		row := []interface{}{s.Label, s.Count}
		for _, st := range s.Stats {
			row = append(row, st.Mean, st.Min, st.Max)
		}
		rows[i] = row
	}
	return header, rows
}

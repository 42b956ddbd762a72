// Package exporter persists the results of a segmentation run.
//
// This package contains four writers, all rooted at one output directory:
//
// CSVWriter: Core CSV writing with headers, streaming, and an optional UTF-8
// BOM for Excel compatibility.
//
// WriteLabeledCSV: The labeled dataset. Every input column keeps its original
// text, followed by the derived features, the zero-order flag and both
// cluster labels. Rows left out of modeling have empty label cells.
//
// WriteSummaryReport and WriteRunReport: The ranked segment tables as text and
// the full run record (configuration, elbow table, cut, merge tail, stage
// reports) as JSON.
//
// WriteWorkbook: An .xlsx workbook with the summaries, the elbow table and the
// linkage matrix.
//
// Example usage:
//
//	exp := exporter.NewExporter(cfg.Output.Dir, cfg.Output.BOM, logger)
//	if _, err := exp.WriteLabeledCSV(res); err != nil {
//	    return err
//	}
//	_, err = exp.WriteRunReport(res, cfg, runErr)
package exporter

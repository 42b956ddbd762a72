// Package segmentation runs the customer segmentation pipeline.
//
// A run loads customer records, derives behavioral features, reports their
// skewness, builds the normalized matrix and then runs two branches
// concurrently on that matrix:
//
//   - centroid: elbow selection of k (unless k is fixed), k-means, summary
//   - hierarchical: Ward tree, max-gap cut, flat labels, summary
//
// Every stage gets a StageReport, a trace span, a log line at start and end,
// and duration and error metrics. A failed run still returns the Result
// built so far so callers can persist the stage reports.
//
// Usage:
//
//	pipeline := segmentation.NewPipeline(segmentation.OptionsFromConfig(cfg), logger, telemetry)
//	res, err := pipeline.Run(ctx, cfg.Input.Path)
package segmentation

// Package cli implements the segment command line.
//
// Commands:
//
//	segment run [input]       full pipeline, every output under --output-dir
//	segment describe [input]  dataset profile and skewness report
//	segment elbow [input]     inertia per candidate k and the elbow choice
//
// Flags override the configuration file and SEGMENT_* environment
// variables. Any error is logged and the process exits with status 1.
package cli

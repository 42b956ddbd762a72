package config

// Application constants
const (
	AppName = "segment"

	// EnvPrefix namespaces every environment variable, e.g. SEGMENT_CLUSTERING_SEED
	EnvPrefix = "SEGMENT"

	// Defaults
	DefaultReferenceOffsetDays = 2
	DefaultKMin                = 2
	DefaultKMax                = 10
	DefaultSeed                = 42
	DefaultMaxIter             = 300
	DefaultWorkers             = 4
	DefaultOutputDir           = "out"
)

// Zero-order policies
const (
	ZeroOrderExclude = "exclude"
	ZeroOrderZero    = "zero"
	ZeroOrderFail    = "fail"
)

// Output file names, relative to Output.Dir
const (
	LabeledCSVFile    = "segments.csv"
	SummaryReportFile = "segment_summary.txt"
	RunReportFile     = "run_report.json"
	WorkbookFile      = "segments.xlsx"
	ElbowCSVFile      = "elbow.csv"
	ElbowChartFile    = "elbow.html"
	DendrogramFile    = "dendrogram.html"
)

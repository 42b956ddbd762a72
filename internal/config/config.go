package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	apperrors "github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/errors"
	"github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/pkg/contracts/domain"
)

// Config represents the complete pipeline configuration
type Config struct {
	Input      InputConfig      `yaml:"input" json:"input"`
	Features   FeaturesConfig   `yaml:"features" json:"features"`
	Normalize  NormalizeConfig  `yaml:"normalize" json:"normalize"`
	Clustering ClusteringConfig `yaml:"clustering" json:"clustering"`
	Summary    SummaryConfig    `yaml:"summary" json:"summary"`
	Output     OutputConfig     `yaml:"output" json:"output"`
	Logging    LoggingConfig    `yaml:"logging" json:"logging"`
	Telemetry  TelemetryConfig  `yaml:"telemetry" json:"telemetry"`
}

// InputConfig describes where customer records are read from
type InputConfig struct {
	Path      string `split_words:"true" yaml:"path" json:"path"`
	Delimiter string `split_words:"true" yaml:"delimiter" json:"delimiter"`
	// Sheet selects the worksheet of an .xlsx input; empty means the first sheet
	Sheet string `split_words:"true" yaml:"sheet" json:"sheet,omitempty"`
}

// FeaturesConfig controls feature derivation
type FeaturesConfig struct {
	ReferenceOffsetDays int    `split_words:"true" yaml:"reference_offset_days" json:"reference_offset_days"`
	ZeroOrderPolicy     string `split_words:"true" yaml:"zero_order_policy" json:"zero_order_policy"`
}

// NormalizeConfig lists the columns of the modeling matrix
type NormalizeConfig struct {
	LogColumns         []string `split_words:"true" yaml:"log_columns" json:"log_columns"`
	PassthroughColumns []string `split_words:"true" yaml:"passthrough_columns" json:"passthrough_columns"`
}

// ClusteringConfig controls both clustering branches
type ClusteringConfig struct {
	KMin int `split_words:"true" yaml:"k_min" json:"k_min"`
	KMax int `split_words:"true" yaml:"k_max" json:"k_max"`
	// K fixes the centroid cluster count; 0 uses the elbow choice
	K            int   `split_words:"true" yaml:"k" json:"k"`
	Seed         int64 `split_words:"true" yaml:"seed" json:"seed"`
	MaxIter      int   `split_words:"true" yaml:"max_iter" json:"max_iter"`
	NInit        int   `split_words:"true" yaml:"n_init" json:"n_init"`
	Workers      int   `split_words:"true" yaml:"workers" json:"workers"`
	WardEnabled  bool  `split_words:"true" yaml:"ward_enabled" json:"ward_enabled"`
	// WardClusters fixes the hierarchical cluster count; 0 uses the count implied by the cut
	WardClusters int `split_words:"true" yaml:"ward_clusters" json:"ward_clusters"`
}

// SummaryConfig controls segment characterization
type SummaryConfig struct {
	Features []string `split_words:"true" yaml:"features" json:"features"`
	RankBy   string   `split_words:"true" yaml:"rank_by" json:"rank_by"`
}

// OutputConfig controls what is written and where
type OutputConfig struct {
	Dir  string `split_words:"true" yaml:"dir" json:"dir"`
	BOM  bool   `split_words:"true" yaml:"bom" json:"bom"`
	XLSX bool   `split_words:"true" yaml:"xlsx" json:"xlsx"`
	HTML bool   `split_words:"true" yaml:"html" json:"html"`
	JSON bool   `split_words:"true" yaml:"json" json:"json"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `split_words:"true" yaml:"level" json:"level"`
	Format   string `split_words:"true" yaml:"format" json:"format"`
	Output   string `split_words:"true" yaml:"output" json:"output"`
	FilePath string `split_words:"true" yaml:"file_path" json:"file_path"`
}

// TelemetryConfig controls trace and metric files
type TelemetryConfig struct {
	Enabled     bool   `split_words:"true" yaml:"enabled" json:"enabled"`
	ServiceName string `split_words:"true" yaml:"service_name" json:"service_name"`
	TraceFile   string `split_words:"true" yaml:"trace_file" json:"trace_file,omitempty"`
	MetricsFile string `split_words:"true" yaml:"metrics_file" json:"metrics_file,omitempty"`
}

// Load builds the configuration from defaults, an optional YAML file and
// SEGMENT_* environment variables, in increasing order of precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, err
		}
	}

	// Only SEGMENT_<SECTION>_<FIELD> variables that are set override
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, apperrors.NewConfigError("failed to load config from env", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFromFile overlays a YAML file onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return apperrors.NewConfigError(fmt.Sprintf("failed to read config file %s", filePath), err)
	}

	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return apperrors.NewConfigError(fmt.Sprintf("failed to parse config file %s", filePath), err)
	}

	return nil
}

// Validate checks the configuration and returns a CONFIG error describing
// the first problem found.
func (c *Config) Validate() error {
	if c.Input.Delimiter == "" || len([]rune(c.Input.Delimiter)) != 1 {
		return invalid("input.delimiter", c.Input.Delimiter, "must be a single character")
	}

	if c.Features.ReferenceOffsetDays < 0 {
		return invalid("features.reference_offset_days", c.Features.ReferenceOffsetDays, "must not be negative")
	}
	switch c.Features.ZeroOrderPolicy {
	case ZeroOrderExclude, ZeroOrderZero, ZeroOrderFail:
	default:
		return invalid("features.zero_order_policy", c.Features.ZeroOrderPolicy,
			fmt.Sprintf("must be one of %s, %s, %s", ZeroOrderExclude, ZeroOrderZero, ZeroOrderFail))
	}

	if err := c.validateNormalize(); err != nil {
		return err
	}
	if err := c.validateClustering(); err != nil {
		return err
	}
	if err := c.validateSummary(); err != nil {
		return err
	}

	if strings.TrimSpace(c.Output.Dir) == "" {
		return invalid("output.dir", c.Output.Dir, "must not be empty")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return invalid("logging.level", c.Logging.Level, "must be debug, info, warn or error")
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return invalid("logging.format", c.Logging.Format, "must be json or text")
	}
	switch c.Logging.Output {
	case "console":
	case "file", "both":
		if c.Logging.FilePath == "" {
			return invalid("logging.file_path", c.Logging.FilePath, "required when output includes file")
		}
	default:
		return invalid("logging.output", c.Logging.Output, "must be console, file or both")
	}

	return nil
}

func (c *Config) validateNormalize() error {
	n := c.Normalize
	if len(n.LogColumns)+len(n.PassthroughColumns) == 0 {
		return invalid("normalize", nil, "at least one modeling column is required")
	}

	seen := make(map[string]string)
	check := func(list, col string) error {
		if !domain.IsNumericColumn(col) {
			return invalid(list, col, "unknown numeric column")
		}
		if prev, ok := seen[col]; ok {
			return invalid(list, col, "already listed in "+prev)
		}
		seen[col] = list
		return nil
	}
	for _, col := range n.LogColumns {
		if err := check("normalize.log_columns", col); err != nil {
			return err
		}
	}
	for _, col := range n.PassthroughColumns {
		if err := check("normalize.passthrough_columns", col); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateClustering() error {
	cl := c.Clustering
	if cl.K < 0 {
		return invalid("clustering.k", cl.K, "must not be negative")
	}
	// the candidate range only matters when the elbow picks k
	if cl.K == 0 {
		if cl.KMin < 1 {
			return invalid("clustering.k_min", cl.KMin, "must be at least 1")
		}
		if cl.KMax-cl.KMin < 2 {
			return invalid("clustering.k_max", cl.KMax, "range must hold at least 3 candidates")
		}
	}
	if cl.MaxIter < 1 {
		return invalid("clustering.max_iter", cl.MaxIter, "must be positive")
	}
	if cl.NInit < 1 {
		return invalid("clustering.n_init", cl.NInit, "must be positive")
	}
	if cl.Workers < 1 {
		return invalid("clustering.workers", cl.Workers, "must be positive")
	}
	if cl.WardClusters < 0 {
		return invalid("clustering.ward_clusters", cl.WardClusters, "must not be negative")
	}
	return nil
}

func (c *Config) validateSummary() error {
	if len(c.Summary.Features) == 0 {
		return invalid("summary.features", nil, "at least one feature is required")
	}
	rankListed := false
	for _, f := range c.Summary.Features {
		if !domain.IsNumericColumn(f) {
			return invalid("summary.features", f, "unknown numeric column")
		}
		if f == c.Summary.RankBy {
			rankListed = true
		}
	}
	if !rankListed {
		return invalid("summary.rank_by", c.Summary.RankBy, "must be one of summary.features")
	}
	return nil
}

func invalid(field string, value interface{}, reason string) error {
	return apperrors.NewConfigError(fmt.Sprintf("invalid %s", field), fmt.Errorf("%s", reason)).
		WithContext("field", field).
		WithContext("value", value)
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Input: InputConfig{
			Delimiter: ",",
		},
		Features: FeaturesConfig{
			ReferenceOffsetDays: DefaultReferenceOffsetDays,
			ZeroOrderPolicy:     ZeroOrderExclude,
		},
		Normalize: NormalizeConfig{
			LogColumns: []string{
				domain.ColOrderNumOnline,
				domain.ColOrderNumOffline,
				domain.ColValueOffline,
				domain.ColValueOnline,
				domain.ColTotalOrderNum,
				domain.ColTotalCustomerValue,
				domain.ColTenure,
				domain.ColAvgOrderValue,
			},
			PassthroughColumns: []string{
				domain.ColRecency,
				domain.ColOnlineRatio,
			},
		},
		Clustering: ClusteringConfig{
			KMin:        DefaultKMin,
			KMax:        DefaultKMax,
			Seed:        DefaultSeed,
			MaxIter:     DefaultMaxIter,
			NInit:       1,
			Workers:     DefaultWorkers,
			WardEnabled: true,
		},
		Summary: SummaryConfig{
			Features: append([]string(nil), domain.NumericColumns...),
			RankBy:   domain.ColTotalCustomerValue,
		},
		Output: OutputConfig{
			Dir:  DefaultOutputDir,
			BOM:  true,
			XLSX: true,
			HTML: true,
			JSON: true,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/segment.log",
		},
		Telemetry: TelemetryConfig{
			ServiceName: AppName,
		},
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/errors"
	"github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/pkg/contracts/domain"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "segment.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, ",", cfg.Input.Delimiter)
	assert.Equal(t, 2, cfg.Features.ReferenceOffsetDays)
	assert.Equal(t, ZeroOrderExclude, cfg.Features.ZeroOrderPolicy)
	assert.Len(t, cfg.Normalize.LogColumns, 8)
	assert.Equal(t, []string{domain.ColRecency, domain.ColOnlineRatio}, cfg.Normalize.PassthroughColumns)
	assert.Equal(t, 2, cfg.Clustering.KMin)
	assert.Equal(t, 10, cfg.Clustering.KMax)
	assert.Equal(t, 0, cfg.Clustering.K)
	assert.Equal(t, int64(42), cfg.Clustering.Seed)
	assert.Equal(t, 300, cfg.Clustering.MaxIter)
	assert.Equal(t, 1, cfg.Clustering.NInit)
	assert.True(t, cfg.Clustering.WardEnabled)
	assert.Equal(t, 0, cfg.Clustering.WardClusters)
	assert.Len(t, cfg.Summary.Features, 10)
	assert.Equal(t, domain.ColTotalCustomerValue, cfg.Summary.RankBy)
	assert.Equal(t, "out", cfg.Output.Dir)
	assert.True(t, cfg.Output.BOM)
	assert.False(t, cfg.Telemetry.Enabled)

	require.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		file        string
		wantErr     bool
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "defaults without file or env",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, Default(), cfg)
			},
		},
		{
			name: "file overrides defaults",
			file: `
input:
  path: data/flo.csv
clustering:
  k_min: 3
  k_max: 8
  ward_clusters: 3
features:
  zero_order_policy: zero
`,
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "data/flo.csv", cfg.Input.Path)
				assert.Equal(t, 3, cfg.Clustering.KMin)
				assert.Equal(t, 8, cfg.Clustering.KMax)
				assert.Equal(t, 3, cfg.Clustering.WardClusters)
				assert.Equal(t, ZeroOrderZero, cfg.Features.ZeroOrderPolicy)
				// untouched keys keep their defaults
				assert.Equal(t, int64(42), cfg.Clustering.Seed)
				assert.Equal(t, ",", cfg.Input.Delimiter)
			},
		},
		{
			name: "env overrides file",
			file: `
clustering:
  seed: 1
`,
			env: map[string]string{
				"SEGMENT_CLUSTERING_SEED":               "7",
				"SEGMENT_NORMALIZE_LOG_COLUMNS":         "tenure,total_order_num",
				"SEGMENT_NORMALIZE_PASSTHROUGH_COLUMNS": "recency",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, int64(7), cfg.Clustering.Seed)
				assert.Equal(t, []string{"tenure", "total_order_num"}, cfg.Normalize.LogColumns)
				assert.Equal(t, []string{"recency"}, cfg.Normalize.PassthroughColumns)
			},
		},
		{
			name: "multi-word env names",
			env: map[string]string{
				"SEGMENT_CLUSTERING_K_MIN":   "3",
				"SEGMENT_CLUSTERING_N_INIT":  "4",
				"SEGMENT_OUTPUT_XLSX":        "false",
				"SEGMENT_LOGGING_FILE_PATH":  "var/segment.log",
				"SEGMENT_TELEMETRY_ENABLED":  "true",
				"SEGMENT_INPUT_PATH":         "data/flo.csv",
				"SEGMENT_SUMMARY_RANK_BY":    domain.ColRecency,
				"SEGMENT_CLUSTERING_WORKERS": "2",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 3, cfg.Clustering.KMin)
				assert.Equal(t, 4, cfg.Clustering.NInit)
				assert.False(t, cfg.Output.XLSX)
				assert.Equal(t, "var/segment.log", cfg.Logging.FilePath)
				assert.True(t, cfg.Telemetry.Enabled)
				assert.Equal(t, "data/flo.csv", cfg.Input.Path)
				assert.Equal(t, domain.ColRecency, cfg.Summary.RankBy)
				assert.Equal(t, 2, cfg.Clustering.Workers)
			},
		},
		{
			name: "unprefixed env is ignored",
			file: "input:\n  path: data/flo.csv\n",
			env: map[string]string{
				"PATH":   "/usr/bin:/bin",
				"K":      "7",
				"DIR":    "/tmp/elsewhere",
				"SEED":   "9",
				"LEVEL":  "debug",
				"FORMAT": "text",
				"HTML":   "false",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				want := Default()
				want.Input.Path = "data/flo.csv"
				assert.Equal(t, want, cfg)
			},
		},
		{
			name:    "unknown key in file",
			file:    "clustering:\n  kmeans_k: 4\n",
			wantErr: true,
		},
		{
			name:    "invalid env value",
			env:     map[string]string{"SEGMENT_CLUSTERING_K": "four"},
			wantErr: true,
		},
		{
			name:    "validation failure",
			env:     map[string]string{"SEGMENT_FEATURES_ZERO_ORDER_POLICY": "drop"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.file != "" {
				path = writeConfigFile(t, tt.file)
			}

			cfg, err := Load(path)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
				return
			}
			require.NoError(t, err)
			tt.validateCfg(t, cfg)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{"multi-char delimiter", func(c *Config) { c.Input.Delimiter = ";;" }, "input.delimiter"},
		{"negative offset", func(c *Config) { c.Features.ReferenceOffsetDays = -1 }, "features.reference_offset_days"},
		{"unknown policy", func(c *Config) { c.Features.ZeroOrderPolicy = "skip" }, "features.zero_order_policy"},
		{"column in both lists", func(c *Config) {
			c.Normalize.PassthroughColumns = append(c.Normalize.PassthroughColumns, domain.ColTenure)
		}, "normalize.passthrough_columns"},
		{"unknown log column", func(c *Config) { c.Normalize.LogColumns = []string{"master_id"} }, "normalize.log_columns"},
		{"empty matrix", func(c *Config) {
			c.Normalize.LogColumns = nil
			c.Normalize.PassthroughColumns = nil
		}, "normalize"},
		{"k_min zero", func(c *Config) { c.Clustering.KMin = 0 }, "clustering.k_min"},
		{"two candidates", func(c *Config) { c.Clustering.KMin, c.Clustering.KMax = 2, 3 }, "clustering.k_max"},
		{"negative k", func(c *Config) { c.Clustering.K = -2 }, "clustering.k"},
		{"zero workers", func(c *Config) { c.Clustering.Workers = 0 }, "clustering.workers"},
		{"zero n_init", func(c *Config) { c.Clustering.NInit = 0 }, "clustering.n_init"},
		{"rank_by not listed", func(c *Config) { c.Summary.RankBy = domain.ColRecency; c.Summary.Features = []string{domain.ColTenure} }, "summary.rank_by"},
		{"empty output dir", func(c *Config) { c.Output.Dir = " " }, "output.dir"},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"file output without path", func(c *Config) { c.Logging.Output = "both"; c.Logging.FilePath = "" }, "logging.file_path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)

			var appErr *apperrors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, apperrors.ErrTypeConfig, appErr.Type)
			assert.Equal(t, tt.wantField, appErr.Context["field"])
		})
	}
}

func TestValidate_FixedKIgnoresRange(t *testing.T) {
	cfg := Default()
	cfg.Clustering.K = 4
	cfg.Clustering.KMin, cfg.Clustering.KMax = 0, 0
	require.NoError(t, cfg.Validate())

	cfg.Clustering.K = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
}

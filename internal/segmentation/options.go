package segmentation

import (
	"github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/clustering"
	"github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/config"
	"github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/dataprocessing"
	"github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/features"
	"github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/normalize"
	"github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/summary"
)

// Options is the full parameter set of one run
type Options struct {
	Loader    dataprocessing.LoaderConfig
	Features  features.Options
	Normalize normalize.Options
	KRange    clustering.KRange
	// K fixes the centroid cluster count; 0 selects it from the elbow
	K            int
	KMeans       clustering.KMeansOptions
	WardEnabled  bool
	WardClusters int
	Summary      summary.Options
}

// DefaultOptions mirrors config.Default
func DefaultOptions() Options {
	return OptionsFromConfig(config.Default())
}

// OptionsFromConfig maps a validated configuration onto pipeline options
func OptionsFromConfig(cfg *config.Config) Options {
	var delimiter rune
	for _, r := range cfg.Input.Delimiter {
		delimiter = r
		break
	}

	return Options{
		Loader: dataprocessing.LoaderConfig{
			Delimiter: delimiter,
			Sheet:     cfg.Input.Sheet,
		},
		Features: features.Options{
			ReferenceOffsetDays: cfg.Features.ReferenceOffsetDays,
			ZeroOrderPolicy:     features.ZeroOrderPolicy(cfg.Features.ZeroOrderPolicy),
		},
		Normalize: normalize.Options{
			LogColumns:         append([]string(nil), cfg.Normalize.LogColumns...),
			PassthroughColumns: append([]string(nil), cfg.Normalize.PassthroughColumns...),
		},
		KRange: clustering.KRange{Min: cfg.Clustering.KMin, Max: cfg.Clustering.KMax},
		K:      cfg.Clustering.K,
		KMeans: clustering.KMeansOptions{
			Seed:    cfg.Clustering.Seed,
			MaxIter: cfg.Clustering.MaxIter,
			NInit:   cfg.Clustering.NInit,
			Workers: cfg.Clustering.Workers,
		},
		WardEnabled:  cfg.Clustering.WardEnabled,
		WardClusters: cfg.Clustering.WardClusters,
		Summary: summary.Options{
			Features: append([]string(nil), cfg.Summary.Features...),
			RankBy:   cfg.Summary.RankBy,
		},
	}
}

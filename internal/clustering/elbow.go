package clustering

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/errors"
	"github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/normalize"
)

// KRange is an inclusive range of candidate cluster counts
type KRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Len returns the number of candidates
func (r KRange) Len() int {
	if r.Max < r.Min {
		return 0
	}
	return r.Max - r.Min + 1
}

// KInertia is the fitted inertia for one candidate k
type KInertia struct {
	K       int     `json:"k"`
	Inertia float64 `json:"inertia"`
}

// ElbowResult holds the inertia curve and the selected k
type ElbowResult struct {
	Candidates []KInertia `json:"candidates"`
	// Scores[i] is the second difference at Candidates[i+1]
	Scores []float64 `json:"scores"`
	K      int       `json:"k"`
}

// SelectK fits k-means for every k in r and picks the elbow: the interior
// candidate with the largest second difference of inertia. Ties go to the
// smaller k. Every fit uses the same seed, so the result does not depend on
// opts.Workers.
func SelectK(ctx context.Context, m *normalize.Matrix, r KRange, opts KMeansOptions) (*ElbowResult, error) {
	opts = opts.withDefaults()

	if r.Min < 1 || r.Len() < 3 {
		return nil, apperrors.NewConfigError(
			fmt.Sprintf("elbow needs at least 3 candidates starting at k>=1, got [%d, %d]", r.Min, r.Max), nil)
	}
	if distinct := DistinctRows(m); r.Max > distinct {
		return nil, apperrors.NewDegenerateClusteringError(
			fmt.Sprintf("k range [%d, %d] exceeds %d distinct rows", r.Min, r.Max, distinct)).
			WithContext("distinct_rows", distinct)
	}

	candidates := make([]KInertia, r.Len())
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)

	for i := range candidates {
		k := r.Min + i
		g.Go(func() error {
			res, err := KMeans(gctx, m, k, opts)
			if err != nil {
				return fmt.Errorf("k=%d: %w", k, err)
			}
			candidates[i] = KInertia{K: k, Inertia: res.Inertia}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	k, scores := elbow(candidates)
	opts.Logger.InfoContext(ctx, "elbow selected",
		slog.Int("k", k),
		slog.Int("k_min", r.Min),
		slog.Int("k_max", r.Max))

	return &ElbowResult{Candidates: candidates, Scores: scores, K: k}, nil
}

// elbow returns the k with maximal I(k-1) - 2I(k) + I(k+1)
func elbow(candidates []KInertia) (int, []float64) {
	scores := make([]float64, 0, len(candidates)-2)
	best, bestScore := -1, 0.0
	for i := 1; i < len(candidates)-1; i++ {
		s := candidates[i-1].Inertia - 2*candidates[i].Inertia + candidates[i+1].Inertia
		scores = append(scores, s)
		if best < 0 || s > bestScore {
			best, bestScore = i, s
		}
	}
	return candidates[best].K, scores
}

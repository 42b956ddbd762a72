package clustering

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"

	apperrors "github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/errors"
	"github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/normalize"
)

// KMeansOptions controls centroid clustering
type KMeansOptions struct {
	Seed    int64
	MaxIter int
	NInit   int
	// Workers bounds concurrent fits in SelectK; KMeans itself is sequential
	Workers int
	Logger  *slog.Logger
}

// DefaultKMeansOptions returns the defaults used by the pipeline
func DefaultKMeansOptions() KMeansOptions {
	return KMeansOptions{Seed: 42, MaxIter: 300, NInit: 1, Workers: 4}
}

func (o KMeansOptions) withDefaults() KMeansOptions {
	if o.MaxIter <= 0 {
		o.MaxIter = 300
	}
	if o.NInit <= 0 {
		o.NInit = 1
	}
	if o.Workers <= 0 {
		o.Workers = 1
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// KMeansResult is one fitted partition
type KMeansResult struct {
	K          int         `json:"k"`
	Labels     []int       `json:"-"`
	Centroids  [][]float64 `json:"centroids"`
	Sizes      []int       `json:"sizes"`
	Inertia    float64     `json:"inertia"`
	Iterations int         `json:"iterations"`
	Converged  bool        `json:"converged"`
}

// KMeans partitions the rows of m into k clusters with k-means++ seeding and
// Lloyd iterations. Results are identical for identical (m, k, Seed).
func KMeans(ctx context.Context, m *normalize.Matrix, k int, opts KMeansOptions) (*KMeansResult, error) {
	opts = opts.withDefaults()

	if m.Len() == 0 {
		return nil, apperrors.NewDegenerateClusteringError("cannot cluster an empty matrix")
	}
	if k < 1 {
		return nil, apperrors.NewDegenerateClusteringError(fmt.Sprintf("k must be at least 1, got %d", k))
	}
	if distinct := DistinctRows(m); k > distinct {
		return nil, apperrors.NewDegenerateClusteringError(
			fmt.Sprintf("k=%d exceeds %d distinct rows", k, distinct)).
			WithContext("k", k).
			WithContext("distinct_rows", distinct)
	}

	rng := rand.New(rand.NewSource(opts.Seed))

	var best *KMeansResult
	for run := 0; run < opts.NInit; run++ {
		res, err := lloyd(ctx, m.Data, k, opts.MaxIter, rng)
		if err != nil {
			return nil, err
		}
		opts.Logger.DebugContext(ctx, "k-means run finished",
			slog.Int("k", k),
			slog.Int("run", run),
			slog.Int("iterations", res.Iterations),
			slog.Float64("inertia", res.Inertia))

		if best == nil || res.Inertia < best.Inertia {
			best = res
		}
	}

	return best, nil
}

// lloyd runs one seeded fit
func lloyd(ctx context.Context, data [][]float64, k, maxIter int, rng *rand.Rand) (*KMeansResult, error) {
	n := len(data)
	centroids := seedPlusPlus(data, k, rng)

	labels := make([]int, n)
	for i := range labels {
		labels[i] = -1
	}
	counts := make([]int, k)

	res := &KMeansResult{K: k}
	for iter := 0; iter < maxIter; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		changed := assign(data, centroids, labels)
		res.Iterations = iter + 1
		if !changed {
			res.Converged = true
			break
		}

		for c := range centroids {
			for j := range centroids[c] {
				centroids[c][j] = 0
			}
			counts[c] = 0
		}
		for i, row := range data {
			floats.Add(centroids[labels[i]], row)
			counts[labels[i]]++
		}
		for c := range centroids {
			if counts[c] > 0 {
				floats.Scale(1/float64(counts[c]), centroids[c])
			}
		}

		reseedEmpty(data, centroids, labels, counts)
	}

	res.Labels = labels
	res.Centroids = centroids
	res.Sizes = sizes(labels, k)
	res.Inertia = inertia(data, centroids, labels)
	return res, nil
}

// seedPlusPlus picks k initial centroids, each next one with probability
// proportional to the squared distance to the nearest centroid chosen so far.
func seedPlusPlus(data [][]float64, k int, rng *rand.Rand) [][]float64 {
	n := len(data)
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, clone(data[rng.Intn(n)]))

	nearest := make([]float64, n)
	for i, row := range data {
		nearest[i] = sqDist(row, centroids[0])
	}

	for len(centroids) < k {
		total := floats.Sum(nearest)
		chosen := -1
		if total > 0 {
			target := rng.Float64() * total
			cumulative := 0.0
			for i, d := range nearest {
				if d == 0 {
					continue
				}
				cumulative += d
				if cumulative >= target {
					chosen = i
					break
				}
			}
			// rounding can leave target just above the final sum
			if chosen < 0 {
				for i := n - 1; i >= 0; i-- {
					if nearest[i] > 0 {
						chosen = i
						break
					}
				}
			}
		}
		if chosen < 0 {
			// every row coincides with a centroid; k <= distinct rows prevents this
			chosen = rng.Intn(n)
		}

		c := clone(data[chosen])
		centroids = append(centroids, c)
		for i, row := range data {
			if d := sqDist(row, c); d < nearest[i] {
				nearest[i] = d
			}
		}
	}
	return centroids
}

// assign moves each row to its nearest centroid, lowest index on ties
func assign(data, centroids [][]float64, labels []int) bool {
	changed := false
	for i, row := range data {
		best, bestDist := 0, math.Inf(1)
		for c, centroid := range centroids {
			if d := sqDist(row, centroid); d < bestDist {
				best, bestDist = c, d
			}
		}
		if labels[i] != best {
			labels[i] = best
			changed = true
		}
	}
	return changed
}

// reseedEmpty gives every empty cluster the row farthest from its own centroid
func reseedEmpty(data, centroids [][]float64, labels, counts []int) {
	for c := range centroids {
		if counts[c] > 0 {
			continue
		}

		far, farDist := -1, -1.0
		for i, row := range data {
			if counts[labels[i]] < 2 {
				continue
			}
			if d := sqDist(row, centroids[labels[i]]); d > farDist {
				far, farDist = i, d
			}
		}
		if far < 0 {
			return
		}

		from := labels[far]
		// remove the row from its old centroid's mean
		floats.Scale(float64(counts[from]), centroids[from])
		floats.Sub(centroids[from], data[far])
		counts[from]--
		floats.Scale(1/float64(counts[from]), centroids[from])

		copy(centroids[c], data[far])
		labels[far] = c
		counts[c] = 1
	}
}

func inertia(data, centroids [][]float64, labels []int) float64 {
	total := 0.0
	for i, row := range data {
		total += sqDist(row, centroids[labels[i]])
	}
	return total
}

func sizes(labels []int, k int) []int {
	out := make([]int, k)
	for _, l := range labels {
		out[l]++
	}
	return out
}

// DistinctRows counts rows of m that differ in at least one value
func DistinctRows(m *normalize.Matrix) int {
	seen := make(map[string]struct{}, m.Len())
	buf := make([]byte, 0, 8*m.Dim())
	for _, row := range m.Data {
		buf = buf[:0]
		for _, v := range row {
			bits := math.Float64bits(v + 0) // fold -0 into 0
			for s := 0; s < 64; s += 8 {
				buf = append(buf, byte(bits>>s))
			}
		}
		seen[string(buf)] = struct{}{}
	}
	return len(seen)
}

// sqDist is the squared Euclidean distance
func sqDist(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return d * d
}

func clone(row []float64) []float64 {
	return append([]float64(nil), row...)
}

package clustering

import (
	"context"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	apperrors "github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/errors"
	"github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/normalize"
)

// Merge is one agglomeration step. Left and Right are cluster ids: ids below
// N are single rows, id N+i is the cluster formed by the i-th merge.
type Merge struct {
	Left     int     `json:"left"`
	Right    int     `json:"right"`
	Distance float64 `json:"distance"`
	Size     int     `json:"size"`
}

// Hierarchy is a complete merge tree over N rows, merges ascending by distance
type Hierarchy struct {
	N      int     `json:"n"`
	Merges []Merge `json:"merges"`
}

// Ward builds the Ward minimum-variance hierarchy of the rows of m using the
// nearest-neighbour chain algorithm. Memory is O(n·d); time is O(n²·d).
func Ward(ctx context.Context, m *normalize.Matrix) (*Hierarchy, error) {
	n := m.Len()
	if n == 0 {
		return nil, apperrors.NewDegenerateClusteringError("cannot build a hierarchy over an empty matrix")
	}

	centroids := make([][]float64, n)
	sizes := make([]int, n)
	active := make([]bool, n)
	for i, row := range m.Data {
		centroids[i] = clone(row)
		sizes[i] = 1
		active[i] = true
	}

	// raw merges reference slot indices; a merged cluster lives in the lower slot
	raw := make([]Merge, 0, n-1)
	chain := make([]int, 0, n)

	for len(raw) < n-1 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if len(chain) == 0 {
			for i := range active {
				if active[i] {
					chain = append(chain, i)
					break
				}
			}
		}

		var a, b int
		var dist float64
		for {
			a = chain[len(chain)-1]

			b, dist = -1, math.Inf(1)
			if len(chain) > 1 {
				b = chain[len(chain)-2]
				dist = wardSq(centroids[a], centroids[b], sizes[a], sizes[b])
			}
			for j := range active {
				if !active[j] || j == a {
					continue
				}
				if d := wardSq(centroids[a], centroids[j], sizes[a], sizes[j]); d < dist {
					b, dist = j, d
				}
			}

			if len(chain) > 1 && b == chain[len(chain)-2] {
				break
			}
			chain = append(chain, b)
		}
		chain = chain[:len(chain)-2]

		lo, hi := a, b
		if hi < lo {
			lo, hi = hi, lo
		}
		merged := sizes[lo] + sizes[hi]
		floats.Scale(float64(sizes[lo]), centroids[lo])
		floats.AddScaled(centroids[lo], float64(sizes[hi]), centroids[hi])
		floats.Scale(1/float64(merged), centroids[lo])
		sizes[lo] = merged
		active[hi] = false
		centroids[hi] = nil

		raw = append(raw, Merge{Left: lo, Right: hi, Distance: math.Sqrt(dist), Size: merged})
	}

	sort.SliceStable(raw, func(i, j int) bool { return raw[i].Distance < raw[j].Distance })
	return &Hierarchy{N: n, Merges: relabel(raw, n)}, nil
}

// wardSq is the squared Ward distance between two clusters
func wardSq(ca, cb []float64, na, nb int) float64 {
	w := 2 * float64(na) * float64(nb) / float64(na+nb)
	return w * sqDist(ca, cb)
}

// relabel converts slot references to cluster ids in merge order
func relabel(raw []Merge, n int) []Merge {
	uf := newUnionFind(n)
	out := make([]Merge, len(raw))
	for i, mg := range raw {
		x, y := uf.find(mg.Left), uf.find(mg.Right)
		if y < x {
			x, y = y, x
		}
		out[i] = Merge{Left: x, Right: y, Distance: mg.Distance, Size: uf.union(x, y)}
	}
	return out
}

// Distances returns the merge distances in merge order
func (h *Hierarchy) Distances() []float64 {
	out := make([]float64, len(h.Merges))
	for i, mg := range h.Merges {
		out[i] = mg.Distance
	}
	return out
}

// Tail returns the last p merges, or all of them when p exceeds the count
func (h *Hierarchy) Tail(p int) []Merge {
	if p <= 0 || p >= len(h.Merges) {
		return h.Merges
	}
	return h.Merges[len(h.Merges)-p:]
}

// Cut returns flat labels with exactly k clusters, numbered from 0 in order
// of first appearance among the rows.
func (h *Hierarchy) Cut(k int) ([]int, error) {
	if k < 1 || k > h.N {
		return nil, apperrors.NewDegenerateClusteringError(
			fmt.Sprintf("cannot cut %d rows into %d clusters", h.N, k))
	}

	uf := newUnionFind(h.N)
	for _, mg := range h.Merges[:h.N-k] {
		uf.union(uf.find(mg.Left), uf.find(mg.Right))
	}

	labels := make([]int, h.N)
	ids := make(map[int]int, k)
	for i := range labels {
		root := uf.find(i)
		id, ok := ids[root]
		if !ok {
			id = len(ids)
			ids[root] = id
		}
		labels[i] = id
	}
	return labels, nil
}

// Cut describes where the tree is cut
type Cut struct {
	Height   float64 `json:"height"`
	GapIndex int     `json:"gap_index"`
	Gap      float64 `json:"gap"`
	Lower    float64 `json:"lower"`
	Upper    float64 `json:"upper"`
	Clusters int     `json:"clusters"`
}

// SelectCut places the cut in the widest gap between consecutive merge
// distances. Height is the midpoint of the gap, so it lies strictly between
// the flanking distances. The first gap wins ties.
func SelectCut(distances []float64) (Cut, error) {
	if len(distances) < 2 {
		return Cut{}, apperrors.NewDegenerateClusteringError(
			fmt.Sprintf("need at least 2 merges to select a cut, got %d", len(distances)))
	}

	d := append([]float64(nil), distances...)
	sort.Float64s(d)

	gapIndex, gap := 0, d[1]-d[0]
	for i := 1; i < len(d)-1; i++ {
		if g := d[i+1] - d[i]; g > gap {
			gapIndex, gap = i, g
		}
	}
	if gap <= 0 {
		return Cut{}, apperrors.NewDegenerateClusteringError("all merge distances are equal; no gap to cut")
	}

	n := len(d) + 1
	return Cut{
		Height:   (d[gapIndex] + d[gapIndex+1]) / 2,
		GapIndex: gapIndex,
		Gap:      gap,
		Lower:    d[gapIndex],
		Upper:    d[gapIndex+1],
		Clusters: n - (gapIndex + 1),
	}, nil
}

type unionFind struct {
	parent []int
	size   []int
	next   int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{
		parent: make([]int, 2*n-1),
		size:   make([]int, 2*n-1),
		next:   n,
	}
	for i := range uf.parent {
		uf.parent[i] = i
		if i < n {
			uf.size[i] = 1
		}
	}
	return uf
}

func (u *unionFind) find(x int) int {
	root := x
	for u.parent[root] != root {
		root = u.parent[root]
	}
	for u.parent[x] != root {
		u.parent[x], x = root, u.parent[x]
	}
	return root
}

// union joins two roots under a fresh id and returns the new size
func (u *unionFind) union(x, y int) int {
	id := u.next
	u.next++
	u.parent[x], u.parent[y] = id, id
	u.size[id] = u.size[x] + u.size[y]
	return u.size[id]
}

// Package summary characterizes clusters: per-label member counts and the
// mean, min and max of each feature, ranked by one feature's mean.
package summary

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	apperrors "github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/errors"
	"github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/features"
	"github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/pkg/contracts/domain"
)

// Unlabeled marks a row left out of modeling
const Unlabeled = -1

// Options selects the summarized features and the ranking feature
type Options struct {
	Features []string `json:"features"`
	RankBy   string   `json:"rank_by"`
}

// DefaultOptions summarizes every numeric column ranked by total value
func DefaultOptions() Options {
	return Options{
		Features: append([]string(nil), domain.NumericColumns...),
		RankBy:   domain.ColTotalCustomerValue,
	}
}

// Stat aggregates one feature within one segment
type Stat struct {
	Mean float64 `json:"mean"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
}

// Segment is one label's summary. Stats is aligned with Table.Features.
type Segment struct {
	Label int    `json:"label"`
	Count int    `json:"count"`
	Stats []Stat `json:"stats"`
}

// Table is a ranked segment summary
type Table struct {
	Features []string  `json:"features"`
	RankBy   string    `json:"rank_by"`
	Segments []Segment `json:"segments"`
	// Unlabeled counts rows skipped for carrying the Unlabeled label
	Unlabeled int `json:"unlabeled"`
}

// Summarize groups rows by label and aggregates every feature. Segments are
// ordered by descending mean of RankBy, then by ascending label.
func Summarize(rows []features.Customer, labels []int, opts Options) (*Table, error) {
	if len(rows) != len(labels) {
		return nil, fmt.Errorf("summarize: %d rows but %d labels", len(rows), len(labels))
	}
	if len(opts.Features) == 0 {
		return nil, apperrors.NewConfigError("no summary features configured", nil)
	}
	rank := -1
	for j, f := range opts.Features {
		if f == opts.RankBy {
			rank = j
		}
	}
	if rank < 0 {
		return nil, apperrors.NewConfigError(
			fmt.Sprintf("rank_by %q is not a summary feature", opts.RankBy), nil)
	}

	values, err := features.Columns(rows, opts.Features)
	if err != nil {
		return nil, apperrors.NewConfigError("failed to read summary features", err)
	}

	members := make(map[int][]int)
	table := &Table{
		Features: append([]string(nil), opts.Features...),
		RankBy:   opts.RankBy,
	}
	for i, l := range labels {
		if l == Unlabeled {
			table.Unlabeled++
			continue
		}
		members[l] = append(members[l], i)
	}

	buf := make([]float64, 0, len(rows))
	for label, idx := range members {
		seg := Segment{Label: label, Count: len(idx), Stats: make([]Stat, len(opts.Features))}
		for j := range opts.Features {
			buf = buf[:0]
			for _, i := range idx {
				buf = append(buf, values[j][i])
			}
			seg.Stats[j] = Stat{
				Mean: stat.Mean(buf, nil),
				Min:  floats.Min(buf),
				Max:  floats.Max(buf),
			}
		}
		table.Segments = append(table.Segments, seg)
	}

	sort.Slice(table.Segments, func(a, b int) bool {
		sa, sb := table.Segments[a], table.Segments[b]
		if sa.Stats[rank].Mean != sb.Stats[rank].Mean {
			return sa.Stats[rank].Mean > sb.Stats[rank].Mean
		}
		return sa.Label < sb.Label
	})

	return table, nil
}

// FeatureIndex returns the position of feature in Features, or -1
func (t *Table) FeatureIndex(feature string) int {
	for j, f := range t.Features {
		if f == feature {
			return j
		}
	}
	return -1
}

// Labels returns segment labels in rank order
func (t *Table) Labels() []int {
	out := make([]int, len(t.Segments))
	for i, s := range t.Segments {
		out[i] = s.Label
	}
	return out
}

// LabelCount is one entry of a label distribution
type LabelCount struct {
	Label int `json:"label"`
	Count int `json:"count"`
}

// ValueCounts counts rows per label, largest first, ties by ascending label.
// Unlabeled rows are not counted.
func ValueCounts(labels []int) []LabelCount {
	counts := make(map[int]int)
	for _, l := range labels {
		if l != Unlabeled {
			counts[l]++
		}
	}
	out := make([]LabelCount, 0, len(counts))
	for l, c := range counts {
		out = append(out, LabelCount{Label: l, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}

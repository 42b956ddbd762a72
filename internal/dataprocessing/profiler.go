package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/infrastructure"
	"github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/pkg/contracts/domain"
)

// DefaultTopValues is how many values per categorical column a profile lists
const DefaultTopValues = 5

// ColumnProfile describes one input column
type ColumnProfile struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Missing int    `json:"missing"`
	Unique  int    `json:"unique"`
}

// ValueCount is one entry of a categorical distribution
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// CategoricalProfile lists the most frequent values of a text column
type CategoricalProfile struct {
	Column string       `json:"column"`
	Values []ValueCount `json:"values"`
}

// DatasetProfile is the descriptive overview printed before modeling
type DatasetProfile struct {
	Rows        int                  `json:"rows"`
	Columns     int                  `json:"columns"`
	ColumnInfo  []ColumnProfile      `json:"column_info"`
	Head        [][]string           `json:"head"`
	Describe    [][]string           `json:"describe"`
	Categorical []CategoricalProfile `json:"categorical"`
}

// Profiler computes dataset profiles and skewness reports.
type Profiler struct {
	logger    *slog.Logger
	topValues int
	headRows  int
}

// NewProfiler creates a profiler; topValues and headRows fall back to 5
func NewProfiler(logger *slog.Logger, topValues, headRows int) *Profiler {
	if topValues <= 0 {
		topValues = DefaultTopValues
	}
	if headRows <= 0 {
		headRows = 5
	}
	return &Profiler{
		logger:    infrastructure.WithComponent(logger, "profiler"),
		topValues: topValues,
		headRows:  headRows,
	}
}

// Profile describes the raw dataset: shape, detected column types, missing
// values, descriptive statistics and top values of text columns.
func (p *Profiler) Profile(ctx context.Context, ds *domain.Dataset) (*DatasetProfile, error) {
	records := make([][]string, 0, ds.Len()+1)
	records = append(records, ds.Header)
	for _, r := range ds.Records {
		records = append(records, r.Fields)
	}

	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("failed to build data frame: %w", df.Err)
	}

	rows, cols := df.Dims()
	profile := &DatasetProfile{
		Rows:    rows,
		Columns: cols,
	}

	types := df.Types()
	for i, name := range df.Names() {
		col := df.Col(name)
		info := ColumnProfile{
			Name:    name,
			Type:    string(types[i]),
			Missing: countMissing(ds, i),
			Unique:  countUnique(col.Records()),
		}
		profile.ColumnInfo = append(profile.ColumnInfo, info)

		if types[i] == series.String {
			profile.Categorical = append(profile.Categorical, CategoricalProfile{
				Column: name,
				Values: topValues(col.Records(), p.topValues),
			})
		}
	}

	head := p.headRows
	if head > rows {
		head = rows
	}
	for i := 0; i < head; i++ {
		profile.Head = append(profile.Head, ds.Records[i].Fields)
	}

	profile.Describe = df.Describe().Records()

	p.logger.InfoContext(ctx, "dataset profiled",
		slog.Int("rows", rows),
		slog.Int("columns", cols),
		slog.Int("categorical_columns", len(profile.Categorical)))

	return profile, nil
}

// SkewReport computes skewness and the skew test for each named column.
// values holds one slice per column in the order of columns.
func (p *Profiler) SkewReport(ctx context.Context, columns []string, values [][]float64) ([]SkewResult, error) {
	if len(columns) != len(values) {
		return nil, fmt.Errorf("skew report: %d columns but %d value slices", len(columns), len(values))
	}

	results := make([]SkewResult, 0, len(columns))
	for i, col := range columns {
		res := Skew(col, values[i])
		results = append(results, res)

		p.logger.DebugContext(ctx, "column skewness",
			slog.String("column", col),
			slog.Float64("skew", res.Skew),
			slog.Float64("z", res.Z),
			slog.Float64("p_value", res.PValue))
	}
	return results, nil
}

func countMissing(ds *domain.Dataset, col int) int {
	n := 0
	for _, r := range ds.Records {
		if strings.TrimSpace(r.Fields[col]) == "" {
			n++
		}
	}
	return n
}

func countUnique(values []string) int {
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		seen[v] = struct{}{}
	}
	return len(seen)
}

// topValues returns the limit most frequent values, ties broken by value
func topValues(values []string, limit int) []ValueCount {
	counts := make(map[string]int)
	for _, v := range values {
		counts[v]++
	}

	out := make([]ValueCount, 0, len(counts))
	for v, c := range counts {
		out = append(out, ValueCount{Value: v, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})

	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

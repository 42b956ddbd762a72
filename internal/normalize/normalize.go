// Package normalize builds the modeling matrix: log1p on right-skewed
// columns, then per-column min-max scaling to [0, 1].
package normalize

import (
	"fmt"
	"math"

	apperrors "github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/errors"
	"github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/features"
	"github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/pkg/contracts/domain"
)

// Options lists the matrix columns. Log columns come first, then
// passthrough columns, each in the configured order.
type Options struct {
	LogColumns         []string
	PassthroughColumns []string
}

// Matrix is the normalized feature matrix in row-major order. It carries no
// identifier column; row i belongs to the i-th modeled customer. A Matrix
// must not be modified once built.
type Matrix struct {
	Columns []string
	Data    [][]float64
}

// NewMatrix wraps data as a matrix. Every row must have len(columns) values.
func NewMatrix(columns []string, data [][]float64) (*Matrix, error) {
	for i, row := range data {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("row %d has %d values, want %d", i, len(row), len(columns))
		}
	}
	return &Matrix{Columns: columns, Data: data}, nil
}

// Len returns the number of rows
func (m *Matrix) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Data)
}

// Dim returns the number of columns
func (m *Matrix) Dim() int {
	return len(m.Columns)
}

// Column returns a copy of column j
func (m *Matrix) Column(j int) []float64 {
	out := make([]float64, len(m.Data))
	for i, row := range m.Data {
		out[i] = row[j]
	}
	return out
}

// Normalize transforms rows into a scaled matrix and returns the fitted scaler.
func Normalize(rows []features.Customer, opts Options) (*Matrix, *MinMaxScaler, error) {
	columns, err := opts.columns()
	if err != nil {
		return nil, nil, err
	}
	if len(rows) == 0 {
		return nil, nil, apperrors.NewDegenerateClusteringError("no rows to normalize")
	}

	logged := make(map[string]bool, len(opts.LogColumns))
	for _, c := range opts.LogColumns {
		logged[c] = true
	}

	raw, err := features.Columns(rows, columns)
	if err != nil {
		return nil, nil, apperrors.NewConfigError("failed to extract matrix columns", err)
	}

	for j, col := range columns {
		if !logged[col] {
			continue
		}
		transformed, err := Log1p(col, raw[j])
		if err != nil {
			return nil, nil, err
		}
		raw[j] = transformed
	}

	scaler := FitMinMax(columns, raw)
	data := make([][]float64, len(rows))
	for i := range data {
		data[i] = make([]float64, len(columns))
	}
	for j := range columns {
		scaled := scaler.TransformColumn(j, raw[j])
		for i, v := range scaled {
			data[i][j] = v
		}
	}

	return &Matrix{Columns: columns, Data: data}, scaler, nil
}

// Log1p applies log(1+x) to every value. Negative values are rejected.
func Log1p(column string, values []float64) ([]float64, error) {
	out := make([]float64, len(values))
	for i, v := range values {
		if v < 0 || math.IsNaN(v) {
			return nil, apperrors.NewInputError(
				fmt.Sprintf("column %s has value %g at row %d; log transform needs non-negative values", column, v, i), nil).
				WithContext("column", column)
		}
		out[i] = math.Log1p(v)
	}
	return out, nil
}

func (o Options) columns() ([]string, error) {
	columns := make([]string, 0, len(o.LogColumns)+len(o.PassthroughColumns))
	seen := make(map[string]bool)
	for _, list := range [][]string{o.LogColumns, o.PassthroughColumns} {
		for _, c := range list {
			if !domain.IsNumericColumn(c) {
				return nil, apperrors.NewConfigError(fmt.Sprintf("unknown matrix column %q", c), nil)
			}
			if seen[c] {
				return nil, apperrors.NewConfigError(fmt.Sprintf("column %q listed twice", c), nil)
			}
			seen[c] = true
			columns = append(columns, c)
		}
	}
	if len(columns) == 0 {
		return nil, apperrors.NewConfigError("no matrix columns configured", nil)
	}
	return columns, nil
}

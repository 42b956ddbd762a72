package normalize

import (
	"gonum.org/v1/gonum/floats"
)

// MinMaxScaler maps each column linearly so its minimum becomes 0 and its
// maximum 1. The fitted bounds are exposed for inspection only.
type MinMaxScaler struct {
	Columns []string  `json:"columns"`
	Min     []float64 `json:"min"`
	Max     []float64 `json:"max"`
}

// FitMinMax fits a scaler to column-major values
func FitMinMax(columns []string, values [][]float64) *MinMaxScaler {
	s := &MinMaxScaler{
		Columns: append([]string(nil), columns...),
		Min:     make([]float64, len(columns)),
		Max:     make([]float64, len(columns)),
	}
	for j, col := range values {
		if len(col) == 0 {
			continue
		}
		s.Min[j] = floats.Min(col)
		s.Max[j] = floats.Max(col)
	}
	return s
}

// TransformColumn scales values of column j. A constant column maps to 0.
func (s *MinMaxScaler) TransformColumn(j int, values []float64) []float64 {
	out := make([]float64, len(values))
	span := s.Max[j] - s.Min[j]
	if span == 0 {
		return out
	}
	for i, v := range values {
		scaled := (v - s.Min[j]) / span
		// guard against rounding just outside [0, 1]
		if scaled < 0 {
			scaled = 0
		} else if scaled > 1 {
			scaled = 1
		}
		out[i] = scaled
	}
	return out
}

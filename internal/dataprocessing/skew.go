package dataprocessing

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// MinSkewTestSamples is the smallest sample the skew test accepts
const MinSkewTestSamples = 8

// SkewResult describes the asymmetry of one numeric column
type SkewResult struct {
	Column string  `json:"column"`
	N      int     `json:"n"`
	Skew   float64 `json:"skew"`
	// Z and PValue come from D'Agostino's skew test; Tested is false when the
	// sample is too small or constant
	Z      float64 `json:"z,omitempty"`
	PValue float64 `json:"p_value,omitempty"`
	Tested bool    `json:"tested"`
}

// Skewness returns the biased sample skewness m3 / m2^1.5 of xs.
// A constant or empty sample has skewness 0.
func Skewness(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m2 := stat.Moment(2, xs, nil)
	if m2 == 0 {
		return 0
	}
	return stat.Moment(3, xs, nil) / math.Pow(m2, 1.5)
}

// SkewTest runs D'Agostino's test for zero skewness and returns the z-score
// and two-sided p-value. ok is false for fewer than MinSkewTestSamples values.
func SkewTest(xs []float64) (z, p float64, ok bool) {
	n := float64(len(xs))
	if len(xs) < MinSkewTestSamples {
		return 0, 0, false
	}

	b2 := Skewness(xs)
	y := b2 * math.Sqrt(((n+1)*(n+3))/(6.0*(n-2)))
	beta2 := 3.0 * (n*n + 27*n - 70) * (n + 1) * (n + 3) /
		((n - 2.0) * (n + 5) * (n + 7) * (n + 9))
	w2 := -1 + math.Sqrt(2*(beta2-1))
	delta := 1 / math.Sqrt(0.5*math.Log(w2))
	alpha := math.Sqrt(2.0 / (w2 - 1))
	if y == 0 {
		y = 1
	}
	z = delta * math.Asinh(y/alpha)
	p = 2 * distuv.UnitNormal.Survival(math.Abs(z))
	return z, p, true
}

// Skew computes the skewness report of one column
func Skew(column string, xs []float64) SkewResult {
	res := SkewResult{Column: column, N: len(xs), Skew: Skewness(xs)}
	if stat.Moment(2, xs, nil) == 0 {
		return res
	}
	res.Z, res.PValue, res.Tested = SkewTest(xs)
	return res
}

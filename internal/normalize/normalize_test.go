package normalize

import (
	"math"
	"sort"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/errors"
	"github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/features"
	"github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/pkg/contracts/domain"
)

func customer(total float64, value string, recency int, ratio float64) features.Customer {
	return features.Customer{
		Record: domain.CustomerRecord{
			OrderNumOnline: total * ratio, OrderNumOffline: total * (1 - ratio),
			ValueOnline: decimal.RequireFromString(value), ValueOffline: decimal.Zero,
		},
		TotalOrderNum:      total,
		TotalCustomerValue: decimal.RequireFromString(value),
		Recency:            recency,
		OnlineRatio:        ratio,
	}
}

func testRows() []features.Customer {
	return []features.Customer{
		customer(2, "50", 10, 0.5),
		customer(30, "9000", 3, 1),
		customer(5, "400", 200, 0),
		customer(1, "20", 45, 0.25),
	}
}

func TestNormalize_Bounds(t *testing.T) {
	opts := Options{
		LogColumns:         []string{domain.ColTotalOrderNum, domain.ColTotalCustomerValue},
		PassthroughColumns: []string{domain.ColRecency, domain.ColOnlineRatio},
	}

	m, scaler, err := Normalize(testRows(), opts)
	require.NoError(t, err)

	assert.Equal(t, []string{domain.ColTotalOrderNum, domain.ColTotalCustomerValue, domain.ColRecency, domain.ColOnlineRatio}, m.Columns)
	require.Equal(t, 4, m.Len())
	assert.Equal(t, 4, m.Dim())

	for j := 0; j < m.Dim(); j++ {
		col := m.Column(j)
		for _, v := range col {
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 1.0)
		}
		sorted := append([]float64(nil), col...)
		sort.Float64s(sorted)
		assert.Equal(t, 0.0, sorted[0], "column %s min", m.Columns[j])
		assert.Equal(t, 1.0, sorted[len(sorted)-1], "column %s max", m.Columns[j])
	}

	// scaler bounds are on the transformed scale for log columns
	assert.InDelta(t, math.Log1p(1), scaler.Min[0], 1e-12)
	assert.InDelta(t, math.Log1p(30), scaler.Max[0], 1e-12)
	assert.Equal(t, 3.0, scaler.Min[2])
	assert.Equal(t, 200.0, scaler.Max[2])
}

func TestNormalize_MonotoneAndOrderPreserved(t *testing.T) {
	rows := testRows()
	m, _, err := Normalize(rows, Options{LogColumns: []string{domain.ColTotalCustomerValue}})
	require.NoError(t, err)

	col := m.Column(0)
	for a := range rows {
		for b := range rows {
			va, _ := rows[a].TotalCustomerValue.Float64()
			vb, _ := rows[b].TotalCustomerValue.Float64()
			if va < vb {
				assert.Less(t, col[a], col[b])
			}
		}
	}
	// row 1 has the largest value, row 3 the smallest
	assert.Equal(t, 1.0, col[1])
	assert.Equal(t, 0.0, col[3])
}

func TestNormalize_ConstantColumn(t *testing.T) {
	rows := []features.Customer{customer(2, "10", 5, 0.5), customer(4, "20", 5, 0.5)}
	m, _, err := Normalize(rows, Options{PassthroughColumns: []string{domain.ColRecency, domain.ColOnlineRatio}})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{0, 0}, {0, 0}}, m.Data)
}

func TestNormalize_Errors(t *testing.T) {
	tests := []struct {
		name    string
		rows    []features.Customer
		opts    Options
		errType apperrors.ErrorType
	}{
		{"no columns", testRows(), Options{}, apperrors.ErrTypeConfig},
		{"column in both lists", testRows(), Options{
			LogColumns:         []string{domain.ColTenure},
			PassthroughColumns: []string{domain.ColTenure},
		}, apperrors.ErrTypeConfig},
		{"unknown column", testRows(), Options{LogColumns: []string{"order_channel"}}, apperrors.ErrTypeConfig},
		{"empty rows", nil, Options{LogColumns: []string{domain.ColTenure}}, apperrors.ErrTypeDegenerateClustering},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Normalize(tt.rows, tt.opts)
			require.Error(t, err)
			assert.Equal(t, tt.errType, apperrors.TypeOf(err))
		})
	}
}

func TestLog1p_Negative(t *testing.T) {
	_, err := Log1p("recency", []float64{1, -2})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeMalformedInput))
	assert.Contains(t, err.Error(), "recency")

	out, err := Log1p("x", []float64{0, math.E - 1})
	require.NoError(t, err)
	assert.InDelta(t, 0, out[0], 1e-12)
	assert.InDelta(t, 1, out[1], 1e-12)
}

func TestNewMatrix(t *testing.T) {
	_, err := NewMatrix([]string{"a", "b"}, [][]float64{{1, 2}, {3}})
	assert.Error(t, err)

	m, err := NewMatrix([]string{"a"}, [][]float64{{1}, {2}})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, m.Column(0))
}

package features

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/errors"
	"github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/pkg/contracts/domain"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func record(id, first, last string, online, offline float64, valOnline, valOffline string) domain.CustomerRecord {
	return domain.CustomerRecord{
		MasterID:             id,
		FirstOrderDate:       date(first),
		LastOrderDate:        date(last),
		LastOrderDateOnline:  date(last),
		LastOrderDateOffline: date(first),
		OrderNumOnline:       online,
		OrderNumOffline:      offline,
		ValueOnline:          decimal.RequireFromString(valOnline),
		ValueOffline:         decimal.RequireFromString(valOffline),
	}
}

func TestDerive(t *testing.T) {
	records := []domain.CustomerRecord{
		record("a", "2021-01-01", "2021-05-30", 3, 1, "100.10", "50.20"),
		record("b", "2020-05-30", "2021-01-31", 0, 2, "0", "80"),
	}

	customers, stats, err := Derive(records, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, customers, 2)

	assert.Equal(t, date("2021-06-01"), stats.ReferenceDate)
	assert.Equal(t, 2, stats.Customers)
	assert.Equal(t, 0, stats.ZeroOrders)

	a := customers[0]
	assert.Equal(t, "a", a.Record.MasterID)
	assert.Equal(t, 4.0, a.TotalOrderNum)
	assert.True(t, decimal.RequireFromString("150.30").Equal(a.TotalCustomerValue), a.TotalCustomerValue.String())
	assert.Equal(t, 2, a.Recency)
	assert.Equal(t, 151, a.Tenure)
	assert.InDelta(t, 150.30/4, a.AvgOrderValue, 1e-12)
	assert.Equal(t, 0.75, a.OnlineRatio)

	b := customers[1]
	assert.Equal(t, 121, b.Recency)
	assert.Equal(t, 367, b.Tenure)
	assert.Equal(t, 0.0, b.OnlineRatio)
	assert.Equal(t, 40.0, b.AvgOrderValue)
}

func TestDerive_Invariants(t *testing.T) {
	records := []domain.CustomerRecord{
		record("a", "2019-01-01", "2021-05-30", 3, 1, "100.10", "50.20"),
		record("b", "2020-05-30", "2020-05-30", 0, 2, "0", "80"),
		record("c", "2021-02-11", "2021-03-01", 7, 0, "700", "0"),
		record("d", "2018-12-31", "2019-01-01", 1, 1, "0.01", "0.02"),
	}

	customers, _, err := Derive(records, Options{ReferenceOffsetDays: 0, ZeroOrderPolicy: PolicyExclude})
	require.NoError(t, err)

	for i, c := range customers {
		assert.Equal(t, records[i].MasterID, c.Record.MasterID, "order preserved")
		assert.Equal(t, records[i].OrderNumOnline+records[i].OrderNumOffline, c.TotalOrderNum)
		assert.True(t, records[i].ValueOnline.Add(records[i].ValueOffline).Equal(c.TotalCustomerValue))
		assert.GreaterOrEqual(t, c.OnlineRatio, 0.0)
		assert.LessOrEqual(t, c.OnlineRatio, 1.0)
		assert.GreaterOrEqual(t, c.Recency, 0)
		assert.GreaterOrEqual(t, c.Tenure, c.Recency)
	}
	// latest customer has recency 0 with no offset
	assert.Equal(t, 0, customers[0].Recency)
}

func TestDerive_PartialDaysRoundDown(t *testing.T) {
	r1 := record("a", "2021-01-01", "2021-01-10", 1, 0, "1", "0")
	r1.LastOrderDate = time.Date(2021, 1, 10, 18, 0, 0, 0, time.UTC)
	r2 := record("b", "2021-01-01", "2021-01-05", 1, 0, "1", "0")
	r2.LastOrderDate = time.Date(2021, 1, 5, 6, 0, 0, 0, time.UTC)

	customers, stats, err := Derive([]domain.CustomerRecord{r1, r2}, Options{ReferenceOffsetDays: 2, ZeroOrderPolicy: PolicyExclude})
	require.NoError(t, err)

	assert.Equal(t, time.Date(2021, 1, 12, 18, 0, 0, 0, time.UTC), stats.ReferenceDate)
	assert.Equal(t, 2, customers[0].Recency)
	// 7 days 12 hours
	assert.Equal(t, 7, customers[1].Recency)
}

func TestDerive_ZeroOrderPolicies(t *testing.T) {
	records := []domain.CustomerRecord{
		record("a", "2021-01-01", "2021-05-30", 3, 1, "100", "50"),
		record("z", "2021-01-01", "2021-02-01", 0, 0, "0", "0"),
	}

	t.Run("exclude", func(t *testing.T) {
		customers, stats, err := Derive(records, Options{ReferenceOffsetDays: 2, ZeroOrderPolicy: PolicyExclude})
		require.NoError(t, err)
		require.Len(t, customers, 2)

		z := customers[1]
		assert.True(t, z.ZeroOrders)
		assert.True(t, z.Excluded)
		assert.Equal(t, 0.0, z.AvgOrderValue)
		assert.Equal(t, 0.0, z.OnlineRatio)
		assert.Equal(t, 1, stats.ZeroOrders)
		assert.Equal(t, 1, stats.Excluded)

		modeled, index := Modeled(customers)
		require.Len(t, modeled, 1)
		assert.Equal(t, []int{0}, index)
	})

	t.Run("zero", func(t *testing.T) {
		customers, stats, err := Derive(records, Options{ReferenceOffsetDays: 2, ZeroOrderPolicy: PolicyZero})
		require.NoError(t, err)
		assert.True(t, customers[1].ZeroOrders)
		assert.False(t, customers[1].Excluded)
		assert.Equal(t, 0, stats.Excluded)

		modeled, _ := Modeled(customers)
		assert.Len(t, modeled, 2)
	})

	t.Run("fail", func(t *testing.T) {
		_, _, err := Derive(records, Options{ReferenceOffsetDays: 2, ZeroOrderPolicy: PolicyFail})
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeDegenerateArithmetic))
		assert.Contains(t, err.Error(), "customer z")
	})
}

func TestDerive_Errors(t *testing.T) {
	_, _, err := Derive(nil, DefaultOptions())
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeMalformedInput))

	_, _, err = Derive([]domain.CustomerRecord{record("a", "2021-01-01", "2021-01-02", 1, 0, "1", "0")},
		Options{ZeroOrderPolicy: "drop"})
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
}

func TestColumns(t *testing.T) {
	customers, _, err := Derive([]domain.CustomerRecord{
		record("a", "2021-01-01", "2021-05-30", 3, 1, "100", "50"),
		record("b", "2021-01-01", "2021-05-28", 1, 1, "10", "20"),
	}, DefaultOptions())
	require.NoError(t, err)

	cols, err := Columns(customers, []string{domain.ColTotalOrderNum, domain.ColValueOffline, domain.ColRecency})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{4, 2}, {50, 20}, {2, 4}}, cols)

	_, err = Columns(customers, []string{"master_id"})
	assert.Error(t, err)
}

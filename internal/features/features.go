// Package features derives behavioral features (recency, tenure, totals and
// ratios) from loaded customer records.
package features

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/errors"
	"github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/pkg/contracts/domain"
)

// ZeroOrderPolicy decides what happens to customers whose total order count is zero
type ZeroOrderPolicy string

const (
	// PolicyExclude keeps the customer with ratios 0 but leaves it out of modeling
	PolicyExclude ZeroOrderPolicy = "exclude"
	// PolicyZero keeps the customer in modeling with ratios 0
	PolicyZero ZeroOrderPolicy = "zero"
	// PolicyFail aborts derivation
	PolicyFail ZeroOrderPolicy = "fail"
)

const day = 24 * time.Hour

// Options controls feature derivation
type Options struct {
	ReferenceOffsetDays int
	ZeroOrderPolicy     ZeroOrderPolicy
}

// DefaultOptions returns the offset and policy used when none are configured
func DefaultOptions() Options {
	return Options{ReferenceOffsetDays: 2, ZeroOrderPolicy: PolicyExclude}
}

// Customer is a record together with its derived features
type Customer struct {
	Record domain.CustomerRecord

	TotalOrderNum      float64
	TotalCustomerValue decimal.Decimal
	Recency            int
	Tenure             int
	AvgOrderValue      float64
	OnlineRatio        float64

	// ZeroOrders flags a customer with no orders; its ratios are 0
	ZeroOrders bool
	// Excluded customers carry no cluster label
	Excluded bool
}

// Stats summarizes one derivation run
type Stats struct {
	ReferenceDate time.Time `json:"reference_date"`
	Customers     int       `json:"customers"`
	ZeroOrders    int       `json:"zero_orders"`
	Excluded      int       `json:"excluded"`
}

// Derive computes the feature vector of every record. The reference date is
// the latest last_order_date plus ReferenceOffsetDays; day counts are whole
// days rounded down. No record is dropped and order is preserved.
func Derive(records []domain.CustomerRecord, opts Options) ([]Customer, Stats, error) {
	if len(records) == 0 {
		return nil, Stats{}, apperrors.NewInputError("no records to derive features from", nil)
	}
	switch opts.ZeroOrderPolicy {
	case PolicyExclude, PolicyZero, PolicyFail:
	case "":
		opts.ZeroOrderPolicy = PolicyExclude
	default:
		return nil, Stats{}, apperrors.NewConfigError(fmt.Sprintf("unknown zero-order policy %q", opts.ZeroOrderPolicy), nil)
	}

	ref := ReferenceDate(records, opts.ReferenceOffsetDays)
	stats := Stats{ReferenceDate: ref, Customers: len(records)}

	out := make([]Customer, len(records))
	for i, rec := range records {
		c := Customer{
			Record:             rec,
			TotalOrderNum:      rec.OrderNumOnline + rec.OrderNumOffline,
			TotalCustomerValue: rec.ValueOnline.Add(rec.ValueOffline),
			Recency:            wholeDays(ref.Sub(rec.LastOrderDate)),
			Tenure:             wholeDays(ref.Sub(rec.FirstOrderDate)),
		}

		if c.TotalOrderNum == 0 {
			if opts.ZeroOrderPolicy == PolicyFail {
				return nil, Stats{}, apperrors.NewDegenerateArithmeticError(
					fmt.Sprintf("customer %s (row %d) has zero total orders", rec.MasterID, rec.Row), nil).
					WithContext("master_id", rec.MasterID).
					WithContext("row", rec.Row)
			}
			c.ZeroOrders = true
			c.Excluded = opts.ZeroOrderPolicy == PolicyExclude
			stats.ZeroOrders++
			if c.Excluded {
				stats.Excluded++
			}
		} else {
			total, _ := c.TotalCustomerValue.Float64()
			c.AvgOrderValue = total / c.TotalOrderNum
			c.OnlineRatio = rec.OrderNumOnline / c.TotalOrderNum
		}

		out[i] = c
	}

	return out, stats, nil
}

// ReferenceDate returns max(last_order_date) plus offsetDays
func ReferenceDate(records []domain.CustomerRecord, offsetDays int) time.Time {
	var latest time.Time
	for _, r := range records {
		if r.LastOrderDate.After(latest) {
			latest = r.LastOrderDate
		}
	}
	return latest.AddDate(0, 0, offsetDays)
}

func wholeDays(d time.Duration) int {
	return int(math.Floor(float64(d) / float64(day)))
}

// Value returns the named numeric column of c
func (c *Customer) Value(column string) (float64, error) {
	switch column {
	case domain.ColOrderNumOnline:
		return c.Record.OrderNumOnline, nil
	case domain.ColOrderNumOffline:
		return c.Record.OrderNumOffline, nil
	case domain.ColValueOnline:
		v, _ := c.Record.ValueOnline.Float64()
		return v, nil
	case domain.ColValueOffline:
		v, _ := c.Record.ValueOffline.Float64()
		return v, nil
	case domain.ColTotalOrderNum:
		return c.TotalOrderNum, nil
	case domain.ColTotalCustomerValue:
		v, _ := c.TotalCustomerValue.Float64()
		return v, nil
	case domain.ColRecency:
		return float64(c.Recency), nil
	case domain.ColTenure:
		return float64(c.Tenure), nil
	case domain.ColAvgOrderValue:
		return c.AvgOrderValue, nil
	case domain.ColOnlineRatio:
		return c.OnlineRatio, nil
	default:
		return 0, fmt.Errorf("unknown numeric column %q", column)
	}
}

// Columns extracts the named columns of customers, one slice per column
func Columns(customers []Customer, columns []string) ([][]float64, error) {
	out := make([][]float64, len(columns))
	for j, col := range columns {
		values := make([]float64, len(customers))
		for i := range customers {
			v, err := customers[i].Value(col)
			if err != nil {
				return nil, err
			}
			values[i] = v
		}
		out[j] = values
	}
	return out, nil
}

// Modeled returns the customers that take part in clustering and, for each,
// its index in customers.
func Modeled(customers []Customer) ([]Customer, []int) {
	rows := make([]Customer, 0, len(customers))
	index := make([]int, 0, len(customers))
	for i, c := range customers {
		if c.Excluded {
			continue
		}
		rows = append(rows, c)
		index = append(index, i)
	}
	return rows, index
}

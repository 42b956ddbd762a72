package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Input column names. The loader matches headers against these exactly.
const (
	ColMasterID             = "master_id"
	ColOrderChannel         = "order_channel"
	ColLastOrderChannel     = "last_order_channel"
	ColFirstOrderDate       = "first_order_date"
	ColLastOrderDate        = "last_order_date"
	ColLastOrderDateOnline  = "last_order_date_online"
	ColLastOrderDateOffline = "last_order_date_offline"
	ColOrderNumOnline       = "order_num_total_ever_online"
	ColOrderNumOffline      = "order_num_total_ever_offline"
	ColValueOffline         = "customer_value_total_ever_offline"
	ColValueOnline          = "customer_value_total_ever_online"
	ColInterestedCategories = "interested_in_categories_12"
)

// Derived feature column names
const (
	ColTotalOrderNum      = "total_order_num"
	ColTotalCustomerValue = "total_customer_value"
	ColRecency            = "recency"
	ColTenure             = "tenure"
	ColAvgOrderValue      = "avg_order_value"
	ColOnlineRatio        = "online_ratio"
)

// Label column names appended to the persisted dataset
const (
	ColZeroOrders  = "zero_orders"
	ColCluster     = "cluster"
	ColWardCluster = "ward_cluster"
)

// RequiredColumns must be present in every input header.
var RequiredColumns = []string{
	ColMasterID,
	ColFirstOrderDate,
	ColLastOrderDate,
	ColLastOrderDateOnline,
	ColLastOrderDateOffline,
	ColOrderNumOnline,
	ColOrderNumOffline,
	ColValueOffline,
	ColValueOnline,
}

// DerivedColumns lists the derived features in persisted order.
var DerivedColumns = []string{
	ColTotalOrderNum,
	ColTotalCustomerValue,
	ColRecency,
	ColTenure,
	ColAvgOrderValue,
	ColOnlineRatio,
}

// NumericColumns lists every numeric column a customer carries after
// derivation, raw counts and spend first.
var NumericColumns = []string{
	ColOrderNumOnline,
	ColOrderNumOffline,
	ColValueOffline,
	ColValueOnline,
	ColRecency,
	ColTenure,
	ColTotalOrderNum,
	ColTotalCustomerValue,
	ColAvgOrderValue,
	ColOnlineRatio,
}

// IsNumericColumn reports whether name is one of NumericColumns.
func IsNumericColumn(name string) bool {
	for _, c := range NumericColumns {
		if c == name {
			return true
		}
	}
	return false
}

// CustomerRecord is one input row. Records are immutable once loaded.
type CustomerRecord struct {
	// Row is the 1-based line of the record in the source, header included
	Row int `json:"row"`

	MasterID         string `json:"master_id" validate:"required,notblank"`
	OrderChannel     string `json:"order_channel,omitempty"`
	LastOrderChannel string `json:"last_order_channel,omitempty"`

	FirstOrderDate       time.Time `json:"first_order_date" validate:"required,ltefield=LastOrderDate"`
	LastOrderDate        time.Time `json:"last_order_date" validate:"required"`
	LastOrderDateOnline  time.Time `json:"last_order_date_online" validate:"required"`
	LastOrderDateOffline time.Time `json:"last_order_date_offline" validate:"required"`

	OrderNumOnline  float64 `json:"order_num_total_ever_online" validate:"gte=0"`
	OrderNumOffline float64 `json:"order_num_total_ever_offline" validate:"gte=0"`

	// Spend is held as exact decimals so totals match the source to the cent
	ValueOnline  decimal.Decimal `json:"customer_value_total_ever_online" validate:"gte=0"`
	ValueOffline decimal.Decimal `json:"customer_value_total_ever_offline" validate:"gte=0"`

	InterestedCategories string `json:"interested_in_categories_12,omitempty"`

	// Fields holds the original text of every column in Dataset.Header order
	Fields []string `json:"-"`
}

// Dataset is the loaded input: the header as read and the records in file order.
type Dataset struct {
	Source  string           `json:"source"`
	Header  []string         `json:"header"`
	Records []CustomerRecord `json:"records"`
}

// Len returns the number of records
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

// ColumnIndex returns the header position of name, or -1.
func (d *Dataset) ColumnIndex(name string) int {
	for i, h := range d.Header {
		if h == name {
			return i
		}
	}
	return -1
}

package dataprocessing

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	apperrors "github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/errors"
	"github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/pkg/contracts/domain"
)

// DateLayouts are tried in order when parsing date columns
var DateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// RecordValidator parses raw rows into customer records and checks them
// against the struct tags of domain.CustomerRecord.
type RecordValidator struct {
	validate *validator.Validate
}

// NewRecordValidator creates a validator with the customer rules registered
func NewRecordValidator() *RecordValidator {
	v := validator.New()

	v.RegisterValidation("notblank", isNotBlank)

	// Decimals are compared as numbers so gte/lte tags work on spend fields
	v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})

	// Use JSON tag names in violations so they match the input columns
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &RecordValidator{validate: v}
}

// ParseRecord converts one row into a CustomerRecord. line is the 1-based
// source line used in violations; index maps column names to positions.
func (rv *RecordValidator) ParseRecord(line int, index map[string]int, fields []string) (domain.CustomerRecord, apperrors.Violations) {
	get := func(col string) string {
		if i, ok := index[col]; ok && i < len(fields) {
			return strings.TrimSpace(fields[i])
		}
		return ""
	}

	rec := domain.CustomerRecord{
		Row:                  line,
		MasterID:             get(domain.ColMasterID),
		OrderChannel:         get(domain.ColOrderChannel),
		LastOrderChannel:     get(domain.ColLastOrderChannel),
		InterestedCategories: get(domain.ColInterestedCategories),
		Fields:               append([]string(nil), fields...),
	}

	var violations apperrors.Violations
	fail := func(field, reason string) {
		violations = append(violations, apperrors.Violation{
			Row:      line,
			MasterID: rec.MasterID,
			Field:    field,
			Reason:   reason,
		})
	}

	dates := []struct {
		col string
		dst *time.Time
	}{
		{domain.ColFirstOrderDate, &rec.FirstOrderDate},
		{domain.ColLastOrderDate, &rec.LastOrderDate},
		{domain.ColLastOrderDateOnline, &rec.LastOrderDateOnline},
		{domain.ColLastOrderDateOffline, &rec.LastOrderDateOffline},
	}
	for _, d := range dates {
		t, err := ParseDate(get(d.col))
		if err != nil {
			fail(d.col, err.Error())
			continue
		}
		*d.dst = t
	}

	counts := []struct {
		col string
		dst *float64
	}{
		{domain.ColOrderNumOnline, &rec.OrderNumOnline},
		{domain.ColOrderNumOffline, &rec.OrderNumOffline},
	}
	for _, c := range counts {
		v, err := parseCount(get(c.col))
		if err != nil {
			fail(c.col, err.Error())
			continue
		}
		*c.dst = v
	}

	values := []struct {
		col string
		dst *decimal.Decimal
	}{
		{domain.ColValueOnline, &rec.ValueOnline},
		{domain.ColValueOffline, &rec.ValueOffline},
	}
	for _, v := range values {
		d, err := parseDecimal(get(v.col))
		if err != nil {
			fail(v.col, err.Error())
			continue
		}
		*v.dst = d
	}

	// Struct rules only make sense once every field parsed
	if len(violations) > 0 {
		if rec.MasterID == "" {
			fail(domain.ColMasterID, "required")
		}
		return rec, violations
	}

	if err := rv.validate.Struct(rec); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			fail("record", err.Error())
			return rec, violations
		}
		for _, fe := range fieldErrs {
			fail(fe.Field(), describeFieldError(fe))
		}
	}

	return rec, violations
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "notblank":
		return "must not be blank"
	case "gte":
		return fmt.Sprintf("must be >= %s", fe.Param())
	case "ltefield":
		return fmt.Sprintf("must not be after %s", domain.ColLastOrderDate)
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// ParseDate parses s with the first matching layout of DateLayouts
func ParseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("required")
	}
	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

func parseCount(s string) (float64, error) {
	if s == "" {
		return 0, errors.New("required")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number %q", s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("not a finite number %q", s)
	}
	return v, nil
}

func parseDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, errors.New("required")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("not a decimal %q", s)
	}
	return d, nil
}

func isNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func decimalValue(field reflect.Value) interface{} {
	if d, ok := field.Interface().(decimal.Decimal); ok {
		f, _ := d.Float64()
		return f
	}
	return nil
}

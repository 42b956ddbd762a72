package dataprocessing

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	apperrors "github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/errors"
	"github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/pkg/contracts/domain"
)

const testHeader = "master_id,order_channel,last_order_channel,first_order_date,last_order_date," +
	"last_order_date_online,last_order_date_offline,order_num_total_ever_online," +
	"order_num_total_ever_offline,customer_value_total_ever_offline,customer_value_total_ever_online," +
	"interested_in_categories_12"

func loadString(t *testing.T, body string) (*domain.Dataset, error) {
	t.Helper()
	l := NewLoader(nil, LoaderConfig{})
	return l.LoadReader(context.Background(), strings.NewReader(body), "inline")
}

func violationsOf(t *testing.T, err error) apperrors.Violations {
	t.Helper()
	require.Error(t, err)
	require.True(t, apperrors.IsType(err, apperrors.ErrTypeMalformedInput), err.Error())
	var vs apperrors.Violations
	require.True(t, errors.As(err, &vs))
	return vs
}

func TestLoader_LoadCSVFixture(t *testing.T) {
	l := NewLoader(nil, LoaderConfig{})
	ds, err := l.Load(context.Background(), filepath.Join("testdata", "customers.csv"))
	require.NoError(t, err)

	require.Equal(t, 8, ds.Len())
	assert.Len(t, ds.Header, 12)

	first := ds.Records[0]
	assert.Equal(t, 2, first.Row)
	assert.Equal(t, "c1", first.MasterID)
	assert.Equal(t, "Android App", first.OrderChannel)
	assert.Equal(t, time.Date(2021, 5, 30, 0, 0, 0, 0, time.UTC), first.LastOrderDate)
	assert.Equal(t, 20.0, first.OrderNumOnline)
	assert.True(t, decimal.RequireFromString("3000.50").Equal(first.ValueOffline))
	assert.Equal(t, "[KADIN, ERKEK]", first.InterestedCategories)
	// original text is kept verbatim
	assert.Equal(t, "3000.50", first.Fields[ds.ColumnIndex(domain.ColValueOffline)])
	assert.Equal(t, "20.0", first.Fields[ds.ColumnIndex(domain.ColOrderNumOnline)])
}

func TestLoader_BOMAndDelimiter(t *testing.T) {
	body := "\ufeff" + strings.ReplaceAll(testHeader, ",", ";") + "\n" +
		"a;App;App;2021-01-01;2021-02-01;2021-02-01;2021-01-01;1;2;10.5;20;[X]\n"

	l := NewLoader(nil, LoaderConfig{Delimiter: ';'})
	ds, err := l.LoadReader(context.Background(), strings.NewReader(body), "semicolon")
	require.NoError(t, err)

	assert.Equal(t, domain.ColMasterID, ds.Header[0])
	require.Equal(t, 1, ds.Len())
	assert.Equal(t, 2.0, ds.Records[0].OrderNumOffline)
}

func TestLoader_DateLayouts(t *testing.T) {
	body := testHeader + "\n" +
		"a,App,App,2021-01-01 10:30:00,2021-02-01T08:00:00Z,2021-02-01,2021-01-01,1,0,0,20,[]\n"

	ds, err := loadString(t, body)
	require.NoError(t, err)
	assert.Equal(t, 10, ds.Records[0].FirstOrderDate.Hour())
	assert.Equal(t, 8, ds.Records[0].LastOrderDate.Hour())
}

func TestLoader_CollectsAllViolations(t *testing.T) {
	body := testHeader + "\n" +
		// valid
		"a,App,App,2021-01-01,2021-02-01,2021-02-01,2021-01-01,1,2,10,20,[]\n" +
		// unparseable date and non-numeric count
		"b,App,App,yesterday,2021-02-01,2021-02-01,2021-01-01,x,2,10,20,[]\n" +
		// negative count and negative spend
		"c,App,App,2021-01-01,2021-02-01,2021-02-01,2021-01-01,-1,2,-10,20,[]\n" +
		// first order after last order
		"d,App,App,2021-03-01,2021-02-01,2021-02-01,2021-01-01,1,2,10,20,[]\n" +
		// duplicate id
		"a,App,App,2021-01-01,2021-02-01,2021-02-01,2021-01-01,1,2,10,20,[]\n" +
		// missing id
		",App,App,2021-01-01,2021-02-01,2021-02-01,2021-01-01,1,2,10,20,[]\n" +
		// ragged
		"g,App\n"

	_, err := loadString(t, body)
	vs := violationsOf(t, err)

	type key struct {
		row   int
		field string
	}
	got := make(map[key]string)
	for _, v := range vs {
		got[key{v.Row, v.Field}] = v.Reason
	}

	assert.Equal(t, `unparseable date "yesterday"`, got[key{3, domain.ColFirstOrderDate}])
	assert.Equal(t, `not a number "x"`, got[key{3, domain.ColOrderNumOnline}])
	assert.Equal(t, "must be >= 0", got[key{4, domain.ColOrderNumOnline}])
	assert.Equal(t, "must be >= 0", got[key{4, domain.ColValueOffline}])
	assert.Equal(t, "must not be after last_order_date", got[key{5, domain.ColFirstOrderDate}])
	assert.Equal(t, "duplicate of row 2", got[key{6, domain.ColMasterID}])
	assert.Equal(t, "required", got[key{7, domain.ColMasterID}])
	assert.Equal(t, "expected 12 fields, got 2", got[key{8, "record"}])

	assert.Equal(t, 6, vs.Rows())
}

func TestLoader_HeaderErrors(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		errContains string
	}{
		{"empty input", "", "input is empty"},
		{"header only", testHeader + "\n", "no records"},
		{"missing columns", "master_id,order_channel\na,App\n", "missing required columns: first_order_date"},
		{"duplicate column", testHeader + ",master_id\n", "duplicate column"},
		{"bare quote", testHeader + "\n\"a,b\n", "malformed delimited text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadString(t, tt.body)
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, apperrors.ErrTypeMalformedInput))
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestLoader_MissingFile(t *testing.T) {
	l := NewLoader(nil, LoaderConfig{})
	_, err := l.Load(context.Background(), filepath.Join(t.TempDir(), "absent.csv"))
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeIO))
}

func TestLoader_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	l := NewLoader(nil, LoaderConfig{})
	_, err := l.Load(ctx, filepath.Join("testdata", "customers.csv"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoader_LoadXLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	// first sheet holds notes and must be skipped
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "exported customers"))
	_, err := f.NewSheet("Customers")
	require.NoError(t, err)

	header := strings.Split(testHeader, ",")
	require.NoError(t, f.SetSheetRow("Customers", "A1", &header))
	row := []string{"x1", "App", "Offline", "2021-01-01", "2021-02-01", "2021-02-01", "2021-01-01", "3.0", "1.0", "15.25", "30", ""}
	require.NoError(t, f.SetSheetRow("Customers", "A2", &row))

	path := filepath.Join(t.TempDir(), "customers.xlsx")
	require.NoError(t, f.SaveAs(path))

	l := NewLoader(nil, LoaderConfig{})
	ds, err := l.Load(context.Background(), path)
	require.NoError(t, err)

	require.Equal(t, 1, ds.Len())
	rec := ds.Records[0]
	assert.Equal(t, "x1", rec.MasterID)
	assert.Equal(t, 3.0, rec.OrderNumOnline)
	assert.True(t, decimal.RequireFromString("15.25").Equal(rec.ValueOffline))
	// trailing empty cell padded back
	assert.Len(t, rec.Fields, 12)
}

func TestLoader_XLSXWithoutCustomerSheet(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "nothing here"))
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	l := NewLoader(nil, LoaderConfig{})
	_, err := l.Load(context.Background(), path)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeMalformedInput))
}

func TestLoader_InputFileUnchanged(t *testing.T) {
	path := filepath.Join("testdata", "customers.csv")
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	_, err = NewLoader(nil, LoaderConfig{}).Load(context.Background(), path)
	require.NoError(t, err)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

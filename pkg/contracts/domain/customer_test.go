package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsNumericColumn(t *testing.T) {
	tests := []struct {
		name string
		col  string
		want bool
	}{
		{"raw count", ColOrderNumOnline, true},
		{"raw spend", ColValueOffline, true},
		{"derived", ColOnlineRatio, true},
		{"identifier", ColMasterID, false},
		{"categorical", ColOrderChannel, false},
		{"date", ColFirstOrderDate, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsNumericColumn(tt.col))
		})
	}
}

func TestDataset_ColumnIndex(t *testing.T) {
	ds := &Dataset{Header: []string{ColMasterID, ColOrderChannel, ColFirstOrderDate}}

	assert.Equal(t, 0, ds.ColumnIndex(ColMasterID))
	assert.Equal(t, 2, ds.ColumnIndex(ColFirstOrderDate))
	assert.Equal(t, -1, ds.ColumnIndex(ColRecency))
}

func TestDataset_Len(t *testing.T) {
	var nilSet *Dataset
	assert.Equal(t, 0, nilSet.Len())

	ds := &Dataset{Records: make([]CustomerRecord, 3)}
	assert.Equal(t, 3, ds.Len())
}

func TestDerivedColumnsAreNumeric(t *testing.T) {
	for _, c := range DerivedColumns {
		assert.True(t, IsNumericColumn(c), c)
	}
}

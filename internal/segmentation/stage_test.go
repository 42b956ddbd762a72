package segmentation

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStageReport(t *testing.T) {
	report := NewStageReport(StageKMeans)

	assert.Equal(t, StageKMeans, report.Name)
	assert.Equal(t, StageStatusPending, report.Status)
	assert.NotNil(t, report.Metadata)
	assert.Nil(t, report.StartTime)
	assert.Nil(t, report.EndTime)
	assert.Empty(t, report.Error)
	assert.Zero(t, report.Duration())
}

func TestStageReportTransitions(t *testing.T) {
	tests := []struct {
		name       string
		transition func(*StageReport)
		wantStatus StageStatus
		checkTime  func(*StageReport) bool
	}{
		{
			name:       "Start",
			transition: func(s *StageReport) { s.Start() },
			wantStatus: StageStatusActive,
			checkTime: func(s *StageReport) bool {
				return s.StartTime != nil && s.EndTime == nil
			},
		},
		{
			name:       "Complete",
			transition: func(s *StageReport) { s.Start(); s.Complete() },
			wantStatus: StageStatusCompleted,
			checkTime: func(s *StageReport) bool {
				return s.EndTime != nil && !s.EndTime.Before(*s.StartTime)
			},
		},
		{
			name:       "Fail",
			transition: func(s *StageReport) { s.Start(); s.Fail(errors.New("no gap")) },
			wantStatus: StageStatusFailed,
			checkTime: func(s *StageReport) bool {
				return s.EndTime != nil && s.Error == "no gap"
			},
		},
		{
			name:       "Skip",
			transition: func(s *StageReport) { s.Skip("k fixed") },
			wantStatus: StageStatusSkipped,
			checkTime: func(s *StageReport) bool {
				return s.StartTime != nil && s.EndTime != nil && s.Message == "k fixed"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := NewStageReport("test")
			tt.transition(report)

			assert.Equal(t, tt.wantStatus, report.Status)
			assert.True(t, tt.checkTime(report))
		})
	}
}

func TestStageReport_Duration(t *testing.T) {
	report := NewStageReport("test")
	start := time.Date(2021, 6, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(1500 * time.Millisecond)
	report.StartTime, report.EndTime = &start, &end

	assert.Equal(t, 1500*time.Millisecond, report.Duration())

	data, err := json.Marshal(report)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, 1500.0, decoded["duration_ms"])
	assert.Equal(t, "pending", decoded["status"])
	assert.NotContains(t, decoded, "metadata")
}

func TestStageReport_SnapshotIsCopy(t *testing.T) {
	report := NewStageReport("test")
	report.Set("k", 3)

	snap := report.Snapshot()
	snap["k"] = 4

	assert.Equal(t, 3, report.Snapshot()["k"])
}

func TestStageReport_ConcurrentSet(t *testing.T) {
	report := NewStageReport("test")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			report.Set(StageKMeans+string(rune('a'+i)), i)
			_ = report.Duration()
		}(i)
	}
	wg.Wait()

	assert.Len(t, report.Snapshot(), 10)
}

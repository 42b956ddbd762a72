package segmentation

import (
	"encoding/json"
	"sync"
	"time"
)

// StageStatus represents the outcome of a pipeline stage
type StageStatus string

const (
	StageStatusPending   StageStatus = "pending"
	StageStatusActive    StageStatus = "active"
	StageStatusCompleted StageStatus = "completed"
	StageStatusFailed    StageStatus = "failed"
	StageStatusSkipped   StageStatus = "skipped"
)

// Stage names, in pipeline order
const (
	StageLoad            = "load"
	StageDerive          = "derive"
	StageSkew            = "skew"
	StageNormalize       = "normalize"
	StageSelectK         = "select_k"
	StageKMeans          = "kmeans"
	StageSummarizeKMeans = "summarize_kmeans"
	StageWard            = "ward"
	StageCut             = "cut"
	StageSummarizeWard   = "summarize_ward"
)

// StageReport is the runtime record of one stage
type StageReport struct {
	mu        sync.RWMutex
	Name      string
	Status    StageStatus
	StartTime *time.Time
	EndTime   *time.Time
	Message   string
	Error     string
	Metadata  map[string]interface{}
}

// NewStageReport creates a pending stage report
func NewStageReport(name string) *StageReport {
	return &StageReport{
		Name:     name,
		Status:   StageStatusPending,
		Metadata: make(map[string]interface{}),
	}
}

// Start marks the stage as active and sets the start time
func (s *StageReport) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.StartTime = &now
	s.Status = StageStatusActive
}

// Complete marks the stage as completed and sets the end time
func (s *StageReport) Complete() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.EndTime = &now
	s.Status = StageStatusCompleted
}

// Fail marks the stage as failed with the given error
func (s *StageReport) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.EndTime = &now
	s.Status = StageStatusFailed
	if err != nil {
		s.Error = err.Error()
	}
}

// Skip marks the stage as skipped with the given reason
func (s *StageReport) Skip(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.StartTime = &now
	s.EndTime = &now
	s.Status = StageStatusSkipped
	s.Message = reason
}

// Set attaches a metadata value
func (s *StageReport) Set(key string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Metadata[key] = value
}

// Snapshot returns a copy of the metadata
func (s *StageReport) Snapshot() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]interface{}, len(s.Metadata))
	for k, v := range s.Metadata {
		out[k] = v
	}
	return out
}

// Duration returns the duration of the stage
func (s *StageReport) Duration() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.StartTime == nil {
		return 0
	}
	if s.EndTime != nil {
		return s.EndTime.Sub(*s.StartTime)
	}
	return time.Since(*s.StartTime)
}

// MarshalJSON writes the report with its duration in milliseconds
func (s *StageReport) MarshalJSON() ([]byte, error) {
	duration := s.Duration()

	s.mu.RLock()
	defer s.mu.RUnlock()

	return json.Marshal(struct {
		Name       string                 `json:"name"`
		Status     StageStatus            `json:"status"`
		StartTime  *time.Time             `json:"start_time,omitempty"`
		EndTime    *time.Time             `json:"end_time,omitempty"`
		DurationMS float64                `json:"duration_ms"`
		Message    string                 `json:"message,omitempty"`
		Error      string                 `json:"error,omitempty"`
		Metadata   map[string]interface{} `json:"metadata,omitempty"`
	}{
		Name:       s.Name,
		Status:     s.Status,
		StartTime:  s.StartTime,
		EndTime:    s.EndTime,
		DurationMS: float64(duration.Microseconds()) / 1000,
		Message:    s.Message,
		Error:      s.Error,
		Metadata:   s.Metadata,
	})
}

package orchestration

import (
	"encoding/json"
	"sync"
	"time"
)

// StepRecord is one entry of the ExecutionJournal: what happened to a step,
// in the order it happened (§4.5).
type StepRecord struct {
	StepID    string          `json:"step_id"`
	Status    StateKind       `json:"status"`
	Output    json.RawMessage `json:"output,omitempty"`
	Error     string          `json:"error,omitempty"`
	StartedAt time.Time       `json:"started_at"`
	EndedAt   time.Time       `json:"ended_at"`
}

// Duration reports how long the step ran.
func (r StepRecord) Duration() time.Duration { return r.EndedAt.Sub(r.StartedAt) }

// ExecutionJournal accumulates StepRecords across the whole run, in
// completion order, for post-hoc inspection and for the final
// OrchestrationResult's audit trail. Append-only and safe for concurrent
// use across wave goroutines (§4.5, §5).
type ExecutionJournal struct {
	mu      sync.Mutex
	records []StepRecord
}

// NewExecutionJournal returns an empty journal.
func NewExecutionJournal() *ExecutionJournal {
	return &ExecutionJournal{}
}

// Append adds a record, assigning no particular meaning to duplicate
// step_ids beyond recording each attempt (retries produce multiple records).
func (j *ExecutionJournal) Append(rec StepRecord) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.records = append(j.records, rec)
}

// Records returns a copy of every recorded entry, in append order.
func (j *ExecutionJournal) Records() []StepRecord {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]StepRecord, len(j.records))
	copy(out, j.records)
	return out
}

// Last returns the most recent record for stepID, if any.
func (j *ExecutionJournal) Last(stepID string) (StepRecord, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	for i := len(j.records) - 1; i >= 0; i-- {
		if j.records[i].StepID == stepID {
			return j.records[i], true
		}
	}
	return StepRecord{}, false
}

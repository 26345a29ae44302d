package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// RunStatus is the outcome of an aggregation run.
type RunStatus string

const (
	RunCompleted RunStatus = "completed" // every source contributed
	RunDegraded  RunStatus = "degraded"  // at least one source was unavailable
	RunFailed    RunStatus = "failed"    // no source was available or the run was canceled
)

// SourceStat summarizes one source's contribution to a run.
type SourceStat struct {
	Source Source `json:"source"`
	Count  int    `json:"count"`
	Error  string `json:"error,omitempty"`
}

// FetchRun is the persisted summary of one aggregation run. It records counts only;
// the content itself is never stored.
type FetchRun struct {
	id         string
	Sequence   int
	StartedAt  time.Time
	FinishedAt time.Time
	Sources    []SourceStat
	Merged     int
	Duplicates int
	Rejected   int
	Output     int
	Status     RunStatus
	Error      string
	createdAt  time.Time
	updatedAt  time.Time
}

// NewFetchRun creates an unsaved run summary starting at started.
func NewFetchRun(started time.Time) *FetchRun {
	return &FetchRun{
		StartedAt: started,
		Status:    RunCompleted,
		createdAt: started,
		updatedAt: started,
	}
}

func (r *FetchRun) ID() string           { return r.id }
func (r *FetchRun) CreatedAt() time.Time { return r.createdAt }
func (r *FetchRun) UpdatedAt() time.Time { return r.updatedAt }

// SetID is called by the repository once an identifier is assigned.
func (r *FetchRun) SetID(id string) { r.id = id }

// SetTimestamps restores persisted timestamps.
func (r *FetchRun) SetTimestamps(created, updated time.Time) {
	r.createdAt = created
	r.updatedAt = updated
}

// Duration is the wall time the run took.
func (r *FetchRun) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Validate checks counts and status before persistence.
func (r *FetchRun) Validate() error {
	switch r.Status {
	case RunCompleted, RunDegraded, RunFailed:
	default:
		return fmt.Errorf("invalid run status %q", r.Status)
	}
	if r.StartedAt.IsZero() {
		return fmt.Errorf("run start time is required")
	}
	if !r.FinishedAt.IsZero() && r.FinishedAt.Before(r.StartedAt) {
		return fmt.Errorf("run finished before it started")
	}
	if r.Merged < 0 || r.Duplicates < 0 || r.Rejected < 0 || r.Output < 0 {
		return fmt.Errorf("run counts must be non-negative")
	}
	if r.Output > r.Merged {
		return fmt.Errorf("output count %d exceeds merged count %d", r.Output, r.Merged)
	}
	return nil
}

// MarshalJSON exposes the private identifier and timestamps alongside the counts.
func (r *FetchRun) MarshalJSON() ([]byte, error) {
	type view struct {
		ID         string       `json:"id"`
		Sequence   int          `json:"sequence"`
		StartedAt  time.Time    `json:"startedAt"`
		FinishedAt *time.Time   `json:"finishedAt,omitempty"`
		DurationMS int64        `json:"durationMs"`
		Sources    []SourceStat `json:"sources"`
		Merged     int          `json:"merged"`
		Duplicates int          `json:"duplicates"`
		Rejected   int          `json:"rejected"`
		Output     int          `json:"output"`
		Status     RunStatus    `json:"status"`
		Error      string       `json:"error,omitempty"`
	}

	v := view{
		ID:         r.id,
		Sequence:   r.Sequence,
		StartedAt:  r.StartedAt,
		DurationMS: r.Duration().Milliseconds(),
		Sources:    r.Sources,
		Merged:     r.Merged,
		Duplicates: r.Duplicates,
		Rejected:   r.Rejected,
		Output:     r.Output,
		Status:     r.Status,
		Error:      r.Error,
	}
	if !r.FinishedAt.IsZero() {
		v.FinishedAt = &r.FinishedAt
	}
	if v.Sources == nil {
		v.Sources = []SourceStat{}
	}
	return json.Marshal(v)
}

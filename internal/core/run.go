package core

import "time"

// RunStatus represents the current state of a run
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	// RunStatusPartial means the run finished but at least one query or batch failed.
	RunStatusPartial RunStatus = "partial"
	RunStatusFailed  RunStatus = "failed"
)

// TriggerEvent represents a trigger firing
type TriggerEvent struct {
	Source    string
	Timestamp time.Time
}

// QueryOutcome reports what one search term produced.
type QueryOutcome struct {
	Query   string `json:"query" yaml:"query"`
	Fetched int    `json:"fetched" yaml:"fetched"`
	New     int    `json:"new" yaml:"new"`
	Dropped int    `json:"dropped,omitempty" yaml:"dropped,omitempty"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
}

// BatchOutcome reports the delivery result of one batch.
type BatchOutcome struct {
	Query    string     `json:"query" yaml:"query"`
	Postings int        `json:"postings" yaml:"postings"`
	State    BatchState `json:"state" yaml:"state"`
	Error    string     `json:"error,omitempty" yaml:"error,omitempty"`
}

// Run represents a single execution of the fetch/notify pipeline
type Run struct {
	ID          string         `json:"id" yaml:"id"`
	StartedAt   time.Time      `json:"started_at" yaml:"started_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
	Status      RunStatus      `json:"status" yaml:"status"`
	TriggerType string         `json:"trigger_type" yaml:"trigger_type"`
	HistorySize int            `json:"history_size" yaml:"history_size"`
	Queries     []QueryOutcome `json:"queries,omitempty" yaml:"queries,omitempty"`
	Batches     []BatchOutcome `json:"batches,omitempty" yaml:"batches,omitempty"`
}

// Delivered counts batches whose message reached the channel, recorded or not.
func (r *Run) Delivered() int {
	n := 0
	for _, batch := range r.Batches {
		if batch.State == BatchStateDelivered || batch.State == BatchStateRecorded {
			n++
		}
	}
	return n
}

// Failed counts failed queries and batches.
func (r *Run) Failed() int {
	n := 0
	for _, query := range r.Queries {
		if query.Error != "" {
			n++
		}
	}
	for _, batch := range r.Batches {
		if batch.State == BatchStateFailed {
			n++
		}
	}
	return n
}

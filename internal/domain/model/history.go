package model

import "time"

// RunStatus is the lifecycle status recorded in the history log.
type RunStatus string

const (
	// RunStatusRunning marks a run that has started and not yet terminated.
	RunStatusRunning RunStatus = "RUNNING"
	// RunStatusSuccess marks a run that completed and wrote its output.
	RunStatusSuccess RunStatus = "SUCCESS"
	// RunStatusError marks a run that terminated with a failure, including
	// cooperative aborts.
	RunStatusError RunStatus = "ERROR"
)

// HistoryEntry is one append-only record of an export run transition.
// The job name is snapshotted so history stays readable after a job is
// renamed or deleted.
type HistoryEntry struct {
	ID        string    `json:"id"`
	JobID     string    `json:"job_id"`
	JobName   string    `json:"job_name"`
	Status    RunStatus `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	// HistoryCap is the maximum number of entries retained; the oldest entry
	// is evicted first.
	HistoryCap = 500
	// HistoryPageSize is how many of the most recent entries reads return.
	HistoryPageSize = 50
)

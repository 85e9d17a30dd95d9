package domain

import "time"

// RunOutcome is the terminal state of one orchestrator invocation.
type RunOutcome string

const (
	RunRunning RunOutcome = "running"
	RunSuccess RunOutcome = "success"
	RunPartial RunOutcome = "partial"
	RunFailed  RunOutcome = "failed"
)

// SyncRun is one row per orchestration invocation. Rows are append-only:
// after completion only the completion fields are ever set, exactly once.
type SyncRun struct {
	ID                 string     `json:"id" db:"id"`
	SourceTag          string     `json:"source_tag" db:"source_tag"`
	Outcome            RunOutcome `json:"outcome" db:"outcome"`
	StartedAt          time.Time  `json:"started_at" db:"started_at"`
	FinishedAt         *time.Time `json:"finished_at,omitempty" db:"finished_at"`
	FilesProcessed     int        `json:"files_processed" db:"files_processed"`
	CampaignsProcessed int        `json:"campaigns_processed" db:"campaigns_processed"`
	RecordsProcessed   int        `json:"records_processed" db:"records_processed"`
	ErrorCount         int        `json:"error_count" db:"error_count"`
	ErrorSummary       string     `json:"error_summary,omitempty" db:"error_summary"`
}

// Duration returns the elapsed run time, using now for unfinished runs.
func (r *SyncRun) Duration(now time.Time) time.Duration {
	if r.FinishedAt != nil {
		return r.FinishedAt.Sub(r.StartedAt)
	}
	return now.Sub(r.StartedAt)
}

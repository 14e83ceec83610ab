package entity

import (
	"time"
)

// JobRun is one attempt of a job as recorded in the job_runs ledger.
type JobRun struct {
	JobID        string     `json:"job_id"`
	Attempt      int        `json:"attempt"`
	ChecklistID  string     `json:"checklist_id"`
	State        string     `json:"state"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

// JobSummary is what a successful run reports back to its queue.
type JobSummary struct {
	JobID            string  `json:"job_id"`
	ChecklistID      string  `json:"checklist_id"`
	Pages            int     `json:"pages"`
	Chunks           int     `json:"chunks"`
	DegradedChunks   int     `json:"degraded_chunks"`
	Requirements     int     `json:"requirements"`
	Items            int     `json:"items"`
	PromptsEvaluated int     `json:"prompts_evaluated"`
	PromptsFailed    int     `json:"prompts_failed"`
	DurationSeconds  float64 `json:"duration_seconds"`
}

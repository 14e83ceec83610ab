package constants

// JobState is the orchestrator state recorded in the job_runs ledger.
type JobState string

// Stable values (stored as-is in the ledger).
const (
	JobStateStarted                JobState = "STARTED"
	JobStateExtractingPages        JobState = "EXTRACTING_PAGES"
	JobStateChunking               JobState = "CHUNKING"
	JobStateExtractingRequirements JobState = "EXTRACTING_REQUIREMENTS"
	JobStateDeduping               JobState = "DEDUPING"
	JobStateSynthesizing           JobState = "SYNTHESIZING"
	JobStateEvaluatingPrompts      JobState = "EVALUATING_PROMPTS"
	JobStateReporting              JobState = "REPORTING"
	JobStateDone                   JobState = "DONE"
	JobStateFailed                 JobState = "FAILED"
)

// Terminal reports whether no further transition is allowed.
func (s JobState) Terminal() bool {
	return s == JobStateDone || s == JobStateFailed
}

// RecordStatus is what the record store shows for a checklist.
type RecordStatus string

const (
	RecordStatusProcessing RecordStatus = "PROCESSING"
	RecordStatusReady      RecordStatus = "READY"
	RecordStatusFailed     RecordStatus = "FAILED"
)

// PromptStatus is the outcome of a single prompt evaluation.
type PromptStatus string

const (
	PromptStatusReady  PromptStatus = "READY"
	PromptStatusFailed PromptStatus = "FAILED"
)

// ChecklistItemStatusOpen is the only status the worker assigns to new items.
const ChecklistItemStatusOpen = "open"

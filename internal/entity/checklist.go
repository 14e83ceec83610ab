package entity

import (
	"time"
)

// Requirement is a single procurement obligation extracted from a chunk.
type Requirement struct {
	ID               string  `json:"id"`
	Text             string  `json:"text"`
	Category         string  `json:"category"`
	IsMandatory      bool    `json:"is_mandatory"`
	PageRefs         []int   `json:"page_refs"`
	Deadline         *string `json:"deadline,omitempty"`
	SubmissionFormat *string `json:"submission_format,omitempty"`
	SourceQuote      *string `json:"source_quote,omitempty"`
}

// ChecklistItem is derived one-to-one from a surviving Requirement.
type ChecklistItem struct {
	ID               string  `json:"id"`
	Title            string  `json:"title"`
	Description      string  `json:"description"`
	Category         string  `json:"category"`
	IsMandatory      bool    `json:"is_mandatory"`
	DueDate          *string `json:"due_date,omitempty"` // YYYY-MM-DD
	Status           string  `json:"status"`
	PageRefs         []int   `json:"page_refs"`
	EvidenceRequired *bool   `json:"evidence_required,omitempty"`
}

// Checklist is the synthesized result of one job.
type Checklist struct {
	JobID       string          `json:"job_id"`
	ChecklistID string          `json:"checklist_id"`
	Items       []ChecklistItem `json:"items"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// IngestMeta accompanies the items pushed to the record store.
type IngestMeta struct {
	Items            int            `json:"items"`
	DurationSeconds  float64        `json:"duration_seconds"`
	LLMFiles         []UploadedFile `json:"anthropicFiles,omitempty"`
	PromptsEvaluated *int           `json:"promptsEvaluated,omitempty"`
}

// IngestPayload is the body of the final record-store push.
type IngestPayload struct {
	Items   []ChecklistItem `json:"items"`
	Meta    IngestMeta      `json:"meta"`
	Prompts []PromptResult  `json:"prompts"`
}

package pipeline

import (
	"context"

	"github.com/joseph-ayodele/tender-checklist/constants"
	"github.com/joseph-ayodele/tender-checklist/internal/entity"
	"github.com/joseph-ayodele/tender-checklist/internal/llm"
)

// PageExtractor turns one PDF into ordered pages numbered from 1.
type PageExtractor interface {
	ExtractPages(ctx context.Context, pdf []byte) ([]entity.Page, error)
}

// RequirementExtractor is the per-chunk LLM extraction with its repair pass.
type RequirementExtractor interface {
	ExtractRequirements(ctx context.Context, chunk entity.Chunk) (string, error)
	RepairJSON(ctx context.Context, text string) (string, error)
	ParseRequirements(text string) ([]entity.Requirement, error)
}

// PromptEvaluator answers one prompt against uploaded documents.
type PromptEvaluator interface {
	Evaluate(ctx context.Context, p entity.Prompt, fileIDs []string) (entity.PromptResult, llm.PromptOutput, error)
}

// RecordStore is the checklist API the job reports to.
type RecordStore interface {
	MarkProcessing(ctx context.Context, checklistID string) error
	MarkFailed(ctx context.Context, checklistID, message string) error
	FetchPrompts(ctx context.Context, checklistID string) ([]entity.Prompt, error)
	Ingest(ctx context.Context, checklistID string, payload entity.IngestPayload) error
}

// Ledger records state transitions per attempt.
type Ledger interface {
	Start(ctx context.Context, jobID string, attempt int, checklistID string) error
	Transition(ctx context.Context, jobID string, attempt int, state constants.JobState) error
	Finish(ctx context.Context, jobID string, attempt int, state constants.JobState, errMsg string) error
}

// ChecklistExporter renders the spreadsheet artifact.
type ChecklistExporter interface {
	ChecklistXLSX(cl entity.Checklist, prompts []entity.PromptResult) ([]byte, error)
}

type noopRecordStore struct{}

func (noopRecordStore) MarkProcessing(context.Context, string) error { return nil }
func (noopRecordStore) MarkFailed(context.Context, string, string) error { return nil }
func (noopRecordStore) Ingest(context.Context, string, entity.IngestPayload) error { return nil }
func (noopRecordStore) FetchPrompts(context.Context, string) ([]entity.Prompt, error) {
	return []entity.Prompt{}, nil
}

type noopLedger struct{}

func (noopLedger) Start(context.Context, string, int, string) error { return nil }
func (noopLedger) Transition(context.Context, string, int, constants.JobState) error { return nil }
func (noopLedger) Finish(context.Context, string, int, constants.JobState, string) error {
	return nil
}

package pipeline

import (
	"context"
	"fmt"

	"github.com/joseph-ayodele/tender-checklist/constants"
	"github.com/joseph-ayodele/tender-checklist/internal/common"
	"github.com/joseph-ayodele/tender-checklist/internal/entity"
	"github.com/joseph-ayodele/tender-checklist/internal/storage"
)

// evaluatePrompts yields exactly one result per fetched prompt, in order. A failed fetch
// means zero prompts; a failed evaluation becomes a FAILED result.
func (o *Orchestrator) evaluatePrompts(ctx context.Context, run *jobRun, checklistID string, fileIDs []string) ([]entity.PromptResult, error) {
	prompts, err := o.deps.RecordStore.FetchPrompts(ctx, checklistID)
	if err != nil {
		run.logger.Warn("job.prompts.fetch_failed", "error", fmt.Errorf("%w: %w", common.ErrPromptFetchDegraded, err))
		prompts = nil
	}

	results := make([]entity.PromptResult, 0, len(prompts))
	for _, p := range prompts {
		res, out, err := o.deps.Evaluator.Evaluate(ctx, p, fileIDs)
		if out.Raw != "" {
			if err := storage.PutText(ctx, o.deps.Store, run.keys.RawPromptOutput(p.ID), out.Raw); err != nil {
				return nil, err
			}
		}
		if out.Repaired != "" {
			if err := storage.PutText(ctx, o.deps.Store, run.keys.RepairedPromptOutput(p.ID), out.Repaired); err != nil {
				return nil, err
			}
		}
		if err != nil {
			run.logger.Warn("job.prompt.failed", "prompt_id", p.ID,
				"error", fmt.Errorf("%w: %w", common.ErrPromptEvaluation, err))
			res = entity.FailedPromptResult(p, err)
		}
		results = append(results, res)
	}

	if err := storage.PutJSON(ctx, o.deps.Store, run.keys.PromptResults(), results); err != nil {
		return nil, err
	}
	failed := 0
	for _, r := range results {
		if r.Status == constants.PromptStatusFailed {
			failed++
		}
	}
	run.logger.Info("job.prompts.ok", "prompts", len(results), "failed", failed)
	return results, nil
}

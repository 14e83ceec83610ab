package pipeline

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/tender-checklist/internal/common"
	"github.com/joseph-ayodele/tender-checklist/internal/entity"
	"github.com/joseph-ayodele/tender-checklist/internal/llm"
	"github.com/joseph-ayodele/tender-checklist/internal/storage"
)

type chunkOutcome struct {
	requirements []entity.Requirement
	degraded     bool
}

type extractionFailure struct {
	ChunkID     int    `json:"chunk_id"`
	PageStart   int    `json:"page_start"`
	PageEnd     int    `json:"page_end"`
	Error       string `json:"error"`
	FirstError  string `json:"first_error"`
	RawBytes    int    `json:"raw_bytes"`
	RepairBytes int    `json:"repaired_bytes"`
}

// extractAll runs extraction for every chunk with at most ExtractConcurrency in flight
// and returns the requirements in chunk order.
func (o *Orchestrator) extractAll(ctx context.Context, run *jobRun, chunks []entity.Chunk) ([]entity.Requirement, int, error) {
	outcomes := make([]chunkOutcome, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.ExtractConcurrency)
	for i, ch := range chunks {
		g.Go(func() error {
			res, err := o.extractChunk(gctx, run, ch)
			if err != nil {
				return err
			}
			outcomes[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	var (
		reqs     []entity.Requirement
		degraded int
	)
	for _, oc := range outcomes {
		reqs = append(reqs, oc.requirements...)
		if oc.degraded {
			degraded++
		}
	}
	run.logger.Info("job.extract.ok", "chunks", len(chunks), "requirements", len(reqs), "degraded", degraded)
	return reqs, degraded, nil
}

// extractChunk persists every raw model response before parsing it. Output that stays
// invalid after the repair pass degrades the chunk to zero requirements.
func (o *Orchestrator) extractChunk(ctx context.Context, run *jobRun, ch entity.Chunk) (chunkOutcome, error) {
	raw, err := o.deps.Extractor.ExtractRequirements(ctx, ch)
	if err != nil {
		return chunkOutcome{}, err
	}
	if err := storage.PutText(ctx, o.deps.Store, run.keys.RawOutput(ch.ChunkID), raw); err != nil {
		return chunkOutcome{}, err
	}

	repair := func(ctx context.Context, text string) (string, error) {
		run.logger.Warn("job.extract.repair", "chunk_id", ch.ChunkID)
		repaired, err := o.deps.Extractor.RepairJSON(ctx, text)
		if err != nil {
			return "", err
		}
		if err := storage.PutText(ctx, o.deps.Store, run.keys.RepairedOutput(ch.ChunkID), repaired); err != nil {
			return "", err
		}
		return repaired, nil
	}

	reqs, err := llm.ParseOrRepair[[]entity.Requirement](ctx, raw, o.deps.Extractor.ParseRequirements, repair)
	var pe *llm.ParseError
	switch {
	case errors.As(err, &pe):
		degradedErr := fmt.Errorf("chunk %d: %w: %v", ch.ChunkID, common.ErrExtractionDegraded, pe)
		run.logger.Warn("job.extract.degraded", "chunk_id", ch.ChunkID, "error", degradedErr)
		failure := extractionFailure{
			ChunkID:     ch.ChunkID,
			PageStart:   ch.PageStart,
			PageEnd:     ch.PageEnd,
			Error:       pe.Second.Error(),
			FirstError:  pe.First.Error(),
			RawBytes:    len(pe.Raw),
			RepairBytes: len(pe.Repaired),
		}
		if err := storage.PutJSON(ctx, o.deps.Store, run.keys.ExtractionError(ch.ChunkID), failure); err != nil {
			return chunkOutcome{}, err
		}
		reqs = []entity.Requirement{}
		if err := storage.PutJSON(ctx, o.deps.Store, run.keys.LLMOutput(ch.ChunkID),
			map[string]any{"requirements": reqs}); err != nil {
			return chunkOutcome{}, err
		}
		return chunkOutcome{requirements: reqs, degraded: true}, nil
	case err != nil:
		return chunkOutcome{}, fmt.Errorf("chunk %d: %w", ch.ChunkID, err)
	}

	if err := storage.PutJSON(ctx, o.deps.Store, run.keys.LLMOutput(ch.ChunkID),
		map[string]any{"requirements": reqs}); err != nil {
		return chunkOutcome{}, err
	}
	return chunkOutcome{requirements: reqs}, nil
}

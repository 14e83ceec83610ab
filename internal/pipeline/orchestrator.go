package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/joseph-ayodele/tender-checklist/constants"
	"github.com/joseph-ayodele/tender-checklist/internal/chunking"
	"github.com/joseph-ayodele/tender-checklist/internal/common"
	"github.com/joseph-ayodele/tender-checklist/internal/dedupe"
	"github.com/joseph-ayodele/tender-checklist/internal/entity"
	"github.com/joseph-ayodele/tender-checklist/internal/llm"
	"github.com/joseph-ayodele/tender-checklist/internal/storage"
	"github.com/joseph-ayodele/tender-checklist/internal/synthesis"
)

// Dependencies are the collaborators of one job run. RecordStore, Ledger and Exporter
// are optional.
type Dependencies struct {
	Store       storage.ObjectStore
	Uploader    llm.FileUploader
	Pages       PageExtractor
	Extractor   RequirementExtractor
	Evaluator   PromptEvaluator
	RecordStore RecordStore
	Ledger      Ledger
	Exporter    ChecklistExporter
}

// Config holds the pipeline tuning; message options override the chunk settings.
type Config struct {
	ChunkWindowPages    int
	ChunkOverlapPages   int
	SimilarityThreshold float64
	ExtractConcurrency  int
}

// Orchestrator runs one tender job end to end.
type Orchestrator struct {
	deps        Dependencies
	cfg         Config
	dedup       *dedupe.Deduplicator
	synthesizer *synthesis.Synthesizer
	logger      *slog.Logger
	now         func() time.Time
}

func NewOrchestrator(deps Dependencies, cfg Config, logger *slog.Logger) (*Orchestrator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Store == nil || deps.Uploader == nil || deps.Pages == nil || deps.Extractor == nil || deps.Evaluator == nil {
		return nil, common.NewAppError("CONFIG_ERROR", "orchestrator is missing a required dependency", common.ErrInvalidConfiguration)
	}
	if deps.RecordStore == nil {
		deps.RecordStore = noopRecordStore{}
	}
	if deps.Ledger == nil {
		deps.Ledger = noopLedger{}
	}
	if cfg.ChunkWindowPages == 0 {
		cfg.ChunkWindowPages = 5
	}
	if cfg.SimilarityThreshold == 0 {
		cfg.SimilarityThreshold = dedupe.DefaultThreshold
	}
	if cfg.ExtractConcurrency < 1 {
		cfg.ExtractConcurrency = 1
	}
	if _, err := chunking.NewChunker(cfg.ChunkWindowPages, cfg.ChunkOverlapPages); err != nil {
		return nil, err
	}
	d, err := dedupe.New(cfg.SimilarityThreshold, logger)
	if err != nil {
		return nil, err
	}
	return &Orchestrator{
		deps:        deps,
		cfg:         cfg,
		dedup:       d,
		synthesizer: synthesis.NewSynthesizer(logger),
		logger:      logger,
		now:         time.Now,
	}, nil
}

// Process runs the pipeline for msg. Degraded chunks and prompts never fail the run;
// any other error marks the job FAILED and is returned so the queue can retry.
func (o *Orchestrator) Process(ctx context.Context, msg entity.JobMessage) (entity.JobSummary, error) {
	msg = msg.Normalized()
	if msg.JobID == "" {
		return entity.JobSummary{}, common.NewAppError("PRECONDITION", "job_id or checklist_id is required", common.ErrPrecondition)
	}

	start := o.now()
	ctx = common.WithJobID(ctx, msg.JobID)
	run := o.newRun(ctx, msg)
	run.begin(ctx)

	if err := o.deps.RecordStore.MarkProcessing(ctx, msg.ChecklistID); err != nil {
		run.logger.Warn("job.mark_processing.failed", "error", err)
	}

	summary, err := o.process(ctx, run, msg, start)
	if err != nil {
		o.fail(ctx, run, err)
		return summary, err
	}

	run.finish(ctx, constants.JobStateDone, "")
	run.logger.Info("job.done",
		"items", summary.Items,
		"degraded_chunks", summary.DegradedChunks,
		"prompts", summary.PromptsEvaluated,
		"duration_seconds", summary.DurationSeconds,
	)
	return summary, nil
}

func (o *Orchestrator) process(ctx context.Context, run *jobRun, msg entity.JobMessage, start time.Time) (entity.JobSummary, error) {
	summary := entity.JobSummary{JobID: msg.JobID, ChecklistID: msg.ChecklistID}

	run.transition(ctx, constants.JobStateExtractingPages)
	docs, err := o.loadDocuments(ctx, run, msg.Documents)
	if err != nil {
		return summary, err
	}
	summary.Pages = len(docs.pages)

	run.transition(ctx, constants.JobStateChunking)
	chunks, err := o.chunk(ctx, run, docs.pages, msg.Options)
	if err != nil {
		return summary, err
	}
	summary.Chunks = len(chunks)

	run.transition(ctx, constants.JobStateExtractingRequirements)
	reqs, degraded, err := o.extractAll(ctx, run, chunks)
	if err != nil {
		return summary, err
	}
	summary.DegradedChunks = degraded

	run.transition(ctx, constants.JobStateDeduping)
	merged := o.dedup.Dedupe(reqs)
	summary.Requirements = len(merged)
	if err := storage.PutJSON(ctx, o.deps.Store, run.keys.MergedRequirements(),
		map[string]any{"requirements": merged}); err != nil {
		return summary, err
	}

	run.transition(ctx, constants.JobStateSynthesizing)
	checklist := entity.Checklist{
		JobID:       msg.JobID,
		ChecklistID: msg.ChecklistID,
		Items:       o.synthesizer.Synthesize(merged),
		GeneratedAt: o.now().UTC(),
	}
	summary.Items = len(checklist.Items)
	if err := storage.PutJSON(ctx, o.deps.Store, run.keys.Checklist(), checklist); err != nil {
		return summary, err
	}

	run.transition(ctx, constants.JobStateEvaluatingPrompts)
	results, err := o.evaluatePrompts(ctx, run, msg.ChecklistID, docs.fileIDs())
	if err != nil {
		return summary, err
	}
	summary.PromptsEvaluated = len(results)
	for _, r := range results {
		if r.Status == constants.PromptStatusFailed {
			summary.PromptsFailed++
		}
	}

	run.transition(ctx, constants.JobStateReporting)
	summary.DurationSeconds = math.Round(o.now().Sub(start).Seconds()*100) / 100
	if err := o.report(ctx, run, checklist, results, docs.uploaded, summary.DurationSeconds); err != nil {
		return summary, err
	}
	return summary, nil
}

// fail records the failure everywhere it is visible. Each step is best-effort and uses a
// context that survives the job's own deadline.
func (o *Orchestrator) fail(ctx context.Context, run *jobRun, cause error) {
	msg := cause.Error()
	run.logger.Error("job.failed", "state", run.state, "error", cause)

	ctx = context.WithoutCancel(ctx)
	if err := storage.PutJSON(ctx, o.deps.Store, run.keys.Status(),
		map[string]any{"status": "failed", "error": msg}); err != nil {
		run.logger.Warn("job.status_artifact.failed", "error", err)
	}
	if err := o.deps.RecordStore.MarkFailed(ctx, run.checklistID, msg); err != nil {
		run.logger.Warn("job.mark_failed.failed", "error", err)
	}
	run.finish(ctx, constants.JobStateFailed, msg)
}

func (o *Orchestrator) chunk(ctx context.Context, run *jobRun, pages []entity.Page, opts entity.JobOptions) ([]entity.Chunk, error) {
	window, overlap := o.cfg.ChunkWindowPages, o.cfg.ChunkOverlapPages
	if opts.ChunkWindowPages != nil {
		window = *opts.ChunkWindowPages
	}
	if opts.ChunkOverlapPages != nil {
		overlap = *opts.ChunkOverlapPages
	}
	c, err := chunking.NewChunker(window, overlap)
	if err != nil {
		return nil, err
	}
	chunks := c.Chunk(pages)
	for _, ch := range chunks {
		if err := storage.PutJSON(ctx, o.deps.Store, run.keys.Chunk(ch.ChunkID), ch); err != nil {
			return nil, err
		}
	}
	run.logger.Info("job.chunks", "window", window, "overlap", overlap, "pages", len(pages), "chunks", len(chunks))
	return chunks, nil
}

func (o *Orchestrator) report(ctx context.Context, run *jobRun, cl entity.Checklist, results []entity.PromptResult, uploaded []entity.UploadedFile, duration float64) error {
	if o.deps.Exporter != nil {
		xlsx, err := o.deps.Exporter.ChecklistXLSX(cl, results)
		if err != nil {
			run.logger.Warn("job.export.failed", "error", err)
		} else if err := o.deps.Store.Put(ctx, run.keys.ChecklistXLSX(), xlsx, constants.ContentTypeXLSX); err != nil {
			return err
		}
	}

	meta := entity.IngestMeta{
		Items:           len(cl.Items),
		DurationSeconds: duration,
		LLMFiles:        uploaded,
	}
	if len(results) > 0 {
		n := len(results)
		meta.PromptsEvaluated = &n
	}
	if err := storage.PutJSON(ctx, o.deps.Store, run.keys.Status(),
		map[string]any{"status": "done", "items": len(cl.Items)}); err != nil {
		return err
	}

	payload := entity.IngestPayload{Items: cl.Items, Meta: meta, Prompts: results}
	if err := o.deps.RecordStore.Ingest(ctx, run.checklistID, payload); err != nil {
		return common.NewAppError("REPORTING", "ingest checklist "+run.checklistID,
			fmt.Errorf("%w: %w", common.ErrReporting, err))
	}
	run.logger.Info("job.ingest.ok", "items", len(cl.Items), "prompts", len(results))
	return nil
}


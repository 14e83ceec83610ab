package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/tender-checklist/constants"
	"github.com/joseph-ayodele/tender-checklist/internal/common"
	"github.com/joseph-ayodele/tender-checklist/internal/entity"
	"github.com/joseph-ayodele/tender-checklist/internal/export"
	"github.com/joseph-ayodele/tender-checklist/internal/storage"
)

const (
	chunk1 = `{"requirements": [
		{"id": "R1", "text": "Submit a bid bond of 2% of the contract value.", "category": "financial", "is_mandatory": true, "page_refs": [2]},
		{"id": "R2", "text": "Provide a valid ISO 9001 certificate.", "category": "eligibility", "is_mandatory": true, "page_refs": [3], "submission_format": "PDF copy"}
	]}`
	chunk2 = `{"requirements": [
		{"id": "R3", "text": "Submit a bid bond of 2% of the contract value", "category": "financial", "is_mandatory": true, "page_refs": [6]}
	]}`
	chunk3 = "```json\n" + `{"requirements": [
		{"id": "R4", "text": "Tenders must be delivered in a sealed envelope.", "category": "submission", "is_mandatory": true, "page_refs": [10], "deadline": "15 March 2025, 12:00"}
	]}` + "\n```"
)

type harness struct {
	store     *storage.MemoryStore
	uploader  *fakeUploader
	extractor *fakeExtractor
	evaluator *fakeEvaluator
	records   *fakeRecordStore
	ledger    *fakeLedger
	cfg       Config
}

func newHarness() *harness {
	return &harness{
		store:     storage.NewMemoryStore(),
		uploader:  &fakeUploader{},
		extractor: newFakeExtractor(map[int]string{1: chunk1, 2: chunk2, 3: chunk3}),
		evaluator: &fakeEvaluator{fail: map[int]error{}},
		records: &fakeRecordStore{prompts: []entity.Prompt{
			{ID: 1, PromptText: "What is the bid validity?", PromptType: constants.PromptTypeQuestion},
			{ID: 2, PromptText: "A site visit is mandatory", PromptType: constants.PromptTypeCondition},
		}},
		ledger: &fakeLedger{},
		cfg:    Config{ChunkWindowPages: 5, ChunkOverlapPages: 1, SimilarityThreshold: 0.92},
	}
}

func (h *harness) orchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	o, err := NewOrchestrator(Dependencies{
		Store:       h.store,
		Uploader:    h.uploader,
		Pages:       fakePages{},
		Extractor:   h.extractor,
		Evaluator:   h.evaluator,
		RecordStore: h.records,
		Ledger:      h.ledger,
		Exporter:    export.NewService(nil),
	}, h.cfg, nil)
	require.NoError(t, err)
	return o
}

func (h *harness) seed(t *testing.T) entity.JobMessage {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, h.store.Put(ctx, "uploads/a.pdf", []byte("pdf:A:6"), constants.ContentTypePDF))
	require.NoError(t, h.store.Put(ctx, "uploads/b.pdf", []byte("pdf:B:4"), constants.ContentTypePDF))
	return entity.JobMessage{
		JobID:       "job-1",
		ChecklistID: "cl-1",
		Documents: []entity.DocumentRef{
			{ID: "d1", Filename: "tender.pdf", StorageKey: "uploads/a.pdf"},
			{ID: "d2", Filename: "annex", StorageKey: "uploads/b.pdf"},
		},
	}
}

func (h *harness) readJSON(t *testing.T, key string, v any) {
	t.Helper()
	data, err := h.store.Get(context.Background(), key)
	require.NoError(t, err, key)
	require.NoError(t, json.Unmarshal(data, v), key)
}

func TestProcessEndToEnd(t *testing.T) {
	h := newHarness()
	msg := h.seed(t)

	summary, err := h.orchestrator(t).Process(context.Background(), msg)
	require.NoError(t, err)

	assert.Equal(t, 10, summary.Pages)
	assert.Equal(t, 3, summary.Chunks)
	assert.Equal(t, 4, len(mustChunksRequirements(t, h)), "four extracted requirements")
	assert.Equal(t, 3, summary.Requirements)
	assert.Equal(t, 3, summary.Items)
	assert.Equal(t, 0, summary.DegradedChunks)
	assert.Equal(t, 2, summary.PromptsEvaluated)

	// chunk windows over the offset page numbers
	var ranges [][2]int
	for _, ch := range h.extractor.chunks {
		ranges = append(ranges, [2]int{ch.PageStart, ch.PageEnd})
	}
	assert.Equal(t, [][2]int{{1, 5}, {5, 9}, {9, 10}}, ranges)

	assert.Equal(t, []constants.JobState{
		constants.JobStateStarted,
		constants.JobStateExtractingPages,
		constants.JobStateChunking,
		constants.JobStateExtractingRequirements,
		constants.JobStateDeduping,
		constants.JobStateSynthesizing,
		constants.JobStateEvaluatingPrompts,
		constants.JobStateReporting,
		constants.JobStateDone,
	}, h.ledger.states())

	assert.Equal(t, []string{"cl-1"}, h.records.processing)
	assert.Empty(t, h.records.failed)
	require.Len(t, h.records.ingested, 1)
	assert.Equal(t, []string{"cl-1"}, h.records.ingestedIDs)
	payload := h.records.ingested[0]
	assert.Equal(t, 3, payload.Meta.Items)
	require.NotNil(t, payload.Meta.PromptsEvaluated)
	assert.Equal(t, 2, *payload.Meta.PromptsEvaluated)
	assert.Equal(t, []entity.UploadedFile{
		{Filename: "tender.pdf", FileID: "file_1"},
		{Filename: "annex", FileID: "file_2"},
	}, payload.Meta.LLMFiles)
	require.Len(t, payload.Prompts, 2)

	items := payload.Items
	assert.Equal(t, "R1", items[0].ID)
	assert.Equal(t, []int{2, 6}, items[0].PageRefs, "duplicate page refs are unioned")
	require.NotNil(t, items[1].EvidenceRequired)
	assert.True(t, *items[1].EvidenceRequired)
	require.NotNil(t, items[2].DueDate)
	assert.Equal(t, "2025-03-15", *items[2].DueDate)
	assert.Equal(t, "open", items[2].Status)

	for _, fileIDs := range h.evaluator.got {
		assert.Equal(t, []string{"file_1", "file_2"}, fileIDs)
	}

	assert.Equal(t, []string{
		"jobs/job-1/checklist.json",
		"jobs/job-1/checklist.xlsx",
		"jobs/job-1/chunks/1.json",
		"jobs/job-1/chunks/2.json",
		"jobs/job-1/chunks/3.json",
		"jobs/job-1/documents/001_tender.pdf",
		"jobs/job-1/documents/002_annex.pdf",
		"jobs/job-1/llm_outputs/1.json",
		"jobs/job-1/llm_outputs/2.json",
		"jobs/job-1/llm_outputs/3.json",
		"jobs/job-1/merged_requirements.json",
		"jobs/job-1/pages.json",
		"jobs/job-1/prompt_results.json",
		"jobs/job-1/raw_llm_outputs/1.txt",
		"jobs/job-1/raw_llm_outputs/2.txt",
		"jobs/job-1/raw_llm_outputs/3.txt",
		"jobs/job-1/raw_prompt_outputs/1.txt",
		"jobs/job-1/raw_prompt_outputs/2.txt",
		"jobs/job-1/status.json",
		"uploads/a.pdf",
		"uploads/b.pdf",
	}, h.store.Keys())

	var status map[string]any
	h.readJSON(t, "jobs/job-1/status.json", &status)
	assert.Equal(t, map[string]any{"status": "done", "items": float64(3)}, status)

	raw, err := h.store.Get(context.Background(), "jobs/job-1/raw_llm_outputs/3.txt")
	require.NoError(t, err)
	assert.Equal(t, chunk3, string(raw), "raw responses are stored verbatim")

	var pages []entity.Page
	h.readJSON(t, "jobs/job-1/pages.json", &pages)
	require.Len(t, pages, 10)
	assert.Equal(t, entity.Page{PageNo: 7, Text: "B page 1"}, pages[6])
}

func mustChunksRequirements(t *testing.T, h *harness) []entity.Requirement {
	t.Helper()
	var all []entity.Requirement
	for _, id := range []int{1, 2, 3} {
		var out struct {
			Requirements []entity.Requirement `json:"requirements"`
		}
		h.readJSON(t, storage.KeysFor("job-1").LLMOutput(id), &out)
		all = append(all, out.Requirements...)
	}
	return all
}

func TestProcessOnePromptResultPerPrompt(t *testing.T) {
	h := newHarness()
	h.evaluator.fail[2] = errors.New("invalid after repair")
	msg := h.seed(t)

	summary, err := h.orchestrator(t).Process(context.Background(), msg)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.PromptsEvaluated)
	assert.Equal(t, 1, summary.PromptsFailed)

	var results []entity.PromptResult
	h.readJSON(t, "jobs/job-1/prompt_results.json", &results)
	require.Len(t, results, 2)
	assert.Equal(t, 1, results[0].PromptID)
	assert.Equal(t, constants.PromptStatusReady, results[0].Status)
	assert.Equal(t, 2, results[1].PromptID)
	assert.Equal(t, constants.PromptTypeCondition, results[1].PromptType)
	assert.Equal(t, constants.PromptStatusFailed, results[1].Status)
	require.NotNil(t, results[1].Error)
	assert.Contains(t, *results[1].Error, "invalid after repair")

	raw, err := h.store.Get(context.Background(), "jobs/job-1/raw_prompt_outputs/2.txt")
	require.NoError(t, err)
	assert.Equal(t, "not json", string(raw))
}

func TestProcessStoresRepairedPromptOutput(t *testing.T) {
	h := newHarness()
	h.evaluator.fail[2] = errors.New("invalid after repair")
	h.evaluator.repaired = map[int]string{1: `{"answer": "90 days"}`, 2: "still not json"}
	msg := h.seed(t)

	_, err := h.orchestrator(t).Process(context.Background(), msg)
	require.NoError(t, err)

	keys := storage.KeysFor("job-1")
	repaired, err := h.store.Get(context.Background(), keys.RepairedPromptOutput(1))
	require.NoError(t, err)
	assert.Equal(t, `{"answer": "90 days"}`, string(repaired))

	repaired, err = h.store.Get(context.Background(), keys.RepairedPromptOutput(2))
	require.NoError(t, err)
	assert.Equal(t, "still not json", string(repaired))

	raw, err := h.store.Get(context.Background(), keys.RawPromptOutput(2))
	require.NoError(t, err)
	assert.Equal(t, "not json", string(raw))
}

func TestProcessDegradedChunkStillCompletes(t *testing.T) {
	h := newHarness()
	h.extractor.responses[2] = `{"requirements": [oops`
	h.extractor.repairs[`{"requirements": [oops`] = `still not json`
	msg := h.seed(t)

	summary, err := h.orchestrator(t).Process(context.Background(), msg)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.DegradedChunks)
	assert.Equal(t, 3, summary.Items, "R3 is lost, R1 survives on its own")
	assert.Equal(t, constants.JobStateDone, h.ledger.states()[len(h.ledger.states())-1])

	raw, err := h.store.Get(context.Background(), "jobs/job-1/raw_llm_outputs/2.txt")
	require.NoError(t, err)
	assert.Equal(t, `{"requirements": [oops`, string(raw))
	repaired, err := h.store.Get(context.Background(), "jobs/job-1/raw_llm_outputs/2_repaired.txt")
	require.NoError(t, err)
	assert.Equal(t, "still not json", string(repaired))

	var failure extractionFailure
	h.readJSON(t, "jobs/job-1/extraction_errors/2.json", &failure)
	assert.Equal(t, 2, failure.ChunkID)
	assert.Equal(t, 5, failure.PageStart)
	assert.Equal(t, 9, failure.PageEnd)
	assert.NotEmpty(t, failure.Error)

	var out map[string][]any
	h.readJSON(t, "jobs/job-1/llm_outputs/2.json", &out)
	assert.Empty(t, out["requirements"])
}

func TestProcessRepairRecoversChunk(t *testing.T) {
	h := newHarness()
	broken := `{"requirements": [{"id": "R9", "text": "Attach company registration.", "category": "eligibility", "is_mandatory": true, "page_refs": [7]}`
	h.extractor.responses[2] = broken
	h.extractor.repairs[broken] = broken + "]}"
	msg := h.seed(t)

	summary, err := h.orchestrator(t).Process(context.Background(), msg)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.DegradedChunks)
	assert.Equal(t, 4, summary.Items)

	_, err = h.store.Get(context.Background(), "jobs/job-1/raw_llm_outputs/2_repaired.txt")
	require.NoError(t, err)
	_, err = h.store.Get(context.Background(), "jobs/job-1/extraction_errors/2.json")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestProcessUploadFailure(t *testing.T) {
	h := newHarness()
	h.uploader.err = errors.New("413 too large")
	msg := h.seed(t)

	_, err := h.orchestrator(t).Process(context.Background(), msg)
	require.ErrorIs(t, err, common.ErrUpstreamUpload)

	var status map[string]any
	h.readJSON(t, "jobs/job-1/status.json", &status)
	assert.Equal(t, "failed", status["status"])
	assert.Contains(t, status["error"], "413 too large")

	require.Len(t, h.records.failed, 1)
	assert.Contains(t, h.records.failed[0], "cl-1: ")
	assert.Empty(t, h.records.ingested)

	entries := h.ledger.entries
	last := entries[len(entries)-1]
	assert.Equal(t, constants.JobStateFailed, last.state)
	assert.Contains(t, last.errMsg, "413 too large")
	assert.Equal(t, constants.JobStateExtractingPages, entries[len(entries)-2].state)
}

func TestProcessIngestFailure(t *testing.T) {
	h := newHarness()
	h.records.ingestErr = errors.New("502 bad gateway")
	msg := h.seed(t)

	_, err := h.orchestrator(t).Process(context.Background(), msg)
	require.ErrorIs(t, err, common.ErrReporting)

	var status map[string]any
	h.readJSON(t, "jobs/job-1/status.json", &status)
	assert.Equal(t, "failed", status["status"])
	assert.Len(t, h.records.failed, 1)
	_, err = h.store.Get(context.Background(), "jobs/job-1/checklist.json")
	assert.NoError(t, err, "earlier artifacts survive a later failure")
}

func TestProcessPromptFetchFailure(t *testing.T) {
	h := newHarness()
	h.records.fetchErr = errors.New("connection refused")
	msg := h.seed(t)

	summary, err := h.orchestrator(t).Process(context.Background(), msg)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.PromptsEvaluated)
	require.Len(t, h.records.ingested, 1)
	assert.Nil(t, h.records.ingested[0].Meta.PromptsEvaluated)
	assert.Empty(t, h.records.ingested[0].Prompts)

	var results []entity.PromptResult
	h.readJSON(t, "jobs/job-1/prompt_results.json", &results)
	assert.Empty(t, results)
}

func TestProcessPreconditions(t *testing.T) {
	h := newHarness()
	o := h.orchestrator(t)

	_, err := o.Process(context.Background(), entity.JobMessage{JobID: "job-2"})
	require.ErrorIs(t, err, common.ErrPrecondition)
	assert.Len(t, h.records.failed, 1)

	_, err = o.Process(context.Background(), entity.JobMessage{
		JobID:     "job-3",
		Documents: []entity.DocumentRef{{ID: "d1", Filename: "a.pdf"}},
	})
	require.ErrorIs(t, err, common.ErrPrecondition)

	_, err = o.Process(context.Background(), entity.JobMessage{})
	require.ErrorIs(t, err, common.ErrPrecondition)
}

func TestProcessSkipsDocumentWithoutStorageKey(t *testing.T) {
	h := newHarness()
	msg := h.seed(t)
	msg.Documents = append([]entity.DocumentRef{{ID: "d0", Filename: "ghost.pdf"}}, msg.Documents...)

	summary, err := h.orchestrator(t).Process(context.Background(), msg)
	require.NoError(t, err)
	assert.Equal(t, 10, summary.Pages)
	assert.Equal(t, []string{"tender.pdf", "annex"}, h.uploader.names)
	_, err = h.store.Get(context.Background(), "jobs/job-1/documents/002_tender.pdf")
	assert.NoError(t, err, "archive index follows the message position")
}

func TestProcessExtractionTransportErrorFailsJob(t *testing.T) {
	h := newHarness()
	h.extractor.errs[2] = errors.New("anthropic messages: 529 overloaded")
	msg := h.seed(t)

	_, err := h.orchestrator(t).Process(context.Background(), msg)
	require.Error(t, err)
	assert.False(t, common.IsDegraded(err))
	assert.Len(t, h.records.failed, 1)
}

func TestProcessConcurrentExtractionKeepsOrder(t *testing.T) {
	sequential := newHarness()
	_, err := sequential.orchestrator(t).Process(context.Background(), sequential.seed(t))
	require.NoError(t, err)

	parallel := newHarness()
	parallel.cfg.ExtractConcurrency = 3
	_, err = parallel.orchestrator(t).Process(context.Background(), parallel.seed(t))
	require.NoError(t, err)

	want := sequential.records.ingested[0].Items
	got := parallel.records.ingested[0].Items
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("items differ (-sequential +parallel):\n%s", diff)
	}
}

func TestProcessMessageOptionsAndAttempt(t *testing.T) {
	h := newHarness()
	msg := h.seed(t)
	window, overlap := 10, 0
	msg.Options = entity.JobOptions{ChunkWindowPages: &window, ChunkOverlapPages: &overlap}
	msg.JobID = ""

	ctx := common.WithAttempt(context.Background(), 3)
	summary, err := h.orchestrator(t).Process(ctx, msg)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Chunks)
	assert.Equal(t, "cl-1", summary.JobID, "job id falls back to the checklist id")
	for _, e := range h.ledger.entries {
		assert.Equal(t, 3, e.attempt)
	}
	_, err = h.store.Get(context.Background(), "jobs/cl-1/status.json")
	assert.NoError(t, err)
}

func TestNewOrchestratorValidates(t *testing.T) {
	h := newHarness()
	_, err := NewOrchestrator(Dependencies{Store: h.store}, Config{}, nil)
	require.ErrorIs(t, err, common.ErrInvalidConfiguration)

	h.cfg.ChunkOverlapPages = -1
	_, err = NewOrchestrator(Dependencies{
		Store: h.store, Uploader: h.uploader, Pages: fakePages{}, Extractor: h.extractor, Evaluator: h.evaluator,
	}, h.cfg, nil)
	require.ErrorIs(t, err, common.ErrInvalidConfiguration)
}

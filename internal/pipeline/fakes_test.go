package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/joseph-ayodele/tender-checklist/constants"
	"github.com/joseph-ayodele/tender-checklist/internal/entity"
	"github.com/joseph-ayodele/tender-checklist/internal/llm"
)

// fakePages reads "pdf:<name>:<pages>" payloads.
type fakePages struct{}

func (fakePages) ExtractPages(_ context.Context, pdf []byte) ([]entity.Page, error) {
	parts := strings.Split(string(pdf), ":")
	if len(parts) != 3 {
		return nil, errors.New("not a pdf")
	}
	n, err := strconv.Atoi(parts[2])
	if err != nil {
		return nil, err
	}
	pages := make([]entity.Page, n)
	for i := range pages {
		pages[i] = entity.Page{PageNo: i + 1, Text: fmt.Sprintf("%s page %d", parts[1], i+1)}
	}
	return pages, nil
}

type fakeUploader struct {
	mu    sync.Mutex
	names []string
	err   error
}

func (u *fakeUploader) UploadFile(_ context.Context, filename string, _ []byte) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.err != nil {
		return "", u.err
	}
	u.names = append(u.names, filename)
	return fmt.Sprintf("file_%d", len(u.names)), nil
}

// fakeExtractor answers by chunk id and parses with the real requirement parser.
type fakeExtractor struct {
	parser *llm.ExtractionClient

	mu        sync.Mutex
	responses map[int]string
	errs      map[int]error
	repairs   map[string]string
	chunks    []entity.Chunk
}

func newFakeExtractor(responses map[int]string) *fakeExtractor {
	parser, err := llm.NewExtractionClient(nil, llm.ExtractionConfig{Model: "test"}, nil)
	if err != nil {
		panic(err)
	}
	return &fakeExtractor{
		parser:    parser,
		responses: responses,
		errs:      map[int]error{},
		repairs:   map[string]string{},
	}
}

func (f *fakeExtractor) ExtractRequirements(_ context.Context, ch entity.Chunk) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chunks = append(f.chunks, ch)
	if err := f.errs[ch.ChunkID]; err != nil {
		return "", err
	}
	if r, ok := f.responses[ch.ChunkID]; ok {
		return r, nil
	}
	return `{"requirements": []}`, nil
}

func (f *fakeExtractor) RepairJSON(_ context.Context, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.repairs[text]; ok {
		return r, nil
	}
	return text, nil
}

func (f *fakeExtractor) ParseRequirements(text string) ([]entity.Requirement, error) {
	return f.parser.ParseRequirements(text)
}

type fakeEvaluator struct {
	fail     map[int]error
	repaired map[int]string
	got      [][]string
}

func (e *fakeEvaluator) Evaluate(_ context.Context, p entity.Prompt, fileIDs []string) (entity.PromptResult, llm.PromptOutput, error) {
	e.got = append(e.got, fileIDs)
	if err := e.fail[p.ID]; err != nil {
		return entity.PromptResult{}, llm.PromptOutput{Raw: "not json", Repaired: e.repaired[p.ID]}, err
	}
	answer := "answer to " + p.PromptText
	return entity.PromptResult{
		PromptID:   p.ID,
		PromptType: p.PromptType,
		AnswerText: &answer,
		PageRefs:   []int{1},
		Status:     constants.PromptStatusReady,
	}, llm.PromptOutput{Raw: `{"answer": "` + answer + `"}`, Repaired: e.repaired[p.ID]}, nil
}

type fakeRecordStore struct {
	prompts     []entity.Prompt
	fetchErr    error
	ingestErr   error
	processing  []string
	failed      []string
	ingested    []entity.IngestPayload
	ingestedIDs []string
}

func (r *fakeRecordStore) MarkProcessing(_ context.Context, id string) error {
	r.processing = append(r.processing, id)
	return nil
}

func (r *fakeRecordStore) MarkFailed(_ context.Context, id, message string) error {
	r.failed = append(r.failed, id+": "+message)
	return nil
}

func (r *fakeRecordStore) FetchPrompts(context.Context, string) ([]entity.Prompt, error) {
	if r.fetchErr != nil {
		return nil, r.fetchErr
	}
	return r.prompts, nil
}

func (r *fakeRecordStore) Ingest(_ context.Context, id string, payload entity.IngestPayload) error {
	if r.ingestErr != nil {
		return r.ingestErr
	}
	r.ingestedIDs = append(r.ingestedIDs, id)
	r.ingested = append(r.ingested, payload)
	return nil
}

type ledgerEntry struct {
	attempt int
	state   constants.JobState
	errMsg  string
}

type fakeLedger struct {
	mu      sync.Mutex
	entries []ledgerEntry
}

func (l *fakeLedger) Start(_ context.Context, _ string, attempt int, _ string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, ledgerEntry{attempt: attempt, state: constants.JobStateStarted})
	return nil
}

func (l *fakeLedger) Transition(_ context.Context, _ string, attempt int, s constants.JobState) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, ledgerEntry{attempt: attempt, state: s})
	return nil
}

func (l *fakeLedger) Finish(_ context.Context, _ string, attempt int, s constants.JobState, errMsg string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, ledgerEntry{attempt: attempt, state: s, errMsg: errMsg})
	return nil
}

func (l *fakeLedger) states() []constants.JobState {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]constants.JobState, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.state
	}
	return out
}

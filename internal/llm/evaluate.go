package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/tender-checklist/internal/entity"
)

var errEmptyResponse = errors.New("response did not contain text content")

// EvaluatorConfig configures prompt evaluation.
type EvaluatorConfig struct {
	Model       string
	RepairModel string
	MaxTokens   int // default 1200
	Temperature float32
}

// PromptEvaluator answers one QUESTION or CONDITION prompt against uploaded documents.
type PromptEvaluator struct {
	llm       Completer
	cfg       EvaluatorConfig
	repairer  *Repairer
	validator *SchemaValidator
	logger    *slog.Logger
}

func NewPromptEvaluator(c Completer, cfg EvaluatorConfig, logger *slog.Logger) (*PromptEvaluator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1200
	}
	if cfg.RepairModel == "" {
		cfg.RepairModel = cfg.Model
	}
	v, err := NewSchemaValidator(BuildPromptResponseJSONSchema())
	if err != nil {
		return nil, err
	}
	return &PromptEvaluator{
		llm:       c,
		cfg:       cfg,
		repairer:  NewRepairer(c, cfg.RepairModel, logger),
		validator: v,
		logger:    logger,
	}, nil
}

// PromptOutput is the model text behind one evaluation. Repaired is empty unless the
// repair pass ran.
type PromptOutput struct {
	Raw      string
	Repaired string
}

// Evaluate asks the model about p with the given documents attached. The model text is
// returned alongside the result (and alongside any parse error) for auditing.
func (e *PromptEvaluator) Evaluate(ctx context.Context, p entity.Prompt, fileIDs []string) (entity.PromptResult, PromptOutput, error) {
	rid := uuid.New().String()
	start := time.Now()
	e.logger.Info("llm.prompt.start",
		"req_id", rid,
		"model", e.cfg.Model,
		"prompt_id", p.ID,
		"prompt_type", p.PromptType,
		"documents", len(fileIDs),
	)

	content := make([]ContentBlock, 0, len(fileIDs)+1)
	for _, id := range fileIDs {
		content = append(content, DocumentBlock(id))
	}
	content = append(content, TextBlock(BuildPromptUserPrompt(p)))

	raw, err := e.llm.Complete(ctx, CompletionRequest{
		Model:       e.cfg.Model,
		System:      promptSystemPrompt,
		Content:     content,
		MaxTokens:   e.cfg.MaxTokens,
		Temperature: e.cfg.Temperature,
	})
	if err != nil {
		e.logger.Error("llm.prompt.http_error", "req_id", rid, "prompt_id", p.ID, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return entity.PromptResult{}, PromptOutput{}, fmt.Errorf("evaluate prompt %d: %w", p.ID, err)
	}
	out := PromptOutput{Raw: raw}
	if strings.TrimSpace(raw) == "" {
		return entity.PromptResult{}, out, fmt.Errorf("evaluate prompt %d: %w", p.ID, errEmptyResponse)
	}

	repair := func(ctx context.Context, text string) (string, error) {
		repaired, err := e.repairer.Repair(ctx, text)
		out.Repaired = repaired
		return repaired, err
	}
	data, err := ParseOrRepair(ctx, raw, e.parseObject, repair)
	if err != nil {
		e.logger.Warn("llm.prompt.parse_failed", "req_id", rid, "prompt_id", p.ID, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return entity.PromptResult{}, out, fmt.Errorf("evaluate prompt %d: %w", p.ID, err)
	}

	res := NormalizePromptResponse(p, data)
	e.logger.Info("llm.prompt.ok",
		"req_id", rid,
		"prompt_id", p.ID,
		"status", res.Status,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, out, nil
}

func (e *PromptEvaluator) parseObject(text string) (map[string]any, error) {
	obj, err := ExtractJSONObject(text)
	if err != nil {
		return nil, err
	}
	if err := e.validator.Validate(obj); err != nil {
		return nil, err
	}
	var data map[string]any
	if err := json.Unmarshal(obj, &data); err != nil {
		return nil, fmt.Errorf("unmarshal prompt response: %w", err)
	}
	return data, nil
}

package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ParseFunc decodes and validates model output.
type ParseFunc[T any] func(text string) (T, error)

// RepairFunc asks a model to turn malformed output into valid JSON.
type RepairFunc func(ctx context.Context, text string) (string, error)

// ParseError reports output that stayed invalid after the repair pass.
type ParseError struct {
	Raw      string
	Repaired string
	First    error
	Second   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid after repair: %v (first attempt: %v)", e.Second, e.First)
}

func (e *ParseError) Unwrap() error { return e.Second }

// ParseOrRepair parses text; on failure it runs exactly one repair and parses again.
// Output still invalid after repair yields *ParseError. A failing repair call is
// returned wrapped as-is.
func ParseOrRepair[T any](ctx context.Context, text string, parse ParseFunc[T], repair RepairFunc) (T, error) {
	var zero T
	v, first := parse(text)
	if first == nil {
		return v, nil
	}
	repaired, err := repair(ctx, text)
	if err != nil {
		return zero, fmt.Errorf("repair: %w", err)
	}
	v, second := parse(repaired)
	if second != nil {
		return zero, &ParseError{Raw: text, Repaired: repaired, First: first, Second: second}
	}
	return v, nil
}

// Repairer is the one-shot JSON repair pass.
type Repairer struct {
	llm       Completer
	model     string
	maxTokens int
	logger    *slog.Logger
}

func NewRepairer(c Completer, model string, logger *slog.Logger) *Repairer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repairer{llm: c, model: model, maxTokens: 1000, logger: logger}
}

// Repair returns the repaired text, or text unchanged if the model answered with nothing.
func (r *Repairer) Repair(ctx context.Context, text string) (string, error) {
	rid := uuid.New().String()
	start := time.Now()
	r.logger.Info("llm.repair.start", "req_id", rid, "model", r.model, "text_len", len(text))

	out, err := r.llm.Complete(ctx, CompletionRequest{
		Model:     r.model,
		System:    repairSystemPrompt,
		Content:   []ContentBlock{TextBlock(BuildRepairUserPrompt(text))},
		MaxTokens: r.maxTokens,
	})
	if err != nil {
		r.logger.Error("llm.repair.error", "req_id", rid, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return "", err
	}
	if strings.TrimSpace(out) == "" {
		r.logger.Warn("llm.repair.empty", "req_id", rid, "elapsed_ms", time.Since(start).Milliseconds())
		return text, nil
	}
	r.logger.Info("llm.repair.ok", "req_id", rid, "bytes", len(out), "elapsed_ms", time.Since(start).Milliseconds())
	return out, nil
}

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/tender-checklist/constants"
	"github.com/joseph-ayodele/tender-checklist/internal/entity"
)

// ExtractionConfig configures requirement extraction.
type ExtractionConfig struct {
	Model       string
	RepairModel string
	MaxTokens   int // default 2000
	Temperature float32
}

// ExtractionClient turns chunk text into requirements.
type ExtractionClient struct {
	llm       Completer
	cfg       ExtractionConfig
	repairer  *Repairer
	validator *SchemaValidator
	logger    *slog.Logger
}

func NewExtractionClient(c Completer, cfg ExtractionConfig, logger *slog.Logger) (*ExtractionClient, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 2000
	}
	if cfg.RepairModel == "" {
		cfg.RepairModel = cfg.Model
	}
	v, err := NewSchemaValidator(BuildRequirementsJSONSchema(constants.AsStringSlice()))
	if err != nil {
		return nil, err
	}
	return &ExtractionClient{
		llm:       c,
		cfg:       cfg,
		repairer:  NewRepairer(c, cfg.RepairModel, logger),
		validator: v,
		logger:    logger,
	}, nil
}

// ExtractRequirements sends one chunk to the model and returns its raw text response.
// An empty response is reported as "{}".
func (c *ExtractionClient) ExtractRequirements(ctx context.Context, chunk entity.Chunk) (string, error) {
	rid := uuid.New().String()
	start := time.Now()
	c.logger.Info("llm.extract.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"chunk_id", chunk.ChunkID,
		"page_start", chunk.PageStart,
		"page_end", chunk.PageEnd,
		"text_len", len(chunk.Text),
	)

	out, err := c.llm.Complete(ctx, CompletionRequest{
		Model:       c.cfg.Model,
		System:      BuildExtractionSystemPrompt(),
		Content:     []ContentBlock{TextBlock(BuildExtractionUserPrompt(chunk))},
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		c.logger.Error("llm.extract.http_error",
			"req_id", rid, "chunk_id", chunk.ChunkID, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", fmt.Errorf("extract chunk %d: %w", chunk.ChunkID, err)
	}
	if strings.TrimSpace(out) == "" {
		out = "{}"
	}
	c.logger.Info("llm.extract.ok",
		"req_id", rid, "chunk_id", chunk.ChunkID, "bytes", len(out),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// RepairJSON runs the one-shot repair pass with the repair model.
func (c *ExtractionClient) RepairJSON(ctx context.Context, text string) (string, error) {
	return c.repairer.Repair(ctx, text)
}

// ParseRequirements sanitizes and validates an extraction response.
func (c *ExtractionClient) ParseRequirements(text string) ([]entity.Requirement, error) {
	obj, err := ExtractJSONObject(text)
	if err != nil {
		return nil, err
	}
	cleaned, _, err := SanitizeRequirementsJSON(obj, c.logger)
	if err != nil {
		return nil, err
	}
	if err := c.validator.Validate(cleaned); err != nil {
		return nil, err
	}
	var env struct {
		Requirements []entity.Requirement `json:"requirements"`
	}
	if err := json.Unmarshal(cleaned, &env); err != nil {
		return nil, fmt.Errorf("unmarshal requirements: %w", err)
	}
	if env.Requirements == nil {
		env.Requirements = []entity.Requirement{}
	}
	return env.Requirements, nil
}

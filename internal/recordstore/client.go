package recordstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/tender-checklist/constants"
	"github.com/joseph-ayodele/tender-checklist/internal/entity"
)

// Config points at the checklist API. Without BaseURL or Token every call is a no-op.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration // default 30s
}

// Client reports job progress and results to the checklist record store.
type Client struct {
	base   string
	token  string
	http   *http.Client
	logger *slog.Logger
}

// HTTPError is a non-2xx record store response.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		base:   strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		token:  strings.TrimSpace(cfg.Token),
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Enabled reports whether calls reach the network.
func (c *Client) Enabled() bool { return c.base != "" && c.token != "" }

type statusUpdate struct {
	Status constants.RecordStatus `json:"status"`
	Error  string                 `json:"error,omitempty"`
}

func (c *Client) MarkProcessing(ctx context.Context, checklistID string) error {
	if !c.Enabled() {
		return nil
	}
	return c.do(ctx, http.MethodPost, c.checklistURL("/api/internal/checklists/", checklistID, "/status"),
		statusUpdate{Status: constants.RecordStatusProcessing}, nil)
}

func (c *Client) MarkFailed(ctx context.Context, checklistID, message string) error {
	if !c.Enabled() {
		return nil
	}
	return c.do(ctx, http.MethodPost, c.checklistURL("/api/internal/checklists/", checklistID, "/status"),
		statusUpdate{Status: constants.RecordStatusFailed, Error: message}, nil)
}

// FetchPrompts returns the checklist's prompts. The response may be a bare list or an
// object with a "prompts" list.
func (c *Client) FetchPrompts(ctx context.Context, checklistID string) ([]entity.Prompt, error) {
	if !c.Enabled() {
		return []entity.Prompt{}, nil
	}
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, c.checklistURL("/api/checklists/", checklistID, "/prompts"), nil, &raw); err != nil {
		return nil, err
	}

	var list []map[string]any
	if err := json.Unmarshal(raw, &list); err != nil {
		var wrapped struct {
			Prompts []map[string]any `json:"prompts"`
		}
		if err2 := json.Unmarshal(raw, &wrapped); err2 != nil {
			return nil, fmt.Errorf("decode prompts: %w", err)
		}
		list = wrapped.Prompts
	}
	return ParsePrompts(list, c.logger), nil
}

// Ingest pushes the final checklist items, meta and prompt results.
func (c *Client) Ingest(ctx context.Context, checklistID string, payload entity.IngestPayload) error {
	if !c.Enabled() {
		return nil
	}
	if payload.Items == nil {
		payload.Items = []entity.ChecklistItem{}
	}
	if payload.Prompts == nil {
		payload.Prompts = []entity.PromptResult{}
	}
	return c.do(ctx, http.MethodPost, c.checklistURL("/api/internal/checklists/", checklistID, "/ingest"), payload, nil)
}

func (c *Client) checklistURL(prefix, checklistID, suffix string) string {
	return c.base + prefix + url.PathEscape(checklistID) + suffix
}

func (c *Client) do(ctx context.Context, method, u string, in, out any) error {
	rid := uuid.New().String()
	start := time.Now()

	var body io.Reader
	if in != nil {
		bs, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(bs)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("recordstore.send_error", "req_id", rid, "method", method, "url", u, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return fmt.Errorf("%s %s: %w", method, u, err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			c.logger.Warn("recordstore.response_body_close_error", "req_id", rid, "error", err)
		}
	}(resp.Body)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	c.logger.Info("recordstore.response",
		"req_id", rid,
		"method", method,
		"url", u,
		"status", resp.StatusCode,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	if resp.StatusCode/100 != 2 {
		const max = 512
		if len(raw) > max {
			raw = raw[:max]
		}
		return &HTTPError{Method: method, URL: u, StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(raw))}
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

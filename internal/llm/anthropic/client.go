package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/tender-checklist/internal/llm"
)

var _ llm.Provider = (*Client)(nil)

type messagesRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float32   `json:"temperature"`
	System      string    `json:"system,omitempty"`
	Messages    []message `json:"messages"`
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type   string          `json:"type"`
	Text   string          `json:"text,omitempty"`
	Source *documentSource `json:"source,omitempty"`
}

type documentSource struct {
	Type   string `json:"type"`
	FileID string `json:"file_id"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Complete implements llm.Completer over the Messages API and returns the concatenated
// text blocks of the response.
func (c *Client) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	rid := uuid.New().String()
	start := time.Now()

	blocks := make([]contentBlock, 0, len(req.Content))
	hasFiles := false
	for _, b := range req.Content {
		switch b.Type {
		case "document":
			hasFiles = true
			blocks = append(blocks, contentBlock{Type: "document", Source: &documentSource{Type: "file", FileID: b.FileID}})
		default:
			blocks = append(blocks, contentBlock{Type: "text", Text: b.Text})
		}
	}
	body := messagesRequest{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		System:      req.System,
		Messages:    []message{{Role: "user", Content: blocks}},
	}

	headers := c.headers()
	if hasFiles {
		headers["anthropic-beta"] = filesBeta
	}

	raw, _, err := llm.SendJSON(ctx, c.http, c.cfg.BaseURL+"/v1/messages", body, headers, c.logger)
	if err != nil {
		return "", c.apiError("messages", raw, err)
	}

	var mr messagesResponse
	if err := json.Unmarshal(raw, &mr); err != nil {
		c.logger.Error("anthropic.messages.decode_error", "req_id", rid, "error", err, "raw_bytes", len(raw))
		return "", fmt.Errorf("decode anthropic response: %w", err)
	}

	var out strings.Builder
	for _, b := range mr.Content {
		if b.Type == "text" {
			out.WriteString(b.Text)
		}
	}

	c.logger.Info("anthropic.messages.ok",
		"req_id", rid,
		"model", req.Model,
		"stop_reason", mr.StopReason,
		"input_tokens", mr.Usage.InputTokens,
		"output_tokens", mr.Usage.OutputTokens,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out.String(), nil
}

// UploadFile implements llm.FileUploader over the Files API.
func (c *Client) UploadFile(ctx context.Context, filename string, data []byte) (string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	h.Set("Content-Type", "application/pdf")
	part, err := w.CreatePart(h)
	if err != nil {
		return "", fmt.Errorf("build upload: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("build upload: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("build upload: %w", err)
	}

	headers := c.headers()
	headers["anthropic-beta"] = filesBeta
	headers["Content-Type"] = w.FormDataContentType()

	size := int64(buf.Len())
	raw, _, err := llm.Send(ctx, c.http, http.MethodPost, c.cfg.BaseURL+"/v1/files", &buf, size, headers, c.logger)
	if err != nil {
		return "", c.apiError("files", raw, err)
	}

	var fr struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &fr); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if fr.ID == "" {
		return "", errors.New("upload response missing file id")
	}
	c.logger.Info("anthropic.files.ok", "filename", filename, "file_id", fr.ID, "bytes", len(data))
	return fr.ID, nil
}

func (c *Client) headers() map[string]string {
	return map[string]string{
		"x-api-key":         c.cfg.APIKey,
		"anthropic-version": apiVersion,
	}
}

// apiError prefers the provider's error message over the bare status.
func (c *Client) apiError(op string, raw []byte, err error) error {
	var er errorResponse
	if len(raw) > 0 && json.Unmarshal(raw, &er) == nil && er.Error.Message != "" {
		return fmt.Errorf("anthropic %s: %s: %w", op, er.Error.Message, err)
	}
	return fmt.Errorf("anthropic %s: %w", op, err)
}

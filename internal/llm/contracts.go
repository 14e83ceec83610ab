package llm

import "context"

// ContentBlock is one piece of a user message: plain text or an uploaded document.
type ContentBlock struct {
	Type   string // "text" | "document"
	Text   string
	FileID string
}

func TextBlock(text string) ContentBlock { return ContentBlock{Type: "text", Text: text} }

func DocumentBlock(fileID string) ContentBlock { return ContentBlock{Type: "document", FileID: fileID} }

// CompletionRequest is a single-turn chat completion.
type CompletionRequest struct {
	Model       string
	System      string
	Content     []ContentBlock
	MaxTokens   int
	Temperature float32
}

// Completer returns the concatenated text content of a completion.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// FileUploader stores a document with the provider and returns its file handle.
type FileUploader interface {
	UploadFile(ctx context.Context, filename string, data []byte) (string, error)
}

// Provider is everything the pipeline needs from an LLM vendor.
type Provider interface {
	Completer
	FileUploader
}

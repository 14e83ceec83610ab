package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joseph-ayodele/tender-checklist/internal/entity"
)

// ErrEmptyDocument is returned for zero-length PDF input.
var ErrEmptyDocument = errors.New("empty pdf document")

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdfinfo   string // binary name or absolute path; if empty -> "pdfinfo"
	TempDir   string // where PDF bytes are staged; "" = os.TempDir()
}

// PageExtractor renders PDF bytes into per-page plain text using poppler.
type PageExtractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewPageExtractor(cfg Config, logger *slog.Logger) *PageExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdfinfo == "" {
		cfg.Pdfinfo = "pdfinfo"
	}
	return &PageExtractor{cfg: cfg, runner: execRunner{logger: logger}, logger: logger}
}

// WithRunner swaps the command runner (tests).
func (e *PageExtractor) WithRunner(r Runner) *PageExtractor {
	e.runner = r
	return e
}

// ExtractPages returns one Page per PDF page, numbered from 1. A page that fails to
// extract contributes an empty string instead of failing the document.
func (e *PageExtractor) ExtractPages(ctx context.Context, pdf []byte) ([]entity.Page, error) {
	if len(pdf) == 0 {
		return nil, ErrEmptyDocument
	}
	start := time.Now()

	f, err := os.CreateTemp(e.cfg.TempDir, "tender-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("stage pdf: %w", err)
	}
	path := f.Name()
	defer func() {
		if err := os.Remove(path); err != nil {
			e.logger.Warn("ocr.tempfile.remove_failed", "path", path, "error", err)
		}
	}()
	if _, err := f.Write(pdf); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stage pdf: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("stage pdf: %w", err)
	}

	count, err := e.pageCount(ctx, path)
	if err != nil {
		return nil, err
	}

	pages := make([]entity.Page, 0, count)
	failed := 0
	for i := 1; i <= count; i++ {
		text, err := e.pageText(ctx, path, i)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			failed++
			e.logger.Warn("ocr.page.error", "page", i, "error", err)
			text = ""
		}
		pages = append(pages, entity.Page{PageNo: i, Text: text})
	}

	e.logger.Info("ocr.extract.ok",
		"pages", count,
		"failed_pages", failed,
		"bytes", len(pdf),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return pages, nil
}

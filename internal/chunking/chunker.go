package chunking

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/tender-checklist/internal/common"
	"github.com/joseph-ayodele/tender-checklist/internal/entity"
)

// Chunker groups consecutive pages into overlapping windows.
type Chunker struct {
	window  int
	overlap int
}

// NewChunker validates the window (pages per chunk) and overlap.
func NewChunker(window, overlap int) (*Chunker, error) {
	if window <= 0 {
		return nil, fmt.Errorf("%w: chunk window must be >= 1, got %d", common.ErrInvalidConfiguration, window)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: chunk overlap must be >= 0, got %d", common.ErrInvalidConfiguration, overlap)
	}
	return &Chunker{window: window, overlap: overlap}, nil
}

// Step is how far the window advances; never less than one page.
func (c *Chunker) Step() int {
	return max(1, c.window-c.overlap)
}

// Chunk splits pages into windows of up to `window` pages. Chunk ids start at 1 and the
// last chunk always ends at the last page.
func (c *Chunker) Chunk(pages []entity.Page) []entity.Chunk {
	n := len(pages)
	chunks := make([]entity.Chunk, 0, n/c.Step()+1)
	if n == 0 {
		return chunks
	}

	id := 1
	for i := 0; ; i += c.Step() {
		j := min(i+c.window, n)
		window := pages[i:j]
		chunks = append(chunks, entity.Chunk{
			ChunkID:   id,
			PageStart: window[0].PageNo,
			PageEnd:   window[len(window)-1].PageNo,
			Text:      renderText(window),
		})
		id++
		if j == n {
			break
		}
	}
	return chunks
}

func renderText(pages []entity.Page) string {
	var b strings.Builder
	for i, p := range pages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("[Page ")
		b.WriteString(strconv.Itoa(p.PageNo))
		b.WriteString("]\n")
		b.WriteString(p.Text)
	}
	return b.String()
}

// OffsetPages concatenates per-document page lists, shifting each document's page numbers
// by the page count of the documents before it.
func OffsetPages(docs [][]entity.Page) []entity.Page {
	total := 0
	for _, d := range docs {
		total += len(d)
	}
	out := make([]entity.Page, 0, total)
	offset := 0
	for _, d := range docs {
		for _, p := range d {
			out = append(out, entity.Page{PageNo: offset + p.PageNo, Text: p.Text})
		}
		offset += len(d)
	}
	return out
}

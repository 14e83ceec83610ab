package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/tender-checklist/internal/entity"
)

func newTestExtractor(t *testing.T, f *fakeCompleter) *ExtractionClient {
	t.Helper()
	c, err := NewExtractionClient(f, ExtractionConfig{Model: "main-model", RepairModel: "repair-model"}, nil)
	require.NoError(t, err)
	return c
}

func TestParseRequirements(t *testing.T) {
	c := newTestExtractor(t, &fakeCompleter{})

	reqs, err := c.ParseRequirements("```json\n" + `{"requirements":[
		{"id":"R1","text":" Submit a bid bond. ","category":"Financial","is_mandatory":true,"page_refs":[4,"2",2,0,"x"],"deadline":"","notes":"drop me"},
		{"id":7,"text":"ISO 9001 certificate","category":"quality","is_mandatory":"false","page_refs":3,"source_quote":"ISO 9001"},
		{"id":"R3","text":"   ","category":"other","is_mandatory":true}
	], "summary": "ignored"}` + "\n```")
	require.NoError(t, err)
	require.Len(t, reqs, 2, "entries with empty text are dropped")

	assert.Equal(t, "R1", reqs[0].ID)
	assert.Equal(t, "Submit a bid bond.", reqs[0].Text)
	assert.Equal(t, "financial", reqs[0].Category)
	assert.True(t, reqs[0].IsMandatory)
	assert.Equal(t, []int{2, 4}, reqs[0].PageRefs)
	assert.Nil(t, reqs[0].Deadline)

	assert.Equal(t, "7", reqs[1].ID)
	assert.Equal(t, "other", reqs[1].Category)
	assert.False(t, reqs[1].IsMandatory)
	assert.Equal(t, []int{3}, reqs[1].PageRefs)
	require.NotNil(t, reqs[1].SourceQuote)
	assert.Equal(t, "ISO 9001", *reqs[1].SourceQuote)
}

func TestParseRequirementsEmpty(t *testing.T) {
	c := newTestExtractor(t, &fakeCompleter{})

	for _, in := range []string{`{}`, `{"requirements": []}`, `{"requirements": null}`} {
		reqs, err := c.ParseRequirements(in)
		require.NoError(t, err, in)
		assert.NotNil(t, reqs)
		assert.Empty(t, reqs)
	}
}

func TestParseRequirementsRejectsInvalid(t *testing.T) {
	c := newTestExtractor(t, &fakeCompleter{})

	for _, in := range []string{
		`not json at all`,
		`{"requirements": [{"id": "R1", "text": "x", "category": "other"`,
		`{"requirements": [{"id": "R1", "text": "missing is_mandatory", "category": "other"}]}`,
		`{"requirements": "none"}`,
	} {
		_, err := c.ParseRequirements(in)
		assert.Error(t, err, in)
	}
}

func TestExtractRequirementsRequest(t *testing.T) {
	f := &fakeCompleter{replies: []fakeReply{{text: "  "}}}
	c := newTestExtractor(t, f)

	raw, err := c.ExtractRequirements(context.Background(), entity.Chunk{ChunkID: 2, PageStart: 5, PageEnd: 9, Text: "[Page 5]\nhello"})
	require.NoError(t, err)
	assert.Equal(t, "{}", raw, "empty model output reads as an empty object")

	require.Len(t, f.requests, 1)
	req := f.requests[0]
	assert.Equal(t, "main-model", req.Model)
	assert.Equal(t, 2000, req.MaxTokens)
	assert.Contains(t, req.System, `{"requirements": []}`)
	require.Len(t, req.Content, 1)
	assert.Contains(t, req.Content[0].Text, "Pages 5-9")
	assert.Contains(t, req.Content[0].Text, "[Page 5]\nhello")
}

func TestExtractRequirementsTransportError(t *testing.T) {
	f := &fakeCompleter{replies: []fakeReply{{err: errors.New("connection reset")}}}
	_, err := newTestExtractor(t, f).ExtractRequirements(context.Background(), entity.Chunk{ChunkID: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chunk 1")
}

func TestRepairJSON(t *testing.T) {
	f := &fakeCompleter{replies: []fakeReply{{text: `{"requirements":[]}`}, {text: ""}}}
	c := newTestExtractor(t, f)

	out, err := c.RepairJSON(context.Background(), `{"requirements":[}`)
	require.NoError(t, err)
	assert.Equal(t, `{"requirements":[]}`, out)
	assert.Equal(t, "repair-model", f.requests[0].Model)
	assert.Equal(t, 1000, f.requests[0].MaxTokens)
	assert.True(t, strings.HasPrefix(f.requests[0].System, "You repair invalid JSON."))

	out, err = c.RepairJSON(context.Background(), "broken")
	require.NoError(t, err)
	assert.Equal(t, "broken", out, "empty repair output returns the input")
}

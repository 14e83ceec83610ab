package llm

import (
	"fmt"
	"strings"

	"github.com/joseph-ayodele/tender-checklist/constants"
	"github.com/joseph-ayodele/tender-checklist/internal/entity"
)

// BuildExtractionSystemPrompt fixes the extraction task and the output contract.
func BuildExtractionSystemPrompt() string {
	parts := []string{
		"You extract explicit procurement requirements from tender documents.",
		"Only include obligations the bidder must or should fulfil; never invent requirements.",
		"Allowed categories (enum): " + strings.Join(constants.AsStringSlice(), ", ") + ". If uncertain, use 'other'.",
		"page_refs must use the page numbers shown in the [Page N] markers.",
		"Copy deadlines verbatim into 'deadline' when present.",
		"Return STRICT JSON matching the schema, with no prose and no code fences.",
		`If no requirements are present, return {"requirements": []}.`,
	}
	return strings.Join(parts, " ")
}

// BuildExtractionUserPrompt packages a chunk with its page range and the schema hint.
func BuildExtractionUserPrompt(chunk entity.Chunk) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Pages %d-%d of the tender documents.\n\n", chunk.PageStart, chunk.PageEnd)
	b.WriteString("Return JSON with this shape:\n")
	b.WriteString(requirementsSchemaHint)
	b.WriteString("\n\nDocument text:\n")
	b.WriteString(chunk.Text)
	return b.String()
}

const repairSystemPrompt = "You repair invalid JSON. Output ONLY valid JSON and nothing else."

// BuildRepairUserPrompt asks the repair model to fix text without changing its content.
func BuildRepairUserPrompt(text string) string {
	return "Fix this so it is a single valid JSON object. Keep all keys and values; do not add commentary.\n\n" + text
}

const promptSystemPrompt = "You answer questions about tender documents using only the attached documents. " +
	"Return STRICT JSON with no prose and no code fences."

// BuildPromptUserPrompt renders a QUESTION or CONDITION prompt.
func BuildPromptUserPrompt(p entity.Prompt) string {
	var b strings.Builder
	switch p.PromptType {
	case constants.PromptTypeCondition:
		b.WriteString("Condition: ")
		b.WriteString(strings.TrimSpace(p.PromptText))
		b.WriteString("\n\nSet boolean_result to true if the documents confirm the condition, ")
		b.WriteString("false if they contradict it, and null if it cannot be determined. ")
		b.WriteString("Explain briefly in evidence.\n\n")
		b.WriteString(`Return JSON: {"boolean_result": true|false|null, "confidence": 0.0-1.0, "evidence": "string", "page_refs": [1]}`)
	default:
		b.WriteString("Question: ")
		b.WriteString(strings.TrimSpace(p.PromptText))
		b.WriteString("\n\nIf the answer cannot be found, set answer to null and include a brief explanation in evidence.\n\n")
		b.WriteString(`Return JSON: {"answer": "string or null", "confidence": 0.0-1.0, "evidence": "string", "page_refs": [1]}`)
	}
	return b.String()
}

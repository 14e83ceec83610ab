package storage

import (
	"fmt"
	"path"
	"strings"
)

// JobKeys lays out the artifact tree of one job under jobs/{jobID}/.
type JobKeys struct {
	JobID string
}

func KeysFor(jobID string) JobKeys { return JobKeys{JobID: jobID} }

func (k JobKeys) Prefix() string { return "jobs/" + k.JobID + "/" }

func (k JobKeys) key(parts ...string) string {
	return k.Prefix() + strings.Join(parts, "/")
}

// Document is the archived copy of the idx-th source document.
func (k JobKeys) Document(idx int, filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "document.pdf"
	}
	return k.key("documents", fmt.Sprintf("%03d_%s", idx, name))
}

func (k JobKeys) Pages() string { return k.key("pages.json") }

func (k JobKeys) Chunk(chunkID int) string {
	return k.key("chunks", fmt.Sprintf("%d.json", chunkID))
}

func (k JobKeys) RawOutput(chunkID int) string {
	return k.key("raw_llm_outputs", fmt.Sprintf("%d.txt", chunkID))
}

func (k JobKeys) RepairedOutput(chunkID int) string {
	return k.key("raw_llm_outputs", fmt.Sprintf("%d_repaired.txt", chunkID))
}

func (k JobKeys) LLMOutput(chunkID int) string {
	return k.key("llm_outputs", fmt.Sprintf("%d.json", chunkID))
}

func (k JobKeys) ExtractionError(chunkID int) string {
	return k.key("extraction_errors", fmt.Sprintf("%d.json", chunkID))
}

func (k JobKeys) MergedRequirements() string { return k.key("merged_requirements.json") }

func (k JobKeys) Checklist() string { return k.key("checklist.json") }

func (k JobKeys) ChecklistXLSX() string { return k.key("checklist.xlsx") }

func (k JobKeys) RawPromptOutput(promptID int) string {
	return k.key("raw_prompt_outputs", fmt.Sprintf("%d.txt", promptID))
}

func (k JobKeys) RepairedPromptOutput(promptID int) string {
	return k.key("raw_prompt_outputs", fmt.Sprintf("%d_repaired.txt", promptID))
}

func (k JobKeys) PromptResults() string { return k.key("prompt_results.json") }

func (k JobKeys) Status() string { return k.key("status.json") }

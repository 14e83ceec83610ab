package entity

import "strings"

// DocumentRef points at one uploaded PDF in object storage.
type DocumentRef struct {
	ID         string `json:"id"`
	Filename   string `json:"filename"`
	StorageKey string `json:"storage_key"`
}

// JobOptions are per-message overrides of the chunking configuration.
type JobOptions struct {
	ChunkWindowPages  *int `json:"chunk_window_pages,omitempty"`
	ChunkOverlapPages *int `json:"chunk_overlap_pages,omitempty"`
}

// JobMessage is the task-queue payload for one job.
type JobMessage struct {
	JobID       string        `json:"job_id"`
	ChecklistID string        `json:"checklist_id"`
	Documents   []DocumentRef `json:"documents"`
	Options     JobOptions    `json:"options"`
}

// Normalized fills job_id and checklist_id from each other when one is missing.
func (m JobMessage) Normalized() JobMessage {
	m.JobID = strings.TrimSpace(m.JobID)
	m.ChecklistID = strings.TrimSpace(m.ChecklistID)
	if m.JobID == "" {
		m.JobID = m.ChecklistID
	}
	if m.ChecklistID == "" {
		m.ChecklistID = m.JobID
	}
	return m
}

// UploadedFile is a document attached to the LLM provider's file store.
type UploadedFile struct {
	Filename string `json:"filename"`
	FileID   string `json:"file_id"`
}

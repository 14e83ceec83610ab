package synthesis

import (
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/tender-checklist/constants"
	"github.com/joseph-ayodele/tender-checklist/internal/entity"
)

// Synthesizer turns deduplicated requirements into checklist items.
type Synthesizer struct {
	logger *slog.Logger
}

func NewSynthesizer(logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{logger: logger}
}

// Synthesize maps each requirement to one item, preserving order.
func (s *Synthesizer) Synthesize(reqs []entity.Requirement) []entity.ChecklistItem {
	items := make([]entity.ChecklistItem, 0, len(reqs))
	dated := 0
	for _, r := range reqs {
		item := ItemFromRequirement(r)
		if item.DueDate != nil {
			dated++
		}
		items = append(items, item)
	}
	s.logger.Info("synthesis.ok", "items", len(items), "with_due_date", dated)
	return items
}

// ItemFromRequirement derives a single checklist item.
func ItemFromRequirement(r entity.Requirement) entity.ChecklistItem {
	id := strings.TrimSpace(r.ID)
	if id == "" {
		id = uuid.New().String()
	}

	var deadline string
	if r.Deadline != nil {
		deadline = *r.Deadline
	}
	var due *string
	if d, ok := DeriveDueDate(deadline, r.Text); ok {
		due = &d
	}

	var evidence *bool
	if r.SubmissionFormat != nil && strings.TrimSpace(*r.SubmissionFormat) != "" {
		v := true
		evidence = &v
	}

	refs := make([]int, len(r.PageRefs))
	copy(refs, r.PageRefs)

	category := r.Category
	if category == "" {
		category = string(constants.Other)
	}

	return entity.ChecklistItem{
		ID:               id,
		Title:            DeriveTitle(r.Text),
		Description:      r.Text,
		Category:         category,
		IsMandatory:      r.IsMandatory,
		DueDate:          due,
		Status:           constants.ChecklistItemStatusOpen,
		PageRefs:         refs,
		EvidenceRequired: evidence,
	}
}

package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/tender-checklist/constants"
	"github.com/joseph-ayodele/tender-checklist/internal/entity"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestChecklistXLSX(t *testing.T) {
	due := "2025-03-15"
	cl := entity.Checklist{
		JobID:       "job-1",
		ChecklistID: "cl-1",
		GeneratedAt: time.Now(),
		Items: []entity.ChecklistItem{
			{
				ID: "R1", Title: "Submit bid bond", Description: "Submit a bid bond of 2%.",
				Category: "financial", IsMandatory: true, DueDate: &due, Status: "open",
				PageRefs: []int{2, 4}, EvidenceRequired: boolPtr(true),
			},
			{ID: "R2", Title: "Site visit", Description: "Attend the site visit.", Category: "other", Status: "open", PageRefs: []int{}},
		},
	}
	prompts := []entity.PromptResult{
		{PromptID: 7, PromptType: constants.PromptTypeCondition, BooleanResult: boolPtr(false),
			Evidence: strPtr("Section 3"), PageRefs: []int{3}, Status: constants.PromptStatusReady},
	}

	data, err := NewService(nil).ChecklistXLSX(cl, prompts)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{ChecklistSheet, PromptsSheet}, f.GetSheetList())

	rows, err := f.GetRows(ChecklistSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Evidence Required", rows[0][8])
	assert.Equal(t, []string{"R1", "Submit bid bond", "Submit a bid bond of 2%.", "financial", "yes", "2025-03-15", "open", "2, 4", "yes"}, rows[1])
	assert.Equal(t, "no", rows[2][4])
	assert.Equal(t, "", rows[2][5])

	prows, err := f.GetRows(PromptsSheet)
	require.NoError(t, err)
	require.Len(t, prows, 2)
	assert.Equal(t, "7", prows[1][0])
	assert.Equal(t, "CONDITION", prows[1][1])
	assert.Equal(t, "no", prows[1][3])
	assert.Equal(t, "Section 3", prows[1][5])
}

func TestChecklistXLSXWithoutPrompts(t *testing.T) {
	data, err := NewService(nil).ChecklistXLSX(entity.Checklist{JobID: "j"}, nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{ChecklistSheet}, f.GetSheetList())

	rows, err := f.GetRows(ChecklistSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestTruncateIsRuneSafe(t *testing.T) {
	assert.Equal(t, "Prüf…", truncate("Prüfungsbericht", 5))
	assert.Equal(t, "short", truncate("short", 10))
}

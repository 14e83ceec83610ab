package export

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/tender-checklist/internal/entity"
)

const (
	ChecklistSheet = "Checklist"
	PromptsSheet   = "Prompts"
)

// Service renders checklist artifacts as XLSX workbooks.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// ChecklistXLSX returns a workbook with one row per checklist item and, when prompts were
// evaluated, a second sheet with one row per prompt result.
func (s *Service) ChecklistXLSX(cl entity.Checklist, prompts []entity.PromptResult) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("export.xlsx.close_error", "error", err)
		}
	}()
	if err := f.SetSheetName("Sheet1", ChecklistSheet); err != nil {
		return nil, err
	}

	itemHeaders := []string{
		"ID",
		"Title",
		"Description",
		"Category",
		"Mandatory",
		"Due Date",
		"Status",
		"Pages",
		"Evidence Required",
	}
	itemRows := make([][]any, 0, len(cl.Items))
	for _, it := range cl.Items {
		itemRows = append(itemRows, []any{
			it.ID,
			it.Title,
			truncate(it.Description, 2000),
			it.Category,
			yesNo(it.IsMandatory),
			deref(it.DueDate),
			it.Status,
			joinInts(it.PageRefs),
			optYesNo(it.EvidenceRequired),
		})
	}
	if err := writeSheet(f, ChecklistSheet, itemHeaders, itemRows); err != nil {
		return nil, err
	}
	_ = f.SetColWidth(ChecklistSheet, "A", "A", 12)
	_ = f.SetColWidth(ChecklistSheet, "B", "B", 40)
	_ = f.SetColWidth(ChecklistSheet, "C", "C", 80)
	_ = f.SetColWidth(ChecklistSheet, "D", "G", 14)
	_ = f.SetColWidth(ChecklistSheet, "H", "I", 16)

	if len(prompts) > 0 {
		if _, err := f.NewSheet(PromptsSheet); err != nil {
			return nil, err
		}
		promptHeaders := []string{
			"Prompt ID",
			"Type",
			"Answer",
			"Result",
			"Confidence",
			"Evidence",
			"Pages",
			"Status",
			"Error",
		}
		promptRows := make([][]any, 0, len(prompts))
		for _, p := range prompts {
			confidence := ""
			if p.Confidence != nil {
				confidence = strconv.FormatFloat(*p.Confidence, 'f', 2, 64)
			}
			promptRows = append(promptRows, []any{
				p.PromptID,
				string(p.PromptType),
				deref(p.AnswerText),
				optYesNo(p.BooleanResult),
				confidence,
				truncate(deref(p.Evidence), 2000),
				joinInts(p.PageRefs),
				string(p.Status),
				deref(p.Error),
			})
		}
		if err := writeSheet(f, PromptsSheet, promptHeaders, promptRows); err != nil {
			return nil, err
		}
		_ = f.SetColWidth(PromptsSheet, "C", "C", 60)
		_ = f.SetColWidth(PromptsSheet, "F", "F", 80)
	}

	activeIndex, _ := f.GetSheetIndex(ChecklistSheet)
	f.SetActiveSheet(activeIndex)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"job_id", cl.JobID,
		"rows", len(cl.Items),
		"prompts", len(prompts),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, sheet string, headers []string, rows [][]any) error {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	for r, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func optYesNo(b *bool) string {
	if b == nil {
		return ""
	}
	return yesNo(*b)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ", ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

package recordstore

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/tender-checklist/constants"
	"github.com/joseph-ayodele/tender-checklist/internal/entity"
)

// ParsePrompts converts the record store's prompt list. Entries without an integer id are
// skipped with a warning; a missing or unknown prompt_type reads as QUESTION; for duplicate
// ids the first entry wins.
func ParsePrompts(raw []map[string]any, logger *slog.Logger) []entity.Prompt {
	if logger == nil {
		logger = slog.Default()
	}
	out := make([]entity.Prompt, 0, len(raw))
	seen := make(map[int]struct{}, len(raw))
	for i, item := range raw {
		id, err := promptID(item["id"])
		if err != nil {
			logger.Warn("recordstore.prompt.skipped", "index", i, "error", err)
			continue
		}
		if _, dup := seen[id]; dup {
			logger.Warn("recordstore.prompt.duplicate", "index", i, "prompt_id", id)
			continue
		}
		seen[id] = struct{}{}

		typ, _ := item["prompt_type"].(string)
		pt, _ := constants.ParsePromptType(typ)
		text, _ := item["prompt_text"].(string)
		out = append(out, entity.Prompt{ID: id, PromptText: text, PromptType: pt})
	}
	return out
}

func promptID(v any) (int, error) {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) || t != math.Trunc(t) {
			return 0, fmt.Errorf("id %v is not an integer", t)
		}
		return int(t), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, fmt.Errorf("id %q is not an integer", t)
		}
		return n, nil
	case nil:
		return 0, fmt.Errorf("missing id")
	default:
		return 0, fmt.Errorf("id of type %T is not an integer", v)
	}
}

package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/tender-checklist/constants"
)

var errNoJSONObject = errors.New("no json object in response")

// ExtractJSONObject strips markdown code fences and surrounding prose, returning the
// outermost {...} span of text.
func ExtractJSONObject(text string) ([]byte, error) {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```JSON")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return nil, errNoJSONObject
	}
	return []byte(s[start : end+1]), nil
}

var optionalRequirementStrings = []string{"deadline", "submission_format", "source_quote"}

var allowedRequirementKeys = map[string]struct{}{
	"id": {}, "text": {}, "category": {}, "is_mandatory": {}, "page_refs": {},
	"deadline": {}, "submission_format": {}, "source_quote": {},
}

// SanitizeRequirementsJSON normalizes an extraction response so that small model quirks
// do not fail validation:
// - missing/null requirements -> []
// - numeric ids -> strings; trims text fields; drops entries with empty text
// - category canonicalized onto the enum, unknown -> "other"
// - "true"/"false" strings for is_mandatory -> booleans
// - page_refs coerced to a sorted set of positive ints
// - null/empty optionals and unknown keys removed
// It returns the cleaned document plus a list of what was changed.
func SanitizeRequirementsJSON(raw []byte, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	var dropped []string
	for k := range m {
		if k != "requirements" {
			delete(m, k)
			dropped = append(dropped, k+"(unknown)")
		}
	}

	list, ok := m["requirements"].([]any)
	if !ok {
		if m["requirements"] == nil {
			list = []any{}
		} else {
			// wrong type; leave it for the validator to reject
			out, err := json.Marshal(m)
			return out, dropped, err
		}
	}

	kept := make([]any, 0, len(list))
	for i, entry := range list {
		item, ok := entry.(map[string]any)
		if !ok {
			kept = append(kept, entry)
			continue
		}
		tag := fmt.Sprintf("requirements[%d].", i)

		for k := range item {
			if _, ok := allowedRequirementKeys[k]; !ok {
				delete(item, k)
				dropped = append(dropped, tag+k+"(unknown)")
			}
		}

		switch v := item["id"].(type) {
		case float64:
			item["id"] = strconv.FormatFloat(v, 'f', -1, 64)
		case string:
			item["id"] = strings.TrimSpace(v)
		}

		if v, ok := item["text"].(string); ok {
			item["text"] = strings.TrimSpace(v)
			if item["text"] == "" {
				dropped = append(dropped, tag+"text(empty)")
				continue
			}
		}

		if v, ok := item["category"].(string); ok || item["category"] == nil {
			cat, known := constants.Canonicalize(v)
			if !known && v != "" {
				dropped = append(dropped, tag+"category("+v+"->other)")
			}
			item["category"] = string(cat)
		}

		if v, ok := item["is_mandatory"].(string); ok {
			if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
				item["is_mandatory"] = b
			}
		}

		item["page_refs"] = coercePageRefs(item["page_refs"])

		for _, k := range optionalRequirementStrings {
			v, exists := item[k]
			if !exists {
				continue
			}
			s, isStr := v.(string)
			if !isStr || strings.TrimSpace(s) == "" {
				delete(item, k)
				dropped = append(dropped, tag+k+"(empty)")
				continue
			}
			item[k] = strings.TrimSpace(s)
		}
		kept = append(kept, item)
	}
	m["requirements"] = kept

	out, err := json.Marshal(m)
	if err != nil {
		return nil, dropped, fmt.Errorf("sanitize: encode: %w", err)
	}
	if len(dropped) > 0 {
		logger.Warn("llm.extract.normalize_sanitize", "dropped", dropped)
	}
	return out, dropped, nil
}

// coercePageRefs turns whatever the model put in page_refs into a sorted set of
// positive integers.
func coercePageRefs(v any) []int {
	var raw []any
	switch t := v.(type) {
	case []any:
		raw = t
	case nil:
		return []int{}
	default:
		raw = []any{t}
	}
	out := make([]int, 0, len(raw))
	for _, e := range raw {
		if n, ok := coerceInt(e); ok && n >= 1 {
			out = append(out, n)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// coerceInt converts JSON numbers (truncated), numeric strings and booleans to int.
func coerceInt(v any) (int, bool) {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0, false
		}
		return int(t), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		return n, err == nil
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

package llm

import (
	"math"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/tender-checklist/constants"
	"github.com/joseph-ayodele/tender-checklist/internal/entity"
)

// English and German answer tokens.
var (
	trueTokens  = map[string]struct{}{"true": {}, "yes": {}, "ja": {}}
	falseTokens = map[string]struct{}{"false": {}, "no": {}, "nein": {}}
)

// NormalizePromptResponse coerces a decoded model answer into a PromptResult.
func NormalizePromptResponse(p entity.Prompt, data map[string]any) entity.PromptResult {
	res := entity.PromptResult{
		PromptID:   p.ID,
		PromptType: p.PromptType,
		AnswerText: firstString(data["answer"], data["answer_text"]),
		Evidence:   firstString(data["evidence"]),
		Error:      firstString(data["error"]),
		PageRefs:   normalizePageRefs(data["page_refs"]),
	}
	if p.PromptType == constants.PromptTypeCondition {
		res.BooleanResult = NormalizeBool(data["boolean_result"])
	}
	if f, ok := normalizeFloat(data["confidence"]); ok {
		res.Confidence = &f
	}

	switch s, _ := data["status"].(string); constants.PromptStatus(strings.ToUpper(strings.TrimSpace(s))) {
	case constants.PromptStatusReady:
		res.Status = constants.PromptStatusReady
	case constants.PromptStatusFailed:
		res.Status = constants.PromptStatusFailed
	default:
		if res.Error != nil {
			res.Status = constants.PromptStatusFailed
		} else {
			res.Status = constants.PromptStatusReady
		}
	}
	return res
}

// NormalizeBool maps booleans, numbers (non-zero is true) and yes/no tokens to a ternary.
func NormalizeBool(v any) *bool {
	var b bool
	switch t := v.(type) {
	case bool:
		b = t
	case float64:
		b = t != 0
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		if _, ok := trueTokens[s]; ok {
			b = true
		} else if _, ok := falseTokens[s]; ok {
			b = false
		} else {
			return nil
		}
	default:
		return nil
	}
	return &b
}

func normalizeFloat(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	case bool:
		if t {
			f = 1
		}
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// normalizePageRefs keeps list order; entries that are not integers are skipped.
func normalizePageRefs(v any) []int {
	list, ok := v.([]any)
	if !ok {
		return []int{}
	}
	out := make([]int, 0, len(list))
	for _, e := range list {
		if n, ok := coerceInt(e); ok {
			out = append(out, n)
		}
	}
	return out
}

func firstString(vals ...any) *string {
	for _, v := range vals {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			return &s
		}
	}
	return nil
}

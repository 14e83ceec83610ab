package constants

import (
	"strings"
)

type Category string

const (
	Submission  Category = "submission"
	Eligibility Category = "eligibility"
	Technical   Category = "technical"
	Financial   Category = "financial"
	Other       Category = "other"
)

var allCategories = []Category{
	Submission,
	Eligibility,
	Technical,
	Financial,
	Other,
}

func AsStringSlice() []string {
	result := make([]string, len(allCategories))
	for i, cat := range allCategories {
		result[i] = string(cat)
	}
	return result
}

// Canonicalize maps a model-provided label onto the category enum.
// Unknown labels fall back to Other with ok=false.
func Canonicalize(input string) (Category, bool) {
	if input == "" {
		return Other, false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))

	// synonyms map
	synonyms := map[string]Category{
		"submission requirement": Submission,
		"formal":                 Submission,
		"administrative":         Submission,
		"documentation":          Submission,
		"qualification":          Eligibility,
		"eligibility criteria":   Eligibility,
		"exclusion":              Eligibility,
		"legal":                  Eligibility,
		"technical requirement":  Technical,
		"specification":          Technical,
		"functional":             Technical,
		"commercial":             Financial,
		"pricing":                Financial,
		"price":                  Financial,
		"financial requirement":  Financial,
		"economic":               Financial,
	}

	if cat, ok := synonyms[normalized]; ok {
		return cat, true
	}

	for _, cat := range allCategories {
		if normalized == string(cat) {
			return cat, true
		}
	}

	return Other, false
}

// PromptType distinguishes free-text questions from yes/no conditions.
type PromptType string

const (
	PromptTypeQuestion  PromptType = "QUESTION"
	PromptTypeCondition PromptType = "CONDITION"
)

// ParsePromptType upper-cases input and falls back to QUESTION for anything unknown.
func ParsePromptType(input string) (PromptType, bool) {
	switch PromptType(strings.ToUpper(strings.TrimSpace(input))) {
	case PromptTypeQuestion:
		return PromptTypeQuestion, true
	case PromptTypeCondition:
		return PromptTypeCondition, true
	default:
		return PromptTypeQuestion, false
	}
}

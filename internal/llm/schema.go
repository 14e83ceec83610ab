package llm

// BuildRequirementsJSONSchema returns the JSON-Schema for the extraction response as a
// generic map. It is both embedded in the prompt as a hint and used locally to validate.
func BuildRequirementsJSONSchema(categories []string) map[string]any {
	item := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"id":           map[string]any{"type": "string"},
			"text":         map[string]any{"type": "string", "minLength": 1},
			"category":     map[string]any{"type": "string", "enum": categories},
			"is_mandatory": map[string]any{"type": "boolean"},
			"page_refs": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "integer", "minimum": 1},
			},
			"deadline":          map[string]any{"type": "string"},
			"submission_format": map[string]any{"type": "string"},
			"source_quote":      map[string]any{"type": "string"},
		},
		"required": []string{"id", "text", "category", "is_mandatory"},
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"requirements": map[string]any{"type": "array", "items": item},
		},
		"required": []string{"requirements"},
	}
}

// BuildPromptResponseJSONSchema types the fields NormalizePromptResponse reads. It stays
// as lenient as the normalizer: booleans and confidences may arrive as strings, and any
// field may be null or missing.
func BuildPromptResponseJSONSchema() map[string]any {
	nullableString := map[string]any{"type": []string{"string", "null"}}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"answer":      nullableString,
			"answer_text": nullableString,
			"evidence":    nullableString,
			"error":       nullableString,
			"status":      nullableString,
			"boolean_result": map[string]any{
				"type": []string{"boolean", "string", "number", "null"},
			},
			"confidence": map[string]any{
				"type": []string{"number", "string", "boolean", "null"},
			},
			"page_refs": map[string]any{
				"type":  []string{"array", "null"},
				"items": map[string]any{"type": []string{"number", "string"}},
			},
		},
	}
}

// requirementsSchemaHint is the compact shape shown to the model.
const requirementsSchemaHint = `{
  "requirements": [
    {
      "id": "string, unique within this response",
      "text": "the requirement, one sentence",
      "category": "submission | eligibility | technical | financial | other",
      "is_mandatory": true,
      "page_refs": [1],
      "deadline": "optional, verbatim deadline text",
      "submission_format": "optional, e.g. signed PDF, sealed envelope",
      "source_quote": "optional, short verbatim quote"
    }
  ]
}`

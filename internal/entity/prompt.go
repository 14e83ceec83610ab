package entity

import "github.com/joseph-ayodele/tender-checklist/constants"

// Prompt is a user-authored question or condition evaluated against the documents.
type Prompt struct {
	ID         int                  `json:"id"`
	PromptText string               `json:"prompt_text"`
	PromptType constants.PromptType `json:"prompt_type"`
}

// PromptResult is the outcome of evaluating one Prompt. BooleanResult is only set for
// CONDITION prompts; nil means unknown.
type PromptResult struct {
	PromptID      int                    `json:"prompt_id"`
	PromptType    constants.PromptType   `json:"prompt_type"`
	AnswerText    *string                `json:"answer_text"`
	BooleanResult *bool                  `json:"boolean_result"`
	Confidence    *float64               `json:"confidence"`
	Evidence      *string                `json:"evidence"`
	PageRefs      []int                  `json:"page_refs"`
	Status        constants.PromptStatus `json:"status"`
	Error         *string                `json:"error"`
}

// FailedPromptResult builds the result recorded when evaluating p raised err.
func FailedPromptResult(p Prompt, err error) PromptResult {
	msg := err.Error()
	return PromptResult{
		PromptID:   p.ID,
		PromptType: p.PromptType,
		PageRefs:   []int{},
		Status:     constants.PromptStatusFailed,
		Error:      &msg,
	}
}

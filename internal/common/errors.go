package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInternal     = errors.New("internal error")
	ErrDatabase     = errors.New("database error")
	ErrStorage      = errors.New("storage error")
	ErrValidation   = errors.New("validation failed")
)

// Pipeline failure taxonomy. The degraded kinds are logged and recorded, never returned
// from a job run.
var (
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrPrecondition         = errors.New("precondition failed")
	ErrUpstreamUpload       = errors.New("upstream upload failed")
	ErrExtractionDegraded   = errors.New("extraction degraded")
	ErrPromptFetchDegraded  = errors.New("prompt fetch degraded")
	ErrPromptEvaluation     = errors.New("prompt evaluation failed")
	ErrReporting            = errors.New("reporting failed")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// IsDegraded reports whether err only lowers result quality.
func IsDegraded(err error) bool {
	return errors.Is(err, ErrExtractionDegraded) ||
		errors.Is(err, ErrPromptFetchDegraded) ||
		errors.Is(err, ErrPromptEvaluation)
}

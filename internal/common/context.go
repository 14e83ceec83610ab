package common

import (
	"context"
)

// Context keys for storing values in context
type contextKey string

const (
	ContextKeyRequestID contextKey = "request_id"
	ContextKeyJobID     contextKey = "job_id"
	ContextKeyAttempt   contextKey = "attempt"
)

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// RequestIDFromContext extracts the request ID from context
func RequestIDFromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return requestID
	}
	return ""
}

// WithJobID adds a job ID to the context
func WithJobID(ctx context.Context, jobID string) context.Context {
	return context.WithValue(ctx, ContextKeyJobID, jobID)
}

// JobIDFromContext extracts the job ID from context
func JobIDFromContext(ctx context.Context) string {
	if jobID, ok := ctx.Value(ContextKeyJobID).(string); ok {
		return jobID
	}
	return ""
}

// WithAttempt records which delivery attempt of a job is running (1-based).
func WithAttempt(ctx context.Context, attempt int) context.Context {
	return context.WithValue(ctx, ContextKeyAttempt, attempt)
}

// AttemptFromContext returns the attempt number, 1 when unset.
func AttemptFromContext(ctx context.Context) int {
	if attempt, ok := ctx.Value(ContextKeyAttempt).(int); ok && attempt > 0 {
		return attempt
	}
	return 1
}

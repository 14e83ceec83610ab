package common

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorUnwrap(t *testing.T) {
	err := NewAppError("UPLOAD", "document 2", fmt.Errorf("%w: 503", ErrUpstreamUpload))
	assert.True(t, errors.Is(err, ErrUpstreamUpload))
	assert.Equal(t, "UPLOAD: document 2: upstream upload failed: 503", err.Error())

	var app *AppError
	wrapped := WrapError(err, "process job")
	assert.True(t, errors.As(wrapped, &app))
	assert.Equal(t, "UPLOAD", app.Code)
	assert.Nil(t, WrapError(nil, "noop"))
}

func TestIsDegraded(t *testing.T) {
	assert.True(t, IsDegraded(fmt.Errorf("chunk 3: %w", ErrExtractionDegraded)))
	assert.True(t, IsDegraded(ErrPromptFetchDegraded))
	assert.False(t, IsDegraded(ErrReporting))
	assert.False(t, IsDegraded(ErrPrecondition))
}

func TestAttemptFromContext(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, 1, AttemptFromContext(ctx))
	assert.Equal(t, 3, AttemptFromContext(WithAttempt(ctx, 3)))
	assert.Equal(t, "job-1", JobIDFromContext(WithJobID(ctx, "job-1")))
}

package llm

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseInt(text string) (int, error) { return strconv.Atoi(text) }

func TestParseOrRepair(t *testing.T) {
	ctx := context.Background()
	repairCalls := 0
	repair := func(_ context.Context, text string) (string, error) {
		repairCalls++
		if text == "forty-two" {
			return "42", nil
		}
		return "still bad", nil
	}

	v, err := ParseOrRepair(ctx, "7", parseInt, repair)
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.Equal(t, 0, repairCalls, "valid input never calls repair")

	v, err = ParseOrRepair(ctx, "forty-two", parseInt, repair)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, repairCalls)

	_, err = ParseOrRepair(ctx, "garbage", parseInt, repair)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "garbage", pe.Raw)
	assert.Equal(t, "still bad", pe.Repaired)
	assert.Error(t, pe.First)
	assert.Error(t, pe.Second)
	assert.Equal(t, 2, repairCalls, "exactly one repair per parse")
}

func TestParseOrRepairRepairFailure(t *testing.T) {
	boom := errors.New("rate limited")
	_, err := ParseOrRepair(context.Background(), "x", parseInt, func(context.Context, string) (string, error) {
		return "", boom
	})
	require.ErrorIs(t, err, boom)
	var pe *ParseError
	assert.False(t, errors.As(err, &pe))
}

func TestExtractJSONObject(t *testing.T) {
	tests := map[string]string{
		`{"a":1}`:                       `{"a":1}`,
		"```json\n{\"a\":1}\n```":       `{"a":1}`,
		"Here you go: {\"a\":{}} thanks": `{"a":{}}`,
	}
	for in, want := range tests {
		got, err := ExtractJSONObject(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, string(got))
	}
	_, err := ExtractJSONObject("no braces")
	assert.Error(t, err)
}

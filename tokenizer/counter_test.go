package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schemaloop/schemaloop/types"
)

func TestEstimatorCountText(t *testing.T) {
	e := NewEstimator()

	tests := []struct {
		name string
		text string
		want int
	}{
		{name: "empty", text: "", want: 0},
		{name: "short ascii rounds up to one", text: "hi", want: 1},
		{name: "ascii ratio", text: "abcdefghijklmnop", want: 4},
		{name: "cjk denser than ascii", text: "你好世界你好", want: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.CountText(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEstimatorCountMessages(t *testing.T) {
	e := NewEstimator()

	msgs := []types.Message{
		types.NewSystemMessage("extract the requested fields"),
		types.NewUserMessage("Jason is 25 years old"),
	}

	got, err := e.CountMessages(msgs)
	require.NoError(t, err)

	// Two messages of per-message overhead plus the end marker, plus
	// some content tokens.
	assert.Greater(t, got, 11)
}

func TestEstimateFlagsResult(t *testing.T) {
	conv := []types.Message{types.NewUserMessage("extract Jason, age 25")}

	usage, err := Estimate(NewEstimator(), conv, `{"name": "Jason", "age": 25}`)
	require.NoError(t, err)

	assert.True(t, usage.Estimated)
	assert.Greater(t, usage.PromptTokens, 0)
	assert.Greater(t, usage.CompletionTokens, 0)
	assert.Equal(t, usage.PromptTokens+usage.CompletionTokens, usage.TotalTokens)
}

func TestNewTiktokenEncodingSelection(t *testing.T) {
	tests := []struct {
		model string
		want  string
	}{
		{model: "gpt-4o", want: "tiktoken[o200k_base]"},
		{model: "gpt-4o-2024-08-06", want: "tiktoken[o200k_base]"},
		{model: "gpt-4", want: "tiktoken[cl100k_base]"},
		{model: "some-unknown-model", want: "tiktoken[cl100k_base]"},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.Equal(t, tt.want, NewTiktoken(tt.model).Name())
		})
	}
}

package llm

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/avi3tal/infograph/internal/llmtest"
)

func TestTokensUsed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		info map[string]any
		want int
	}{
		{"openai total", map[string]any{"TotalTokens": 42, "PromptTokens": 30}, 42},
		{"anthropic split", map[string]any{"InputTokens": 10, "OutputTokens": 5}, 15},
		{"prompt and completion", map[string]any{"PromptTokens": int64(7), "CompletionTokens": float64(3)}, 10},
		{"nothing reported", map[string]any{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			resp := &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: "x", GenerationInfo: tt.info}}}
			require.Equal(t, tt.want, TokensUsed(resp))
		})
	}
	require.Zero(t, TokensUsed(nil))
}

func TestComplete(t *testing.T) {
	t.Parallel()

	model := llmtest.New(llmtest.Reply("hello there", 17))
	got, err := Complete(context.Background(), model, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, "hi"),
	}, llms.WithMaxTokens(50))
	require.NoError(t, err)
	require.Equal(t, "hello there", got.Text)
	require.Equal(t, 17, got.TokensUsed)

	calls := model.Calls()
	require.Len(t, calls, 1)
	require.Equal(t, 50, calls[0].Options.MaxTokens)
}

func TestCompleteError(t *testing.T) {
	t.Parallel()

	model := llmtest.New(llmtest.Fail(errors.New("rate limited")))
	_, err := Complete(context.Background(), model, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "rate limited")
}

func TestNewUnknownProvider(t *testing.T) {
	t.Parallel()

	_, err := New(Config{Provider: "carrier-pigeon"})
	require.True(t, errors.Is(err, ErrUnknownProvider))
}

func TestNewOllama(t *testing.T) {
	t.Parallel()

	m, err := New(Config{Provider: ProviderOllama, Model: "llama3", BaseURL: "http://localhost:11434"})
	require.NoError(t, err)
	require.NotNil(t, m)
}

// Package llm builds langchaingo chat models from configuration and extracts
// usage from their responses.
package llm

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

var (
	ErrUnknownProvider = errors.New("unknown llm provider")
	ErrEmptyResponse   = errors.New("llm returned no choices")
)

// Config selects and configures a provider.
type Config struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
}

// New returns the chat model described by cfg.
func New(cfg Config) (llms.Model, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderOpenAI, "":
		var opts []openai.Option
		if cfg.APIKey != "" {
			opts = append(opts, openai.WithToken(cfg.APIKey))
		}
		if cfg.Model != "" {
			opts = append(opts, openai.WithModel(cfg.Model))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		m, err := openai.New(opts...)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create openai client")
		}
		return m, nil
	case ProviderAnthropic:
		var opts []anthropic.Option
		if cfg.APIKey != "" {
			opts = append(opts, anthropic.WithToken(cfg.APIKey))
		}
		if cfg.Model != "" {
			opts = append(opts, anthropic.WithModel(cfg.Model))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
		}
		m, err := anthropic.New(opts...)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create anthropic client")
		}
		return m, nil
	case ProviderOllama:
		var opts []ollama.Option
		if cfg.Model != "" {
			opts = append(opts, ollama.WithModel(cfg.Model))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
		}
		m, err := ollama.New(opts...)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create ollama client")
		}
		return m, nil
	default:
		return nil, errors.Wrapf(ErrUnknownProvider, "%q", cfg.Provider)
	}
}

// Completion is the text and token usage of one chat call.
type Completion struct {
	Text       string
	TokensUsed int
}

// Complete sends messages to model and returns the first choice.
func Complete(ctx context.Context, model llms.Model, messages []llms.MessageContent, opts ...llms.CallOption) (*Completion, error) {
	resp, err := model.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate content")
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return nil, ErrEmptyResponse
	}
	return &Completion{
		Text:       resp.Choices[0].Content,
		TokensUsed: TokensUsed(resp),
	}, nil
}

// TokensUsed reads token usage from the generation info providers attach to
// each choice. Providers that report nothing count as zero.
func TokensUsed(resp *llms.ContentResponse) int {
	if resp == nil {
		return 0
	}
	total := 0
	for _, choice := range resp.Choices {
		if choice == nil {
			continue
		}
		info := choice.GenerationInfo
		if n, ok := intValue(info["TotalTokens"]); ok {
			total += n
			continue
		}
		in, _ := intValue(info["InputTokens"])
		out, _ := intValue(info["OutputTokens"])
		if in+out == 0 {
			in, _ = intValue(info["PromptTokens"])
			out, _ = intValue(info["CompletionTokens"])
		}
		total += in + out
	}
	return total
}

func intValue(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

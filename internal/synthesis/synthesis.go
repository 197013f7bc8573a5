// Package synthesis turns execution results into the final natural-language
// answer through a single bounded chat call.
package synthesis

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/tmc/langchaingo/llms"

	"github.com/avi3tal/infograph/internal/ctxlog"
	"github.com/avi3tal/infograph/internal/llm"
	"github.com/avi3tal/infograph/pkg/types"
)

const (
	DefaultMaxTokens   = 1000
	DefaultTemperature = 0.7
)

// Option configures a Formatter
type Option func(*Formatter)

// WithMaxTokens bounds the length of the generated answer
func WithMaxTokens(n int) Option {
	return func(f *Formatter) {
		f.maxTokens = n
	}
}

// WithTemperature sets the sampling temperature
func WithTemperature(t float64) Option {
	return func(f *Formatter) {
		f.temperature = t
	}
}

type Formatter struct {
	model       llms.Model
	maxTokens   int
	temperature float64
}

func New(model llms.Model, opts ...Option) *Formatter {
	f := &Formatter{
		model:       model,
		maxTokens:   DefaultMaxTokens,
		temperature: DefaultTemperature,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Synthesize builds findings from req and asks the model for the answer. The
// model's text is returned verbatim.
func (f *Formatter) Synthesize(ctx context.Context, req types.SynthesisRequest) (*types.Synthesis, error) {
	start := time.Now()
	logger := ctxlog.FromContext(ctx)

	findings := BuildFindings(req.Graph, req.Results)
	prompt, err := userPrompt(req.Query, req.Graph, findings)
	if err != nil {
		return nil, err
	}

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt(req.Preferences)),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}

	completion, err := llm.Complete(ctx, f.model, messages,
		llms.WithMaxTokens(f.maxTokens),
		llms.WithTemperature(f.temperature),
	)
	if err != nil {
		return nil, errors.Wrap(err, "synthesis failed")
	}

	elapsed := time.Since(start)
	logger.Debug("Synthesized answer.",
		"findings", len(findings.InformationGathered),
		"tokens", completion.TokensUsed,
		"duration", elapsed)

	return &types.Synthesis{
		Message: completion.Text,
		Metadata: types.SynthesisMetadata{
			TokensUsed:      completion.TokensUsed,
			FindingsCount:   len(findings.InformationGathered),
			SynthesisTimeMs: elapsed.Milliseconds(),
		},
	}, nil
}

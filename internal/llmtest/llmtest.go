// Package llmtest provides a scripted llms.Model for tests.
package llmtest

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/tmc/langchaingo/llms"
)

// ErrScriptExhausted is returned once every scripted step has been consumed.
var ErrScriptExhausted = errors.New("llmtest: no scripted response left")

// Step produces the response to one call.
type Step func(messages []llms.MessageContent) (*llms.ContentResponse, error)

// Reply answers with text and reports tokens as total usage.
func Reply(text string, tokens int) Step {
	return func([]llms.MessageContent) (*llms.ContentResponse, error) {
		return &llms.ContentResponse{Choices: []*llms.ContentChoice{{
			Content:        text,
			GenerationInfo: map[string]any{"TotalTokens": tokens},
		}}}, nil
	}
}

// Fail answers with err.
func Fail(err error) Step {
	return func([]llms.MessageContent) (*llms.ContentResponse, error) {
		return nil, err
	}
}

// Call is one recorded invocation.
type Call struct {
	Messages []llms.MessageContent
	Options  llms.CallOptions
}

// Model replays its steps in order and records every call.
type Model struct {
	mu    sync.Mutex
	steps []Step
	calls []Call
}

var _ llms.Model = (*Model)(nil)

func New(steps ...Step) *Model {
	return &Model{steps: steps}
}

func (m *Model) GenerateContent(_ context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	var opts llms.CallOptions
	for _, o := range options {
		o(&opts)
	}

	m.mu.Lock()
	m.calls = append(m.calls, Call{Messages: messages, Options: opts})
	if len(m.steps) == 0 {
		m.mu.Unlock()
		return nil, ErrScriptExhausted
	}
	step := m.steps[0]
	m.steps = m.steps[1:]
	m.mu.Unlock()

	return step(messages)
}

func (m *Model) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

// Calls returns the recorded invocations.
func (m *Model) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// Text concatenates the text parts of every message of a call.
func (c Call) Text() string {
	var out string
	for _, msg := range c.Messages {
		for _, part := range msg.Parts {
			if tp, ok := part.(llms.TextContent); ok {
				out += tp.Text + "\n"
			}
		}
	}
	return out
}

// Package decompose produces execution graphs, either from a chat model or
// from graph documents on disk.
package decompose

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/tmc/langchaingo/llms"

	"github.com/avi3tal/infograph/internal/ctxlog"
	"github.com/avi3tal/infograph/internal/graph"
	"github.com/avi3tal/infograph/internal/history"
	"github.com/avi3tal/infograph/internal/llm"
	"github.com/avi3tal/infograph/pkg/types"
)

const (
	DefaultMaxTokens   = 2000
	DefaultTemperature = 0.0
)

const instructions = `Plan how to gather the information needed to answer the user's request.
Reply with a single JSON object and nothing else:
{
  "query_classification": {"type": "<short label>", "domains": ["email", "calendar", ...]},
  "information_needs": [
    {"id": "<unique id>", "type": "search|read|analyze|cross_reference", "description": "<what this step finds>",
     "strategy": {"params": {...}}, "parallel_group": 0}
  ],
  "resource_estimate": {"estimated_tokens": 0, "estimated_time_seconds": 0, "estimated_cost": 0,
    "estimated_items": 0, "user_should_confirm": false}
}
Steps with the same parallel_group run together. A parameter may use a value produced by an
earlier group with the token "{{<id>.<field>}}"; never reference a step in the same or a later group.
Set user_should_confirm when the plan is expensive or touches many items.`

// Option configures an LLM decomposer
type Option func(*LLM)

func WithMaxTokens(n int) Option {
	return func(d *LLM) {
		d.maxTokens = n
	}
}

func WithTemperature(t float64) Option {
	return func(d *LLM) {
		d.temperature = t
	}
}

// WithLenientReferences accepts graphs with references that do not point at
// an earlier group.
func WithLenientReferences() Option {
	return func(d *LLM) {
		d.compileOpts = append(d.compileOpts, graph.WithLenientReferences())
	}
}

// LLM asks a chat model to plan the execution graph for a query.
type LLM struct {
	model       llms.Model
	maxTokens   int
	temperature float64
	compileOpts []graph.Option
}

func NewLLM(model llms.Model, opts ...Option) *LLM {
	d := &LLM{
		model:       model,
		maxTokens:   DefaultMaxTokens,
		temperature: DefaultTemperature,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *LLM) Decompose(ctx context.Context, req types.DecomposeRequest) (*types.Decomposition, error) {
	userCtx, err := json.Marshal(req.UserContext)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode user context")
	}

	ts := req.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	var system strings.Builder
	system.WriteString(instructions)
	fmt.Fprintf(&system, "\n\nCurrent time: %s\nUser context: %s", ts.Format(time.RFC3339), userCtx)

	messages := make([]llms.MessageContent, 0, len(req.History)+2)
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, system.String()))
	messages = append(messages, history.ToMessages(req.History)...)
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, req.Query))

	completion, err := llm.Complete(ctx, d.model, messages,
		llms.WithMaxTokens(d.maxTokens),
		llms.WithTemperature(d.temperature),
	)
	if err != nil {
		return nil, errors.Wrap(err, "decomposition failed")
	}

	g, err := ParseResponse(completion.Text)
	if err != nil {
		return nil, err
	}
	if err := validate(g, d.compileOpts...); err != nil {
		return nil, err
	}

	ctxlog.FromContext(ctx).Debug("Decomposed query.",
		"nodes", len(g.InformationNeeds),
		"queryType", g.QueryClassification.Type,
		"tokens", completion.TokensUsed)

	return &types.Decomposition{Graph: g, TokensUsed: completion.TokensUsed}, nil
}

// File serves a fixed graph document regardless of the query.
type File struct {
	path        string
	compileOpts []graph.Option
}

// NewFile serves the graph at path. opts apply when the graph is validated.
func NewFile(path string, opts ...graph.Option) *File {
	return &File{path: path, compileOpts: opts}
}

func (d *File) Decompose(ctx context.Context, _ types.DecomposeRequest) (*types.Decomposition, error) {
	g, err := LoadFile(d.path)
	if err != nil {
		return nil, err
	}
	if err := validate(g, d.compileOpts...); err != nil {
		return nil, err
	}
	ctxlog.FromContext(ctx).Debug("Loaded graph from file.", "path", d.path, "nodes", len(g.InformationNeeds))
	return &types.Decomposition{Graph: g}, nil
}

// LoadFile reads a YAML or JSON graph document from path.
func LoadFile(path string) (*types.ExecutionGraph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open graph %s", path)
	}
	defer f.Close()

	g, err := LoadGraph(f)
	if err != nil {
		return nil, errors.Wrapf(err, "graph %s", path)
	}
	return g, nil
}

func validate(g *types.ExecutionGraph, opts ...graph.Option) error {
	if _, err := graph.Compile(g, opts...); err != nil {
		return &invalidGraphError{cause: err}
	}
	return nil
}

// invalidGraphError matches ErrInvalidGraph and unwraps to the compile error.
type invalidGraphError struct {
	cause error
}

func (e *invalidGraphError) Error() string {
	return ErrInvalidGraph.Error() + ": " + e.cause.Error()
}

func (e *invalidGraphError) Cause() error  { return e.cause }
func (e *invalidGraphError) Unwrap() error { return e.cause }

func (e *invalidGraphError) Is(target error) bool { return target == ErrInvalidGraph }

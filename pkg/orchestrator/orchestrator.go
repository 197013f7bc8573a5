// Package orchestrator runs one user turn through decomposition, staged
// execution and synthesis, stopping for user consent when a plan is expensive.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/avi3tal/infograph/internal/ctxlog"
	"github.com/avi3tal/infograph/internal/history"
	"github.com/avi3tal/infograph/pkg/types"
)

// FailureMessage is the only text a caller sees when a turn fails.
const FailureMessage = "I'm sorry, I ran into a problem while processing your request. Please try again."

const DefaultHistoryWindow = 3

var (
	ErrNoGraph         = errors.New("decomposer returned no graph")
	ErrNoSynthesis     = errors.New("synthesizer returned no answer")
	ErrNothingToResume = errors.New("state is not awaiting confirmation")
)

// Decomposer turns a user query into an execution graph.
type Decomposer interface {
	Decompose(ctx context.Context, req types.DecomposeRequest) (*types.Decomposition, error)
}

// Executor runs an execution graph and returns one result per node.
type Executor interface {
	Execute(ctx context.Context, g *types.ExecutionGraph, userID string) (types.ExecutionResults, error)
}

// Synthesizer writes the final answer from execution results.
type Synthesizer interface {
	Synthesize(ctx context.Context, req types.SynthesisRequest) (*types.Synthesis, error)
}

type UserContextService interface {
	GetUserContext(ctx context.Context, userID string) (types.UserContext, error)
}

type PreferencesService interface {
	GetPreferences(ctx context.Context, userID string) (types.UserPreferences, error)
}

type Orchestrator struct {
	decomposer    Decomposer
	executor      Executor
	synthesizer   Synthesizer
	userContext   UserContextService
	preferences   PreferencesService
	historyWindow int
	logger        *slog.Logger
}

func New(decomposer Decomposer, executor Executor, synthesizer Synthesizer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		decomposer:    decomposer,
		executor:      executor,
		synthesizer:   synthesizer,
		historyWindow: DefaultHistoryWindow,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// turn is the bookkeeping of one call.
type turn struct {
	id      string
	start   time.Time
	machine *machine
	steps   int
	layers  types.Layers
	query   string
}

func (t *turn) metadata() types.ResponseMetadata {
	return types.ResponseMetadata{
		RequestID:        t.id,
		ProcessingTimeMs: time.Since(t.start).Milliseconds(),
		TotalSteps:       t.steps,
		TokensUsed: t.layers.Decomposition.TokensUsed +
			t.layers.Execution.TokensUsed +
			t.layers.Synthesis.TokensUsed,
		Layers: t.layers,
	}
}

// ProcessUserInput handles one user turn. It never returns an error: failures
// are logged and answered with FailureMessage.
//
// previous is the state returned by the prior turn. A pending confirmation in
// it is dropped; use ResumeConfirmed to run a confirmed plan.
func (o *Orchestrator) ProcessUserInput(
	ctx context.Context,
	input string,
	userID string,
	conversation []types.ConversationTurn,
	previous *types.OrchestratorState,
) types.Response {
	return o.handle(ctx, userID, input, types.StatusNew, func(ctx context.Context, t *turn) (types.Response, error) {
		if previous != nil && previous.AwaitingConfirmation {
			ctxlog.FromContext(ctx).Info("Dropping unconfirmed plan for new input.", "lastQuery", previous.LastQuery)
		}

		g, err := o.decompose(ctx, t, userID, conversation)
		if err != nil {
			return types.Response{}, err
		}
		if g.ResourceEstimate.UserShouldConfirm {
			return o.awaitConfirmation(t, g)
		}
		return o.execute(ctx, t, userID, g)
	})
}

// ResumeConfirmed executes the plan held by a state that was awaiting
// confirmation, without decomposing the query again.
func (o *Orchestrator) ResumeConfirmed(ctx context.Context, userID string, previous *types.OrchestratorState) types.Response {
	var (
		query   string
		initial = types.StatusNew
	)
	if previous != nil {
		query = previous.LastQuery
		initial = previous.Status
		if previous.AwaitingConfirmation {
			initial = types.StatusAwaitingConfirmation
		}
	}
	return o.handle(ctx, userID, query, initial, func(ctx context.Context, t *turn) (types.Response, error) {
		if previous == nil || !previous.AwaitingConfirmation || previous.ExecutionGraph == nil {
			return types.Response{}, ErrNothingToResume
		}
		return o.execute(ctx, t, userID, previous.ExecutionGraph)
	})
}

func (o *Orchestrator) handle(
	ctx context.Context,
	userID string,
	query string,
	initial types.Status,
	fn func(ctx context.Context, t *turn) (types.Response, error),
) (resp types.Response) {
	t := &turn{
		id:      uuid.NewString(),
		start:   time.Now(),
		machine: newMachine(initial),
		query:   query,
	}

	logger := o.logger
	if logger == nil {
		logger = ctxlog.FromContext(ctx)
	}
	logger = logger.With("requestID", t.id, "userID", userID)
	ctx = ctxlog.WithLogger(ctx, logger)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Recovered from panic while processing request.",
				"panic", r, "status", t.machine.Status(), "stack", string(debug.Stack()))
			resp = o.failure(t)
		}
	}()

	var err error
	resp, err = fn(ctx, t)
	if err != nil {
		logger.Error("Failed to process request.", "error", err, "status", t.machine.Status())
		return o.failure(t)
	}
	logger.Info("Request processed.",
		"status", t.machine.Status(),
		"tokens", resp.Metadata.TokensUsed,
		"durationMs", resp.Metadata.ProcessingTimeMs)
	return resp
}

func (o *Orchestrator) failure(t *turn) types.Response {
	t.machine.fail()
	return types.Response{
		Message:  FailureMessage,
		Success:  false,
		State:    &types.OrchestratorState{Status: types.StatusFailed, LastQuery: t.query},
		Metadata: t.metadata(),
	}
}

func (o *Orchestrator) decompose(
	ctx context.Context,
	t *turn,
	userID string,
	conversation []types.ConversationTurn,
) (*types.ExecutionGraph, error) {
	userCtx := types.UserContext{UserID: userID}
	if o.userContext != nil {
		uc, err := o.userContext.GetUserContext(ctx, userID)
		if err != nil {
			return nil, errors.Wrap(err, "failed to fetch user context")
		}
		userCtx = uc
	}

	start := time.Now()
	dec, err := o.decomposer.Decompose(ctx, types.DecomposeRequest{
		Query:       t.query,
		History:     history.Window(conversation, o.historyWindow),
		UserContext: userCtx,
		Timestamp:   start,
	})
	if err != nil {
		return nil, errors.Wrap(err, "decomposition failed")
	}
	if dec == nil || dec.Graph == nil {
		return nil, ErrNoGraph
	}

	t.steps++
	t.layers.Decomposition = types.LayerMetrics{
		DurationMs: time.Since(start).Milliseconds(),
		TokensUsed: dec.TokensUsed,
	}
	ctxlog.FromContext(ctx).Debug("Query decomposed.",
		"queryType", dec.Graph.QueryClassification.Type,
		"nodes", len(dec.Graph.InformationNeeds),
		"tokens", dec.TokensUsed)
	return dec.Graph, nil
}

func (o *Orchestrator) awaitConfirmation(t *turn, g *types.ExecutionGraph) (types.Response, error) {
	if err := t.machine.advance(types.StatusAwaitingConfirmation); err != nil {
		return types.Response{}, err
	}
	return types.Response{
		Message: ConfirmationMessage(g.ResourceEstimate),
		Success: true,
		State: &types.OrchestratorState{
			Status:               types.StatusAwaitingConfirmation,
			ExecutionGraph:       g,
			AwaitingConfirmation: true,
			LastQuery:            t.query,
		},
		Metadata: t.metadata(),
	}, nil
}

func (o *Orchestrator) execute(ctx context.Context, t *turn, userID string, g *types.ExecutionGraph) (types.Response, error) {
	if err := t.machine.advance(types.StatusExecuting); err != nil {
		return types.Response{}, err
	}

	start := time.Now()
	results, err := o.executor.Execute(ctx, g, userID)
	if err != nil {
		return types.Response{}, errors.Wrap(err, "execution failed")
	}
	usage := results.Usage()
	t.steps++
	t.layers.Execution = types.ExecutionLayerMetrics{
		LayerMetrics: types.LayerMetrics{
			DurationMs: time.Since(start).Milliseconds(),
			TokensUsed: usage.TotalTokens,
		},
		NodesSucceeded: usage.NodesSucceeded,
		NodesFailed:    usage.NodesFailed,
	}

	prefs := types.DefaultPreferences()
	if o.preferences != nil {
		p, err := o.preferences.GetPreferences(ctx, userID)
		if err != nil {
			return types.Response{}, errors.Wrap(err, "failed to fetch preferences")
		}
		prefs = p.WithDefaults()
	}

	start = time.Now()
	syn, err := o.synthesizer.Synthesize(ctx, types.SynthesisRequest{
		Query:       t.query,
		Graph:       g,
		Results:     results,
		Preferences: prefs,
	})
	if err != nil {
		return types.Response{}, errors.Wrap(err, "synthesis failed")
	}
	if syn == nil {
		return types.Response{}, ErrNoSynthesis
	}
	t.steps++
	t.layers.Synthesis = types.SynthesisLayerMetrics{
		LayerMetrics: types.LayerMetrics{
			DurationMs: time.Since(start).Milliseconds(),
			TokensUsed: syn.Metadata.TokensUsed,
		},
		FindingsCount: syn.Metadata.FindingsCount,
	}

	if err := t.machine.advance(types.StatusCompleted); err != nil {
		return types.Response{}, err
	}
	return types.Response{
		Message: syn.Message,
		Success: true,
		State: &types.OrchestratorState{
			Status:           types.StatusCompleted,
			ExecutionGraph:   g,
			ExecutionResults: results,
			LastQuery:        t.query,
		},
		Metadata: t.metadata(),
	}, nil
}

// ConfirmationMessage describes what running a plan is expected to cost.
func ConfirmationMessage(est types.ResourceEstimate) string {
	return fmt.Sprintf(
		"This request looks expensive, so I need your confirmation before running it. "+
			"Estimate: about %s items, %s tokens, $%.2f and %s seconds. "+
			"Confirm to proceed.",
		humanize.Comma(int64(est.EstimatedItems)),
		humanize.Comma(int64(est.EstimatedTokens)),
		est.EstimatedCost,
		humanize.FtoaWithDigits(est.EstimatedTimeSeconds, 1),
	)
}

// Package tests runs whole turns through the real decomposer, coordinator and
// synthesis formatter with scripted models and in-process strategies.
package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/avi3tal/infograph/internal/coordinator"
	"github.com/avi3tal/infograph/internal/decompose"
	"github.com/avi3tal/infograph/internal/llmtest"
	"github.com/avi3tal/infograph/internal/registry"
	"github.com/avi3tal/infograph/internal/synthesis"
	"github.com/avi3tal/infograph/pkg/checkpoints"
	"github.com/avi3tal/infograph/pkg/orchestrator"
	"github.com/avi3tal/infograph/pkg/strategies"
	"github.com/avi3tal/infograph/pkg/types"
)

// recorder collects the params each node was dispatched with.
type recorder struct {
	mu     sync.Mutex
	params map[string]map[string]any
	order  []string
}

func newRecorder() *recorder {
	return &recorder{params: make(map[string]map[string]any)}
}

func (r *recorder) record(params map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, _ := params["node"].(string)
	r.params[id] = params
	r.order = append(r.order, id)
}

func (r *recorder) dispatched() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}

// scripted answers from the "outcome" param: "fail" fails the node, anything
// else succeeds with the "data" param as payload.
func scripted(r *recorder) strategies.Func {
	return func(_ context.Context, params map[string]any, _ string) (types.NodeResult, error) {
		r.record(params)
		if params["outcome"] == "fail" {
			return types.NodeResult{}, errors.Errorf("%v: upstream unavailable", params["node"])
		}
		data, _ := params["data"].(map[string]any)
		return types.NodeResult{Success: true, Data: data, TokensUsed: 7}, nil
	}
}

type pipeline struct {
	orchestrator *orchestrator.Orchestrator
	recorder     *recorder
	decomposer   *llmtest.Model
	synthesizer  *llmtest.Model
	logs         *bytes.Buffer
}

func newPipeline(t *testing.T, graphJSON string, synthesisReply string) *pipeline {
	t.Helper()

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	rec := newRecorder()
	reg := registry.New(registry.WithLogger(logger))
	for _, nt := range []types.NodeType{types.NodeTypeSearch, types.NodeTypeRead, types.NodeTypeAnalyze} {
		require.NoError(t, reg.Register(nt, scripted(rec).Factory()))
	}
	require.NoError(t, reg.RegisterCrossReference(strategies.CrossReferenceFunc(
		func(_ context.Context, params map[string]any, _ string, results types.ExecutionResults) (types.NodeResult, error) {
			rec.record(params)
			ranked := make([]any, 0, len(results))
			for id, res := range results {
				if res.Success {
					ranked = append(ranked, map[string]any{"id": id, "reason": "succeeded"})
				}
			}
			return types.NodeResult{Success: true, Data: map[string]any{"ranked": ranked}, TokensUsed: 11}, nil
		}).Factory()))

	decomposer := llmtest.New(llmtest.Reply("Here is the plan:\n```json\n"+graphJSON+"\n```", 120))
	synth := llmtest.New(llmtest.Reply(synthesisReply, 60))

	o := orchestrator.New(
		decompose.NewLLM(decomposer),
		coordinator.New(reg),
		synthesis.New(synth),
		orchestrator.WithLogger(logger),
	)
	return &pipeline{orchestrator: o, recorder: rec, decomposer: decomposer, synthesizer: synth, logs: &logs}
}

const partialFailureGraph = `{
  "query_classification": {"type": "status_check", "domains": ["email"]},
  "information_needs": [
    {"id": "A", "type": "search", "strategy": {"params": {"node": "A", "data": {"count": 5}}}, "parallel_group": 0},
    {"id": "B", "type": "search", "strategy": {"params": {"node": "B", "outcome": "fail"}}, "parallel_group": 0},
    {"id": "C", "type": "analyze", "strategy": {"params": {"node": "C", "x": "{{A.count}}", "y": "{{B.count}}"}}, "parallel_group": 1}
  ],
  "resource_estimate": {"estimated_items": 5, "user_should_confirm": false}
}`

func TestPartialFailurePropagation(t *testing.T) {
	t.Parallel()

	p := newPipeline(t, partialFailureGraph, "Five items are waiting.")
	resp := p.orchestrator.ProcessUserInput(context.Background(), "how many items?", "u1", nil, nil)
	require.True(t, resp.Success, p.logs.String())
	require.Equal(t, "Five items are waiting.", resp.Message)

	results := resp.State.ExecutionResults
	require.Len(t, results, 3)
	require.True(t, results["A"].Success)
	require.False(t, results["B"].Success)
	require.Contains(t, results["B"].Error, "upstream unavailable")
	require.True(t, results["C"].Success)

	c := p.recorder.params["C"]
	require.EqualValues(t, 5, c["x"])
	require.Contains(t, c, "y")
	require.Nil(t, c["y"])

	// C is dispatched only after both group-0 nodes settled
	require.Equal(t, "C", p.recorder.order[2])

	// decomposition + successful nodes (A and C) + synthesis
	require.Equal(t, 120+7+7+60, resp.Metadata.TokensUsed)
	require.Equal(t, 2, resp.Metadata.Layers.Execution.NodesSucceeded)
	require.Equal(t, 1, resp.Metadata.Layers.Execution.NodesFailed)
}

const groupZeroFailsGraph = `{
  "query_classification": {"type": "digest", "domains": ["email", "calendar"]},
  "information_needs": [
    {"id": "mail", "type": "search", "strategy": {"params": {"node": "mail", "outcome": "fail"}}, "parallel_group": 0},
    {"id": "events", "type": "search", "strategy": {"params": {"node": "events", "outcome": "fail"}}, "parallel_group": 0},
    {"id": "digest", "type": "read", "strategy": {"params": {"node": "digest", "ids": "{{mail.ids}}", "when": "{{events.items.0.date}}"}}, "parallel_group": 1}
  ],
  "resource_estimate": {"user_should_confirm": false}
}`

func TestLaterStageRunsAfterFailedStage(t *testing.T) {
	t.Parallel()

	p := newPipeline(t, groupZeroFailsGraph, "Nothing to report.")
	resp := p.orchestrator.ProcessUserInput(context.Background(), "daily digest", "u1", nil, nil)
	require.True(t, resp.Success)
	require.Len(t, resp.State.ExecutionResults, 3)
	require.True(t, resp.State.ExecutionResults["digest"].Success)

	digest := p.recorder.params["digest"]
	require.Nil(t, digest["ids"])
	require.Nil(t, digest["when"])
	require.Contains(t, p.logs.String(), "Referenced node unavailable")
}

const expensiveGraph = `{
  "query_classification": {"type": "archive_review", "domains": ["email"]},
  "information_needs": [
    {"id": "all", "type": "search", "strategy": {"params": {"node": "all", "data": {"emails": []}}}, "parallel_group": 0},
    {"id": "rank", "type": "cross_reference", "strategy": {"params": {"node": "rank", "items": "{{all.emails}}"}}, "parallel_group": 1}
  ],
  "resource_estimate": {"estimated_tokens": 48000, "estimated_time_seconds": 95, "estimated_cost": 1.25, "estimated_items": 4200, "user_should_confirm": true}
}`

func TestConfirmationGateAndResume(t *testing.T) {
	t.Parallel()

	p := newPipeline(t, expensiveGraph, "Ranked your archive.")
	ctx := context.Background()

	resp := p.orchestrator.ProcessUserInput(ctx, "review my archive", "u1", nil, nil)
	require.True(t, resp.Success)
	require.True(t, resp.State.AwaitingConfirmation)
	require.Zero(t, p.recorder.dispatched())
	require.Empty(t, p.synthesizer.Calls())
	require.Contains(t, resp.Message, "4,200 items")
	require.Contains(t, resp.Message, "48,000 tokens")
	require.Contains(t, resp.Message, "$1.25")
	require.Contains(t, resp.Message, "95 seconds")

	// the state survives a round trip through the checkpoint store
	store := checkpoints.NewStateCheckpointer(checkpoints.NewMemoryStore(0))
	key := checkpoints.Key{UserID: "u1", ConversationID: "c1"}
	require.NoError(t, store.Save(ctx, key, resp.State, nil))
	conv, err := store.Load(ctx, key)
	require.NoError(t, err)

	resumed := p.orchestrator.ResumeConfirmed(ctx, "u1", conv.State)
	require.True(t, resumed.Success, p.logs.String())
	require.Equal(t, "Ranked your archive.", resumed.Message)
	require.Equal(t, 2, p.recorder.dispatched())
	require.Len(t, p.decomposer.Calls(), 1)

	// cross_reference nodes receive their params unresolved
	require.Equal(t, "{{all.emails}}", p.recorder.params["rank"]["items"])
	require.True(t, resumed.State.ExecutionResults["rank"].Success)
}

func TestDuplicateRegistrationReplaces(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	reg := registry.New(registry.WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))

	first := strategies.Func(func(context.Context, map[string]any, string) (types.NodeResult, error) {
		return types.NodeResult{Success: true, Data: map[string]any{"by": "first"}}, nil
	})
	second := strategies.Func(func(context.Context, map[string]any, string) (types.NodeResult, error) {
		return types.NodeResult{Success: true, Data: map[string]any{"by": "second"}}, nil
	})
	require.NoError(t, reg.Register(types.NodeTypeSearch, first.Factory()))
	require.NoError(t, reg.Register(types.NodeTypeSearch, second.Factory()))
	require.Contains(t, logs.String(), "Overwriting registered strategy.")

	results, err := coordinator.New(reg).Execute(context.Background(), &types.ExecutionGraph{
		InformationNeeds: []types.InformationNode{{ID: "s", Type: types.NodeTypeSearch}},
	}, "u1")
	require.NoError(t, err)
	require.Equal(t, "second", results["s"].Data["by"])
}

const allFailGraph = `{
  "query_classification": {"type": "inbox_triage", "domains": ["email"]},
  "information_needs": [
    {"id": "unread", "type": "search", "strategy": {"params": {"node": "unread", "outcome": "fail"}}, "parallel_group": 0},
    {"id": "flagged", "type": "search", "strategy": {"params": {"node": "flagged", "outcome": "fail"}}, "parallel_group": 0}
  ],
  "resource_estimate": {"user_should_confirm": false}
}`

func TestAllNodesFailStillAnswers(t *testing.T) {
	t.Parallel()

	p := newPipeline(t, allFailGraph, "I don't have enough information to answer that right now.")
	resp := p.orchestrator.ProcessUserInput(context.Background(), "what needs my attention?", "u1", nil, nil)
	require.True(t, resp.Success)
	require.Contains(t, resp.Message, "enough information")
	require.Zero(t, resp.Metadata.Layers.Synthesis.FindingsCount)
	require.Equal(t, 2, resp.Metadata.Layers.Execution.NodesFailed)

	calls := p.synthesizer.Calls()
	require.Len(t, calls, 1)
	prompt := calls[0].Text()
	require.Contains(t, prompt, "insufficient")
	require.Contains(t, prompt, "Findings:\n[]")
	require.Contains(t, prompt, "what needs my attention?")
}

func TestDecompositionFailureIsHidden(t *testing.T) {
	t.Parallel()

	p := newPipeline(t, `{"information_needs": [{"id": "a", "type": "teleport"}]}`, "unused")
	resp := p.orchestrator.ProcessUserInput(context.Background(), "q", "u1", nil, nil)
	require.False(t, resp.Success)
	require.Equal(t, orchestrator.FailureMessage, resp.Message)
	require.NotContains(t, resp.Message, "teleport")
	require.Zero(t, p.recorder.dispatched())
	require.Contains(t, p.logs.String(), "Failed to process request.")
}

func TestStateIsSerializable(t *testing.T) {
	t.Parallel()

	p := newPipeline(t, partialFailureGraph, "ok")
	resp := p.orchestrator.ProcessUserInput(context.Background(), "q", "u1", nil, nil)
	require.True(t, resp.Success)

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded types.Response
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, types.StatusCompleted, decoded.State.Status)
	require.Len(t, decoded.State.ExecutionResults, 3)
	require.Equal(t, resp.Metadata.TokensUsed, decoded.Metadata.TokensUsed)
}

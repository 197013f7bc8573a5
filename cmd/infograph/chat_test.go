package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/avi3tal/infograph/internal/config"
	"github.com/avi3tal/infograph/pkg/checkpoints"
	"github.com/avi3tal/infograph/pkg/types"
)

type fakeRunner struct {
	processed []string
	resumed   int
	confirm   bool
}

func (f *fakeRunner) ProcessUserInput(
	_ context.Context,
	input string,
	_ string,
	_ []types.ConversationTurn,
	_ *types.OrchestratorState,
) types.Response {
	f.processed = append(f.processed, input)
	if f.confirm {
		return types.Response{Message: "confirm?", Success: true, State: &types.OrchestratorState{
			Status:               types.StatusAwaitingConfirmation,
			ExecutionGraph:       &types.ExecutionGraph{},
			AwaitingConfirmation: true,
			LastQuery:            input,
		}}
	}
	return types.Response{Message: "answer to " + input, Success: true,
		State: &types.OrchestratorState{Status: types.StatusCompleted}}
}

func (f *fakeRunner) ResumeConfirmed(context.Context, string, *types.OrchestratorState) types.Response {
	f.resumed++
	return types.Response{Message: "done", Success: true, State: &types.OrchestratorState{Status: types.StatusCompleted}}
}

func TestChatTurn(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := checkpoints.NewStateCheckpointer(checkpoints.NewMemoryStore(8))
	key := checkpoints.Key{UserID: "u1", ConversationID: "c1"}
	runner := &fakeRunner{confirm: true}

	require.NoError(t, chatTurn(ctx, runner, store, key, "archive everything"))
	conv, err := store.Load(ctx, key)
	require.NoError(t, err)
	require.True(t, conv.State.AwaitingConfirmation)
	require.Len(t, conv.History, 2)

	runner.confirm = false
	require.NoError(t, chatTurn(ctx, runner, store, key, "Yes!"))
	require.Equal(t, 1, runner.resumed)
	require.Equal(t, []string{"archive everything"}, runner.processed)

	conv, err = store.Load(ctx, key)
	require.NoError(t, err)
	require.Equal(t, types.StatusCompleted, conv.State.Status)
	require.Equal(t, 2, conv.Turns)
	require.Equal(t, []types.ConversationTurn{
		{Role: types.RoleUser, Content: "archive everything"},
		{Role: types.RoleAssistant, Content: "confirm?"},
		{Role: types.RoleUser, Content: "Yes!"},
		{Role: types.RoleAssistant, Content: "done"},
	}, conv.History)

	// with nothing pending, "yes" is an ordinary question
	require.NoError(t, chatTurn(ctx, runner, store, key, "yes"))
	require.Equal(t, 1, runner.resumed)
	require.Equal(t, []string{"archive everything", "yes"}, runner.processed)
}

func TestIsAffirmative(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"y", "Yes", "yes.", "OK!", "go ahead", "Proceed"} {
		require.True(t, isAffirmative(in), in)
	}
	for _, in := range []string{"", "no", "what about tomorrow?", "yesterday"} {
		require.False(t, isAffirmative(in), in)
	}
}

func TestNewRegistry(t *testing.T) {
	t.Parallel()

	c := config.Default()
	c.Strategies.Endpoints = map[string]string{
		"search":          "http://localhost:9000/search",
		"cross_reference": "http://localhost:9000/xref",
	}

	reg, err := newRegistry(c)
	require.NoError(t, err)
	require.True(t, reg.Has(types.NodeTypeSearch))
	require.True(t, reg.Has(types.NodeTypeCrossReference))
	require.False(t, reg.Has(types.NodeTypeRead))
}

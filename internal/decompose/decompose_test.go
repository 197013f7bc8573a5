package decompose

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/avi3tal/infograph/internal/graph"
	"github.com/avi3tal/infograph/internal/llmtest"
	"github.com/avi3tal/infograph/pkg/types"
)

const graphJSON = `{
  "query_classification": {"type": "meeting_prep", "domains": ["calendar", "email"]},
  "information_needs": [
    {"id": "events", "type": "search", "description": "tomorrow's meetings", "strategy": {"params": {"range": "tomorrow"}}, "parallel_group": 0},
    {"id": "threads", "type": "read", "strategy": {"params": {"attendees": "{{events.attendees}}"}}, "parallel_group": 1}
  ],
  "resource_estimate": {"estimated_tokens": 900, "estimated_time_seconds": 4.5, "estimated_cost": 0.01, "estimated_items": 12, "user_should_confirm": false}
}`

const graphYAML = `
query_classification:
  type: inbox_triage
  domains: [email]
information_needs:
  - id: unread
    type: search
    description: unread mail
    strategy:
      params:
        query: "is:unread"
        limit: 20
    parallel_group: 0
  - id: rank
    type: cross_reference
    strategy:
      params:
        items: "{{unread.emails}}"
    parallel_group: 1
resource_estimate:
  estimated_items: 20
  user_should_confirm: true
`

func TestParseResponse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		response string
	}{
		{"bare", graphJSON},
		{"fenced", "Here is the plan:\n```json\n" + graphJSON + "\n```\nDone."},
		{"prose", "Sure! " + graphJSON + " Let me know."},
		{"nested", `{"execution_graph": ` + graphJSON + `}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g, err := ParseResponse(tt.response)
			require.NoError(t, err)
			require.Equal(t, "meeting_prep", g.QueryClassification.Type)
			require.Len(t, g.InformationNeeds, 2)
			require.Equal(t, types.NodeTypeRead, g.InformationNeeds[1].Type)
			require.Equal(t, 1, g.InformationNeeds[1].ParallelGroup)
			require.Equal(t, "{{events.attendees}}", g.InformationNeeds[1].Strategy.Params["attendees"])
			require.InDelta(t, 4.5, g.ResourceEstimate.EstimatedTimeSeconds, 1e-9)
		})
	}
}

func TestParseResponseErrors(t *testing.T) {
	t.Parallel()

	_, err := ParseResponse("I cannot help with that.")
	require.True(t, errors.Is(err, ErrNoGraph))

	_, err = ParseResponse(`{"query_classification": {"type": "x"}}`)
	require.True(t, errors.Is(err, ErrInvalidGraph))

	_, err = ParseResponse(strings.Replace(graphJSON, `"type": "read"`, `"type": "summarize"`, 1))
	require.True(t, errors.Is(err, types.ErrUnknownNodeType))
}

func TestExtractJSONIgnoresBracesInStrings(t *testing.T) {
	t.Parallel()

	got := extractJSON(`prefix {"a": "}{", "b": {"c": "\"}"}} suffix`)
	require.Equal(t, `{"a": "}{", "b": {"c": "\"}"}}`, got)
	require.Empty(t, extractJSON("no json here"))
}

func TestLoadGraph(t *testing.T) {
	t.Parallel()

	g, err := LoadGraph(strings.NewReader(graphYAML))
	require.NoError(t, err)
	require.Equal(t, []string{"unread", "rank"}, g.NodeIDs())
	require.Equal(t, types.NodeTypeCrossReference, g.InformationNeeds[1].Type)
	require.Equal(t, 20, g.InformationNeeds[0].Strategy.Params["limit"])
	require.True(t, g.ResourceEstimate.UserShouldConfirm)

	g, err = LoadGraph(strings.NewReader(graphJSON))
	require.NoError(t, err)
	require.Len(t, g.InformationNeeds, 2)
}

func TestLoadGraphErrors(t *testing.T) {
	t.Parallel()

	_, err := LoadGraph(strings.NewReader(""))
	require.True(t, errors.Is(err, ErrInvalidGraph))

	_, err = LoadGraph(strings.NewReader(strings.Replace(graphYAML, "type: search", "type: summarize", 1)))
	require.True(t, errors.Is(err, types.ErrUnknownNodeType))

	_, err = LoadGraph(strings.NewReader(strings.Replace(graphYAML, "parallel_group: 0", "parallel_grup: 0", 1)))
	require.Error(t, err)
}

func TestLLMDecompose(t *testing.T) {
	t.Parallel()

	model := llmtest.New(llmtest.Reply("```json\n"+graphJSON+"\n```", 321))
	d := NewLLM(model)

	out, err := d.Decompose(context.Background(), types.DecomposeRequest{
		Query: "Prep me for tomorrow",
		History: []types.ConversationTurn{
			{Role: types.RoleUser, Content: "hi"},
			{Role: types.RoleAssistant, Content: "hello"},
		},
		UserContext: types.UserContext{UserID: "u1", Timezone: "Europe/Berlin"},
		Timestamp:   time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Equal(t, 321, out.TokensUsed)
	require.Len(t, out.Graph.InformationNeeds, 2)

	call := model.Calls()[0]
	require.Len(t, call.Messages, 4)
	require.Equal(t, llms.ChatMessageTypeSystem, call.Messages[0].Role)
	require.Equal(t, llms.ChatMessageTypeAI, call.Messages[2].Role)
	require.Equal(t, llms.ChatMessageTypeHuman, call.Messages[3].Role)
	require.Equal(t, DefaultMaxTokens, call.Options.MaxTokens)
	require.Contains(t, call.Text(), "Current time: 2026-10-15T09:00:00Z")
	require.Contains(t, call.Text(), `"timezone":"Europe/Berlin"`)
}

func TestLLMDecomposeRejectsForwardReference(t *testing.T) {
	t.Parallel()

	bad := strings.Replace(graphJSON, `"parallel_group": 1`, `"parallel_group": 0`, 1)

	_, err := NewLLM(llmtest.New(llmtest.Reply(bad, 10))).Decompose(context.Background(), types.DecomposeRequest{Query: "q"})
	require.True(t, errors.Is(err, ErrInvalidGraph))
	require.True(t, errors.Is(err, graph.ErrForwardReference))

	out, err := NewLLM(llmtest.New(llmtest.Reply(bad, 10)), WithLenientReferences()).
		Decompose(context.Background(), types.DecomposeRequest{Query: "q"})
	require.NoError(t, err)
	require.Len(t, out.Graph.InformationNeeds, 2)
}

func TestFileDecompose(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "graph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(graphYAML), 0o600))

	out, err := NewFile(path).Decompose(context.Background(), types.DecomposeRequest{Query: "anything"})
	require.NoError(t, err)
	require.Zero(t, out.TokensUsed)
	require.Equal(t, "inbox_triage", out.Graph.QueryClassification.Type)

	_, err = NewFile(filepath.Join(t.TempDir(), "missing.yaml")).Decompose(context.Background(), types.DecomposeRequest{})
	require.Error(t, err)
}

func TestFileDecomposeLenientReferences(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "graph.yaml")
	bad := strings.Replace(graphYAML, "parallel_group: 1", "parallel_group: 0", 1)
	require.NoError(t, os.WriteFile(path, []byte(bad), 0o600))

	_, err := NewFile(path).Decompose(context.Background(), types.DecomposeRequest{})
	require.True(t, errors.Is(err, ErrInvalidGraph))
	require.True(t, errors.Is(err, graph.ErrForwardReference))
	require.Contains(t, err.Error(), "invalid execution graph: ")

	var verr *graph.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "rank", verr.Node)

	out, err := NewFile(path, graph.WithLenientReferences()).Decompose(context.Background(), types.DecomposeRequest{})
	require.NoError(t, err)
	require.Len(t, out.Graph.InformationNeeds, 2)
}

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/avi3tal/infograph/internal/coordinator"
	"github.com/avi3tal/infograph/internal/registry"
	"github.com/avi3tal/infograph/internal/synthesis"
	"github.com/avi3tal/infograph/pkg/orchestrator"
	"github.com/avi3tal/infograph/pkg/strategies"
	"github.com/avi3tal/infograph/pkg/types"
	"github.com/avi3tal/infograph/pkg/workflow"
)

// fixedPlan always answers with the same graph.
type fixedPlan struct {
	graph *types.ExecutionGraph
}

func (p fixedPlan) Decompose(context.Context, types.DecomposeRequest) (*types.Decomposition, error) {
	return &types.Decomposition{Graph: p.graph}, nil
}

// listing writes one line per finding instead of calling a model.
type listing struct{}

func (listing) Synthesize(_ context.Context, req types.SynthesisRequest) (*types.Synthesis, error) {
	findings := synthesis.BuildFindings(req.Graph, req.Results)

	var b strings.Builder
	for _, f := range findings.InformationGathered {
		fmt.Fprintf(&b, "- %s: %s\n", f.NodeID, f.Summary)
	}
	return &types.Synthesis{
		Message:  strings.TrimRight(b.String(), "\n"),
		Metadata: types.SynthesisMetadata{FindingsCount: len(findings.InformationGathered)},
	}, nil
}

func mailbox(_ context.Context, params map[string]any, _ string) (types.NodeResult, error) {
	emails := []any{
		map[string]any{"id": "m1", "subject": "Q4 planning", "from": "dana@example.com"},
		map[string]any{"id": "m2", "subject": "Invoice overdue", "from": "billing@example.com"},
	}
	return types.NodeResult{Success: true, Data: map[string]any{"emails": emails}, TokensUsed: 25}, nil
}

func main() {
	reg := registry.New()
	if err := reg.Register(types.NodeTypeSearch, strategies.Func(mailbox).Factory()); err != nil {
		panic(err)
	}

	g, err := workflow.NewBuilder("mailbox_review", "email").
		Start(workflow.Search("archive", "every archived email", map[string]any{"folder": "archive"})).
		Estimate(types.ResourceEstimate{
			EstimatedItems:       5000,
			EstimatedTokens:      80000,
			EstimatedCost:        2.4,
			EstimatedTimeSeconds: 120,
		}).
		RequireConfirmation().
		Build()
	if err != nil {
		panic(err)
	}

	o := orchestrator.New(fixedPlan{graph: g}, coordinator.New(reg), listing{})
	ctx := context.Background()

	// First turn stops at the confirmation gate
	pending := o.ProcessUserInput(ctx, "Review my whole archive", "example", nil, nil)
	fmt.Printf("\tassistant: %s\n", pending.Message)
	fmt.Printf("\tstatus: %s\n", pending.State.Status)

	// The caller hands the state back once the user agrees
	final := o.ResumeConfirmed(ctx, "example", pending.State)
	fmt.Printf("\tassistant:\n%s\n", final.Message)
	fmt.Printf("\tstatus: %s, tokens: %d\n", final.State.Status, final.Metadata.TokensUsed)
}

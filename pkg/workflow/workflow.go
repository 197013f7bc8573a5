// Package workflow is a small DSL for writing execution graphs in Go instead of
// having them produced by a decomposer.
package workflow

import (
	"github.com/pkg/errors"

	"github.com/avi3tal/infograph/internal/graph"
	"github.com/avi3tal/infograph/pkg/types"
)

var ErrEmptyStage = errors.New("stage has no steps")

// Builder accumulates stages. Each Then/ThenAll call opens the next parallel group.
type Builder struct {
	classification types.QueryClassification
	estimate       types.ResourceEstimate
	nodes          []types.InformationNode
	group          int
	err            error
}

// NewBuilder creates a new workflow for a query type touching domains.
func NewBuilder(queryType string, domains ...string) *Builder {
	return &Builder{
		classification: types.QueryClassification{Type: queryType, Domains: domains},
		group:          -1,
	}
}

// Flow points at the last stage added to a Builder.
type Flow struct {
	b *Builder
}

// Start adds the first stage.
func (b *Builder) Start(steps ...Step) *Flow {
	b.addStage(steps)
	return &Flow{b: b}
}

// Then adds a stage with a single step that runs after every step before it.
func (f *Flow) Then(step Step) *Flow {
	f.b.addStage([]Step{step})
	return f
}

// ThenAll adds a stage whose steps run in parallel with each other.
func (f *Flow) ThenAll(steps ...Step) *Flow {
	f.b.addStage(steps)
	return f
}

// Err reports the first error recorded while building.
func (f *Flow) Err() error {
	return f.b.err
}

// Estimate sets the resource estimate attached to the graph.
func (f *Flow) Estimate(est types.ResourceEstimate) *Flow {
	f.b.estimate = est
	return f
}

// RequireConfirmation marks the graph as needing user consent before execution.
func (f *Flow) RequireConfirmation() *Flow {
	f.b.estimate.UserShouldConfirm = true
	return f
}

// Build validates and returns the graph.
func (f *Flow) Build() (*types.ExecutionGraph, error) {
	return f.b.Build()
}

func (b *Builder) addStage(steps []Step) {
	if b.err != nil {
		return
	}
	b.group++
	if len(steps) == 0 {
		b.err = errors.Wrapf(ErrEmptyStage, "stage %d", b.group)
		return
	}
	for _, s := range steps {
		b.nodes = append(b.nodes, s.node(b.group))
	}
}

// Build validates and returns the graph.
func (b *Builder) Build() (*types.ExecutionGraph, error) {
	if b.err != nil {
		return nil, b.err
	}

	g := &types.ExecutionGraph{
		QueryClassification: b.classification,
		InformationNeeds:    append([]types.InformationNode(nil), b.nodes...),
		ResourceEstimate:    b.estimate,
	}
	if _, err := graph.Compile(g); err != nil {
		return nil, errors.Wrap(err, "workflow: invalid graph")
	}
	return g, nil
}

// Package strategies defines the contracts domain tools implement to be run as
// graph nodes, plus adapters for in-process functions and remote services.
package strategies

import (
	"context"

	"github.com/avi3tal/infograph/pkg/types"
)

// Strategy executes one node with fully resolved parameters.
type Strategy interface {
	Execute(ctx context.Context, params map[string]any, userID string) (types.NodeResult, error)
}

// CrossReferenceStrategy executes a cross_reference node. It receives its
// parameters unresolved and a read-only snapshot of every result produced by
// earlier stages.
type CrossReferenceStrategy interface {
	ExecuteCrossReference(
		ctx context.Context,
		params map[string]any,
		userID string,
		results types.ExecutionResults,
	) (types.NodeResult, error)
}

// Factory constructs a fresh Strategy for each node execution.
type Factory func() Strategy

// CrossReferenceFactory constructs a fresh CrossReferenceStrategy.
type CrossReferenceFactory func() CrossReferenceStrategy

// Func adapts a plain function to Strategy.
type Func func(ctx context.Context, params map[string]any, userID string) (types.NodeResult, error)

func (f Func) Execute(ctx context.Context, params map[string]any, userID string) (types.NodeResult, error) {
	return f(ctx, params, userID)
}

// Factory returns a Factory that always hands out f.
func (f Func) Factory() Factory {
	return func() Strategy { return f }
}

// CrossReferenceFunc adapts a plain function to CrossReferenceStrategy.
type CrossReferenceFunc func(
	ctx context.Context,
	params map[string]any,
	userID string,
	results types.ExecutionResults,
) (types.NodeResult, error)

func (f CrossReferenceFunc) ExecuteCrossReference(
	ctx context.Context,
	params map[string]any,
	userID string,
	results types.ExecutionResults,
) (types.NodeResult, error) {
	return f(ctx, params, userID, results)
}

func (f CrossReferenceFunc) Factory() CrossReferenceFactory {
	return func() CrossReferenceStrategy { return f }
}

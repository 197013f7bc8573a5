package workflow

import (
	"context"

	"github.com/pkg/errors"

	"github.com/avi3tal/infograph/pkg/types"
)

// Executor runs an execution graph, typically a coordinator.
type Executor interface {
	Execute(ctx context.Context, g *types.ExecutionGraph, userID string) (types.ExecutionResults, error)
}

// Callback is invoked after execution (success or error).
type Callback interface {
	OnComplete(ctx context.Context, results types.ExecutionResults) error
	OnError(ctx context.Context, err error) error
}

// App binds a built graph to an executor so it can be run repeatedly.
type App struct {
	graph    *types.ExecutionGraph
	executor Executor
	callback Callback
}

// AppOption is a functional option that configures the App before finalizing.
type AppOption func(*App)

func WithCallback(cb Callback) AppOption {
	return func(a *App) {
		a.callback = cb
	}
}

// NewApp builds the flow and prepares it for execution.
func NewApp(flow *Flow, executor Executor, opts ...AppOption) (*App, error) {
	g, err := flow.Build()
	if err != nil {
		return nil, errors.Wrap(err, "NewApp: failed to build workflow")
	}

	app := &App{graph: g, executor: executor}
	for _, opt := range opts {
		opt(app)
	}
	return app, nil
}

// Graph returns the graph the App executes.
func (app *App) Graph() *types.ExecutionGraph {
	return app.graph
}

// Invoke runs the workflow once for userID.
// If the App has a callback set, OnComplete/OnError is called here.
func (app *App) Invoke(ctx context.Context, userID string) (types.ExecutionResults, error) {
	results, err := app.executor.Execute(ctx, app.graph, userID)
	if err != nil {
		if app.callback != nil {
			_ = app.callback.OnError(ctx, err)
		}
		return nil, errors.Wrap(err, "invoke: workflow failed")
	}
	if app.callback != nil {
		if cbErr := app.callback.OnComplete(ctx, results); cbErr != nil {
			return results, errors.Wrap(cbErr, "invoke: callback OnComplete failed")
		}
	}
	return results, nil
}

// Package coordinator executes an execution graph stage by stage. Nodes of a
// stage run concurrently; a stage starts only after every node of the previous
// stage has produced its result.
package coordinator

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/semaphore"

	"github.com/avi3tal/infograph/internal/channels"
	"github.com/avi3tal/infograph/internal/ctxlog"
	"github.com/avi3tal/infograph/internal/graph"
	"github.com/avi3tal/infograph/internal/registry"
	"github.com/avi3tal/infograph/internal/resolver"
	"github.com/avi3tal/infograph/pkg/types"
)

type Coordinator struct {
	registry          *registry.Registry
	nodeTimeout       time.Duration
	maxConcurrency    int
	lenientReferences bool
}

// New builds a coordinator over reg. The registry is sealed so no strategy can
// be registered while graphs execute.
func New(reg *registry.Registry, opts ...Option) *Coordinator {
	reg.Seal()
	c := &Coordinator{registry: reg}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Execute compiles g and runs it. The returned map holds exactly one result per
// node. An error is returned only when the graph is rejected before any node
// runs: invalid structure or a node type without a registered strategy.
func (c *Coordinator) Execute(ctx context.Context, g *types.ExecutionGraph, userID string) (types.ExecutionResults, error) {
	var opts []graph.Option
	if c.lenientReferences {
		opts = append(opts, graph.WithLenientReferences())
	}
	plan, err := graph.Compile(g, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to compile execution graph")
	}
	return c.ExecutePlan(ctx, plan, userID)
}

// ExecutePlan runs an already compiled plan.
func (c *Coordinator) ExecutePlan(ctx context.Context, plan *graph.Plan, userID string) (types.ExecutionResults, error) {
	if used := plan.NodeTypes(); len(used) > 0 {
		if err := c.registry.Validate(used...); err != nil {
			return nil, err
		}
	}

	logger := ctxlog.FromContext(ctx).With("executionID", uuid.NewString(), "userID", userID)
	ctx = ctxlog.WithLogger(ctx, logger)

	for _, w := range plan.Warnings() {
		logger.Warn("Accepted graph with invalid reference.", "error", w)
	}

	start := time.Now()
	results := make(types.ExecutionResults, plan.Len())
	for i, stage := range plan.Stages() {
		stageLogger := logger.With("stage", i, "group", stage.Group)
		stageLogger.Debug("Starting stage.", "nodes", stage.IDs())

		stageResults, err := c.runStage(ctxlog.WithLogger(ctx, stageLogger), stage, results.Clone(), userID)
		if err != nil {
			return nil, errors.Wrapf(err, "stage %d", stage.Group)
		}
		for id, res := range stageResults {
			results[id] = res
		}
	}

	usage := results.Usage()
	logger.Info("Execution finished.",
		"nodes", len(results),
		"succeeded", usage.NodesSucceeded,
		"failed", usage.NodesFailed,
		"tokens", usage.TotalTokens,
		"duration", time.Since(start))
	return results, nil
}

func (c *Coordinator) runStage(
	ctx context.Context,
	stage graph.Stage,
	snapshot types.ExecutionResults,
	userID string,
) (types.ExecutionResults, error) {
	logger := ctxlog.FromContext(ctx)
	barrier := channels.NewBarrier(stage.IDs())

	var sem *semaphore.Weighted
	if c.maxConcurrency > 0 {
		sem = semaphore.NewWeighted(int64(c.maxConcurrency))
	}

	var wg sync.WaitGroup
	for _, node := range stage.Nodes {
		if sem != nil {
			if err := sem.Acquire(ctx, 1); err != nil {
				res := types.FailedResult(node.ID(), errors.Wrap(err, "node not started").Error())
				if werr := barrier.Write(node.ID(), res); werr != nil {
					logger.Error("Failed to record node result.", "nodeID", node.ID(), "error", werr)
				}
				continue
			}
		}

		wg.Add(1)
		go func(n graph.CompiledNode) {
			defer wg.Done()
			if sem != nil {
				defer sem.Release(1)
			}

			res := c.runNode(ctx, n, snapshot, userID)
			if err := barrier.Write(n.ID(), res); err != nil {
				logger.Error("Failed to record node result.", "nodeID", n.ID(), "error", err)
			}
		}(node)
	}
	wg.Wait()

	return barrier.Read()
}

// runNode never fails: every error, panic or timeout becomes a failed result.
func (c *Coordinator) runNode(
	ctx context.Context,
	n graph.CompiledNode,
	snapshot types.ExecutionResults,
	userID string,
) types.NodeResult {
	logger := ctxlog.FromContext(ctx).With("nodeID", n.ID(), "nodeType", n.Node.Type)
	ctx = ctxlog.WithLogger(ctx, logger)
	start := time.Now()

	if err := ctx.Err(); err != nil {
		return types.FailedResult(n.ID(), errors.Wrap(err, "node not started").Error())
	}

	var (
		res types.NodeResult
		err error
	)
	if c.nodeTimeout > 0 {
		res, err = c.dispatchWithTimeout(ctx, n, snapshot, userID)
	} else {
		res, err = c.dispatch(ctx, n, snapshot, userID)
	}

	elapsed := time.Since(start)
	if err != nil {
		logger.Error("Node failed.", "error", err, "duration", elapsed)
		res = types.FailedResult(n.ID(), err.Error())
		res.Metadata.ExecutionTimeMs = elapsed.Milliseconds()
		return res
	}

	res.NodeID = n.ID()
	if res.Metadata.ExecutionTimeMs == 0 {
		res.Metadata.ExecutionTimeMs = elapsed.Milliseconds()
	}
	logger.Debug("Node finished.", "success", res.Success, "tokens", res.TokensUsed, "duration", elapsed)
	return res
}

func (c *Coordinator) dispatchWithTimeout(
	ctx context.Context,
	n graph.CompiledNode,
	snapshot types.ExecutionResults,
	userID string,
) (types.NodeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.nodeTimeout)
	defer cancel()

	type outcome struct {
		res types.NodeResult
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := c.dispatch(ctx, n, snapshot, userID)
		done <- outcome{res: res, err: err}
	}()

	select {
	case o := <-done:
		return o.res, o.err
	case <-ctx.Done():
		return types.NodeResult{}, errors.Wrapf(ctx.Err(), "node exceeded %s", c.nodeTimeout)
	}
}

func (c *Coordinator) dispatch(
	ctx context.Context,
	n graph.CompiledNode,
	snapshot types.ExecutionResults,
	userID string,
) (res types.NodeResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			ctxlog.FromContext(ctx).Error("Strategy panicked.", "panic", r, "stack", string(debug.Stack()))
			err = errors.Errorf("strategy panicked: %v", r)
		}
	}()

	if n.Node.Type == types.NodeTypeCrossReference {
		xref, xerr := c.registry.GetCrossReference()
		if xerr != nil {
			return types.NodeResult{}, xerr
		}
		return xref.ExecuteCrossReference(ctx, resolver.Copy(n.Node.Strategy.Params), userID, resolver.CopyResults(snapshot))
	}

	strategy, serr := c.registry.Get(n.Node.Type)
	if serr != nil {
		return types.NodeResult{}, serr
	}
	return strategy.Execute(ctx, n.Template.Resolve(ctx, snapshot), userID)
}

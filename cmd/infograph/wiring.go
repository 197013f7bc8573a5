package main

import (
	"net/http"

	"github.com/pkg/errors"

	"github.com/avi3tal/infograph/internal/config"
	"github.com/avi3tal/infograph/internal/coordinator"
	"github.com/avi3tal/infograph/internal/decompose"
	"github.com/avi3tal/infograph/internal/graph"
	"github.com/avi3tal/infograph/internal/llm"
	"github.com/avi3tal/infograph/internal/profile"
	"github.com/avi3tal/infograph/internal/registry"
	"github.com/avi3tal/infograph/internal/synthesis"
	"github.com/avi3tal/infograph/pkg/orchestrator"
	"github.com/avi3tal/infograph/pkg/strategies"
	"github.com/avi3tal/infograph/pkg/types"
)

// newRegistry registers a remote strategy for every configured endpoint.
func newRegistry(c *config.Config) (*registry.Registry, error) {
	var regOpts []registry.Option
	if logger != nil {
		regOpts = append(regOpts, registry.WithLogger(logger))
	}
	reg := registry.New(regOpts...)
	opts := []strategies.RemoteOption{
		strategies.WithHTTPClient(&http.Client{Timeout: c.Strategies.Timeout}),
		strategies.WithMaxRetries(c.Strategies.MaxRetries),
	}

	for nodeType, endpoint := range c.Strategies.NodeEndpoints() {
		var err error
		if nodeType == types.NodeTypeCrossReference {
			err = reg.RegisterCrossReference(strategies.NewRemoteCrossReference(endpoint, opts...).Factory())
		} else {
			err = reg.Register(nodeType, strategies.NewRemote(nodeType, endpoint, opts...).Factory())
		}
		if err != nil {
			return nil, errors.Wrapf(err, "registering %s strategy", nodeType)
		}
	}
	return reg, nil
}

func newOrchestrator(c *config.Config) (*orchestrator.Orchestrator, error) {
	reg, err := newRegistry(c)
	if err != nil {
		return nil, err
	}

	var coordOpts []coordinator.Option
	if c.Execution.NodeTimeout > 0 {
		coordOpts = append(coordOpts, coordinator.WithNodeTimeout(c.Execution.NodeTimeout))
	}
	if c.Execution.MaxConcurrency > 0 {
		coordOpts = append(coordOpts, coordinator.WithMaxConcurrency(c.Execution.MaxConcurrency))
	}
	if c.Decomposition.LenientReferences {
		coordOpts = append(coordOpts, coordinator.WithLenientReferences())
	}

	model, err := llm.New(c.LLM.LLMClient())
	if err != nil {
		return nil, err
	}

	var decomposer orchestrator.Decomposer
	if c.Decomposition.GraphFile != "" {
		var fileOpts []graph.Option
		if c.Decomposition.LenientReferences {
			fileOpts = append(fileOpts, graph.WithLenientReferences())
		}
		decomposer = decompose.NewFile(c.Decomposition.GraphFile, fileOpts...)
	} else {
		decOpts := []decompose.Option{
			decompose.WithMaxTokens(c.Decomposition.MaxTokens),
			decompose.WithTemperature(c.Decomposition.Temperature),
		}
		if c.Decomposition.LenientReferences {
			decOpts = append(decOpts, decompose.WithLenientReferences())
		}
		decomposer = decompose.NewLLM(model, decOpts...)
	}

	profiles := profile.NewStatic(c.User, c.Preferences)

	return orchestrator.New(
		decomposer,
		coordinator.New(reg, coordOpts...),
		synthesis.New(model,
			synthesis.WithMaxTokens(c.Synthesis.MaxTokens),
			synthesis.WithTemperature(c.Synthesis.Temperature),
		),
		orchestrator.WithUserContext(profiles),
		orchestrator.WithPreferences(profiles),
		orchestrator.WithHistoryWindow(c.Execution.HistoryWindow),
		orchestrator.WithLogger(logger),
	), nil
}

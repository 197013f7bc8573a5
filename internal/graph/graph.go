// Package graph validates execution graphs and partitions them into stages.
package graph

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/avi3tal/infograph/internal/resolver"
	"github.com/avi3tal/infograph/pkg/types"
)

// CompiledNode is a graph node together with its parsed parameter template.
type CompiledNode struct {
	Node     types.InformationNode
	Template *resolver.Template
}

func (c CompiledNode) ID() string { return c.Node.ID }

// Stage is the set of nodes sharing one parallel group.
type Stage struct {
	Group int
	Nodes []CompiledNode
}

// IDs returns the node IDs of the stage in graph order.
func (s Stage) IDs() []string {
	ids := make([]string, len(s.Nodes))
	for i, n := range s.Nodes {
		ids[i] = n.ID()
	}
	return ids
}

// Plan is a validated execution graph ready to be run stage by stage.
type Plan struct {
	graph    *types.ExecutionGraph
	stages   []Stage
	nodes    map[string]CompiledNode
	warnings []error
}

// Compile validates g and groups its nodes into stages ordered by ascending
// parallel group. Inside a stage nodes keep their graph order.
func Compile(g *types.ExecutionGraph, opts ...Option) (*Plan, error) {
	var o compileOptions
	for _, opt := range opts {
		opt(&o)
	}

	if g == nil {
		return nil, NewValidationError("compile", "", ErrNilGraph)
	}

	p := &Plan{
		graph: g,
		nodes: make(map[string]CompiledNode, len(g.InformationNeeds)),
	}

	byGroup := make(map[int][]CompiledNode)
	for _, n := range g.InformationNeeds {
		if n.ID == "" {
			return nil, NewValidationError("add node", "", errors.Wrap(ErrInvalidNode, "empty node id"))
		}
		if !n.Type.Valid() {
			return nil, NewValidationError("add node", n.ID, errors.Wrapf(ErrInvalidNode, "node type %q", n.Type))
		}
		if _, exists := p.nodes[n.ID]; exists {
			return nil, NewValidationError("add node", n.ID, ErrDuplicateNode)
		}
		if n.ParallelGroup < 0 {
			return nil, NewValidationError("add node", n.ID, errors.Wrapf(ErrInvalidGroup, "group %d", n.ParallelGroup))
		}

		cn := CompiledNode{Node: n, Template: resolver.Compile(n.Strategy.Params)}
		p.nodes[n.ID] = cn
		byGroup[n.ParallelGroup] = append(byGroup[n.ParallelGroup], cn)
	}

	if err := p.validateReferences(o.lenientReferences); err != nil {
		return nil, err
	}

	groups := make([]int, 0, len(byGroup))
	for group := range byGroup {
		groups = append(groups, group)
	}
	sort.Ints(groups)

	p.stages = make([]Stage, 0, len(groups))
	for _, group := range groups {
		p.stages = append(p.stages, Stage{Group: group, Nodes: byGroup[group]})
	}
	return p, nil
}

func (p *Plan) validateReferences(lenient bool) error {
	for _, n := range p.graph.InformationNeeds {
		cn := p.nodes[n.ID]
		for _, ref := range cn.Template.References() {
			var err error
			target, ok := p.nodes[ref.NodeID]
			switch {
			case !ok:
				err = errors.Wrapf(ErrNodeNotFound, "reference %s", ref)
			case target.Node.ParallelGroup >= n.ParallelGroup:
				err = errors.Wrapf(ErrForwardReference, "reference %s (group %d >= %d)",
					ref, target.Node.ParallelGroup, n.ParallelGroup)
			}
			if err == nil {
				continue
			}

			// absent targets always resolve to null at run time
			verr := NewValidationError("validate references", n.ID, err)
			if ok && !lenient {
				return verr
			}
			p.warnings = append(p.warnings, verr)
		}
	}
	return nil
}

// Graph returns the execution graph the plan was compiled from.
func (p *Plan) Graph() *types.ExecutionGraph { return p.graph }

// Stages returns the stages in execution order.
func (p *Plan) Stages() []Stage { return p.stages }

// Node looks up a compiled node by ID.
func (p *Plan) Node(id string) (CompiledNode, bool) {
	n, ok := p.nodes[id]
	return n, ok
}

// Len is the number of nodes in the plan.
func (p *Plan) Len() int { return len(p.nodes) }

// NodeTypes returns the distinct node types used by the plan, in enum order.
func (p *Plan) NodeTypes() []types.NodeType {
	seen := make(map[types.NodeType]bool)
	for _, n := range p.nodes {
		seen[n.Node.Type] = true
	}
	var out []types.NodeType
	for _, t := range types.AllNodeTypes() {
		if seen[t] {
			out = append(out, t)
		}
	}
	return out
}

// Warnings lists accepted reference violations: references to absent nodes,
// plus ordering violations under WithLenientReferences.
func (p *Plan) Warnings() []error { return p.warnings }

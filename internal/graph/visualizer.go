package graph

import (
	"fmt"
	"io"
	"strings"
)

// Info represents the plan structure for visualization
type Info struct {
	QueryType string
	Domains   []string
	Stages    []StageInfo
	Edges     []EdgeInfo
}

type StageInfo struct {
	Group int
	Nodes []NodeInfo
}

type NodeInfo struct {
	ID          string
	Type        string
	Description string
}

// EdgeInfo is a data dependency: To reads a field of From's result.
type EdgeInfo struct {
	From  string
	To    string
	Field string
}

func (p *Plan) Info() *Info {
	info := &Info{
		QueryType: p.graph.QueryClassification.Type,
		Domains:   p.graph.QueryClassification.Domains,
		Stages:    make([]StageInfo, 0, len(p.stages)),
	}

	for _, stage := range p.stages {
		si := StageInfo{Group: stage.Group, Nodes: make([]NodeInfo, 0, len(stage.Nodes))}
		for _, n := range stage.Nodes {
			si.Nodes = append(si.Nodes, NodeInfo{
				ID:          n.ID(),
				Type:        n.Node.Type.String(),
				Description: n.Node.Description,
			})
			for _, ref := range n.Template.References() {
				info.Edges = append(info.Edges, EdgeInfo{
					From:  ref.NodeID,
					To:    n.ID(),
					Field: strings.Join(ref.Path, "."),
				})
			}
		}
		info.Stages = append(info.Stages, si)
	}

	return info
}

// Describe writes a human readable rendering of the plan to w.
func (p *Plan) Describe(w io.Writer) error {
	info := p.Info()

	var b strings.Builder
	fmt.Fprintf(&b, "Query: %s", info.QueryType)
	if len(info.Domains) > 0 {
		fmt.Fprintf(&b, " [%s]", strings.Join(info.Domains, ", "))
	}
	b.WriteString("\n")

	est := p.graph.ResourceEstimate
	fmt.Fprintf(&b, "Estimate: %d items, %d tokens, $%.4f, %.0fs", est.EstimatedItems,
		est.EstimatedTokens, est.EstimatedCost, est.EstimatedTimeSeconds)
	if est.UserShouldConfirm {
		b.WriteString(" (confirmation required)")
	}
	b.WriteString("\n\n")

	for i, stage := range info.Stages {
		fmt.Fprintf(&b, "Stage %d (group %d):\n", i+1, stage.Group)
		for _, n := range stage.Nodes {
			fmt.Fprintf(&b, "  - %s [%s]", n.ID, n.Type)
			if n.Description != "" {
				fmt.Fprintf(&b, " %s", n.Description)
			}
			b.WriteString("\n")
		}
	}

	if len(info.Edges) > 0 {
		b.WriteString("\nReferences:\n")
		for _, edge := range info.Edges {
			fmt.Fprintf(&b, "  %s --%s--> %s\n", edge.From, edge.Field, edge.To)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

package types

// QueryClassification describes what kind of request produced a graph.
type QueryClassification struct {
	Type    string   `json:"type" yaml:"type"`
	Domains []string `json:"domains" yaml:"domains"`
}

// ResourceEstimate is the decomposer's forecast of what executing a graph costs.
type ResourceEstimate struct {
	EstimatedTokens      int     `json:"estimated_tokens" yaml:"estimated_tokens"`
	EstimatedTimeSeconds float64 `json:"estimated_time_seconds" yaml:"estimated_time_seconds"`
	EstimatedCost        float64 `json:"estimated_cost" yaml:"estimated_cost"`
	EstimatedItems       int     `json:"estimated_items" yaml:"estimated_items"`
	UserShouldConfirm    bool    `json:"user_should_confirm" yaml:"user_should_confirm"`
}

// StrategySpec carries a node's declared parameters. Values are literals or
// reference tokens of the form {{node_id.field.path}}.
type StrategySpec struct {
	Params map[string]any `json:"params" yaml:"params"`
}

// InformationNode is one unit of planned work.
type InformationNode struct {
	ID            string       `json:"id" yaml:"id"`
	Type          NodeType     `json:"type" yaml:"type"`
	Description   string       `json:"description,omitempty" yaml:"description,omitempty"`
	Strategy      StrategySpec `json:"strategy" yaml:"strategy"`
	ParallelGroup int          `json:"parallel_group" yaml:"parallel_group"`
}

// ExecutionGraph is the declarative plan produced from a single query.
type ExecutionGraph struct {
	QueryClassification QueryClassification `json:"query_classification" yaml:"query_classification"`
	InformationNeeds    []InformationNode   `json:"information_needs" yaml:"information_needs"`
	ResourceEstimate    ResourceEstimate    `json:"resource_estimate" yaml:"resource_estimate"`
}

// NodeIDs returns the graph's node identifiers in declaration order.
func (g *ExecutionGraph) NodeIDs() []string {
	ids := make([]string, 0, len(g.InformationNeeds))
	for _, n := range g.InformationNeeds {
		ids = append(ids, n.ID)
	}
	return ids
}

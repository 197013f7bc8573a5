package types

// NodeMetadata carries optional per-node execution counters reported by strategies.
type NodeMetadata struct {
	ExecutionTimeMs int64   `json:"execution_time_ms,omitempty" yaml:"execution_time_ms,omitempty"`
	LLMCalls        int     `json:"llm_calls,omitempty" yaml:"llm_calls,omitempty"`
	Cost            float64 `json:"cost,omitempty" yaml:"cost,omitempty"`
}

// NodeResult is the outcome of executing one node. Exactly one is produced per node.
type NodeResult struct {
	NodeID     string         `json:"node_id" yaml:"node_id"`
	Success    bool           `json:"success" yaml:"success"`
	Data       map[string]any `json:"data,omitempty" yaml:"data,omitempty"`
	Error      string         `json:"error,omitempty" yaml:"error,omitempty"`
	TokensUsed int            `json:"tokens_used" yaml:"tokens_used"`
	Metadata   NodeMetadata   `json:"metadata" yaml:"metadata"`
}

// FailedResult builds the result recorded for a node whose strategy did not succeed.
func FailedResult(nodeID string, reason string) NodeResult {
	return NodeResult{
		NodeID:     nodeID,
		Success:    false,
		Error:      reason,
		TokensUsed: 0,
	}
}

// ExecutionResults maps node ID to that node's result.
type ExecutionResults map[string]NodeResult

// Clone returns a shallow copy that can be handed out as a read-only snapshot.
func (r ExecutionResults) Clone() ExecutionResults {
	out := make(ExecutionResults, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Usage derives the aggregate resource counters from the per-node results.
func (r ExecutionResults) Usage() ResourceUsage {
	var usage ResourceUsage
	var totalMs int64
	for _, res := range r {
		usage.TotalTokens += res.TokensUsed
		usage.TotalLLMCalls += res.Metadata.LLMCalls
		usage.EstimatedCost += res.Metadata.Cost
		totalMs += res.Metadata.ExecutionTimeMs
		if res.Success {
			usage.NodesSucceeded++
		} else {
			usage.NodesFailed++
		}
	}
	usage.TotalTimeSeconds = float64(totalMs) / 1000
	return usage
}

// ResourceUsage is derived from ExecutionResults and never mutated on its own.
type ResourceUsage struct {
	TotalTokens      int     `json:"total_tokens" yaml:"total_tokens"`
	TotalLLMCalls    int     `json:"total_llm_calls" yaml:"total_llm_calls"`
	TotalTimeSeconds float64 `json:"total_time_seconds" yaml:"total_time_seconds"`
	EstimatedCost    float64 `json:"estimated_cost" yaml:"estimated_cost"`
	NodesSucceeded   int     `json:"nodes_succeeded" yaml:"nodes_succeeded"`
	NodesFailed      int     `json:"nodes_failed" yaml:"nodes_failed"`
}

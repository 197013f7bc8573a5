package types

// OrchestratorState is the opaque blob handed back to the caller after each turn.
// Callers pass it back unchanged to continue a conversation.
type OrchestratorState struct {
	Status               Status           `json:"status"`
	ExecutionGraph       *ExecutionGraph  `json:"execution_graph,omitempty"`
	ExecutionResults     ExecutionResults `json:"execution_results,omitempty"`
	AwaitingConfirmation bool             `json:"awaiting_confirmation"`
	LastQuery            string           `json:"last_query,omitempty"`
}

// LayerMetrics reports cost for one pipeline layer.
type LayerMetrics struct {
	DurationMs int64 `json:"duration_ms"`
	TokensUsed int   `json:"tokens_used"`
}

// ExecutionLayerMetrics adds node outcome counts to the execution layer.
type ExecutionLayerMetrics struct {
	LayerMetrics
	NodesSucceeded int `json:"nodes_succeeded"`
	NodesFailed    int `json:"nodes_failed"`
}

// Layers groups per-layer metrics of one turn.
type Layers struct {
	Decomposition LayerMetrics          `json:"decomposition"`
	Execution     ExecutionLayerMetrics `json:"execution"`
	Synthesis     SynthesisLayerMetrics `json:"synthesis"`
}

// SynthesisLayerMetrics adds the findings count to the synthesis layer.
type SynthesisLayerMetrics struct {
	LayerMetrics
	FindingsCount int `json:"findings_count"`
}

// ResponseMetadata aggregates metrics across decomposition, execution and synthesis.
type ResponseMetadata struct {
	RequestID        string `json:"request_id"`
	ProcessingTimeMs int64  `json:"processing_time_ms"`
	TotalSteps       int    `json:"total_steps"`
	TokensUsed       int    `json:"tokens_used"`
	Layers           Layers `json:"layers"`
}

// Response is the only value the orchestrator returns to its caller.
type Response struct {
	Message  string             `json:"message"`
	Success  bool               `json:"success"`
	State    *OrchestratorState `json:"state,omitempty"`
	Metadata ResponseMetadata   `json:"metadata"`
}

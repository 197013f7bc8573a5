package types

// MaxKeyFindings bounds how many projected entries a single node contributes.
const MaxKeyFindings = 10

// Finding is the compressed summary of one successful node.
type Finding struct {
	NodeID      string           `json:"node_id"`
	Description string           `json:"description"`
	Summary     string           `json:"summary"`
	KeyFindings []map[string]any `json:"key_findings"`
	ItemCount   int              `json:"item_count"`
}

// StructuredFindings is the bounded structure handed to the synthesis model.
type StructuredFindings struct {
	QueryType           string        `json:"query_type"`
	Domains             []string      `json:"domains"`
	InformationGathered []Finding     `json:"information_gathered"`
	ResourceUsage       ResourceUsage `json:"resource_usage"`
}

package synthesis

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/avi3tal/infograph/pkg/types"
)

const (
	maxSnippetLen = 150
	maxContextLen = 100
)

type shape int

const (
	shapeNone shape = iota
	shapeList
	shapeThread
	shapeRanked
)

var (
	rankedKeys = []string{"ranked", "rankings"}
	threadKeys = []string{"threads"}
	listKeys   = []string{"items", "results", "emails", "messages", "events"}
)

// BuildFindings compresses the successful results of g into bounded findings,
// in graph order. Failed and missing nodes are skipped.
func BuildFindings(g *types.ExecutionGraph, results types.ExecutionResults) types.StructuredFindings {
	findings := types.StructuredFindings{
		InformationGathered: []types.Finding{},
		ResourceUsage:       results.Usage(),
	}
	if g == nil {
		return findings
	}

	findings.QueryType = g.QueryClassification.Type
	findings.Domains = g.QueryClassification.Domains

	for _, node := range g.InformationNeeds {
		res, ok := results[node.ID]
		if !ok || !res.Success {
			continue
		}
		findings.InformationGathered = append(findings.InformationGathered, buildFinding(node, res))
	}
	return findings
}

func buildFinding(node types.InformationNode, res types.NodeResult) types.Finding {
	kind, items := detectShape(node.Type, res.Data)

	keyFindings := make([]map[string]any, 0, min(len(items), types.MaxKeyFindings))
	for i, item := range items {
		if i == types.MaxKeyFindings {
			break
		}
		keyFindings = append(keyFindings, project(kind, i, item))
	}

	count, ok := intValue(res.Data["count"])
	if !ok {
		count = len(items)
	}

	summary, _ := res.Data["summary"].(string)
	if summary == "" {
		switch {
		case kind == shapeNone:
			summary = "No itemized data returned"
		case count == 1:
			summary = "1 item found"
		default:
			summary = fmt.Sprintf("%d items found", count)
		}
	}

	return types.Finding{
		NodeID:      node.ID,
		Description: node.Description,
		Summary:     truncate(summary, maxSnippetLen),
		KeyFindings: keyFindings,
		ItemCount:   count,
	}
}

func detectShape(nodeType types.NodeType, data map[string]any) (shape, []any) {
	if items, ok := firstList(data, rankedKeys); ok {
		return shapeRanked, items
	}
	if items, ok := firstList(data, threadKeys); ok {
		return shapeThread, items
	}
	if items, ok := firstList(data, listKeys); ok {
		if nodeType == types.NodeTypeCrossReference {
			return shapeRanked, items
		}
		return shapeList, items
	}
	return shapeNone, nil
}

func firstList(data map[string]any, keys []string) ([]any, bool) {
	for _, k := range keys {
		switch v := data[k].(type) {
		case []any:
			return v, true
		case []map[string]any:
			out := make([]any, len(v))
			for i, m := range v {
				out[i] = m
			}
			return out, true
		}
	}
	return nil, false
}

func project(kind shape, index int, item any) map[string]any {
	m, ok := item.(map[string]any)
	if !ok {
		return map[string]any{"value": truncate(fmt.Sprint(item), maxSnippetLen)}
	}

	switch kind {
	case shapeThread:
		out := pick(m, "id", "urgency", "has_question", "waiting_for_response")
		if text := firstString(m, "context", "last_message", "snippet", "subject"); text != "" {
			out["context"] = truncate(text, maxContextLen)
		}
		return out
	case shapeRanked:
		out := pick(m, "id", "rank", "score", "reason")
		if _, ok := out["rank"]; !ok {
			out["rank"] = index + 1
		}
		if reason, ok := out["reason"].(string); ok {
			out["reason"] = truncate(reason, maxSnippetLen)
		}
		return out
	default:
		out := pick(m, "id", "subject", "date")
		if sender := firstString(m, "sender", "from"); sender != "" {
			out["sender"] = sender
		}
		if text := firstString(m, "snippet", "body", "text"); text != "" {
			out["snippet"] = truncate(text, maxSnippetLen)
		}
		return out
	}
}

func pick(m map[string]any, keys ...string) map[string]any {
	out := make(map[string]any, len(keys))
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			out[k] = encodable(v)
		}
	}
	return out
}

// encodable replaces values JSON cannot carry, such as NaN and infinities,
// with their string form.
func encodable(v any) any {
	switch val := v.(type) {
	case nil, string, bool, int, int32, int64:
		return val
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return strconv.FormatFloat(val, 'g', -1, 64)
		}
		return val
	case float32:
		return encodable(float64(val))
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = encodable(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = encodable(item)
		}
		return out
	default:
		if _, err := json.Marshal(val); err != nil {
			return fmt.Sprint(val)
		}
		return val
	}
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// truncate cuts s to at most n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func intValue(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

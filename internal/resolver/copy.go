package resolver

import "github.com/avi3tal/infograph/pkg/types"

// Copy returns a deep copy of params with reference tokens left untouched.
func Copy(params map[string]any) map[string]any {
	if params == nil {
		return map[string]any{}
	}
	return deepCopy(params).(map[string]any)
}

// CopyResults returns results with every node's Data deep-copied, so the
// receiver can mutate it without touching committed results.
func CopyResults(results types.ExecutionResults) types.ExecutionResults {
	out := make(types.ExecutionResults, len(results))
	for id, res := range results {
		if res.Data != nil {
			res.Data = deepCopy(res.Data).(map[string]any)
		}
		out[id] = res
	}
	return out
}

func deepCopy(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, v := range val {
			out[k] = deepCopy(v)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, v := range val {
			out[i] = deepCopy(v)
		}
		return out
	case []map[string]any:
		out := make([]map[string]any, len(val))
		for i, m := range val {
			out[i], _ = deepCopy(m).(map[string]any)
		}
		return out
	case []string:
		return append([]string(nil), val...)
	default:
		// scalars are immutable
		return val
	}
}

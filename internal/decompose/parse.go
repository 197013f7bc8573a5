package decompose

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"

	"github.com/avi3tal/infograph/pkg/types"
)

var (
	// ErrNoGraph is returned when a model response contains no JSON object
	ErrNoGraph = errors.New("no execution graph found in response")

	// ErrInvalidGraph is returned when a decoded graph fails validation
	ErrInvalidGraph = errors.New("invalid execution graph")
)

// ParseResponse extracts the execution graph from a model response. The JSON
// may be fenced in a code block, surrounded by prose, or nested under an
// "execution_graph" key.
func ParseResponse(response string) (*types.ExecutionGraph, error) {
	raw := extractJSON(response)
	if raw == "" || !gjson.Valid(raw) {
		preview := response
		if len(preview) > 500 {
			preview = preview[:500] + "... (truncated)"
		}
		return nil, errors.Wrapf(ErrNoGraph, "got %d chars: %q", len(response), preview)
	}

	if nested := gjson.Get(raw, "execution_graph"); nested.IsObject() {
		raw = nested.Raw
	}
	if !gjson.Get(raw, "information_needs").IsArray() {
		return nil, errors.Wrap(ErrInvalidGraph, "missing information_needs array")
	}

	var g types.ExecutionGraph
	if err := json.Unmarshal([]byte(raw), &g); err != nil {
		return nil, errors.Wrap(err, "failed to decode execution graph")
	}
	return &g, nil
}

// extractJSON returns the first JSON object in response, preferring fenced
// code blocks.
func extractJSON(response string) string {
	if start := strings.Index(response, "```json"); start != -1 {
		start += len("```json")
		if end := strings.Index(response[start:], "```"); end != -1 {
			return strings.TrimSpace(response[start : start+end])
		}
	}
	if start := strings.Index(response, "```"); start != -1 {
		start += len("```")
		if end := strings.Index(response[start:], "```"); end != -1 {
			return strings.TrimSpace(response[start : start+end])
		}
	}

	start := strings.Index(response, "{")
	if start == -1 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(response); i++ {
		c := response[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return response[start : i+1]
			}
		}
	}
	return ""
}

// LoadGraph decodes a graph document. YAML and JSON are both accepted; unknown
// fields and unknown node types are rejected.
func LoadGraph(r io.Reader) (*types.ExecutionGraph, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read graph")
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var g types.ExecutionGraph
	if err := dec.Decode(&g); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.Wrap(ErrInvalidGraph, "empty document")
		}
		return nil, errors.Wrap(err, "failed to decode graph")
	}
	return &g, nil
}

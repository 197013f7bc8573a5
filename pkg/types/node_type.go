package types

import (
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ErrUnknownNodeType is returned when a graph names a strategy tag outside the closed set.
var ErrUnknownNodeType = errors.New("unknown node type")

// NodeType identifies the strategy a node is executed with. The set is closed:
// every value is one of the constants below.
type NodeType string

const (
	NodeTypeSearch         NodeType = "search"
	NodeTypeRead           NodeType = "read"
	NodeTypeAnalyze        NodeType = "analyze"
	NodeTypeCrossReference NodeType = "cross_reference"
)

// AllNodeTypes lists every node type variant.
func AllNodeTypes() []NodeType {
	return []NodeType{
		NodeTypeSearch,
		NodeTypeRead,
		NodeTypeAnalyze,
		NodeTypeCrossReference,
	}
}

// ParseNodeType converts a strategy tag into a NodeType.
func ParseNodeType(tag string) (NodeType, error) {
	for _, t := range AllNodeTypes() {
		if string(t) == tag {
			return t, nil
		}
	}
	return "", errors.Wrapf(ErrUnknownNodeType, "%q", tag)
}

// Valid reports whether t belongs to the closed set.
func (t NodeType) Valid() bool {
	_, err := ParseNodeType(string(t))
	return err == nil
}

func (t NodeType) String() string {
	return string(t)
}

// UnmarshalText rejects unknown tags at decode time.
func (t *NodeType) UnmarshalText(text []byte) error {
	parsed, err := ParseNodeType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t NodeType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, errors.Wrapf(ErrUnknownNodeType, "cannot marshal %q", string(t))
	}
	return []byte(t), nil
}

// UnmarshalYAML rejects unknown tags when graphs are loaded from YAML files.
func (t *NodeType) UnmarshalYAML(value *yaml.Node) error {
	return t.UnmarshalText([]byte(value.Value))
}

// Package resolver rewrites node parameters, replacing {{node_id.field}} reference
// tokens with values taken from already-completed node results.
package resolver

import (
	"regexp"
	"strings"
)

// referencePattern matches a whole string of the form {{node_id.field[.field...]}}.
// Node IDs and fields may contain word characters and hyphens.
var referencePattern = regexp.MustCompile(`^\{\{([\w-]+)\.([\w-]+(?:\.[\w-]+)*)\}\}$`)

// Reference points at a field inside another node's result data.
type Reference struct {
	NodeID string
	Path   []string
}

// ParseReference reports whether s is a reference token and, if so, parses it.
// Only strings that are entirely a token qualify; embedded tokens are literals.
func ParseReference(s string) (Reference, bool) {
	m := referencePattern.FindStringSubmatch(s)
	if m == nil {
		return Reference{}, false
	}
	return Reference{
		NodeID: m[1],
		Path:   strings.Split(m[2], "."),
	}, true
}

// String renders the reference back into token form.
func (r Reference) String() string {
	return "{{" + r.NodeID + "." + strings.Join(r.Path, ".") + "}}"
}

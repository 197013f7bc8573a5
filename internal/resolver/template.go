package resolver

import (
	"context"
	"sort"
	"strconv"

	"github.com/avi3tal/infograph/internal/ctxlog"
	"github.com/avi3tal/infograph/pkg/types"
)

// value is one node of a compiled parameter tree.
type value interface {
	resolve(ctx context.Context, results types.ExecutionResults) any
	collect(refs []Reference) []Reference
}

type literal struct{ v any }

type reference struct{ ref Reference }

type object map[string]value

type list []value

// Template is a parameter map parsed once into a tree of literals and references.
// A Template is immutable and safe for concurrent use.
type Template struct {
	root object
}

// Compile parses params into a Template. It never fails: anything that is not a
// reference token, object or list is kept as a literal.
func Compile(params map[string]any) *Template {
	return &Template{root: compileObject(params)}
}

func compileObject(m map[string]any) object {
	out := make(object, len(m))
	for k, v := range m {
		out[k] = compileValue(v)
	}
	return out
}

func compileValue(v any) value {
	switch val := v.(type) {
	case string:
		if ref, ok := ParseReference(val); ok {
			return reference{ref: ref}
		}
		return literal{v: val}
	case map[string]any:
		return compileObject(val)
	case []any:
		out := make(list, len(val))
		for i, item := range val {
			out[i] = compileValue(item)
		}
		return out
	case []string:
		out := make(list, len(val))
		for i, item := range val {
			out[i] = compileValue(item)
		}
		return out
	case []map[string]any:
		out := make(list, len(val))
		for i, item := range val {
			out[i] = compileObject(item)
		}
		return out
	default:
		return literal{v: val}
	}
}

// Resolve produces a fresh parameter map with every reference replaced by the
// referenced value, or nil when it cannot be resolved.
func (t *Template) Resolve(ctx context.Context, results types.ExecutionResults) map[string]any {
	if t == nil || t.root == nil {
		return map[string]any{}
	}
	return t.root.resolve(ctx, results).(map[string]any)
}

// References lists every reference in the template, sorted by node ID then path.
func (t *Template) References() []Reference {
	if t == nil {
		return nil
	}
	refs := t.root.collect(nil)
	sort.SliceStable(refs, func(i, j int) bool {
		return refs[i].String() < refs[j].String()
	})
	return refs
}

// Resolve compiles params and resolves them in one step.
func Resolve(ctx context.Context, params map[string]any, results types.ExecutionResults) map[string]any {
	return Compile(params).Resolve(ctx, results)
}

func (l literal) resolve(context.Context, types.ExecutionResults) any { return l.v }

func (l literal) collect(refs []Reference) []Reference { return refs }

func (o object) resolve(ctx context.Context, results types.ExecutionResults) any {
	out := make(map[string]any, len(o))
	for k, v := range o {
		out[k] = v.resolve(ctx, results)
	}
	return out
}

func (o object) collect(refs []Reference) []Reference {
	for _, v := range o {
		refs = v.collect(refs)
	}
	return refs
}

func (l list) resolve(ctx context.Context, results types.ExecutionResults) any {
	out := make([]any, len(l))
	for i, v := range l {
		out[i] = v.resolve(ctx, results)
	}
	return out
}

func (l list) collect(refs []Reference) []Reference {
	for _, v := range l {
		refs = v.collect(refs)
	}
	return refs
}

func (r reference) collect(refs []Reference) []Reference { return append(refs, r.ref) }

func (r reference) resolve(ctx context.Context, results types.ExecutionResults) any {
	logger := ctxlog.FromContext(ctx)

	res, ok := results[r.ref.NodeID]
	if !ok || !res.Success {
		logger.Warn("Referenced node unavailable, resolving to null.",
			"reference", r.ref.String(), "nodeID", r.ref.NodeID, "found", ok)
		return nil
	}

	var current any = res.Data
	for _, field := range r.ref.Path {
		next, ok := index(current, field)
		if !ok {
			logger.Debug("Reference path not indexable, resolving to null.",
				"reference", r.ref.String(), "field", field)
			return nil
		}
		current = next
	}
	return deepCopy(current)
}

// index steps one field into v. Objects are indexed by key, lists by position.
func index(v any, field string) (any, bool) {
	switch c := v.(type) {
	case map[string]any:
		return c[field], true
	case []any:
		i, err := strconv.Atoi(field)
		if err != nil || i < 0 || i >= len(c) {
			return nil, false
		}
		return c[i], true
	default:
		return nil, false
	}
}

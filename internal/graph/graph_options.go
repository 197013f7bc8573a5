package graph

type compileOptions struct {
	lenientReferences bool
}

// Option configures Compile
type Option func(*compileOptions)

// WithLenientReferences accepts references to nodes that do not run strictly
// earlier. Violations are reported through Plan.Warnings and resolve to null at
// execution time. References to absent nodes are always accepted this way.
func WithLenientReferences() Option {
	return func(o *compileOptions) {
		o.lenientReferences = true
	}
}

package coordinator

import "time"

// Option configures a Coordinator
type Option func(*Coordinator)

// WithNodeTimeout bounds how long a single node may run. A node exceeding it
// is recorded as failed. Zero disables the bound.
func WithNodeTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		c.nodeTimeout = d
	}
}

// WithMaxConcurrency bounds how many nodes of one stage run at once. Zero means
// every node of a stage starts immediately.
func WithMaxConcurrency(n int) Option {
	return func(c *Coordinator) {
		c.maxConcurrency = n
	}
}

// WithLenientReferences accepts graphs whose references point at unknown or
// non-earlier nodes. Such references resolve to null.
func WithLenientReferences() Option {
	return func(c *Coordinator) {
		c.lenientReferences = true
	}
}

// Package channels provides the synchronization primitive that joins the nodes
// of one execution stage.
package channels

import (
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/avi3tal/infograph/pkg/types"
)

var (
	ErrUnexpectedInput = errors.New("unexpected input")
	ErrDuplicateInput  = errors.New("duplicate input")
	ErrBarrierPending  = errors.New("waiting for inputs")
)

// Barrier collects exactly one result from each required node. Writes may come
// from any goroutine; Read only succeeds once every required node has written.
type Barrier struct {
	mu     sync.RWMutex
	inputs map[string]*types.NodeResult
}

func NewBarrier(required []string) *Barrier {
	inputs := make(map[string]*types.NodeResult, len(required))
	for _, r := range required {
		inputs[r] = nil
	}
	return &Barrier{inputs: inputs}
}

// Write records the result of nodeID.
func (b *Barrier) Write(nodeID string, result types.NodeResult) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	current, exists := b.inputs[nodeID]
	if !exists {
		return errors.Wrapf(ErrUnexpectedInput, "node %s", nodeID)
	}
	if current != nil {
		return errors.Wrapf(ErrDuplicateInput, "node %s", nodeID)
	}
	b.inputs[nodeID] = &result
	return nil
}

// Pending returns the required nodes that have not written yet, sorted.
func (b *Barrier) Pending() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var pending []string
	for id, input := range b.inputs {
		if input == nil {
			pending = append(pending, id)
		}
	}
	sort.Strings(pending)
	return pending
}

// Read returns the collected results once all required nodes have written.
func (b *Barrier) Read() (types.ExecutionResults, error) {
	if pending := b.Pending(); len(pending) > 0 {
		return nil, errors.Wrapf(ErrBarrierPending, "from %v", pending)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make(types.ExecutionResults, len(b.inputs))
	for id, input := range b.inputs {
		out[id] = *input
	}
	return out, nil
}

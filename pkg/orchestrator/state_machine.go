package orchestrator

import (
	"github.com/pkg/errors"

	"github.com/avi3tal/infograph/pkg/types"
)

var ErrIllegalTransition = errors.New("illegal status transition")

// transitions lists where each status may go next. failed is reachable from
// every status except itself.
var transitions = map[types.Status][]types.Status{
	types.StatusNew:                  {types.StatusAwaitingConfirmation, types.StatusExecuting, types.StatusFailed},
	types.StatusAwaitingConfirmation: {types.StatusExecuting, types.StatusFailed},
	types.StatusExecuting:            {types.StatusCompleted, types.StatusFailed},
	types.StatusCompleted:            {types.StatusFailed},
}

// Transition checks that a turn may move from one status to another.
func Transition(from, to types.Status) error {
	for _, next := range transitions[from] {
		if next == to {
			return nil
		}
	}
	return errors.Wrapf(ErrIllegalTransition, "%s -> %s", from, to)
}

// machine tracks the status of a single turn.
type machine struct {
	status types.Status
}

func newMachine(initial types.Status) *machine {
	return &machine{status: initial}
}

func (m *machine) Status() types.Status {
	return m.status
}

func (m *machine) advance(to types.Status) error {
	if err := Transition(m.status, to); err != nil {
		return err
	}
	m.status = to
	return nil
}

func (m *machine) fail() {
	m.status = types.StatusFailed
}

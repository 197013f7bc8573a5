package types

// Status represents where a single user turn sits in the orchestrator's lifecycle
type Status string

const (
	StatusNew                  Status = "new"
	StatusAwaitingConfirmation Status = "awaiting_confirmation" // Waiting for user consent
	StatusExecuting            Status = "executing"
	StatusCompleted            Status = "completed"
	StatusFailed               Status = "failed"
)

// IsTerminal reports whether no further transition is expected within the same call.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusAwaitingConfirmation
}

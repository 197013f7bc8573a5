package graph

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrNilGraph is returned when compiling a nil execution graph
	ErrNilGraph = errors.New("execution graph is nil")

	// ErrInvalidNode is returned when a node fails validation
	ErrInvalidNode = errors.New("invalid node")

	// ErrDuplicateNode is returned when two nodes share an ID
	ErrDuplicateNode = errors.New("node with this ID already exists")

	// ErrNodeNotFound is returned when a reference names a non-existent node
	ErrNodeNotFound = errors.New("node not found")

	// ErrInvalidGroup is returned for a negative parallel group
	ErrInvalidGroup = errors.New("parallel group must be non-negative")

	// ErrForwardReference is returned when a node references a node that does
	// not run in a strictly earlier stage
	ErrForwardReference = errors.New("reference to a node in the same or a later stage")
)

// ValidationError represents an error that occurs during graph validation
type ValidationError struct {
	// Op is the operation that failed
	Op string
	// Node is the ID of the node involved (if any)
	Node string
	// Err is the underlying error
	Err error
}

func (e *ValidationError) Error() string {
	if e.Node != "" {
		return fmt.Sprintf("validation failed: %s: node '%s': %v", e.Op, e.Node, e.Err)
	}
	return fmt.Sprintf("validation failed: %s: %v", e.Op, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a new ValidationError
func NewValidationError(op string, node string, err error) error {
	return &ValidationError{
		Op:   op,
		Node: node,
		Err:  err,
	}
}

package ir

import (
	"errors"
	"fmt"
)

// InvariantError reports a structurally impossible graph shape. It is raised
// with panic: upstream passes guarantee these shapes never occur, so hitting
// one is a bug elsewhere in the pipeline, not a runtime condition to recover.
type InvariantError struct {
	Node    NodeID // offending node, InvalidNode when not node-specific
	Message string
}

// Error implements the error interface.
func (e *InvariantError) Error() string {
	if e.Node == InvalidNode {
		return fmt.Sprintf("ir invariant violated: %s", e.Message)
	}
	return fmt.Sprintf("ir invariant violated at #%d: %s", e.Node, e.Message)
}

// Fatalf panics with an *InvariantError for node.
func Fatalf(node NodeID, format string, args ...any) {
	panic(&InvariantError{Node: node, Message: fmt.Sprintf(format, args...)})
}

// IsInvariantError returns true if err is an *InvariantError.
// Uses errors.As to handle wrapped errors.
func IsInvariantError(err error) bool {
	var ie *InvariantError
	return errors.As(err, &ie)
}

package graph

import (
	"errors"
	"fmt"
)

// ErrDuplicateClaim is returned when a claim ID is already in the graph
var ErrDuplicateClaim = errors.New("claim already in graph")

// DeserializationError reports a graph document that could not be loaded.
// The graph is left unchanged when it is returned.
type DeserializationError struct {
	Reason string
	Err    error
}

func (e *DeserializationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("deserialize graph: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("deserialize graph: %s", e.Reason)
}

func (e *DeserializationError) Unwrap() error {
	return e.Err
}

package pipeline

import "fmt"

// ValidationError reports a request the orchestrator refuses to dispatch
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid analysis request: %s", e.Reason)
}

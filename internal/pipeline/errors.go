package pipeline

import "fmt"

// FatalPipelineError represents an unexpected failure escaping a phase.
// It is caught at the orchestrator level and converted into a terminal
// error event; the stream never hangs or closes silently.
type FatalPipelineError struct {
	Phase Phase
	Cause error
}

func (e *FatalPipelineError) Error() string {
	return fmt.Sprintf("fatal pipeline error in phase %s: %v", e.Phase, e.Cause)
}

func (e *FatalPipelineError) Unwrap() error {
	return e.Cause
}

package phases

import "fmt"

// ValidationError records an invariant violation that was repaired by
// injecting defaults. It is logged into the state's processing errors and
// never surfaced to the caller.
type ValidationError struct {
	Phase   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation repair in %s: %s", e.Phase, e.Message)
}

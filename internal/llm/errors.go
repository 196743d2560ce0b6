package llm

import "fmt"

// LLMError represents a failed gateway call. The gateway never retries
// internally; retry policy belongs to the caller.
type LLMError struct {
	Model   string
	Message string
	Cause   error
}

func (e *LLMError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("llm call failed (%s): %s: %v", e.Model, e.Message, e.Cause)
	}
	return fmt.Sprintf("llm call failed (%s): %s", e.Model, e.Message)
}

func (e *LLMError) Unwrap() error {
	return e.Cause
}

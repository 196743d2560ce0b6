package search

import "fmt"

// ToolError represents a failed external search call. Callers must treat
// it as "zero results", never as a fatal condition.
type ToolError struct {
	Query   string
	Message string
	Cause   error
}

func (e *ToolError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("search tool failed for %q: %s: %v", e.Query, e.Message, e.Cause)
	}
	return fmt.Sprintf("search tool failed for %q: %s", e.Query, e.Message)
}

func (e *ToolError) Unwrap() error {
	return e.Cause
}

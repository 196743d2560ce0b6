package extract

import "fmt"

// previewLimit bounds how much of the raw model output is attached to an
// ExtractionError for diagnostics.
const previewLimit = 200

// ExtractionError represents a failure to locate parseable JSON in LLM output
type ExtractionError struct {
	Message string
	Preview string
	Cause   error
}

func (e *ExtractionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("extraction failed: %s (input: %q): %v", e.Message, e.Preview, e.Cause)
	}
	return fmt.Sprintf("extraction failed: %s (input: %q)", e.Message, e.Preview)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}

// preview truncates raw input for error diagnostics
func preview(text string) string {
	if len(text) > previewLimit {
		return text[:previewLimit] + "..."
	}
	return text
}

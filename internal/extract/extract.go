// Package extract pulls structured JSON out of free-form LLM output and
// decodes it into typed phase results with self-healing repair.
package extract

import (
	"encoding/json"
	"sort"
	"strings"
)

// JSON extracts a single JSON object from raw LLM text. Three strategies
// are attempted in order: a strict parse of the trimmed text, the contents
// of a fenced code block, and finally the largest brace-delimited
// substrings. The first candidate that parses wins.
func JSON(text string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, &ExtractionError{Message: "empty input", Preview: ""}
	}

	if raw, ok := tryParse(trimmed); ok {
		return raw, nil
	}

	if fenced := fencedBlock(trimmed); fenced != "" {
		if raw, ok := tryParse(fenced); ok {
			return raw, nil
		}
	}

	for _, candidate := range braceCandidates(trimmed) {
		if raw, ok := tryParse(candidate); ok {
			return raw, nil
		}
	}

	return nil, &ExtractionError{Message: "no parseable JSON object found", Preview: preview(text)}
}

// tryParse validates that s is a JSON object and returns it compact-checked
func tryParse(s string) (json.RawMessage, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "{") {
		return nil, false
	}
	var probe map[string]any
	if err := json.Unmarshal([]byte(s), &probe); err != nil {
		return nil, false
	}
	return json.RawMessage(s), true
}

// fencedBlock returns the contents of the first markdown code fence, with
// or without a language tag. LLMs wrap JSON in fences even when told not to.
func fencedBlock(text string) string {
	start := strings.Index(text, "```")
	if start < 0 {
		return ""
	}
	rest := text[start+3:]

	// Skip a language identifier on the opening fence line
	if idx := strings.Index(rest, "\n"); idx >= 0 {
		firstLine := strings.TrimSpace(rest[:idx])
		if len(firstLine) < 20 && !strings.ContainsAny(firstLine, " {") {
			rest = rest[idx+1:]
		}
	}

	end := strings.Index(rest, "```")
	if end < 0 {
		return strings.TrimSpace(rest)
	}
	return strings.TrimSpace(rest[:end])
}

// braceCandidates returns balanced {...} substrings ordered largest first.
// String literals and escapes are respected so braces inside values do not
// break the depth tracking.
func braceCandidates(text string) []string {
	var candidates []string
	depth := 0
	start := -1
	inString := false
	escaped := false

	for i, r := range text {
		if escaped {
			escaped = false
			continue
		}
		switch r {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if inString {
				continue
			}
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if inString {
				continue
			}
			if depth > 0 {
				depth--
				if depth == 0 && start >= 0 {
					candidates = append(candidates, text[start:i+1])
					start = -1
				}
			}
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return len(candidates[i]) > len(candidates[j])
	})
	return candidates
}

// Decode extracts JSON from raw LLM text and unmarshals it into out.
func Decode(text string, out any) error {
	raw, err := JSON(text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &ExtractionError{Message: "JSON did not match expected shape", Preview: preview(text), Cause: err}
	}
	return nil
}

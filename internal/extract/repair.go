package extract

// RepairFunc inspects a decoded phase output and patches any missing or
// invariant-violating fields in place. It returns a human-readable note for
// every correction applied, so callers can log the repairs.
type RepairFunc[T any] func(*T) []string

// Repair decodes raw LLM text into T and applies the phase's repair
// function. Repair never rejects a decodable output: incomplete results are
// patched with defaults so downstream phases always receive a structurally
// valid value. An error is returned only when no JSON object could be
// extracted at all.
func Repair[T any](text string, repair RepairFunc[T]) (T, []string, error) {
	var out T
	if err := Decode(text, &out); err != nil {
		return out, nil, err
	}

	var corrections []string
	if repair != nil {
		corrections = repair(&out)
	}
	return out, corrections, nil
}

// Clamp01 clamps a confidence value into [0, 1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

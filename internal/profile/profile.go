// Package profile supplies the static candidate profile text used in
// prompts. The pipeline treats the profile as an opaque formatted string.
package profile

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
)

//go:embed default_profile.md
var defaultProfile string

// Load reads the candidate profile from path. An empty path returns the
// embedded default profile.
func Load(path string) (string, error) {
	if path == "" {
		return defaultProfile, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read profile %s: %w", path, err)
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("profile %s is empty", path)
	}
	return text, nil
}

// Default returns the embedded default profile.
func Default() string {
	return defaultProfile
}

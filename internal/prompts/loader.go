// Package prompts provides a loader for externalized LLM prompt templates.
// Templates ship embedded in the binary; an optional override directory
// lets operators adjust prompts without a rebuild. When an override file is
// missing or unreadable the embedded fallback of the same name is used.
package prompts

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

//go:embed *.json
var promptFiles embed.FS

// Loader resolves prompt templates by filename and key.
type Loader struct {
	dir string // optional override directory

	mu    sync.RWMutex
	cache map[string]map[string]string
}

// NewLoader creates a loader. dir may be empty to use only the embedded
// templates.
func NewLoader(dir string) *Loader {
	return &Loader{
		dir:   dir,
		cache: make(map[string]map[string]string),
	}
}

// Get retrieves a prompt template by filename and key. The filename should
// not include a path (e.g. "research.json").
func (l *Loader) Get(filename, key string) (string, error) {
	templates, err := l.loadFile(filename)
	if err != nil {
		return "", err
	}

	template, exists := templates[key]
	if !exists {
		return "", fmt.Errorf("prompt key %q not found in %s", key, filename)
	}
	return template, nil
}

// MustGet retrieves a prompt, panicking if not found. Use only for prompts
// required at initialization time.
func (l *Loader) MustGet(filename, key string) string {
	template, err := l.Get(filename, key)
	if err != nil {
		panic(fmt.Sprintf("failed to load prompt: %v", err))
	}
	return template
}

// Format replaces placeholders in the form {{.Key}} with values from data.
func Format(template string, data map[string]string) string {
	result := template
	for key, value := range data {
		placeholder := fmt.Sprintf("{{.%s}}", key)
		result = strings.ReplaceAll(result, placeholder, value)
	}
	return result
}

// loadFile loads and caches a prompt file, preferring the override
// directory over the embedded copy.
func (l *Loader) loadFile(filename string) (map[string]string, error) {
	l.mu.RLock()
	if templates, exists := l.cache[filename]; exists {
		l.mu.RUnlock()
		return templates, nil
	}
	l.mu.RUnlock()

	data, err := l.readFile(filename)
	if err != nil {
		return nil, err
	}

	var templates map[string]string
	if err := json.Unmarshal(data, &templates); err != nil {
		return nil, fmt.Errorf("failed to parse prompt file %s: %w", filename, err)
	}

	l.mu.Lock()
	l.cache[filename] = templates
	l.mu.Unlock()

	return templates, nil
}

func (l *Loader) readFile(filename string) ([]byte, error) {
	if l.dir != "" {
		if data, err := os.ReadFile(filepath.Join(l.dir, filename)); err == nil {
			return data, nil
		}
		// Fall through to the embedded copy
	}

	data, err := promptFiles.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt file %s: %w", filename, err)
	}
	return data, nil
}

// ClearCache clears the template cache. Useful for testing.
func (l *Loader) ClearCache() {
	l.mu.Lock()
	l.cache = make(map[string]map[string]string)
	l.mu.Unlock()
}

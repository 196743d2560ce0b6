package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_EmptyPathReturnsDefault(t *testing.T) {
	text, err := Load("")
	require.NoError(t, err)
	assert.Contains(t, text, "Candidate Profile")
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.md")
	require.NoError(t, os.WriteFile(path, []byte("# Jane Doe\nStaff engineer."), 0o644))

	text, err := Load(path)
	require.NoError(t, err)
	assert.Contains(t, text, "Jane Doe")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.md"))
	assert.Error(t, err)
}

func TestLoad_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.md")
	require.NoError(t, os.WriteFile(path, []byte("  \n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

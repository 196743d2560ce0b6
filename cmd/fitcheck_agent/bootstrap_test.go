package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/fitcheck/internal/config"
	"github.com/jonathan/fitcheck/internal/search"
)

func TestLoadConfig_EnvAndDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("FITCHECK_PROFILE", "")

	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "test-key", cfg.APIKey)
	assert.Equal(t, config.DefaultPort, cfg.Port)
	assert.Equal(t, config.DefaultMaxConcurrentLLM, cfg.MaxConcurrentLLM)
	assert.Equal(t, config.DefaultBreakerCooldown, cfg.CooldownDuration())
}

func TestBuildPipeline_RequiresAPIKey(t *testing.T) {
	cfg := &config.Config{}
	cfg.ApplyDefaults()

	orch, cleanup, err := buildPipeline(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GEMINI_API_KEY")
	assert.Nil(t, orch)
	assert.Nil(t, cleanup)
}

func TestUnavailableSearcher_ReturnsToolError(t *testing.T) {
	_, err := unavailableSearcher{}.Search(context.Background(), "acme careers")

	var toolErr *search.ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "acme careers", toolErr.Query)
}

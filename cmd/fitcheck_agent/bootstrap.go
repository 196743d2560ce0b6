package main

import (
	"context"
	"fmt"
	"log"

	"github.com/jonathan/fitcheck/internal/config"
	"github.com/jonathan/fitcheck/internal/llm"
	"github.com/jonathan/fitcheck/internal/phases"
	"github.com/jonathan/fitcheck/internal/pipeline"
	"github.com/jonathan/fitcheck/internal/profile"
	"github.com/jonathan/fitcheck/internal/prompts"
	"github.com/jonathan/fitcheck/internal/resilience"
	"github.com/jonathan/fitcheck/internal/search"
)

// loadConfig assembles the effective configuration: file values first,
// then environment fills the blanks, then defaults.
func loadConfig(path string) (*config.Config, error) {
	cfg := &config.Config{}
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	cfg.FromEnv()
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildPipeline wires the orchestrator from configuration. The returned
// cleanup function releases the LLM client.
func buildPipeline(ctx context.Context, cfg *config.Config) (*pipeline.Orchestrator, func(), error) {
	if cfg.APIKey == "" {
		return nil, nil, fmt.Errorf("GEMINI_API_KEY is required (env var or api_key in config)")
	}

	llmCfg := llm.DefaultConfig()
	llmCfg.MaxConcurrent = int64(cfg.MaxConcurrentLLM)
	client, err := llm.NewClient(ctx, llmCfg, cfg.APIKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	var searcher search.Searcher
	if cfg.SearchAPIKey != "" && cfg.SearchCX != "" {
		searcher, err = search.NewGoogleSearcher(ctx, cfg.SearchAPIKey, cfg.SearchCX)
		if err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("failed to create searcher: %w", err)
		}
	} else {
		// The pipeline degrades to a low-confidence run without search
		log.Println("search credentials not set, running without web research")
		searcher = unavailableSearcher{}
	}

	profileText, err := profile.Load(cfg.ProfilePath)
	if err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to load candidate profile: %w", err)
	}

	deps := &phases.Deps{
		LLM:           client,
		Search:        searcher,
		Fetcher:       search.NewPageFetcher(),
		Prompts:       prompts.NewLoader(cfg.PromptsDir),
		Profile:       profileText,
		LLMBreaker:    resilience.NewBreaker("llm", cfg.BreakerThreshold, cfg.CooldownDuration()),
		SearchBreaker: resilience.NewBreaker("search", cfg.BreakerThreshold, cfg.CooldownDuration()),
	}

	cleanup := func() {
		if err := client.Close(); err != nil {
			log.Printf("error closing LLM client: %v", err)
		}
	}
	return pipeline.NewOrchestrator(phases.All(deps)), cleanup, nil
}

// unavailableSearcher stands in when search credentials are missing
type unavailableSearcher struct{}

func (unavailableSearcher) Search(_ context.Context, query string) ([]search.Result, error) {
	return nil, &search.ToolError{Query: query, Message: "search tool not configured"}
}

// Package phases implements the five fit-check phases. Each phase builds
// its prompt from prior state, invokes the LLM gateway (and the search tool
// for research), validates and repairs the structured output, and returns a
// state delta. Every known failure mode is absorbed at the phase boundary:
// phases degrade the pipeline, they never crash it.
package phases

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	"github.com/jonathan/fitcheck/internal/extract"
	"github.com/jonathan/fitcheck/internal/llm"
	"github.com/jonathan/fitcheck/internal/pipeline"
	"github.com/jonathan/fitcheck/internal/prompts"
	"github.com/jonathan/fitcheck/internal/resilience"
	"github.com/jonathan/fitcheck/internal/schemas"
	"github.com/jonathan/fitcheck/internal/search"
)

// PageTextFetcher pulls readable text from a URL to enrich research
type PageTextFetcher interface {
	FetchText(ctx context.Context, url string) (string, error)
}

// Deps holds the explicitly constructed dependencies every phase uses.
// The LLM client (and its bounded request pool) and the breakers are shared
// across concurrent pipeline runs by design: a true dependency outage
// should affect all requests uniformly.
type Deps struct {
	LLM           llm.Client
	Search        search.Searcher
	Fetcher       PageTextFetcher // optional
	Prompts       *prompts.Loader
	Profile       string
	LLMBreaker    *resilience.Breaker
	SearchBreaker *resilience.Breaker
}

// All returns the phase graph for the orchestrator.
func All(d *Deps) map[pipeline.Phase]pipeline.PhaseFunc {
	return map[pipeline.Phase]pipeline.PhaseFunc{
		pipeline.PhaseConnecting:          d.Connect,
		pipeline.PhaseDeepResearch:        d.Research,
		pipeline.PhaseSkepticalComparison: d.Skeptic,
		pipeline.PhaseSkillsMatching:      d.Match,
		pipeline.PhaseGenerateResults:     d.Generate,
	}
}

// request assembles a gateway request honoring the run's model settings.
func (d *Deps) request(s *pipeline.State, prompt string) llm.Request {
	variant := llm.VariantStandard
	if s.Options.ConfigType == string(llm.VariantReasoning) {
		variant = llm.VariantReasoning
	}
	return llm.Request{Prompt: prompt, Variant: variant, Model: s.Options.ModelID}
}

// generate invokes the gateway behind its circuit breaker.
func (d *Deps) generate(ctx context.Context, s *pipeline.State, prompt string) (string, error) {
	req := d.request(s, prompt)
	var out string
	err := d.LLMBreaker.Do(ctx, func(ctx context.Context) error {
		var callErr error
		out, callErr = d.LLM.Generate(ctx, req)
		return callErr
	})
	return out, err
}

// decodePhase extracts and repairs a phase output from raw LLM text.
// Structural schema violations are advisory: they are logged and then the
// repair function patches the decoded value. Corrections are returned as
// processing-error entries so degraded runs stay observable.
func decodePhase[T any](sessionID, schemaName, text string, repair extract.RepairFunc[T]) (T, []string, error) {
	if raw, err := extract.JSON(text); err == nil {
		if violations, checkErr := schemas.Check(schemaName, raw); checkErr == nil && len(violations) > 0 {
			log.Printf("[%s] %s output has %d schema violations, repairing", sessionID, schemaName, len(violations))
		}
	}

	out, corrections, err := extract.Repair(text, repair)
	if err != nil {
		return out, nil, err
	}

	notes := make([]string, 0, len(corrections))
	for _, c := range corrections {
		log.Printf("[%s] %s: %s", sessionID, schemaName, c)
		notes = append(notes, (&ValidationError{Phase: schemaName, Message: c}).Error())
	}
	return out, notes, nil
}

// compactJSON renders a value as JSON for prompt inclusion.
func compactJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// bulletList renders items one per line for prompt inclusion.
func bulletList(items []string) string {
	if len(items) == 0 {
		return "None identified."
	}
	var sb strings.Builder
	for _, item := range items {
		sb.WriteString("- ")
		sb.WriteString(item)
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

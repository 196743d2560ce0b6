package phases

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/jonathan/fitcheck/internal/pipeline"
	"github.com/jonathan/fitcheck/internal/prompts"
	"github.com/jonathan/fitcheck/internal/schemas"
	"github.com/jonathan/fitcheck/internal/search"
)

// searchUnavailablePlaceholder stands in for a failed search so the
// synthesis prompt keeps its shape
const searchUnavailablePlaceholder = "[search unavailable for this query]"

// Research builds up to two targeted search queries from the phase-1
// classification, executes them sequentially through the search tool, then
// synthesizes all results into a structured employer profile via one LLM
// call. Failed searches are logged and replaced with a placeholder, never
// fatal.
func (d *Deps) Research(ctx context.Context, s *pipeline.State, em *pipeline.Emitter) (pipeline.Delta, pipeline.Phase, error) {
	message := "Researching the employer"
	if s.ResearchAttempts > 0 {
		message = "Broadening employer research"
	}
	if err := em.PhaseStart(ctx, pipeline.PhaseDeepResearch, message); err != nil {
		return pipeline.Delta{}, pipeline.PhaseError, err
	}

	delta := pipeline.Delta{ResearchAttempted: true}

	queries := buildSearchQueries(s)
	var blocks []string
	var firstLink string
	failures := 0

	for _, query := range queries {
		_ = em.Thought(ctx, pipeline.PhaseDeepResearch, pipeline.ThoughtToolCall,
			"Searching the web", "web_search", query)

		var results []search.Result
		err := d.SearchBreaker.Do(ctx, func(ctx context.Context) error {
			var searchErr error
			results, searchErr = d.Search.Search(ctx, query)
			return searchErr
		})
		if err != nil {
			if ctx.Err() != nil {
				return pipeline.Delta{}, pipeline.PhaseError, ctx.Err()
			}
			failures++
			delta.Errors = append(delta.Errors, fmt.Sprintf("deep_research: search failed for %q: %v", query, err))
			blocks = append(blocks, searchUnavailablePlaceholder)
			_ = em.Thought(ctx, pipeline.PhaseDeepResearch, pipeline.ThoughtObservation,
				"Search unavailable, continuing with reduced context", "", "")
			continue
		}

		blocks = append(blocks, search.FormatResults(results))
		if firstLink == "" && len(results) > 0 {
			firstLink = results[0].Link
		}
		_ = em.Thought(ctx, pipeline.PhaseDeepResearch, pipeline.ThoughtObservation,
			fmt.Sprintf("Found %d results", len(results)), "", "")
	}

	searchUnavailable := failures == len(queries)
	delta.SearchUnavailable = searchUnavailable

	pageText := d.fetchEnrichment(ctx, s, em, firstLink)

	template := d.Prompts.MustGet("research.json", "synthesize")
	prompt := prompts.Format(template, map[string]string{
		"Classification": compactJSON(s.Connect),
		"SearchResults":  strings.Join(blocks, "\n\n"),
		"PageText":       pageText,
	})

	_ = em.Thought(ctx, pipeline.PhaseDeepResearch, pipeline.ThoughtToolCall,
		"Synthesizing research into an employer profile", "llm", "")

	out := fallbackResearch(searchUnavailable)
	resp, err := d.generate(ctx, s, prompt)
	if err != nil {
		if ctx.Err() != nil {
			return pipeline.Delta{}, pipeline.PhaseError, ctx.Err()
		}
		delta.Errors = append(delta.Errors, fmt.Sprintf("deep_research: llm call failed: %v", err))
	} else {
		decoded, notes, decodeErr := decodePhase(s.SessionID, schemas.Research, resp, repairResearchFor(searchUnavailable))
		if decodeErr != nil {
			delta.Errors = append(delta.Errors, fmt.Sprintf("deep_research: %v", decodeErr))
		} else {
			out = decoded
			delta.Errors = append(delta.Errors, notes...)
		}
	}

	delta.Research = &out
	summary := fmt.Sprintf("Employer profile built: %d requirements, data quality %s",
		len(out.IdentifiedRequirements), out.DataQuality)
	if err := em.PhaseComplete(ctx, pipeline.PhaseDeepResearch, summary); err != nil {
		return pipeline.Delta{}, pipeline.PhaseError, err
	}
	return delta, pipeline.PhaseSkepticalComparison, nil
}

// fetchEnrichment pulls readable text from the top search hit, best
// effort. A failed fetch is skipped silently; it is enrichment, not input.
func (d *Deps) fetchEnrichment(ctx context.Context, s *pipeline.State, em *pipeline.Emitter, link string) string {
	if d.Fetcher == nil || link == "" {
		return "None available."
	}

	_ = em.Thought(ctx, pipeline.PhaseDeepResearch, pipeline.ThoughtToolCall,
		"Fetching top result for additional context", "fetch_page", link)

	text, err := d.Fetcher.FetchText(ctx, link)
	if err != nil || text == "" {
		log.Printf("[%s] page enrichment skipped: %v", s.SessionID, err)
		return "None available."
	}
	return text
}

// buildSearchQueries constructs up to 2 targeted queries from the phase-1
// classification. Retry attempts broaden the queries.
func buildSearchQueries(s *pipeline.State) []string {
	c := s.Connect
	if c == nil {
		c = &pipeline.ConnectOutput{QueryType: pipeline.QueryJobDescription}
	}

	subject := c.CompanyName
	if subject == "" {
		subject = strings.Join(strings.Fields(s.Query)[:min(6, len(strings.Fields(s.Query)))], " ")
	}

	skills := strings.Join(c.ExtractedSkills, " ")
	broaden := s.ResearchAttempts > 0

	var queries []string
	switch c.QueryType {
	case pipeline.QueryCompany:
		if broaden {
			queries = append(queries, subject+" careers reviews engineering")
			queries = append(queries, subject+" technology stack team")
		} else {
			queries = append(queries, subject+" company culture hiring")
			if c.JobTitle != "" || skills != "" {
				queries = append(queries, strings.TrimSpace(subject+" "+c.JobTitle+" "+skills))
			} else {
				queries = append(queries, subject+" engineering tech stack")
			}
		}
	default:
		role := c.JobTitle
		if role == "" {
			role = "software engineer"
		}
		if broaden {
			queries = append(queries, role+" role expectations "+skills)
			queries = append(queries, subject+" hiring requirements")
		} else {
			queries = append(queries, strings.TrimSpace(role+" "+skills+" "+subject))
			if subject != "" {
				queries = append(queries, subject+" company culture hiring")
			}
		}
	}

	if len(queries) > 2 {
		queries = queries[:2]
	}
	return queries
}

// fallbackResearch is the conservative default when synthesis fails
func fallbackResearch(searchUnavailable bool) pipeline.ResearchOutput {
	summary := "No reliable employer information could be gathered."
	if searchUnavailable {
		summary = "Employer research was unavailable; the assessment relies on the query alone."
	}
	return pipeline.ResearchOutput{
		EmployerSummary:        summary,
		IdentifiedRequirements: []string{},
		TechStack:              []string{},
		CultureSignals:         []string{},
		DataQuality:            pipeline.QualityLow,
		ReasoningTrace:         "fallback output after research failure",
	}
}

// repairResearchFor returns the repair function for this attempt's search
// availability.
func repairResearchFor(searchUnavailable bool) func(*pipeline.ResearchOutput) []string {
	return func(r *pipeline.ResearchOutput) []string {
		var notes []string

		switch r.DataQuality {
		case pipeline.QualityHigh, pipeline.QualityMedium, pipeline.QualityLow:
		default:
			if searchUnavailable {
				r.DataQuality = pipeline.QualityLow
			} else {
				r.DataQuality = pipeline.QualityMedium
			}
			notes = append(notes, fmt.Sprintf("dataQuality missing or invalid, defaulted to %s", r.DataQuality))
		}

		// The model only saw placeholders when every search failed, so its
		// own quality claim cannot be trusted above low.
		if searchUnavailable && r.DataQuality != pipeline.QualityLow {
			notes = append(notes, fmt.Sprintf("dataQuality %s claimed without search results, capped at low", r.DataQuality))
			r.DataQuality = pipeline.QualityLow
		}

		if r.EmployerSummary == "" {
			r.EmployerSummary = "No reliable employer information could be gathered."
			notes = append(notes, "employerSummary missing, injected neutral summary")
		}
		if r.IdentifiedRequirements == nil {
			r.IdentifiedRequirements = []string{}
		}
		if r.TechStack == nil {
			r.TechStack = []string{}
		}
		if r.CultureSignals == nil {
			r.CultureSignals = []string{}
		}
		if r.ReasoningTrace == "" {
			r.ReasoningTrace = "not provided"
		}
		return notes
	}
}

package phases

import (
	"context"
	"fmt"

	"github.com/jonathan/fitcheck/internal/pipeline"
	"github.com/jonathan/fitcheck/internal/prompts"
	"github.com/jonathan/fitcheck/internal/schemas"
)

// Connect classifies the query into company / job_description / irrelevant
// and extracts entities. The classification drives search-query
// construction downstream.
func (d *Deps) Connect(ctx context.Context, s *pipeline.State, em *pipeline.Emitter) (pipeline.Delta, pipeline.Phase, error) {
	if err := em.PhaseStart(ctx, pipeline.PhaseConnecting, "Understanding the query"); err != nil {
		return pipeline.Delta{}, pipeline.PhaseError, err
	}

	var delta pipeline.Delta

	template := d.Prompts.MustGet("connecting.json", "classify")
	prompt := prompts.Format(template, map[string]string{"Query": s.Query})

	_ = em.Thought(ctx, pipeline.PhaseConnecting, pipeline.ThoughtToolCall,
		"Classifying the employer query and extracting entities", "llm", "")

	out := fallbackConnect()
	resp, err := d.generate(ctx, s, prompt)
	if err != nil {
		if ctx.Err() != nil {
			return pipeline.Delta{}, pipeline.PhaseError, ctx.Err()
		}
		delta.Errors = append(delta.Errors, fmt.Sprintf("connecting: llm call failed: %v", err))
	} else {
		decoded, notes, decodeErr := decodePhase(s.SessionID, schemas.Connecting, resp, repairConnect)
		if decodeErr != nil {
			delta.Errors = append(delta.Errors, fmt.Sprintf("connecting: %v", decodeErr))
		} else {
			out = decoded
			delta.Errors = append(delta.Errors, notes...)
		}
	}

	_ = em.Thought(ctx, pipeline.PhaseConnecting, pipeline.ThoughtObservation,
		fmt.Sprintf("Query classified as %s", out.QueryType), "", "")

	delta.Connect = &out
	summary := connectSummary(&out)
	if err := em.PhaseComplete(ctx, pipeline.PhaseConnecting, summary); err != nil {
		return pipeline.Delta{}, pipeline.PhaseError, err
	}
	return delta, pipeline.PhaseDeepResearch, nil
}

// fallbackConnect is the conservative default when classification fails
// outright: treat the raw query as a job description so downstream phases
// still have material to work with.
func fallbackConnect() pipeline.ConnectOutput {
	return pipeline.ConnectOutput{
		QueryType:       pipeline.QueryJobDescription,
		ExtractedSkills: []string{},
		ReasoningTrace:  "classification unavailable, treating query as a job description",
	}
}

// repairConnect patches missing or invalid classification fields in place.
func repairConnect(c *pipeline.ConnectOutput) []string {
	var notes []string

	switch c.QueryType {
	case pipeline.QueryCompany, pipeline.QueryJobDescription, pipeline.QueryIrrelevant:
	default:
		if c.CompanyName != "" {
			c.QueryType = pipeline.QueryCompany
		} else {
			c.QueryType = pipeline.QueryJobDescription
		}
		notes = append(notes, fmt.Sprintf("queryType missing or invalid, defaulted to %s", c.QueryType))
	}

	if c.ExtractedSkills == nil {
		c.ExtractedSkills = []string{}
	}
	if c.ReasoningTrace == "" {
		c.ReasoningTrace = "not provided"
	}
	return notes
}

func connectSummary(c *pipeline.ConnectOutput) string {
	switch c.QueryType {
	case pipeline.QueryCompany:
		if c.CompanyName != "" {
			return fmt.Sprintf("Query classified as company (%s)", c.CompanyName)
		}
		return "Query classified as company"
	case pipeline.QueryJobDescription:
		if c.JobTitle != "" {
			return fmt.Sprintf("Query classified as job description (%s, %d skills)", c.JobTitle, len(c.ExtractedSkills))
		}
		return fmt.Sprintf("Query classified as job description (%d skills)", len(c.ExtractedSkills))
	default:
		return "Query appears unrelated to job fit"
	}
}

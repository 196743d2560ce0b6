package phases

import (
	"context"
	"fmt"

	"github.com/jonathan/fitcheck/internal/pipeline"
	"github.com/jonathan/fitcheck/internal/prompts"
	"github.com/jonathan/fitcheck/internal/schemas"
)

// MinGenuineGaps is the hard floor on identified gaps. An assessment with
// fewer gaps is systematically flattering and therefore useless, so the
// validator injects generic gaps to meet the minimum.
const MinGenuineGaps = 2

// defaultGaps are the injected corrective gaps. They are deliberately
// generic: plausible for any candidate/employer pair without fabricating
// specific evidence.
var defaultGaps = []string{
	"Limited direct experience with the employer's specific domain",
	"Depth on the employer's exact tooling and internal stack is unverified",
}

// Skeptic runs the adversarial review: it is deliberately framed as a
// skeptical reviewer to counteract LLM positivity bias.
func (d *Deps) Skeptic(ctx context.Context, s *pipeline.State, em *pipeline.Emitter) (pipeline.Delta, pipeline.Phase, error) {
	if err := em.PhaseStart(ctx, pipeline.PhaseSkepticalComparison, "Stress-testing the fit"); err != nil {
		return pipeline.Delta{}, pipeline.PhaseError, err
	}

	var delta pipeline.Delta

	research := s.Research
	if research == nil {
		r := fallbackResearch(true)
		research = &r
	}

	template := d.Prompts.MustGet("skeptic.json", "review")
	prompt := prompts.Format(template, map[string]string{
		"Profile":  d.Profile,
		"Research": compactJSON(research),
	})

	_ = em.Thought(ctx, pipeline.PhaseSkepticalComparison, pipeline.ThoughtToolCall,
		"Running adversarial review of candidate against employer needs", "llm", "")

	out := fallbackSkeptic()
	resp, err := d.generate(ctx, s, prompt)
	if err != nil {
		if ctx.Err() != nil {
			return pipeline.Delta{}, pipeline.PhaseError, ctx.Err()
		}
		delta.Errors = append(delta.Errors, fmt.Sprintf("skeptical_comparison: llm call failed: %v", err))
	} else {
		decoded, notes, decodeErr := decodePhase(s.SessionID, schemas.Skeptic, resp, repairSkeptic)
		if decodeErr != nil {
			delta.Errors = append(delta.Errors, fmt.Sprintf("skeptical_comparison: %v", decodeErr))
		} else {
			out = decoded
			delta.Errors = append(delta.Errors, notes...)
		}
	}

	_ = em.Thought(ctx, pipeline.PhaseSkepticalComparison, pipeline.ThoughtObservation,
		fmt.Sprintf("Identified %d genuine gaps, risk %s", len(out.GenuineGaps), out.RiskAssessment), "", "")

	delta.Skeptic = &out
	summary := fmt.Sprintf("%d strengths, %d gaps, %s risk",
		len(out.GenuineStrengths), len(out.GenuineGaps), out.RiskAssessment)
	if err := em.PhaseComplete(ctx, pipeline.PhaseSkepticalComparison, summary); err != nil {
		return pipeline.Delta{}, pipeline.PhaseError, err
	}
	return delta, pipeline.PhaseSkillsMatching, nil
}

// fallbackSkeptic is the conservative default when the review fails
func fallbackSkeptic() pipeline.SkepticOutput {
	gaps := make([]string, len(defaultGaps))
	copy(gaps, defaultGaps)
	return pipeline.SkepticOutput{
		GenuineStrengths:   []string{},
		GenuineGaps:        gaps,
		TransferableSkills: []string{},
		RiskAssessment:     "medium",
		ReasoningTrace:     "fallback output after review failure",
	}
}

// repairSkeptic enforces the minimum-gap invariant and patches missing
// fields.
func repairSkeptic(o *pipeline.SkepticOutput) []string {
	var notes []string

	if o.GenuineStrengths == nil {
		o.GenuineStrengths = []string{}
	}
	if o.TransferableSkills == nil {
		o.TransferableSkills = []string{}
	}
	if o.GenuineGaps == nil {
		o.GenuineGaps = []string{}
	}

	for i := 0; len(o.GenuineGaps) < MinGenuineGaps && i < len(defaultGaps); i++ {
		o.GenuineGaps = append(o.GenuineGaps, defaultGaps[i])
		notes = append(notes, fmt.Sprintf("fewer than %d genuine gaps, injected default gap %q", MinGenuineGaps, defaultGaps[i]))
	}

	switch o.RiskAssessment {
	case "low", "medium", "high":
	default:
		o.RiskAssessment = "medium"
		notes = append(notes, "riskAssessment missing or invalid, defaulted to medium")
	}
	if o.ReasoningTrace == "" {
		o.ReasoningTrace = "not provided"
	}
	return notes
}

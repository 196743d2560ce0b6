package phases

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/jonathan/fitcheck/internal/pipeline"
	"github.com/jonathan/fitcheck/internal/prompts"
)

// Narrative tones, selected by keyword signals in the research output
const (
	toneTechnical    = "technical and precise, comfortable with ML terminology"
	toneConservative = "measured and trust-focused, appropriate for a regulated industry"
	toneEnergetic    = "direct and energetic, emphasizing versatility and speed"
	toneFormal       = "professional and structured, emphasizing reliability at scale"
	toneNeutral      = "clear and balanced"
)

// lowConfidenceNote is prepended to the narrative prompt when research
// degraded
const lowConfidenceNote = "Note: employer research was limited, so this assessment is lower-confidence than usual. Say so explicitly and keep claims modest."

// Generate streams the final fit narrative. The narrative is grounded in
// the accumulated state: the recomputed score, the skeptical gaps, and the
// matched requirements. On streaming failure a deterministic narrative is
// built from state and streamed instead, so the consumer always receives
// response chunks.
func (d *Deps) Generate(ctx context.Context, s *pipeline.State, em *pipeline.Emitter) (pipeline.Delta, pipeline.Phase, error) {
	if err := em.PhaseStart(ctx, pipeline.PhaseGenerateResults, "Writing the fit assessment"); err != nil {
		return pipeline.Delta{}, pipeline.PhaseError, err
	}

	var delta pipeline.Delta

	skeptic := s.Skeptic
	if skeptic == nil {
		// Early-exit path skipped the skeptical review
		fb := fallbackSkeptic()
		skeptic = &fb
	}
	match := s.Match
	if match == nil {
		match = &pipeline.MatchOutput{
			MatchedRequirements:   []pipeline.MatchedRequirement{},
			UnmatchedRequirements: []string{},
		}
	}

	tone := selectTone(s.Research)
	_ = em.Thought(ctx, pipeline.PhaseGenerateResults, pipeline.ThoughtReasoning,
		fmt.Sprintf("Selected narrative tone: %s", tone), "", "")

	confidenceNote := ""
	if s.LowConfidence {
		confidenceNote = lowConfidenceNote
	}

	employerSummary := "No employer research available."
	if s.Research != nil {
		employerSummary = s.Research.EmployerSummary
	}

	template := d.Prompts.MustGet("generation.json", "narrative")
	prompt := prompts.Format(template, map[string]string{
		"Tone":            tone,
		"ConfidenceNote":  confidenceNote,
		"Score":           fmt.Sprintf("%.2f", match.OverallMatchScore),
		"Risk":            skeptic.RiskAssessment,
		"EmployerSummary": employerSummary,
		"Matched":         bulletList(matchedLines(match.MatchedRequirements)),
		"Unmatched":       bulletList(match.UnmatchedRequirements),
		"Strengths":       bulletList(skeptic.GenuineStrengths),
		"Gaps":            bulletList(skeptic.GenuineGaps),
		"Profile":         d.Profile,
	})

	_ = em.Thought(ctx, pipeline.PhaseGenerateResults, pipeline.ThoughtToolCall,
		"Streaming the fit narrative", "llm", "")

	var narrative strings.Builder
	req := d.request(s, prompt)
	err := d.LLMBreaker.Do(ctx, func(ctx context.Context) error {
		return d.LLM.GenerateStream(ctx, req, func(chunk string) error {
			narrative.WriteString(chunk)
			return em.ResponseChunk(ctx, chunk)
		})
	})
	if err != nil {
		if ctx.Err() != nil {
			return pipeline.Delta{}, pipeline.PhaseError, ctx.Err()
		}
		delta.Errors = append(delta.Errors, fmt.Sprintf("generate_results: streaming failed, using deterministic narrative: %v", err))

		fallback := fallbackNarrative(s, skeptic, match)
		narrative.Reset()
		narrative.WriteString(fallback)
		if emitErr := em.ResponseChunk(ctx, fallback); emitErr != nil {
			return pipeline.Delta{}, pipeline.PhaseError, emitErr
		}
	}

	text := narrative.String()
	checkGapCoverage(s.SessionID, text, skeptic.GenuineGaps)

	delta.FinalResponse = text
	if err := em.PhaseComplete(ctx, pipeline.PhaseGenerateResults, fmt.Sprintf("Assessment written (%d chars)", len(text))); err != nil {
		return pipeline.Delta{}, pipeline.PhaseError, err
	}
	return delta, pipeline.PhaseComplete, nil
}

// selectTone picks the narrative voice from research signals. First match
// wins; order encodes specificity.
func selectTone(research *pipeline.ResearchOutput) string {
	if research == nil {
		return toneNeutral
	}

	text := strings.ToLower(strings.Join(append(append(
		[]string{research.EmployerSummary},
		research.TechStack...),
		research.CultureSignals...), " "))

	switch {
	case containsAny(text, "machine learning", "ai ", " ai,", " ai.", "llm", "deep learning", "neural"):
		return toneTechnical
	case containsAny(text, "fintech", "banking", "payments", "financial services", "insurance", "compliance"):
		return toneConservative
	case containsAny(text, "startup", "fast-paced", "early-stage", "seed", "series a"):
		return toneEnergetic
	case containsAny(text, "enterprise", "fortune 500", "large-scale", "global teams"):
		return toneFormal
	default:
		return toneNeutral
	}
}

func containsAny(text string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// fallbackNarrative builds a plain assessment directly from state when
// streaming fails. Honest and unstyled beats absent.
func fallbackNarrative(s *pipeline.State, skeptic *pipeline.SkepticOutput, match *pipeline.MatchOutput) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Fit assessment (overall match score %.2f, %s risk).\n\n",
		match.OverallMatchScore, skeptic.RiskAssessment))
	if s.LowConfidence {
		sb.WriteString("Employer research was limited for this query, so treat this assessment as lower-confidence.\n\n")
	}

	if len(match.MatchedRequirements) > 0 {
		sb.WriteString("Where the fit is strong:\n")
		sb.WriteString(bulletList(matchedLines(match.MatchedRequirements)))
		sb.WriteString("\n\n")
	}
	if len(skeptic.GenuineStrengths) > 0 {
		sb.WriteString("Genuine strengths:\n")
		sb.WriteString(bulletList(skeptic.GenuineStrengths))
		sb.WriteString("\n\n")
	}

	sb.WriteString("Honest gaps to be aware of:\n")
	sb.WriteString(bulletList(skeptic.GenuineGaps))
	if len(match.UnmatchedRequirements) > 0 {
		sb.WriteString("\n\nRequirements without direct evidence:\n")
		sb.WriteString(bulletList(match.UnmatchedRequirements))
	}
	sb.WriteString("\n")
	return sb.String()
}

// checkGapCoverage verifies the narrative acknowledges the identified gaps.
// A narrative that hides every gap defeats the skeptical review; this is a
// post-hoc check and only warns.
func checkGapCoverage(sessionID, narrative string, gaps []string) {
	if len(gaps) == 0 {
		return
	}

	lower := strings.ToLower(narrative)
	for _, gap := range gaps {
		for _, token := range significantTokens(gap) {
			if strings.Contains(lower, token) {
				return
			}
		}
	}
	log.Printf("[%s] narrative does not reference any identified gap", sessionID)
}

func matchedLines(matched []pipeline.MatchedRequirement) []string {
	lines := make([]string, 0, len(matched))
	for _, m := range matched {
		lines = append(lines, fmt.Sprintf("%s (evidence: %s, confidence %.2f)", m.Requirement, m.MatchedSkill, m.Confidence))
	}
	return lines
}

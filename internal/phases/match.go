package phases

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonathan/fitcheck/internal/extract"
	"github.com/jonathan/fitcheck/internal/pipeline"
	"github.com/jonathan/fitcheck/internal/prompts"
	"github.com/jonathan/fitcheck/internal/schemas"
)

// Score recomputation constants. The model's own proposed score is
// discarded; only its matched/unmatched lists feed the formula.
const (
	gapPenaltyThreshold = 0.3
	gapPenaltyWeight    = 0.2
)

// Match runs the two local analysis tools in sequence, feeds both outputs
// plus the skeptical gaps into one LLM synthesis call, and recomputes the
// overall match score deterministically.
func (d *Deps) Match(ctx context.Context, s *pipeline.State, em *pipeline.Emitter) (pipeline.Delta, pipeline.Phase, error) {
	if err := em.PhaseStart(ctx, pipeline.PhaseSkillsMatching, "Matching skills against requirements"); err != nil {
		return pipeline.Delta{}, pipeline.PhaseError, err
	}

	var delta pipeline.Delta

	requirements := requirementsFor(s)
	gaps := gapsFor(s)

	_ = em.Thought(ctx, pipeline.PhaseSkillsMatching, pipeline.ThoughtToolCall,
		"Matching requirements against profile skills", "skill_matcher", "")
	skillMatches := matchSkills(d.Profile, requirements)
	_ = em.Thought(ctx, pipeline.PhaseSkillsMatching, pipeline.ThoughtObservation,
		fmt.Sprintf("Skill matcher covered %d of %d requirements", len(skillMatches.Matched), len(requirements)), "", "")

	_ = em.Thought(ctx, pipeline.PhaseSkillsMatching, pipeline.ThoughtToolCall,
		"Scanning experience highlights for requirement evidence", "experience_matcher", "")
	experienceMatches := matchExperience(d.Profile, requirements)
	_ = em.Thought(ctx, pipeline.PhaseSkillsMatching, pipeline.ThoughtObservation,
		fmt.Sprintf("Experience matcher found evidence for %d requirements", len(experienceMatches)), "", "")

	template := d.Prompts.MustGet("matching.json", "synthesize")
	prompt := prompts.Format(template, map[string]string{
		"SkillMatches":      compactJSON(skillMatches),
		"ExperienceMatches": bulletList(experienceMatches),
		"Gaps":              bulletList(gaps),
		"Requirements":      bulletList(requirements),
		"Profile":           d.Profile,
	})

	_ = em.Thought(ctx, pipeline.PhaseSkillsMatching, pipeline.ThoughtToolCall,
		"Synthesizing requirement-by-requirement match", "llm", "")

	out := heuristicMatchOutput(skillMatches)
	resp, err := d.generate(ctx, s, prompt)
	if err != nil {
		if ctx.Err() != nil {
			return pipeline.Delta{}, pipeline.PhaseError, ctx.Err()
		}
		delta.Errors = append(delta.Errors, fmt.Sprintf("skills_matching: llm call failed, using heuristic match: %v", err))
	} else {
		decoded, notes, decodeErr := decodePhase(s.SessionID, schemas.Matching, resp, repairMatch)
		if decodeErr != nil {
			delta.Errors = append(delta.Errors, fmt.Sprintf("skills_matching: %v", decodeErr))
		} else {
			out = decoded
			delta.Errors = append(delta.Errors, notes...)
		}
	}

	// The model's proposed score is never trusted verbatim
	out.OverallMatchScore = RecomputeScore(out.MatchedRequirements, out.UnmatchedRequirements)

	delta.Match = &out
	summary := fmt.Sprintf("%d matched, %d unmatched, score %.2f",
		len(out.MatchedRequirements), len(out.UnmatchedRequirements), out.OverallMatchScore)
	if err := em.PhaseComplete(ctx, pipeline.PhaseSkillsMatching, summary); err != nil {
		return pipeline.Delta{}, pipeline.PhaseError, err
	}
	return delta, pipeline.PhaseGenerateResults, nil
}

// RecomputeScore derives the overall match score deterministically:
//
//	score = clamp01(avgConfidence(matched) * coverage - gapPenalty)
//
// where coverage = matched/(matched+unmatched) and the gap penalty
// applies only when the unmatched ratio exceeds 30%.
func RecomputeScore(matched []pipeline.MatchedRequirement, unmatched []string) float64 {
	total := len(matched) + len(unmatched)
	if total == 0 || len(matched) == 0 {
		return 0
	}

	sum := 0.0
	for _, m := range matched {
		sum += extract.Clamp01(m.Confidence)
	}
	avgConfidence := sum / float64(len(matched))
	coverage := float64(len(matched)) / float64(total)

	unmatchedRatio := float64(len(unmatched)) / float64(total)
	gapPenalty := 0.0
	if unmatchedRatio > gapPenaltyThreshold {
		gapPenalty = (unmatchedRatio - gapPenaltyThreshold) * gapPenaltyWeight
	}

	return extract.Clamp01(avgConfidence*coverage - gapPenalty)
}

// skillMatchResult is the skill matcher tool output
type skillMatchResult struct {
	Matched []pipeline.MatchedRequirement `json:"matched"`
	Missed  []string                      `json:"missed"`
}

// matchSkills checks each requirement's significant tokens against the
// profile text. Confidence reflects the fraction of tokens found.
func matchSkills(profileText string, requirements []string) skillMatchResult {
	result := skillMatchResult{
		Matched: []pipeline.MatchedRequirement{},
		Missed:  []string{},
	}
	lowerProfile := strings.ToLower(profileText)

	for _, req := range requirements {
		tokens := significantTokens(req)
		if len(tokens) == 0 {
			result.Missed = append(result.Missed, req)
			continue
		}

		found := 0
		var hit string
		for _, token := range tokens {
			if strings.Contains(lowerProfile, token) {
				found++
				if hit == "" {
					hit = token
				}
			}
		}

		ratio := float64(found) / float64(len(tokens))
		if ratio >= 0.5 {
			result.Matched = append(result.Matched, pipeline.MatchedRequirement{
				Requirement:  req,
				MatchedSkill: hit,
				Confidence:   ratio,
			})
		} else {
			result.Missed = append(result.Missed, req)
		}
	}
	return result
}

// matchExperience scans profile lines for requirement evidence and returns
// the supporting lines.
func matchExperience(profileText string, requirements []string) []string {
	var evidence []string
	lines := strings.Split(profileText, "\n")

	for _, req := range requirements {
		tokens := significantTokens(req)
		found := false
		for _, line := range lines {
			lower := strings.ToLower(line)
			for _, token := range tokens {
				if strings.Contains(lower, token) {
					trimmed := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-•"))
					evidence = append(evidence, fmt.Sprintf("%s - %q", req, trimmed))
					found = true
					break
				}
			}
			if found {
				break
			}
		}
	}
	return evidence
}

// significantTokens lowercases and keeps tokens long enough to carry
// meaning.
func significantTokens(text string) []string {
	var tokens []string
	for _, field := range strings.Fields(strings.ToLower(text)) {
		field = strings.Trim(field, ".,;:()[]")
		if len(field) > 2 {
			tokens = append(tokens, field)
		}
	}
	return tokens
}

// heuristicMatchOutput builds a match output from the skill matcher alone,
// used when LLM synthesis fails.
func heuristicMatchOutput(skills skillMatchResult) pipeline.MatchOutput {
	return pipeline.MatchOutput{
		MatchedRequirements:   skills.Matched,
		UnmatchedRequirements: skills.Missed,
		ReasoningTrace:        "heuristic match from local tools after synthesis failure",
	}
}

// repairMatch patches missing fields and clamps confidences.
func repairMatch(o *pipeline.MatchOutput) []string {
	var notes []string

	if o.MatchedRequirements == nil {
		o.MatchedRequirements = []pipeline.MatchedRequirement{}
	}
	if o.UnmatchedRequirements == nil {
		o.UnmatchedRequirements = []string{}
	}

	for i, m := range o.MatchedRequirements {
		clamped := extract.Clamp01(m.Confidence)
		if clamped != m.Confidence {
			o.MatchedRequirements[i].Confidence = clamped
			notes = append(notes, fmt.Sprintf("confidence for %q clamped into [0,1]", m.Requirement))
		}
	}
	if o.ReasoningTrace == "" {
		o.ReasoningTrace = "not provided"
	}
	return notes
}

// requirementsFor picks the requirement list for matching: research
// requirements first, extracted query skills as fallback.
func requirementsFor(s *pipeline.State) []string {
	if s.Research != nil && len(s.Research.IdentifiedRequirements) > 0 {
		return s.Research.IdentifiedRequirements
	}
	if s.Connect != nil && len(s.Connect.ExtractedSkills) > 0 {
		return s.Connect.ExtractedSkills
	}
	return []string{}
}

func gapsFor(s *pipeline.State) []string {
	if s.Skeptic != nil {
		return s.Skeptic.GenuineGaps
	}
	return []string{}
}

// Package pipeline owns the fit-check run: the state threaded through the
// phases, the event stream contract, and the orchestrator that drives the
// phase graph.
package pipeline

import (
	"github.com/google/uuid"
)

// Phase identifies one step of the fit-check pipeline
type Phase string

// Pipeline phases. ConfidenceReranker is part of the wire vocabulary but
// has no implementation; it is reserved for a future reranking step.
const (
	PhaseConnecting          Phase = "connecting"
	PhaseDeepResearch        Phase = "deep_research"
	PhaseSkepticalComparison Phase = "skeptical_comparison"
	PhaseSkillsMatching      Phase = "skills_matching"
	PhaseConfidenceReranker  Phase = "confidence_reranker"
	PhaseGenerateResults     Phase = "generate_results"
	PhaseComplete            Phase = "complete"
	PhaseError               Phase = "error"
)

// QueryType classifies the employer query
type QueryType string

// Query classifications
const (
	QueryCompany        QueryType = "company"
	QueryJobDescription QueryType = "job_description"
	QueryIrrelevant     QueryType = "irrelevant"
)

// DataQuality grades how much signal the research phase recovered
type DataQuality string

// Research data quality levels
const (
	QualityHigh   DataQuality = "high"
	QualityMedium DataQuality = "medium"
	QualityLow    DataQuality = "low"
)

// ConnectOutput is the connecting phase result
type ConnectOutput struct {
	QueryType       QueryType `json:"queryType"`
	CompanyName     string    `json:"companyName,omitempty"`
	JobTitle        string    `json:"jobTitle,omitempty"`
	ExtractedSkills []string  `json:"extractedSkills"`
	ReasoningTrace  string    `json:"reasoningTrace"`
}

// ResearchOutput is the deep-research phase result
type ResearchOutput struct {
	EmployerSummary        string      `json:"employerSummary"`
	IdentifiedRequirements []string    `json:"identifiedRequirements"`
	TechStack              []string    `json:"techStack"`
	CultureSignals         []string    `json:"cultureSignals"`
	DataQuality            DataQuality `json:"dataQuality"`
	ReasoningTrace         string      `json:"reasoningTrace"`
}

// SkepticOutput is the skeptical-comparison phase result
type SkepticOutput struct {
	GenuineStrengths   []string `json:"genuineStrengths"`
	GenuineGaps        []string `json:"genuineGaps"`
	TransferableSkills []string `json:"transferableSkills"`
	RiskAssessment     string   `json:"riskAssessment"`
	ReasoningTrace     string   `json:"reasoningTrace"`
}

// MatchedRequirement maps one employer requirement to a candidate skill
type MatchedRequirement struct {
	Requirement  string  `json:"requirement"`
	MatchedSkill string  `json:"matchedSkill"`
	Confidence   float64 `json:"confidence"`
}

// MatchOutput is the skills-matching phase result. OverallMatchScore is
// always recomputed deterministically from the matched/unmatched lists,
// never trusted verbatim from the model.
type MatchOutput struct {
	MatchedRequirements   []MatchedRequirement `json:"matchedRequirements"`
	UnmatchedRequirements []string             `json:"unmatchedRequirements"`
	OverallMatchScore     float64              `json:"overallMatchScore"`
	ReasoningTrace        string               `json:"reasoningTrace"`
}

// Options carries per-run settings supplied by the caller
type Options struct {
	ConfigType      string // "reasoning" or "standard"
	ModelID         string // optional model override
	IncludeThoughts bool
}

// State is the single record threaded through every phase. Ownership
// transfers sequentially from one phase to the next; it is never shared or
// mutated concurrently. Phase output fields are nil until their producing
// phase has run, and each phase writes only its own field.
type State struct {
	Query        string
	SessionID    string
	Options      Options
	CurrentPhase Phase

	Connect  *ConnectOutput
	Research *ResearchOutput
	Skeptic  *SkepticOutput
	Match    *MatchOutput

	ProcessingErrors []string
	StepCount        int
	FinalResponse    string

	// Research retry bookkeeping
	ResearchAttempts  int
	SearchUnavailable bool
	LowConfidence     bool
}

// NewState creates the state for one incoming request
func NewState(query string, opts Options) *State {
	return &State{
		Query:        query,
		SessionID:    uuid.NewString(),
		Options:      opts,
		CurrentPhase: PhaseConnecting,
	}
}

// Delta is the state update a phase returns. Only non-zero fields are
// applied.
type Delta struct {
	Connect  *ConnectOutput
	Research *ResearchOutput
	Skeptic  *SkepticOutput
	Match    *MatchOutput

	Errors        []string
	FinalResponse string

	ResearchAttempted bool
	SearchUnavailable bool
	LowConfidence     bool
}

// Apply merges a phase delta into the state. Processing errors are
// append-only; output fields are owned by their producing phase, so a
// non-nil delta field replaces only that phase's own entry (the research
// retry loop rewrites research, nothing else).
func (s *State) Apply(d Delta) {
	if d.Connect != nil {
		s.Connect = d.Connect
	}
	if d.Research != nil {
		s.Research = d.Research
	}
	if d.Skeptic != nil {
		s.Skeptic = d.Skeptic
	}
	if d.Match != nil {
		s.Match = d.Match
	}
	s.ProcessingErrors = append(s.ProcessingErrors, d.Errors...)
	if d.FinalResponse != "" {
		s.FinalResponse = d.FinalResponse
	}
	if d.ResearchAttempted {
		s.ResearchAttempts++
	}
	// Search availability reflects the most recent research attempt
	if d.ResearchAttempted {
		s.SearchUnavailable = d.SearchUnavailable
	}
	if d.LowConfidence {
		s.LowConfidence = true
	}
}

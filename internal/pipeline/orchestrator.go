package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

// PhaseFunc executes one phase against the current state and returns the
// state delta plus the next phase. Known failure modes are absorbed inside
// the phase and surface as degraded deltas; a returned error means either
// the consumer disconnected or something genuinely unexpected happened.
type PhaseFunc func(ctx context.Context, s *State, em *Emitter) (Delta, Phase, error)

// MaxResearchRetries bounds the quality-gate retry loop
const MaxResearchRetries = 1

// Orchestrator drives the phase graph: strictly sequential execution,
// conditional routing after research, and a guaranteed terminal event.
type Orchestrator struct {
	phases             map[Phase]PhaseFunc
	maxResearchRetries int
}

// NewOrchestrator builds an orchestrator over the given phase functions.
func NewOrchestrator(phases map[Phase]PhaseFunc) *Orchestrator {
	return &Orchestrator{
		phases:             phases,
		maxResearchRetries: MaxResearchRetries,
	}
}

// Run executes the pipeline for one request. It always closes the emitter,
// and the stream always ends with either a complete or an error event
// unless the consumer itself went away. The returned state is the final
// pipeline state.
func (o *Orchestrator) Run(ctx context.Context, query string, opts Options, em *Emitter) (state *State) {
	start := time.Now()
	state = NewState(query, opts)
	completed := 0

	defer em.Close()
	defer func() {
		state.StepCount = em.Step()
		if r := recover(); r != nil {
			fatal := &FatalPipelineError{Phase: state.CurrentPhase, Cause: fmt.Errorf("panic: %v", r)}
			o.fail(ctx, state, em, fatal)
		}
	}()

	log.Printf("[pipeline] %s: starting run for query %q", state.SessionID, truncateQuery(query))
	if err := em.Status(ctx, "started", "Evaluating job fit"); err != nil {
		return state
	}

	current := PhaseConnecting
	for current != PhaseComplete && current != PhaseError {
		fn, ok := o.phases[current]
		if !ok {
			o.fail(ctx, state, em, &FatalPipelineError{Phase: current, Cause: fmt.Errorf("no implementation registered")})
			return state
		}

		state.CurrentPhase = current
		delta, next, err := fn(ctx, state, em)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				// Consumer disconnected; stop issuing further phase work
				log.Printf("[pipeline] %s: consumer gone during %s, aborting run", state.SessionID, current)
				state.CurrentPhase = PhaseError
				return state
			}
			o.fail(ctx, state, em, &FatalPipelineError{Phase: current, Cause: err})
			return state
		}

		state.Apply(delta)
		completed++

		if current == PhaseDeepResearch {
			next = o.routeAfterResearch(ctx, state, em, next)
		}
		current = next
	}

	state.CurrentPhase = PhaseComplete
	if len(state.ProcessingErrors) > 0 {
		log.Printf("[pipeline] %s: completed with %d processing errors", state.SessionID, len(state.ProcessingErrors))
	}
	_ = em.Complete(ctx, time.Since(start), completed)
	return state
}

// routeAfterResearch is the quality gate: CONTINUE to the skeptical
// comparison, RETRY research with broadened queries (bounded), or
// EARLY_EXIT straight to generation with a low-confidence flag.
func (o *Orchestrator) routeAfterResearch(ctx context.Context, s *State, em *Emitter, next Phase) Phase {
	if s.Research == nil || s.Research.DataQuality != QualityLow {
		return next
	}

	if s.SearchUnavailable {
		// Retrying without a working search tool cannot improve quality
		s.LowConfidence = true
		_ = em.Thought(ctx, PhaseDeepResearch, ThoughtReasoning,
			"Research quality is low and search is unavailable; proceeding directly to results with reduced confidence", "", "")
		return PhaseGenerateResults
	}

	if s.ResearchAttempts <= o.maxResearchRetries {
		_ = em.Thought(ctx, PhaseDeepResearch, ThoughtReasoning,
			"Research quality is low; retrying with broadened queries", "", "")
		return PhaseDeepResearch
	}

	s.LowConfidence = true
	_ = em.Thought(ctx, PhaseDeepResearch, ThoughtReasoning,
		"Research quality is still low after retry; proceeding with reduced confidence", "", "")
	return PhaseGenerateResults
}

// fail converts an unanticipated error into a terminal error state with a
// generic fallback response, guaranteeing the stream closes cleanly.
func (o *Orchestrator) fail(ctx context.Context, s *State, em *Emitter, err *FatalPipelineError) {
	log.Printf("[pipeline] %s: %v", s.SessionID, err)
	s.CurrentPhase = PhaseError
	s.ProcessingErrors = append(s.ProcessingErrors, err.Error())

	if s.FinalResponse == "" {
		s.FinalResponse = "An unexpected error interrupted this fit evaluation. " +
			"Partial analysis may be incomplete; please retry the query."
		_ = em.ResponseChunk(ctx, s.FinalResponse)
	}
	_ = em.Error(ctx, "pipeline_failure", fmt.Sprintf("pipeline failed during %s", err.Phase))
}

func truncateQuery(q string) string {
	if len(q) > 80 {
		return q[:80] + "..."
	}
	return q
}

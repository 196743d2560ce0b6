package server

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/jonathan/fitcheck/internal/pipeline"
)

// FitCheckRequest is the request body for /fit-check and /fit-check/stream
type FitCheckRequest struct {
	Query           string `json:"query" validate:"required,min=3,max=2000"`
	ConfigType      string `json:"configType,omitempty" validate:"omitempty,oneof=reasoning standard"`
	ModelID         string `json:"modelId,omitempty" validate:"omitempty,max=100"`
	IncludeThoughts bool   `json:"includeThoughts,omitempty"`
}

// FitCheckResponse is the blocking-endpoint response
type FitCheckResponse struct {
	SessionID         string   `json:"sessionId"`
	Response          string   `json:"response"`
	OverallMatchScore *float64 `json:"overallMatchScore,omitempty"`
	RiskAssessment    string   `json:"riskAssessment,omitempty"`
	LowConfidence     bool     `json:"lowConfidence"`
	ProcessingErrors  []string `json:"processingErrors,omitempty"`
}

// decodeFitCheckRequest decodes and validates the request body. A nil
// return means the error response has already been written.
func (s *Server) decodeFitCheckRequest(w http.ResponseWriter, r *http.Request) *FitCheckRequest {
	var req FitCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return nil
	}
	if err := s.validate.Struct(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return nil
	}
	return &req
}

func (req *FitCheckRequest) options() pipeline.Options {
	return pipeline.Options{
		ConfigType:      req.ConfigType,
		ModelID:         req.ModelID,
		IncludeThoughts: req.IncludeThoughts,
	}
}

// handleFitCheckStream runs the pipeline and streams its events over SSE.
// The request context doubles as the disconnect signal: when the client
// goes away the orchestrator's next emit fails and the run aborts.
func (s *Server) handleFitCheckStream(w http.ResponseWriter, r *http.Request) {
	req := s.decodeFitCheckRequest(w, r)
	if req == nil {
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	em := pipeline.NewEmitter(pipeline.DefaultEventBuffer, req.IncludeThoughts)

	done := make(chan *pipeline.State, 1)
	go func() {
		done <- s.runner.Run(r.Context(), req.Query, req.options(), em)
	}()

	for ev := range em.Events() {
		if err := sse.WritePipelineEvent(ev); err != nil {
			// Client is gone; keep draining so the run can finish
			// noticing the dead context
			log.Printf("SSE write failed, draining remaining events: %v", err)
			for range em.Events() { //nolint:revive
			}
			break
		}
	}

	state := <-done
	log.Printf("[%s] stream finished in phase %s", state.SessionID, state.CurrentPhase)
}

// handleFitCheck runs the pipeline to completion and returns the final
// result as one JSON document. Events are drained internally.
func (s *Server) handleFitCheck(w http.ResponseWriter, r *http.Request) {
	req := s.decodeFitCheckRequest(w, r)
	if req == nil {
		return
	}

	// Thoughts are a streaming concern; drop them here
	em := pipeline.NewEmitter(pipeline.DefaultEventBuffer, false)

	done := make(chan *pipeline.State, 1)
	go func() {
		done <- s.runner.Run(r.Context(), req.Query, req.options(), em)
	}()
	for range em.Events() { //nolint:revive
	}
	state := <-done

	if state.CurrentPhase == pipeline.PhaseError && state.FinalResponse == "" {
		s.errorResponse(w, http.StatusInternalServerError, "fit check failed")
		return
	}

	resp := FitCheckResponse{
		SessionID:        state.SessionID,
		Response:         state.FinalResponse,
		LowConfidence:    state.LowConfidence,
		ProcessingErrors: state.ProcessingErrors,
	}
	if state.Match != nil {
		score := state.Match.OverallMatchScore
		resp.OverallMatchScore = &score
	}
	if state.Skeptic != nil {
		resp.RiskAssessment = state.Skeptic.RiskAssessment
	}

	s.jsonResponse(w, http.StatusOK, resp)
}

// exampleQueries seed the UI's suggestion list
var exampleQueries = []string{
	"Would I be a good fit for a backend role at Stripe?",
	"Senior Go engineer position: Kubernetes, gRPC, PostgreSQL, 5+ years experience required",
	"How well do I match Anthropic's infrastructure engineering team?",
	"Staff engineer opening at an early-stage fintech startup",
}

// handleExamples returns example queries for clients to offer as starters.
func (s *Server) handleExamples(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{"examples": exampleQueries})
}

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/fitcheck/internal/pipeline"
)

// stubRunner replays a scripted event stream and returns a fixed state
type stubRunner struct {
	events []pipeline.Event
	state  *pipeline.State
}

func (r *stubRunner) Run(ctx context.Context, query string, opts pipeline.Options, em *pipeline.Emitter) *pipeline.State {
	defer em.Close()
	for _, ev := range r.events {
		if em.Emit(ctx, ev) != nil {
			break
		}
	}
	if r.state != nil {
		return r.state
	}
	st := pipeline.NewState(query, opts)
	st.CurrentPhase = pipeline.PhaseComplete
	return st
}

func completedEvents() []pipeline.Event {
	return []pipeline.Event{
		{Type: pipeline.EventStatus, Data: pipeline.StatusPayload{Status: "started", Message: "Evaluating job fit"}},
		{Type: pipeline.EventResponse, Data: pipeline.ResponsePayload{Chunk: "Looks like a solid fit."}},
		{Type: pipeline.EventComplete, Data: pipeline.CompletePayload{DurationMs: 1200, PhasesCompleted: 5}},
	}
}

func newTestServer(runner PipelineRunner) *Server {
	return New(Config{Port: 0}, runner)
}

func postJSON(t *testing.T, handler http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(&stubRunner{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestHandleExamples(t *testing.T) {
	s := newTestServer(&stubRunner{})
	req := httptest.NewRequest(http.MethodGet, "/examples", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Examples []string `json:"examples"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Examples)
}

func TestFitCheckStream_WritesSSEEvents(t *testing.T) {
	s := newTestServer(&stubRunner{events: completedEvents()})

	rec := postJSON(t, s.Handler(), "/fit-check/stream", `{"query":"Backend engineer at Acme Robotics"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, "event: status")
	assert.Contains(t, body, "event: response")
	assert.Contains(t, body, "event: complete")
	assert.Contains(t, body, `"phasesCompleted":5`)

	// complete must be the final event on the wire
	lastEvent := body[strings.LastIndex(body, "event: "):]
	assert.True(t, strings.HasPrefix(lastEvent, "event: complete"))
}

func TestFitCheckStream_RejectsShortQuery(t *testing.T) {
	s := newTestServer(&stubRunner{})

	rec := postJSON(t, s.Handler(), "/fit-check/stream", `{"query":"go"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid request")
}

func TestFitCheckStream_RejectsBadConfigType(t *testing.T) {
	s := newTestServer(&stubRunner{})

	rec := postJSON(t, s.Handler(), "/fit-check/stream", `{"query":"a long enough query","configType":"turbo"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFitCheckStream_RejectsInvalidBody(t *testing.T) {
	s := newTestServer(&stubRunner{})

	rec := postJSON(t, s.Handler(), "/fit-check/stream", `{not json`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid request body")
}

func TestHandleFitCheck_ReturnsFinalState(t *testing.T) {
	state := pipeline.NewState("query text here", pipeline.Options{})
	state.CurrentPhase = pipeline.PhaseComplete
	state.FinalResponse = "A cautious but positive assessment."
	state.Match = &pipeline.MatchOutput{OverallMatchScore: 0.61}
	state.Skeptic = &pipeline.SkepticOutput{RiskAssessment: "medium"}
	state.ProcessingErrors = []string{"deep_research: search failed for \"acme\": timeout"}
	state.LowConfidence = true

	s := newTestServer(&stubRunner{events: completedEvents(), state: state})

	rec := postJSON(t, s.Handler(), "/fit-check", `{"query":"Backend engineer at Acme Robotics"}`)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp FitCheckResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, state.SessionID, resp.SessionID)
	assert.Equal(t, "A cautious but positive assessment.", resp.Response)
	require.NotNil(t, resp.OverallMatchScore)
	assert.InDelta(t, 0.61, *resp.OverallMatchScore, 1e-9)
	assert.Equal(t, "medium", resp.RiskAssessment)
	assert.True(t, resp.LowConfidence)
	assert.Len(t, resp.ProcessingErrors, 1)
}

func TestHandleFitCheck_ErrorWithoutFallback(t *testing.T) {
	state := pipeline.NewState("query text here", pipeline.Options{})
	state.CurrentPhase = pipeline.PhaseError

	s := newTestServer(&stubRunner{state: state})

	rec := postJSON(t, s.Handler(), "/fit-check", `{"query":"Backend engineer at Acme Robotics"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRateLimit_ExpensiveEndpointEventuallyDenies(t *testing.T) {
	s := newTestServer(&stubRunner{events: completedEvents()})

	var lastCode int
	deadline := time.Now().Add(2 * time.Second)
	for i := 0; i < 10 && time.Now().Before(deadline); i++ {
		rec := postJSON(t, s.Handler(), "/fit-check", `{"query":"Backend engineer at Acme Robotics"}`)
		lastCode = rec.Code
		if lastCode == http.StatusTooManyRequests {
			break
		}
	}

	assert.Equal(t, http.StatusTooManyRequests, lastCode)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(&stubRunner{})
	req := httptest.NewRequest(http.MethodOptions, "/fit-check", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

package phases

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/fitcheck/internal/llm"
	"github.com/jonathan/fitcheck/internal/pipeline"
	"github.com/jonathan/fitcheck/internal/prompts"
	"github.com/jonathan/fitcheck/internal/resilience"
	"github.com/jonathan/fitcheck/internal/search"
)

const testProfile = `# Jane Doe — Backend Engineer

## Skills
Go, PostgreSQL, Docker, distributed systems, API design

## Experience
- Built Go services handling 50k requests per second
- Designed PostgreSQL schemas for a multi-tenant platform
- Led migration to event-driven distributed systems
`

// scriptedLLM returns canned responses in call order
type scriptedLLM struct {
	mu        sync.Mutex
	responses []string
	calls     int

	generateErr error
	chunks      []string
	streamErr   error
}

func (s *scriptedLLM) Generate(_ context.Context, _ llm.Request) (string, error) {
	if s.generateErr != nil {
		return "", s.generateErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls >= len(s.responses) {
		return "", fmt.Errorf("no scripted response for call %d", s.calls)
	}
	resp := s.responses[s.calls]
	s.calls++
	return resp, nil
}

func (s *scriptedLLM) GenerateStream(_ context.Context, _ llm.Request, onChunk llm.ChunkFunc) error {
	if s.streamErr != nil {
		return s.streamErr
	}
	for _, c := range s.chunks {
		if err := onChunk(c); err != nil {
			return err
		}
	}
	return nil
}

func (s *scriptedLLM) Close() error { return nil }

type stubSearcher struct {
	results []search.Result
	err     error
}

func (s *stubSearcher) Search(_ context.Context, _ string) ([]search.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.results, nil
}

func newTestDeps(client llm.Client, searcher search.Searcher) *Deps {
	return &Deps{
		LLM:           client,
		Search:        searcher,
		Prompts:       prompts.NewLoader(""),
		Profile:       testProfile,
		LLMBreaker:    resilience.NewBreaker("llm", 0, time.Minute),
		SearchBreaker: resilience.NewBreaker("search", 0, time.Minute),
	}
}

func newTestEmitter() *pipeline.Emitter {
	return pipeline.NewEmitter(256, true)
}

const connectJSON = `{"queryType":"company","companyName":"Acme Robotics","jobTitle":"Backend Engineer","extractedSkills":["Go","PostgreSQL"],"reasoningTrace":"named company with a role"}`

const researchHighJSON = `{"employerSummary":"Acme Robotics builds warehouse automation at a fast-paced startup.","identifiedRequirements":["Go services","PostgreSQL","distributed systems"],"techStack":["Go","PostgreSQL"],"cultureSignals":["startup"],"dataQuality":"high","reasoningTrace":"multiple corroborating sources"}`

const researchLowJSON = `{"employerSummary":"Little reliable information was found.","identifiedRequirements":[],"techStack":[],"cultureSignals":[],"dataQuality":"low","reasoningTrace":"search unavailable"}`

const skepticJSON = `{"genuineStrengths":["Strong Go background"],"genuineGaps":["No robotics domain experience","No warehouse logistics exposure"],"transferableSkills":["API design"],"riskAssessment":"medium","reasoningTrace":"balanced review"}`

const matchJSON = `{"matchedRequirements":[{"requirement":"Go services","matchedSkill":"Go","confidence":0.9},{"requirement":"PostgreSQL","matchedSkill":"PostgreSQL","confidence":0.8}],"unmatchedRequirements":["distributed systems"],"overallMatchScore":0.99,"reasoningTrace":"two of three covered"}`

func someResults() []search.Result {
	return []search.Result{
		{Title: "Acme Robotics Careers", Link: "https://example.com/careers", Snippet: "We hire Go engineers."},
	}
}

func TestConnect_ParsesClassification(t *testing.T) {
	deps := newTestDeps(&scriptedLLM{responses: []string{connectJSON}}, &stubSearcher{})
	em := newTestEmitter()
	s := pipeline.NewState("Acme Robotics backend engineer", pipeline.Options{IncludeThoughts: true})

	delta, next, err := deps.Connect(context.Background(), s, em)
	require.NoError(t, err)
	assert.Equal(t, pipeline.PhaseDeepResearch, next)
	require.NotNil(t, delta.Connect)
	assert.Equal(t, pipeline.QueryCompany, delta.Connect.QueryType)
	assert.Equal(t, "Acme Robotics", delta.Connect.CompanyName)
	assert.Empty(t, delta.Errors)
}

func TestConnect_LLMFailureUsesFallback(t *testing.T) {
	deps := newTestDeps(&scriptedLLM{generateErr: fmt.Errorf("quota exhausted")}, &stubSearcher{})
	em := newTestEmitter()
	s := pipeline.NewState("some job posting text", pipeline.Options{})

	delta, next, err := deps.Connect(context.Background(), s, em)
	require.NoError(t, err)
	assert.Equal(t, pipeline.PhaseDeepResearch, next)
	require.NotNil(t, delta.Connect)
	assert.Equal(t, pipeline.QueryJobDescription, delta.Connect.QueryType)
	require.Len(t, delta.Errors, 1)
	assert.Contains(t, delta.Errors[0], "connecting")
}

func TestRepairConnect_Defaults(t *testing.T) {
	c := pipeline.ConnectOutput{QueryType: "bogus", CompanyName: "Acme"}
	notes := repairConnect(&c)

	assert.Equal(t, pipeline.QueryCompany, c.QueryType)
	assert.NotNil(t, c.ExtractedSkills)
	assert.Equal(t, "not provided", c.ReasoningTrace)
	assert.NotEmpty(t, notes)
}

func TestBuildSearchQueries(t *testing.T) {
	s := pipeline.NewState("tell me about Acme Robotics", pipeline.Options{})
	s.Connect = &pipeline.ConnectOutput{
		QueryType:   pipeline.QueryCompany,
		CompanyName: "Acme Robotics",
		JobTitle:    "Backend Engineer",
	}

	queries := buildSearchQueries(s)
	require.Len(t, queries, 2)
	assert.Contains(t, queries[0], "Acme Robotics")
	assert.Contains(t, queries[0], "culture")

	// Retry attempts broaden the queries
	s.ResearchAttempts = 1
	broadened := buildSearchQueries(s)
	require.Len(t, broadened, 2)
	assert.NotEqual(t, queries, broadened)
}

func TestBuildSearchQueries_JobDescription(t *testing.T) {
	s := pipeline.NewState("senior Go engineer, PostgreSQL required", pipeline.Options{})
	s.Connect = &pipeline.ConnectOutput{
		QueryType:       pipeline.QueryJobDescription,
		JobTitle:        "Senior Go Engineer",
		ExtractedSkills: []string{"Go", "PostgreSQL"},
	}

	queries := buildSearchQueries(s)
	require.NotEmpty(t, queries)
	assert.LessOrEqual(t, len(queries), 2)
	assert.Contains(t, queries[0], "Senior Go Engineer")
}

func TestResearch_SearchFailuresAreRecorded(t *testing.T) {
	client := &scriptedLLM{responses: []string{researchLowJSON}}
	deps := newTestDeps(client, &stubSearcher{err: fmt.Errorf("connection refused")})
	em := newTestEmitter()

	s := pipeline.NewState("Acme Robotics backend engineer", pipeline.Options{})
	s.Connect = &pipeline.ConnectOutput{QueryType: pipeline.QueryCompany, CompanyName: "Acme Robotics"}

	delta, next, err := deps.Research(context.Background(), s, em)
	require.NoError(t, err)
	assert.Equal(t, pipeline.PhaseSkepticalComparison, next)
	assert.True(t, delta.SearchUnavailable)
	assert.True(t, delta.ResearchAttempted)

	searchErrors := 0
	for _, e := range delta.Errors {
		if strings.Contains(e, "search failed") {
			searchErrors++
		}
	}
	assert.Equal(t, 2, searchErrors)

	require.NotNil(t, delta.Research)
	assert.Equal(t, pipeline.QualityLow, delta.Research.DataQuality)
}

func TestResearch_QualityClaimCappedWithoutSearchResults(t *testing.T) {
	client := &scriptedLLM{responses: []string{researchHighJSON}}
	deps := newTestDeps(client, &stubSearcher{err: fmt.Errorf("connection refused")})
	em := newTestEmitter()

	s := pipeline.NewState("Acme Robotics backend engineer", pipeline.Options{})
	s.Connect = &pipeline.ConnectOutput{QueryType: pipeline.QueryCompany, CompanyName: "Acme Robotics"}

	delta, _, err := deps.Research(context.Background(), s, em)
	require.NoError(t, err)
	assert.True(t, delta.SearchUnavailable)
	require.NotNil(t, delta.Research)
	assert.Equal(t, pipeline.QualityLow, delta.Research.DataQuality,
		"the model only saw placeholders, its quality claim is not trusted")

	capped := false
	for _, e := range delta.Errors {
		if strings.Contains(e, "capped at low") {
			capped = true
		}
	}
	assert.True(t, capped, "the downgrade is recorded as a processing error")
}

func TestResearch_PartialSearchFailureIsNotUnavailable(t *testing.T) {
	calls := 0
	searcher := searcherFunc(func(_ context.Context, _ string) ([]search.Result, error) {
		calls++
		if calls == 1 {
			return nil, fmt.Errorf("timeout")
		}
		return someResults(), nil
	})

	client := &scriptedLLM{responses: []string{researchHighJSON}}
	deps := newTestDeps(client, searcher)
	em := newTestEmitter()

	s := pipeline.NewState("Acme Robotics backend engineer", pipeline.Options{})
	s.Connect = &pipeline.ConnectOutput{QueryType: pipeline.QueryCompany, CompanyName: "Acme Robotics"}

	delta, _, err := deps.Research(context.Background(), s, em)
	require.NoError(t, err)
	assert.False(t, delta.SearchUnavailable)
	require.NotNil(t, delta.Research)
	assert.Equal(t, pipeline.QualityHigh, delta.Research.DataQuality)
}

type searcherFunc func(ctx context.Context, query string) ([]search.Result, error)

func (f searcherFunc) Search(ctx context.Context, query string) ([]search.Result, error) {
	return f(ctx, query)
}

func TestSkeptic_InjectsMinimumGaps(t *testing.T) {
	noGaps := `{"genuineStrengths":["Solid Go"],"genuineGaps":[],"transferableSkills":[],"riskAssessment":"low","reasoningTrace":"too kind"}`
	deps := newTestDeps(&scriptedLLM{responses: []string{noGaps}}, &stubSearcher{})
	em := newTestEmitter()

	s := pipeline.NewState("query", pipeline.Options{})
	s.Research = &pipeline.ResearchOutput{EmployerSummary: "Acme", DataQuality: pipeline.QualityHigh}

	delta, next, err := deps.Skeptic(context.Background(), s, em)
	require.NoError(t, err)
	assert.Equal(t, pipeline.PhaseSkillsMatching, next)
	require.NotNil(t, delta.Skeptic)
	assert.Len(t, delta.Skeptic.GenuineGaps, MinGenuineGaps)

	injections := 0
	for _, e := range delta.Errors {
		if strings.Contains(e, "injected default gap") {
			injections++
		}
	}
	assert.Equal(t, 2, injections)
}

func TestSkeptic_KeepsModelGaps(t *testing.T) {
	deps := newTestDeps(&scriptedLLM{responses: []string{skepticJSON}}, &stubSearcher{})
	em := newTestEmitter()

	s := pipeline.NewState("query", pipeline.Options{})
	s.Research = &pipeline.ResearchOutput{EmployerSummary: "Acme", DataQuality: pipeline.QualityHigh}

	delta, _, err := deps.Skeptic(context.Background(), s, em)
	require.NoError(t, err)
	assert.Equal(t, []string{"No robotics domain experience", "No warehouse logistics exposure"}, delta.Skeptic.GenuineGaps)
	assert.Empty(t, delta.Errors)
}

func TestRecomputeScore(t *testing.T) {
	matched := func(confidences ...float64) []pipeline.MatchedRequirement {
		out := make([]pipeline.MatchedRequirement, len(confidences))
		for i, c := range confidences {
			out[i] = pipeline.MatchedRequirement{Requirement: fmt.Sprintf("req %d", i), Confidence: c}
		}
		return out
	}

	// One strong match against four requirements stays low
	score := RecomputeScore(matched(0.9), []string{"a", "b", "c"})
	assert.InDelta(t, 0.135, score, 1e-9)
	assert.LessOrEqual(t, score, 0.3)

	// Full coverage carries no penalty
	assert.InDelta(t, 0.8, RecomputeScore(matched(0.8, 0.8), nil), 1e-9)

	// Unmatched ratio at the threshold carries no penalty either
	assert.InDelta(t, 0.63, RecomputeScore(matched(0.9, 0.9, 0.9, 0.9, 0.9, 0.9, 0.9), []string{"a", "b", "c"}), 1e-9)

	assert.Zero(t, RecomputeScore(nil, []string{"a"}))
	assert.Zero(t, RecomputeScore(nil, nil))
}

func TestMatch_ScoreIsRecomputedNotTrusted(t *testing.T) {
	deps := newTestDeps(&scriptedLLM{responses: []string{matchJSON}}, &stubSearcher{})
	em := newTestEmitter()

	s := pipeline.NewState("query", pipeline.Options{})
	s.Research = &pipeline.ResearchOutput{
		IdentifiedRequirements: []string{"Go services", "PostgreSQL", "distributed systems"},
		DataQuality:            pipeline.QualityHigh,
	}

	delta, next, err := deps.Match(context.Background(), s, em)
	require.NoError(t, err)
	assert.Equal(t, pipeline.PhaseGenerateResults, next)
	require.NotNil(t, delta.Match)

	// Model claimed 0.99; the deterministic formula says otherwise
	assert.Less(t, delta.Match.OverallMatchScore, 0.99)
	assert.InDelta(t, 0.56, delta.Match.OverallMatchScore, 0.01)
}

func TestMatch_LLMFailureUsesHeuristicTools(t *testing.T) {
	deps := newTestDeps(&scriptedLLM{generateErr: fmt.Errorf("overloaded")}, &stubSearcher{})
	em := newTestEmitter()

	s := pipeline.NewState("query", pipeline.Options{})
	s.Research = &pipeline.ResearchOutput{
		IdentifiedRequirements: []string{"Go services", "PostgreSQL", "Kubernetes operators"},
		DataQuality:            pipeline.QualityHigh,
	}

	delta, _, err := deps.Match(context.Background(), s, em)
	require.NoError(t, err)
	require.NotNil(t, delta.Match)

	// Go services and PostgreSQL appear in the profile; Kubernetes operators do not
	assert.Len(t, delta.Match.MatchedRequirements, 2)
	assert.Contains(t, delta.Match.UnmatchedRequirements, "Kubernetes operators")
	require.Len(t, delta.Errors, 1)
	assert.Contains(t, delta.Errors[0], "heuristic")
}

func TestMatchSkills(t *testing.T) {
	result := matchSkills(testProfile, []string{"PostgreSQL", "distributed systems", "Rust macros"})
	require.Len(t, result.Matched, 2)
	assert.Equal(t, []string{"Rust macros"}, result.Missed)
	for _, m := range result.Matched {
		assert.GreaterOrEqual(t, m.Confidence, 0.5)
		assert.LessOrEqual(t, m.Confidence, 1.0)
	}
}

func TestMatchExperience(t *testing.T) {
	evidence := matchExperience(testProfile, []string{"PostgreSQL", "Rust macros"})
	require.Len(t, evidence, 1, "one evidence line per matched requirement, none for misses")
	assert.True(t, strings.HasPrefix(evidence[0], `PostgreSQL - "`), "got %q", evidence[0])
}

func TestSelectTone(t *testing.T) {
	cases := []struct {
		name     string
		research *pipeline.ResearchOutput
		want     string
	}{
		{"nil research", nil, toneNeutral},
		{"ml employer", &pipeline.ResearchOutput{EmployerSummary: "They train machine learning models."}, toneTechnical},
		{"fintech", &pipeline.ResearchOutput{CultureSignals: []string{"regulated fintech environment"}}, toneConservative},
		{"startup", &pipeline.ResearchOutput{CultureSignals: []string{"fast-paced startup"}}, toneEnergetic},
		{"enterprise", &pipeline.ResearchOutput{EmployerSummary: "A Fortune 500 retailer.", CultureSignals: []string{"fortune 500"}}, toneFormal},
		{"plain", &pipeline.ResearchOutput{EmployerSummary: "A mid-size logistics firm."}, toneNeutral},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, selectTone(tc.research))
		})
	}
}

func TestGenerate_StreamsAndAccumulates(t *testing.T) {
	client := &scriptedLLM{chunks: []string{"Strong fit overall. ", "Watch the robotics domain gap."}}
	deps := newTestDeps(client, &stubSearcher{})
	em := newTestEmitter()

	s := pipeline.NewState("query", pipeline.Options{})
	s.Skeptic = &pipeline.SkepticOutput{
		GenuineGaps:    []string{"No robotics domain experience", "No logistics exposure"},
		RiskAssessment: "medium",
	}
	s.Match = &pipeline.MatchOutput{
		MatchedRequirements:   []pipeline.MatchedRequirement{{Requirement: "Go", MatchedSkill: "Go", Confidence: 0.9}},
		UnmatchedRequirements: []string{},
		OverallMatchScore:     0.9,
	}

	delta, next, err := deps.Generate(context.Background(), s, em)
	require.NoError(t, err)
	assert.Equal(t, pipeline.PhaseComplete, next)
	assert.Equal(t, "Strong fit overall. Watch the robotics domain gap.", delta.FinalResponse)
	assert.Empty(t, delta.Errors)

	em.Close()
	chunks := ""
	for ev := range em.Events() {
		if ev.Type == pipeline.EventResponse {
			chunks += ev.Data.(pipeline.ResponsePayload).Chunk
		}
	}
	assert.Equal(t, delta.FinalResponse, chunks)
}

func TestGenerate_StreamFailureFallsBackAndMentionsGaps(t *testing.T) {
	client := &scriptedLLM{streamErr: fmt.Errorf("stream reset")}
	deps := newTestDeps(client, &stubSearcher{})
	em := newTestEmitter()

	s := pipeline.NewState("query", pipeline.Options{})
	s.LowConfidence = true
	s.Skeptic = &pipeline.SkepticOutput{
		GenuineGaps:    []string{"No robotics domain experience", "No logistics exposure"},
		RiskAssessment: "high",
	}
	s.Match = &pipeline.MatchOutput{OverallMatchScore: 0.2}

	delta, next, err := deps.Generate(context.Background(), s, em)
	require.NoError(t, err)
	assert.Equal(t, pipeline.PhaseComplete, next)
	require.Len(t, delta.Errors, 1)

	assert.Contains(t, delta.FinalResponse, "robotics")
	assert.Contains(t, delta.FinalResponse, "lower-confidence")
}

func TestGenerate_HandlesEarlyExitState(t *testing.T) {
	// Early exit skips skeptic and match entirely
	client := &scriptedLLM{chunks: []string{"Limited research was available, so this is a cautious read."}}
	deps := newTestDeps(client, &stubSearcher{})
	em := newTestEmitter()

	s := pipeline.NewState("query", pipeline.Options{})
	s.LowConfidence = true
	s.Research = &pipeline.ResearchOutput{EmployerSummary: "Nothing found.", DataQuality: pipeline.QualityLow}

	delta, next, err := deps.Generate(context.Background(), s, em)
	require.NoError(t, err)
	assert.Equal(t, pipeline.PhaseComplete, next)
	assert.NotEmpty(t, delta.FinalResponse)
}

func runPipeline(t *testing.T, deps *Deps, query string) (*pipeline.State, []pipeline.Event) {
	t.Helper()
	em := pipeline.NewEmitter(512, true)
	orch := pipeline.NewOrchestrator(All(deps))
	state := orch.Run(context.Background(), query, pipeline.Options{IncludeThoughts: true}, em)

	var events []pipeline.Event
	for ev := range em.Events() {
		events = append(events, ev)
	}
	return state, events
}

func TestPipeline_HappyPath(t *testing.T) {
	client := &scriptedLLM{
		responses: []string{connectJSON, researchHighJSON, skepticJSON, matchJSON},
		chunks:    []string{"Good fit. ", "The robotics domain gap is real but manageable."},
	}
	deps := newTestDeps(client, &stubSearcher{results: someResults()})

	state, events := runPipeline(t, deps, "Backend Engineer at Acme Robotics")

	require.NotEmpty(t, events)
	assert.Equal(t, pipeline.EventStatus, events[0].Type)

	phaseCompletes := 0
	responseText := ""
	errorEvents := 0
	for _, ev := range events {
		switch ev.Type {
		case pipeline.EventPhaseComplete:
			phaseCompletes++
		case pipeline.EventResponse:
			responseText += ev.Data.(pipeline.ResponsePayload).Chunk
		case pipeline.EventError:
			errorEvents++
		}
	}
	assert.Equal(t, 5, phaseCompletes)
	assert.Zero(t, errorEvents)

	last := events[len(events)-1]
	require.Equal(t, pipeline.EventComplete, last.Type)
	assert.Equal(t, 5, last.Data.(pipeline.CompletePayload).PhasesCompleted)

	assert.Equal(t, pipeline.PhaseComplete, state.CurrentPhase)
	assert.Equal(t, responseText, state.FinalResponse)
	assert.Empty(t, state.ProcessingErrors)
	assert.False(t, state.LowConfidence)
}

func TestPipeline_SearchOutageDegradesGracefully(t *testing.T) {
	client := &scriptedLLM{
		responses: []string{connectJSON, researchLowJSON},
		chunks:    []string{"Research was limited; treat this as a cautious assessment."},
	}
	deps := newTestDeps(client, &stubSearcher{err: fmt.Errorf("dns failure")})

	state, events := runPipeline(t, deps, "Backend Engineer at Acme Robotics")

	assert.Equal(t, pipeline.PhaseComplete, state.CurrentPhase)
	assert.True(t, state.LowConfidence)
	assert.True(t, state.SearchUnavailable)
	assert.Nil(t, state.Skeptic)
	assert.Nil(t, state.Match)

	// One processing error per failed search, nothing else
	require.Len(t, state.ProcessingErrors, 2)
	for _, e := range state.ProcessingErrors {
		assert.Contains(t, e, "search failed")
	}

	phases := []pipeline.Phase{}
	for _, ev := range events {
		if ev.Type == pipeline.EventPhaseComplete {
			phases = append(phases, ev.Data.(pipeline.PhaseCompletePayload).Phase)
		}
	}
	assert.Equal(t, []pipeline.Phase{
		pipeline.PhaseConnecting,
		pipeline.PhaseDeepResearch,
		pipeline.PhaseGenerateResults,
	}, phases)

	last := events[len(events)-1]
	assert.Equal(t, pipeline.EventComplete, last.Type)
	assert.NotEmpty(t, state.FinalResponse)
}

func TestPipeline_LowQualityRetriesOnce(t *testing.T) {
	// Search works but synthesis grades the data low on the first pass
	client := &scriptedLLM{
		responses: []string{connectJSON, researchLowJSON, researchHighJSON, skepticJSON, matchJSON},
		chunks:    []string{"Solid fit after a closer look."},
	}
	deps := newTestDeps(client, &stubSearcher{results: someResults()})

	state, events := runPipeline(t, deps, "Backend Engineer at Acme Robotics")

	assert.Equal(t, pipeline.PhaseComplete, state.CurrentPhase)
	assert.Equal(t, 2, state.ResearchAttempts)
	assert.False(t, state.LowConfidence)
	require.NotNil(t, state.Research)
	assert.Equal(t, pipeline.QualityHigh, state.Research.DataQuality)

	researchCompletes := 0
	for _, ev := range events {
		if ev.Type == pipeline.EventPhaseComplete &&
			ev.Data.(pipeline.PhaseCompletePayload).Phase == pipeline.PhaseDeepResearch {
			researchCompletes++
		}
	}
	assert.Equal(t, 2, researchCompletes)
}

func TestPipeline_GapInjectionReachesNarrative(t *testing.T) {
	noGaps := `{"genuineStrengths":["Everything"],"genuineGaps":[],"transferableSkills":[],"riskAssessment":"low","reasoningTrace":"sycophantic"}`
	client := &scriptedLLM{
		responses: []string{connectJSON, researchHighJSON, noGaps, matchJSON},
		streamErr: fmt.Errorf("stream reset"),
	}
	deps := newTestDeps(client, &stubSearcher{results: someResults()})

	state, _ := runPipeline(t, deps, "Backend Engineer at Acme Robotics")

	assert.Equal(t, pipeline.PhaseComplete, state.CurrentPhase)
	require.NotNil(t, state.Skeptic)
	require.Len(t, state.Skeptic.GenuineGaps, MinGenuineGaps)

	// The deterministic fallback narrative must surface the injected gaps
	assert.Contains(t, state.FinalResponse, state.Skeptic.GenuineGaps[0])
}

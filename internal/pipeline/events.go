package pipeline

import (
	"context"
	"sync"
	"time"
)

// EventType names a wire event. The vocabulary is the transport contract:
// consumers rely on these exact names.
type EventType string

// Wire event types
const (
	EventStatus        EventType = "status"
	EventPhase         EventType = "phase"
	EventThought       EventType = "thought"
	EventPhaseComplete EventType = "phase_complete"
	EventResponse      EventType = "response"
	EventComplete      EventType = "complete"
	EventError         EventType = "error"
)

// ThoughtType classifies a thought event
type ThoughtType string

// Thought kinds
const (
	ThoughtToolCall    ThoughtType = "tool_call"
	ThoughtObservation ThoughtType = "observation"
	ThoughtReasoning   ThoughtType = "reasoning"
)

// Event is one ordered wire event: a type plus its typed payload
type Event struct {
	Type EventType
	Data any
}

// StatusPayload accompanies status events
type StatusPayload struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// PhasePayload accompanies phase start events
type PhasePayload struct {
	Phase   Phase  `json:"phase"`
	Message string `json:"message"`
}

// ThoughtPayload accompanies thought events. Step is a monotonic counter
// offering a redundant ordering tiebreaker for transports that might
// reorder delivery.
type ThoughtPayload struct {
	Step      int         `json:"step"`
	Type      ThoughtType `json:"type"`
	Phase     Phase       `json:"phase"`
	Content   string      `json:"content"`
	Tool      string      `json:"tool,omitempty"`
	ToolInput string      `json:"toolInput,omitempty"`
}

// PhaseCompletePayload accompanies phase_complete events
type PhaseCompletePayload struct {
	Phase   Phase  `json:"phase"`
	Summary string `json:"summary"`
}

// ResponsePayload carries one chunk of user-visible response text
type ResponsePayload struct {
	Chunk string `json:"chunk"`
}

// CompletePayload is always the last event on success
type CompletePayload struct {
	DurationMs      int64 `json:"durationMs"`
	PhasesCompleted int   `json:"phasesCompleted"`
}

// ErrorPayload terminates the stream on fatal failure
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Emitter serializes orchestrator-internal events into an ordered stream
// consumed by the transport layer. It is a bounded FIFO channel: events are
// delivered in exactly the order they were emitted. A consumer that stops
// reading (client disconnect) surfaces as a context error on Emit, which
// the orchestrator treats as a signal to abort remaining phase work.
type Emitter struct {
	ch              chan Event
	includeThoughts bool

	mu   sync.Mutex
	step int

	closeOnce sync.Once
}

// DefaultEventBuffer is the emitter channel capacity
const DefaultEventBuffer = 64

// NewEmitter creates an emitter. When includeThoughts is false, thought
// events are counted but not delivered.
func NewEmitter(buffer int, includeThoughts bool) *Emitter {
	if buffer <= 0 {
		buffer = DefaultEventBuffer
	}
	return &Emitter{
		ch:              make(chan Event, buffer),
		includeThoughts: includeThoughts,
	}
}

// Events returns the consumer side of the stream. The channel is closed
// when the run ends.
func (e *Emitter) Events() <-chan Event {
	return e.ch
}

// Emit queues one event, blocking until the consumer accepts it or ctx is
// done.
func (e *Emitter) Emit(ctx context.Context, ev Event) error {
	select {
	case e.ch <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close ends the stream. Safe to call more than once.
func (e *Emitter) Close() {
	e.closeOnce.Do(func() {
		close(e.ch)
	})
}

// Step returns the number of thought emissions so far.
func (e *Emitter) Step() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.step
}

func (e *Emitter) nextStep() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.step++
	return e.step
}

// Status emits a status event.
func (e *Emitter) Status(ctx context.Context, status, message string) error {
	return e.Emit(ctx, Event{Type: EventStatus, Data: StatusPayload{Status: status, Message: message}})
}

// PhaseStart emits a phase event with a human-readable status message.
func (e *Emitter) PhaseStart(ctx context.Context, phase Phase, message string) error {
	return e.Emit(ctx, Event{Type: EventPhase, Data: PhasePayload{Phase: phase, Message: message}})
}

// Thought emits a thought event stamped with the next step number. Thoughts
// are dropped (but still counted) when the caller opted out of them.
func (e *Emitter) Thought(ctx context.Context, phase Phase, kind ThoughtType, content, tool, toolInput string) error {
	payload := ThoughtPayload{
		Step:      e.nextStep(),
		Type:      kind,
		Phase:     phase,
		Content:   content,
		Tool:      tool,
		ToolInput: toolInput,
	}
	if !e.includeThoughts {
		return nil
	}
	return e.Emit(ctx, Event{Type: EventThought, Data: payload})
}

// PhaseComplete emits a phase_complete event with a short summary.
func (e *Emitter) PhaseComplete(ctx context.Context, phase Phase, summary string) error {
	return e.Emit(ctx, Event{Type: EventPhaseComplete, Data: PhaseCompletePayload{Phase: phase, Summary: summary}})
}

// ResponseChunk emits one chunk of user-visible response text.
func (e *Emitter) ResponseChunk(ctx context.Context, chunk string) error {
	return e.Emit(ctx, Event{Type: EventResponse, Data: ResponsePayload{Chunk: chunk}})
}

// Complete emits the terminal success event.
func (e *Emitter) Complete(ctx context.Context, duration time.Duration, phasesCompleted int) error {
	return e.Emit(ctx, Event{Type: EventComplete, Data: CompletePayload{
		DurationMs:      duration.Milliseconds(),
		PhasesCompleted: phasesCompleted,
	}})
}

// Error emits the terminal failure event.
func (e *Emitter) Error(ctx context.Context, code, message string) error {
	return e.Emit(ctx, Event{Type: EventError, Data: ErrorPayload{Code: code, Message: message}})
}

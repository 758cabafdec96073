package testutil

import (
	"context"
	"io"
	"sync"

	"github.com/peteragility/smartone/internal/core"
)

// FakeSource is a scripted core.EventSource. Each Stream call replays
// Events, then ends with RecvErr (io.EOF when nil).
type FakeSource struct {
	Events []core.StreamEvent

	// OpenErr fails Stream itself.
	OpenErr error

	// RecvErr is returned after all events instead of io.EOF.
	RecvErr error

	// PanicAfter panics inside Recv once this many events were delivered.
	// Negative disables it.
	PanicAfter int

	// Gate, when set, blocks every Recv until a value or close.
	Gate chan struct{}

	mu      sync.Mutex
	queries []string
	closed  int
}

// NewFakeSource returns a source that replays events and ends cleanly.
func NewFakeSource(events ...core.StreamEvent) *FakeSource {
	return &FakeSource{Events: events, PanicAfter: -1}
}

// Stream implements core.EventSource.
func (f *FakeSource) Stream(ctx context.Context, query string) (core.EventStream, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()

	if f.OpenErr != nil {
		return nil, f.OpenErr
	}
	return &fakeStream{src: f, ctx: ctx}, nil
}

// Queries returns the queries seen so far.
func (f *FakeSource) Queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

// Closed returns how many streams were closed.
func (f *FakeSource) Closed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

type fakeStream struct {
	src *FakeSource
	ctx context.Context
	pos int
}

func (s *fakeStream) Recv() (core.StreamEvent, error) {
	if s.src.Gate != nil {
		select {
		case <-s.src.Gate:
		case <-s.ctx.Done():
			return core.StreamEvent{}, s.ctx.Err()
		}
	}
	if s.src.PanicAfter >= 0 && s.pos >= s.src.PanicAfter {
		panic("fake source exploded")
	}
	if s.pos >= len(s.src.Events) {
		if s.src.RecvErr != nil {
			return core.StreamEvent{}, s.src.RecvErr
		}
		return core.StreamEvent{}, io.EOF
	}
	ev := s.src.Events[s.pos]
	s.pos++
	return ev, nil
}

func (s *fakeStream) Close() error {
	s.src.mu.Lock()
	s.src.closed++
	s.src.mu.Unlock()
	return nil
}

// ToolEvent is a stream item announcing a tool call.
func ToolEvent(name string) core.StreamEvent {
	return core.StreamEvent{CurrentToolUse: &core.ToolUse{Name: name, ToolUseID: "tool-" + name}}
}

// DataEvent is a stream item carrying tool output.
func DataEvent(data any) core.StreamEvent {
	return core.StreamEvent{Data: data}
}

// ReasoningEvent is a stream item carrying a reasoning fragment.
func ReasoningEvent(text string) core.StreamEvent {
	return core.StreamEvent{ReasoningText: text}
}

// FinalEvent is a stream item carrying the assistant's final message.
func FinalEvent(text string) core.StreamEvent {
	return core.StreamEvent{Message: &core.AgentMessage{
		Role:    core.RoleAssistant,
		Content: []any{map[string]any{"text": text}},
	}}
}

package stream

import "github.com/peteragility/smartone/internal/core"

// Accumulator is the running state of one in-flight answer. It belongs to
// the goroutine that drains the Handoff and is not safe for concurrent use.
type Accumulator struct {
	events []Event
	final  *core.AgentMessage
}

// NewAccumulator creates an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Apply folds one event in and reports whether it changed the state.
// A tool event repeating the immediately preceding tool event's name is
// dropped; streaming agents re-announce the same call. A final event
// replaces any earlier one.
func (a *Accumulator) Apply(ev Event) bool {
	switch ev.Kind {
	case KindFinal:
		a.final = ev.Message
		return true
	case KindTool:
		if n := len(a.events); n > 0 {
			last := a.events[n-1]
			if last.Kind == KindTool && last.Text == ev.Text {
				return false
			}
		}
	case KindReasoning, KindOutput:
	default:
		return false
	}
	a.events = append(a.events, ev)
	return true
}

// Events returns the recorded events in order. The slice must not be modified.
func (a *Accumulator) Events() []Event {
	return a.events
}

// Final returns the final message, or nil.
func (a *Accumulator) Final() *core.AgentMessage {
	return a.final
}

// Len returns the number of recorded events.
func (a *Accumulator) Len() int {
	return len(a.events)
}

// Empty reports whether nothing has been recorded yet.
func (a *Accumulator) Empty() bool {
	return len(a.events) == 0 && a.final == nil
}

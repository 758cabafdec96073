package stream

import (
	"strings"

	"github.com/peteragility/smartone/internal/core"
)

// Kind tags an Event.
type Kind string

const (
	KindReasoning Kind = "reasoning"
	KindTool      Kind = "tool"
	KindOutput    Kind = "output"
	KindFinal     Kind = "final"
)

// Event is one typed unit of streamed agent output. Events are immutable
// once produced; ownership moves from the Worker to the Session through the
// Handoff.
type Event struct {
	Kind Kind

	// Text is the reasoning fragment or the tool name.
	Text string

	// Data is the raw output payload for KindOutput.
	Data any

	// Message is the finalized answer for KindFinal.
	Message *core.AgentMessage
}

// Reasoning creates a reasoning event.
func Reasoning(text string) Event { return Event{Kind: KindReasoning, Text: text} }

// Tool creates a tool-invocation marker.
func Tool(name string) Event { return Event{Kind: KindTool, Text: name} }

// Output creates an output chunk.
func Output(data any) Event { return Event{Kind: KindOutput, Data: data} }

// Final creates a final-message event from plain text.
func Final(text string) Event {
	return Event{Kind: KindFinal, Message: &core.AgentMessage{Role: core.RoleAssistant, Content: text}}
}

// FromAgent maps one agent stream item to events, in the order reasoning,
// tool, output, final. Fields that are missing or malformed are skipped
// individually, so an item may yield no events at all.
func FromAgent(se core.StreamEvent) []Event {
	var out []Event
	if se.ReasoningText != "" {
		out = append(out, Reasoning(se.ReasoningText))
	}
	if se.CurrentToolUse != nil && se.CurrentToolUse.Name != "" {
		out = append(out, Tool(se.CurrentToolUse.Name))
	}
	if !isEmptyData(se.Data) {
		out = append(out, Output(se.Data))
	}
	if se.Message.IsAssistant() && strings.TrimSpace(se.Message.Text()) != "" {
		out = append(out, Event{Kind: KindFinal, Message: se.Message})
	}
	return out
}

func isEmptyData(v any) bool {
	switch d := v.(type) {
	case nil:
		return true
	case string:
		return d == ""
	default:
		return false
	}
}

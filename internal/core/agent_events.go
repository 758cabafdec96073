package core

import (
	"encoding/json"
	"fmt"
	"strings"
)

// =============================================================================
// Agent Streaming Events (what an agent yields while it works)
// =============================================================================

// RoleAssistant is the message role that marks the agent's finalized answer.
const RoleAssistant = "assistant"

// StreamEvent is one item yielded by an agent's streaming call.
// Every field is optional; a single item may carry several of them.
type StreamEvent struct {
	// ReasoningText is an intermediate reasoning fragment.
	ReasoningText string `json:"reasoningText,omitempty"`

	// CurrentToolUse describes the tool the agent is invoking right now.
	// Streaming agents may repeat it for the same call.
	CurrentToolUse *ToolUse `json:"current_tool_use,omitempty"`

	// Data is a raw output chunk. Usually a string, but tools may return
	// structured values.
	Data any `json:"data,omitempty"`

	// Message is a finalized message keyed by role.
	Message *AgentMessage `json:"message,omitempty"`
}

// ToolUse identifies a tool invocation.
type ToolUse struct {
	Name      string `json:"name"`
	ToolUseID string `json:"toolUseId,omitempty"`
	Input     any    `json:"input,omitempty"`
}

// AgentMessage is a finalized message from the agent.
// Content is either a plain string or a list of content blocks such as
// [{"text": "..."}].
type AgentMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// IsAssistant reports whether the message is the agent's own answer.
func (m *AgentMessage) IsAssistant() bool {
	return m != nil && m.Role == RoleAssistant
}

// Text flattens the message content into a single string.
func (m *AgentMessage) Text() string {
	if m == nil {
		return ""
	}
	return contentText(m.Content)
}

func contentText(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	case []any:
		parts := make([]string, 0, len(c))
		for _, item := range c {
			if s := contentText(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "\n")
	case []string:
		return strings.Join(c, "\n")
	case map[string]any:
		if text, ok := c["text"].(string); ok {
			return text
		}
		return Stringify(c)
	default:
		return Stringify(c)
	}
}

// Stringify converts an arbitrary payload into display text.
// Scalars use fmt; composite values are rendered as compact JSON when possible.
func Stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case json.Number:
		return val.String()
	case fmt.Stringer:
		return val.String()
	case bool, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return fmt.Sprint(val)
	}
	if b, err := json.Marshal(v); err == nil {
		return string(b)
	}
	return fmt.Sprint(v)
}

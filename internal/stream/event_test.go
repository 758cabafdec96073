package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peteragility/smartone/internal/core"
)

func TestFromAgent_Order(t *testing.T) {
	se := core.StreamEvent{
		ReasoningText:  "thinking",
		CurrentToolUse: &core.ToolUse{Name: "calculator"},
		Data:           "4",
		Message:        &core.AgentMessage{Role: core.RoleAssistant, Content: "done"},
	}

	evs := FromAgent(se)
	require.Len(t, evs, 4)
	assert.Equal(t, []Kind{KindReasoning, KindTool, KindOutput, KindFinal},
		[]Kind{evs[0].Kind, evs[1].Kind, evs[2].Kind, evs[3].Kind})
	assert.Equal(t, "calculator", evs[1].Text)
	assert.Equal(t, "done", evs[3].Message.Text())
}

func TestFromAgent_SkipsMalformed(t *testing.T) {
	tests := []struct {
		name string
		in   core.StreamEvent
		want int
	}{
		{"empty", core.StreamEvent{}, 0},
		{"tool without name", core.StreamEvent{CurrentToolUse: &core.ToolUse{ToolUseID: "x"}}, 0},
		{"empty data", core.StreamEvent{Data: ""}, 0},
		{"zero is data", core.StreamEvent{Data: 0}, 1},
		{"user message", core.StreamEvent{Message: &core.AgentMessage{Role: "user", Content: "hi"}}, 0},
		{"structured data", core.StreamEvent{Data: map[string]any{"k": 1}}, 1},
		{"blank assistant message", core.StreamEvent{Message: &core.AgentMessage{Role: core.RoleAssistant, Content: "  "}}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, FromAgent(tt.in), tt.want)
		})
	}
}

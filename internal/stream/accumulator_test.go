package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccumulator_CollapsesRepeatedTool(t *testing.T) {
	acc := NewAccumulator()
	assert.True(t, acc.Apply(Tool("x")))
	assert.False(t, acc.Apply(Tool("x")))
	assert.True(t, acc.Apply(Tool("y")))
	assert.True(t, acc.Apply(Tool("x")), "non-consecutive repeat is kept")

	require.Equal(t, 3, acc.Len())
}

func TestAccumulator_RepeatAfterOutputIsKept(t *testing.T) {
	acc := NewAccumulator()
	acc.Apply(Tool("x"))
	acc.Apply(Output("1"))
	acc.Apply(Tool("x"))
	assert.Equal(t, 3, acc.Len())
}

func TestAccumulator_LastFinalWins(t *testing.T) {
	acc := NewAccumulator()
	assert.True(t, acc.Empty())

	acc.Apply(Final("first"))
	acc.Apply(Final("second"))

	require.NotNil(t, acc.Final())
	assert.Equal(t, "second", acc.Final().Text())
	assert.Equal(t, 0, acc.Len(), "final is not recorded as an event")
	assert.False(t, acc.Empty())
}

func TestAccumulator_IgnoresUnknownKind(t *testing.T) {
	acc := NewAccumulator()
	assert.False(t, acc.Apply(Event{Kind: "bogus"}))
	assert.True(t, acc.Empty())
}

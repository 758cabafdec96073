package stream

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandoff_FIFOAndSingleSentinel(t *testing.T) {
	h := NewHandoff()
	require.True(t, h.Put(Tool("a")))
	require.True(t, h.Put(Output("1")))

	b := h.TryDrain()
	require.Len(t, b.Events, 2)
	assert.Equal(t, "a", b.Events[0].Text)
	assert.Equal(t, "1", b.Events[1].Data)
	assert.False(t, b.Done)

	h.Put(Output("2"))
	assert.True(t, h.Close(nil))
	assert.False(t, h.Close(errors.New("late")), "second close must be ignored")
	assert.False(t, h.Put(Output("3")), "put after close must be rejected")

	b = h.TryDrain()
	require.Len(t, b.Events, 1)
	assert.True(t, b.Done)
	assert.NoError(t, b.Err)

	b = h.TryDrain()
	assert.Empty(t, b.Events)
	assert.False(t, b.Done, "sentinel must be delivered once")
}

func TestHandoff_CarriesError(t *testing.T) {
	h := NewHandoff()
	boom := errors.New("boom")
	h.Close(boom)

	b := h.TryDrain()
	assert.True(t, b.Done)
	assert.ErrorIs(t, b.Err, boom)
	assert.True(t, h.Closed())
}

func TestHandoff_ConcurrentProducer(t *testing.T) {
	h := NewHandoff()
	const n = 1000

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			h.Put(Output(i))
		}
		h.Close(nil)
	}()

	var got []Event
	done := false
	for !done {
		b := h.TryDrain()
		got = append(got, b.Events...)
		done = b.Done
	}
	wg.Wait()

	require.Len(t, got, n)
	for i, ev := range got {
		assert.Equal(t, i, ev.Data)
	}
}

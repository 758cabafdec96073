package stream

import "sync"

// Batch is the result of one non-blocking drain.
type Batch struct {
	// Events in FIFO order.
	Events []Event

	// Done is true on exactly one drain per Handoff: the one that takes
	// the completion sentinel.
	Done bool

	// Err is the producer's failure, if any. Only set when Done is true.
	Err error
}

// Handoff is a single-producer/single-consumer queue of Events terminated
// by one completion sentinel. Put never blocks beyond a short critical
// section; TryDrain never blocks at all.
type Handoff struct {
	mu     sync.Mutex
	items  []Event
	closed bool
	err    error
	taken  bool
}

// NewHandoff creates an empty, open Handoff.
func NewHandoff() *Handoff {
	return &Handoff{}
}

// Put enqueues an event. It returns false once the Handoff is closed.
func (h *Handoff) Put(ev Event) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	h.items = append(h.items, ev)
	return true
}

// Close enqueues the completion sentinel, carrying err when the producer
// failed. Only the first call has any effect; it returns false afterwards.
func (h *Handoff) Close(err error) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	h.closed = true
	h.err = err
	return true
}

// TryDrain returns everything currently queued without waiting.
func (h *Handoff) TryDrain() Batch {
	h.mu.Lock()
	defer h.mu.Unlock()

	b := Batch{Events: h.items}
	h.items = nil

	if h.closed && !h.taken {
		h.taken = true
		b.Done = true
		b.Err = h.err
	}
	return b
}

// Closed reports whether the sentinel has been enqueued.
func (h *Handoff) Closed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

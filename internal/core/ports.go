package core

import "context"

// EventSource is an agent that answers a query as a stream of events.
// Implementations are constructed once and shared; Stream may be called
// for every query.
type EventSource interface {
	// Stream starts answering query. The returned stream is lazy, finite
	// and cannot be restarted.
	Stream(ctx context.Context, query string) (EventStream, error)
}

// EventStream yields agent events in emission order.
type EventStream interface {
	// Recv returns the next event, or io.EOF once the stream is exhausted.
	// Any other error means the stream terminated abnormally.
	Recv() (StreamEvent, error)

	// Close releases resources held by the stream. Safe to call more than once.
	Close() error
}

// EventSourceFunc adapts a function to EventSource.
type EventSourceFunc func(ctx context.Context, query string) (EventStream, error)

// Stream calls f(ctx, query).
func (f EventSourceFunc) Stream(ctx context.Context, query string) (EventStream, error) {
	return f(ctx, query)
}

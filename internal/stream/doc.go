// Package stream turns an agent's streaming answer into an incrementally
// rendered transcript.
//
// A Worker drives one agent call on its own goroutine and forwards each
// agent item as typed Events into a Handoff. The Session, owned by the
// interactive surface, drains the Handoff without blocking on every Tick,
// folds the events into an Accumulator and re-renders it with a Formatter.
// When the Worker's sentinel arrives the transcript is committed to History.
//
//	s := stream.NewSession(ctx, source)
//	_ = s.Submit("What is 2+2?")
//	for s.Processing() {
//	    res := s.Tick()
//	    render(res.Blocks)
//	    time.Sleep(100 * time.Millisecond)
//	}
//
// Only the Handoff is shared between goroutines; everything else belongs to
// the goroutine that calls Submit and Tick.
package stream

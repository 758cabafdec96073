package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime/debug"

	"github.com/peteragility/smartone/internal/core"
	"github.com/peteragility/smartone/internal/logging"
)

// Worker owns one agent invocation. Its only side effect is writing to the
// Handoff it was started with, which always ends with exactly one sentinel.
type Worker struct {
	queryID string
	done    chan struct{}
	events  int
	err     error
	onPanic PanicHook
}

// PanicHook observes a panic recovered from an agent source. stack is the
// trace of the panicking goroutine.
type PanicHook func(queryID, query string, value any, stack []byte)

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// OnPanic installs a hook that runs before a source panic is converted
// into an AGENT_PANICKED failure.
func OnPanic(hook PanicHook) WorkerOption {
	return func(w *Worker) { w.onPanic = hook }
}

// StartWorker runs source.Stream(query) on a new goroutine and forwards
// every item into h. The sentinel is enqueued on every exit path,
// including a failed Stream call, a Recv error and a panic in the source.
func StartWorker(ctx context.Context, source core.EventSource, queryID, query string, h *Handoff, logger *logging.Logger, opts ...WorkerOption) *Worker {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.WithQuery(queryID)
	w := &Worker{
		queryID: queryID,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	go func() {
		defer close(w.done)

		err := w.consume(ctx, source, query, h)
		w.err = err
		h.Close(err)

		if err != nil {
			logger.Warn("agent stream ended abnormally",
				"events", w.events,
				"error", err,
			)
			return
		}
		logger.Debug("agent stream completed", "events", w.events)
	}()

	return w
}

func (w *Worker) consume(ctx context.Context, source core.EventSource, query string, h *Handoff) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if w.onPanic != nil {
				w.onPanic(w.queryID, query, r, debug.Stack())
			}
			err = core.ErrExecution(core.CodeAgentPanicked, fmt.Sprintf("agent source panicked: %v", r))
		}
	}()

	es, err := source.Stream(ctx, query)
	if err != nil {
		return streamFailure("starting agent stream", err)
	}
	defer es.Close()

	for {
		item, err := es.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return streamFailure("receiving agent event", err)
		}
		for _, ev := range FromAgent(item) {
			if h.Put(ev) {
				w.events++
			}
		}
	}
}

func streamFailure(msg string, cause error) error {
	var domErr *core.DomainError
	if errors.As(cause, &domErr) {
		return cause
	}
	return core.ErrExecution(core.CodeAgentStreamFailed, msg).WithCause(cause)
}

// QueryID returns the query this worker serves.
func (w *Worker) QueryID() string { return w.queryID }

// Done is closed after the sentinel has been enqueued.
func (w *Worker) Done() <-chan struct{} { return w.done }

// Err returns the failure that ended the stream. Valid after Done is closed.
func (w *Worker) Err() error {
	select {
	case <-w.done:
		return w.err
	default:
		return nil
	}
}

package stream

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/peteragility/smartone/internal/core"
	"github.com/peteragility/smartone/internal/logging"
)

// State is the reconciliation state of a Session.
type State string

const (
	StateIdle      State = "idle"
	StateSubmitted State = "submitted"
	StateDraining  State = "draining"
)

// TickResult describes what one Tick observed.
type TickResult struct {
	// Blocks is the transcript of the in-flight (or just finished) answer.
	Blocks Transcript

	// Received is the number of events drained during this tick.
	Received int

	// Done is true on the tick that consumed the completion sentinel.
	Done bool

	// Err is the agent failure reported with the sentinel, if any.
	Err error
}

// Session runs one query at a time against an event source. Submit and
// Tick must be called from the same goroutine; the worker never touches
// session state other than through the Handoff.
type Session struct {
	ctx       context.Context
	source    core.EventSource
	formatter Formatter
	logger    *logging.Logger
	newID     func() string
	onPanic   PanicHook

	state      State
	processing bool
	pending    string
	queryID    string
	acc        *Accumulator
	handoff    *Handoff
	worker     *Worker
	history    *History
	lastErr    error
}

// Option configures a Session.
type Option func(*Session)

// WithFormatter sets the transcript formatter.
func WithFormatter(f Formatter) Option {
	return func(s *Session) { s.formatter = f }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithHistoryLimit bounds the number of retained history messages.
func WithHistoryLimit(n int) Option {
	return func(s *Session) { s.history = NewHistory(n) }
}

// WithIDGenerator overrides query ID generation.
func WithIDGenerator(fn func() string) Option {
	return func(s *Session) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithPanicHook installs a hook for panics recovered from the source.
func WithPanicHook(h PanicHook) Option {
	return func(s *Session) { s.onPanic = h }
}

// NewSession creates an idle session. ctx bounds every worker the session
// starts; it is the process lifetime, not a per-query cancel.
func NewSession(ctx context.Context, source core.EventSource, opts ...Option) *Session {
	s := &Session{
		ctx:       ctx,
		source:    source,
		formatter: DefaultFormatter(),
		logger:    logging.NewNop(),
		newID:     uuid.NewString,
		state:     StateIdle,
		acc:       NewAccumulator(),
		history:   NewHistory(0),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit starts a query. It fails while another query is processing.
func (s *Session) Submit(query string) error {
	if s.processing {
		return core.ErrState(core.CodeSessionBusy, "a query is already being processed")
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return core.ErrValidation(core.CodeEmptyQuery, "query is empty")
	}
	if utf8.RuneCountInString(query) > core.MaxQueryLength {
		return core.ErrValidation(core.CodeQueryTooLong, "query is too long").
			WithDetail("max_length", core.MaxQueryLength)
	}

	s.queryID = s.newID()
	s.pending = query
	s.lastErr = nil
	s.acc = NewAccumulator()
	s.handoff = NewHandoff()
	s.history.AddUser(s.queryID, query)
	s.processing = true
	s.state = StateSubmitted

	s.logger.WithQuery(s.queryID).Info("query submitted", "query", query)
	var opts []WorkerOption
	if s.onPanic != nil {
		opts = append(opts, OnPanic(s.onPanic))
	}
	s.worker = StartWorker(s.ctx, s.source, s.queryID, query, s.handoff, s.logger, opts...)
	return nil
}

// Tick drains whatever the worker has produced so far without blocking and
// returns the current transcript. Calling Tick while idle is a no-op that
// returns the last transcript.
func (s *Session) Tick() TickResult {
	if !s.processing {
		return TickResult{Blocks: s.formatter.Format(s.acc)}
	}
	s.state = StateDraining

	batch := s.handoff.TryDrain()
	for _, ev := range batch.Events {
		s.acc.Apply(ev)
	}

	res := TickResult{
		Blocks:   s.formatter.Format(s.acc),
		Received: len(batch.Events),
	}
	if !batch.Done {
		return res
	}

	res.Done = true
	res.Err = batch.Err
	s.lastErr = batch.Err
	s.history.CommitAssistant(s.queryID, res.Blocks)
	s.processing = false
	s.pending = ""
	s.state = StateIdle

	logger := s.logger.WithQuery(s.queryID)
	if batch.Err != nil {
		logger.Warn("query finished with error", "error", batch.Err, "events", s.acc.Len())
	} else {
		logger.Info("query finished", "events", s.acc.Len(), "blocks", len(res.Blocks))
	}
	return res
}

// Wait blocks until the current worker has enqueued its sentinel or ctx
// is done. Interactive callers use Tick instead.
func (s *Session) Wait(ctx context.Context) error {
	if s.worker == nil || !s.processing {
		return nil
	}
	select {
	case <-s.worker.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Processing reports whether a query is in flight or not yet fully drained.
func (s *Session) Processing() bool { return s.processing }

// State returns the reconciliation state.
func (s *Session) State() State { return s.state }

// PendingQuery returns the in-flight query, or "".
func (s *Session) PendingQuery() string { return s.pending }

// QueryID returns the ID of the most recent query.
func (s *Session) QueryID() string { return s.queryID }

// History returns the conversation history.
func (s *Session) History() *History { return s.history }

// Transcript returns the current transcript of the latest query.
func (s *Session) Transcript() Transcript { return s.formatter.Format(s.acc) }

// Formatter returns the session's formatter.
func (s *Session) Formatter() Formatter { return s.formatter }

// LastError returns the failure of the most recent completed query.
func (s *Session) LastError() error { return s.lastErr }

// Reset clears history and the last transcript. It fails while processing.
func (s *Session) Reset() error {
	if s.processing {
		return core.ErrState(core.CodeSessionBusy, "cannot clear while a query is being processed")
	}
	s.history.Clear()
	s.acc = NewAccumulator()
	s.lastErr = nil
	return nil
}

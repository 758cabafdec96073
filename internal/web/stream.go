package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/peteragility/smartone/internal/agent"
	"github.com/peteragility/smartone/internal/core"
)

type recvResult struct {
	event core.StreamEvent
	err   error
}

// handleStream runs one query against the source and relays every item as
// an "agent" event, ending with "done" or "error".
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	var req agent.StreamRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		respondError(w, http.StatusUnprocessableEntity, "query is required")
		return
	}
	if len([]rune(query)) > core.MaxQueryLength {
		respondError(w, http.StatusUnprocessableEntity, "query is too long")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	ctx := r.Context()
	es, err := s.source.Stream(ctx, query)
	if err != nil {
		s.logger.Warn("opening agent stream failed", "error", err)
		respondError(w, statusForError(err), err.Error())
		return
	}
	defer es.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	onPanic := func(value any, stack []byte) {
		if s.config.OnPanic != nil {
			s.config.OnPanic(middleware.GetReqID(ctx), query, value, stack)
		}
	}

	items := make(chan recvResult)
	go func() {
		defer close(items)
		for {
			res := recvSafe(es, onPanic)
			select {
			case items <- res:
			case <-ctx.Done():
				return
			}
			if res.err != nil {
				return
			}
		}
	}()

	heartbeat := time.NewTicker(s.config.HeartbeatInterval)
	defer heartbeat.Stop()

	sent := 0
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("stream client disconnected", "events", sent)
			return
		case <-heartbeat.C:
			sendComment(w, flusher, "heartbeat")
		case res, ok := <-items:
			if !ok {
				return
			}
			switch {
			case res.err == nil:
				sendEvent(w, flusher, agent.EventAgent, res.event)
				sent++
			case errors.Is(res.err, io.EOF):
				sendEvent(w, flusher, agent.EventDone, map[string]int{"events": sent})
				return
			default:
				s.logger.Warn("agent stream failed", "error", res.err, "events", sent)
				sendEvent(w, flusher, agent.EventError, agent.ErrorPayload{
					Code:    core.GetCode(res.err),
					Message: res.err.Error(),
				})
				return
			}
		}
	}
}

func recvSafe(es core.EventStream, onPanic func(value any, stack []byte)) (res recvResult) {
	defer func() {
		if r := recover(); r != nil {
			onPanic(r, debug.Stack())
			res = recvResult{err: core.ErrExecution(core.CodeAgentPanicked, fmt.Sprintf("agent source panicked: %v", r))}
		}
	}()
	ev, err := es.Recv()
	return recvResult{event: ev, err: err}
}

func sendEvent(w http.ResponseWriter, flusher http.Flusher, name string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, payload)
	flusher.Flush()
}

func sendComment(w http.ResponseWriter, flusher http.Flusher, comment string) {
	fmt.Fprintf(w, ": %s\n\n", comment)
	flusher.Flush()
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func statusForError(err error) int {
	switch core.GetCategory(err) {
	case core.ErrCatValidation:
		return http.StatusUnprocessableEntity
	case core.ErrCatNotFound:
		return http.StatusNotFound
	case core.ErrCatState:
		return http.StatusConflict
	case core.ErrCatNetwork:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

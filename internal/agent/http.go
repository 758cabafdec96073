package agent

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/peteragility/smartone/internal/core"
	"github.com/peteragility/smartone/internal/logging"
)

// StreamPath is the SSE endpoint served by `smartone serve`.
const StreamPath = "/api/v1/stream"

// SSE event names used on the wire.
const (
	EventAgent = "agent"
	EventError = "error"
	EventDone  = "done"
)

// StreamRequest is the body posted to StreamPath.
type StreamRequest struct {
	Query string `json:"query"`
}

// ErrorPayload is the data of an "error" event.
type ErrorPayload struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// HTTPSource is a core.EventSource backed by a remote agent streaming
// server-sent events.
type HTTPSource struct {
	baseURL string
	client  *http.Client
	logger  *logging.Logger
}

// NewHTTPSource creates a client for the agent at baseURL. timeout bounds
// the wait for response headers; the stream itself may run longer.
func NewHTTPSource(baseURL string, timeout time.Duration, logger *logging.Logger) *HTTPSource {
	if logger == nil {
		logger = logging.NewNop()
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = timeout
	return &HTTPSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Transport: transport},
		logger:  logger.WithSource("http"),
	}
}

// Stream implements core.EventSource.
func (s *HTTPSource) Stream(ctx context.Context, query string) (core.EventStream, error) {
	body, err := json.Marshal(StreamRequest{Query: query})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+StreamPath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, core.ErrNetwork(core.CodeAgentStreamFailed, "agent request failed").WithCause(err)
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, core.ErrNetwork(core.CodeUpstreamStatus, fmt.Sprintf("agent returned %s", resp.Status)).
			WithDetail("status", resp.StatusCode).
			WithDetail("body", strings.TrimSpace(string(msg)))
	}

	s.logger.Debug("agent stream opened", "url", req.URL.String())
	return &sseStream{body: resp.Body, r: bufio.NewReader(resp.Body)}, nil
}

type sseStream struct {
	body io.ReadCloser
	r    *bufio.Reader
	done bool
}

// Recv reads frames until one carries an agent event, an error or done.
func (s *sseStream) Recv() (core.StreamEvent, error) {
	for {
		if s.done {
			return core.StreamEvent{}, io.EOF
		}
		name, data, err := s.next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return core.StreamEvent{}, core.ErrNetwork(core.CodeAgentStreamFailed, "agent stream ended without done event").
					WithCause(io.ErrUnexpectedEOF)
			}
			return core.StreamEvent{}, err
		}

		switch name {
		case EventAgent, "":
			var ev core.StreamEvent
			dec := json.NewDecoder(strings.NewReader(data))
			dec.UseNumber()
			if err := dec.Decode(&ev); err != nil {
				// malformed items are skipped, not fatal
				continue
			}
			return ev, nil
		case EventError:
			s.done = true
			var p ErrorPayload
			if err := json.Unmarshal([]byte(data), &p); err != nil || p.Message == "" {
				p.Message = data
			}
			return core.StreamEvent{}, core.ErrExecution(core.CodeAgentStreamFailed, p.Message).
				WithDetail("remote_code", p.Code)
		case EventDone:
			s.done = true
			return core.StreamEvent{}, io.EOF
		}
	}
}

// next returns the next dispatched SSE frame. Comment lines (heartbeats)
// and unknown fields are ignored.
func (s *sseStream) next() (name, data string, err error) {
	var lines []string
	for {
		line, err := s.r.ReadString('\n')
		if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
			return "", "", err
		}
		line = strings.TrimRight(line, "\r\n")

		switch {
		case line == "":
			if name != "" || len(lines) > 0 {
				return name, strings.Join(lines, "\n"), nil
			}
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event:"):
			name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			lines = append(lines, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}

		if err != nil {
			return "", "", err
		}
	}
}

func (s *sseStream) Close() error {
	s.done = true
	return s.body.Close()
}

package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peteragility/smartone/internal/core"
)

func sseServer(t *testing.T, frames string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != StreamPath || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		var req StreamRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Query == "" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, frames)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPSource_ParsesFrames(t *testing.T) {
	frames := ": heartbeat\n\n" +
		"event: agent\ndata: {\"current_tool_use\":{\"name\":\"calculator\"}}\n\n" +
		"event: agent\ndata: not json\n\n" +
		"event: agent\r\ndata: {\"data\":\"4\"}\r\n\r\n" +
		"event: agent\ndata: {\"message\":{\"role\":\"assistant\",\"content\":[{\"text\":\"four\"}]}}\n\n" +
		"event: done\ndata: {}\n\n"
	srv := sseServer(t, frames)

	src := NewHTTPSource(srv.URL+"/", time.Second, nil)
	es, err := src.Stream(context.Background(), "2+2")
	require.NoError(t, err)

	events, err := collect(t, es)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "calculator", events[0].CurrentToolUse.Name)
	assert.Equal(t, "4", events[1].Data)
	assert.Equal(t, "four", events[2].Message.Text())
}

func TestHTTPSource_KeepsIntegerData(t *testing.T) {
	srv := sseServer(t, "event: agent\ndata: {\"data\":100000000}\n\n"+
		"event: agent\ndata: {\"data\":{\"tokens\":1234567890}}\n\n"+
		"event: done\ndata: {}\n\n")

	es, err := NewHTTPSource(srv.URL, time.Second, nil).Stream(context.Background(), "count")
	require.NoError(t, err)

	events, err := collect(t, es)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "100000000", core.Stringify(events[0].Data))
	assert.Equal(t, `{"tokens":1234567890}`, core.Stringify(events[1].Data))
}

func TestHTTPSource_ErrorEvent(t *testing.T) {
	srv := sseServer(t, "event: agent\ndata: {\"data\":\"x\"}\n\n"+
		"event: error\ndata: {\"code\":\"AGENT_PANICKED\",\"message\":\"tool crashed\"}\n\n")

	es, err := NewHTTPSource(srv.URL, time.Second, nil).Stream(context.Background(), "q")
	require.NoError(t, err)

	events, err := collect(t, es)
	require.Error(t, err)
	assert.Len(t, events, 1)
	assert.Contains(t, err.Error(), "tool crashed")
	assert.Equal(t, core.CodeAgentStreamFailed, core.GetCode(err))
}

func TestHTTPSource_MissingDone(t *testing.T) {
	srv := sseServer(t, "event: agent\ndata: {\"data\":\"x\"}\n\n")

	es, err := NewHTTPSource(srv.URL, time.Second, nil).Stream(context.Background(), "q")
	require.NoError(t, err)

	_, err = collect(t, es)
	require.Error(t, err)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestHTTPSource_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewHTTPSource(srv.URL, time.Second, nil).Stream(context.Background(), "q")
	require.Error(t, err)
	assert.Equal(t, core.CodeUpstreamStatus, core.GetCode(err))
	assert.True(t, core.IsRetryable(err))
}

func TestHTTPSource_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewHTTPSource(url, time.Second, nil).Stream(context.Background(), "q")
	require.Error(t, err)
	assert.True(t, core.IsCategory(err, core.ErrCatNetwork), fmt.Sprint(err))
}

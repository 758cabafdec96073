// Package agent provides the event sources the chat session can run
// against: a scripted agent for demos and tests, and a client for an agent
// served over HTTP.
package agent

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"text/template"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"

	"github.com/peteragility/smartone/internal/core"
	"github.com/peteragility/smartone/internal/fsutil"
	"github.com/peteragility/smartone/internal/logging"
)

//go:embed default_script.yaml
var defaultScript []byte

// Script is a set of canned agent runs.
type Script struct {
	Scenarios []Scenario `yaml:"scenarios"`
}

// Scenario is one canned agent run selected by query keywords.
type Scenario struct {
	Name  string   `yaml:"name"`
	Match []string `yaml:"match"`
	Steps []Step   `yaml:"steps"`
}

// Step produces one stream item. Exactly one of the payload fields is set.
type Step struct {
	Reasoning string         `yaml:"reasoning,omitempty"`
	Tool      string         `yaml:"tool,omitempty"`
	Input     map[string]any `yaml:"input,omitempty"`
	Data      any            `yaml:"data,omitempty"`
	Message   string         `yaml:"message,omitempty"`
	Error     string         `yaml:"error,omitempty"`
}

func (s Step) kinds() int {
	n := 0
	for _, set := range []bool{s.Reasoning != "", s.Tool != "", s.Data != nil, s.Message != "", s.Error != ""} {
		if set {
			n++
		}
	}
	return n
}

var templateFuncs = template.FuncMap{
	"now": func(tz string) (string, error) {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return "", err
		}
		return time.Now().In(loc).Format("2006-01-02 15:04:05 MST"), nil
	},
	"words": func(s string) int { return len(strings.Fields(s)) },
	"upper": strings.ToUpper,
}

// DefaultScript returns the embedded scenarios.
func DefaultScript() *Script {
	s, err := ParseScript(defaultScript)
	if err != nil {
		panic(fmt.Sprintf("embedded script: %v", err))
	}
	return s
}

// LoadScript reads a script file. An empty path yields the embedded script.
func LoadScript(path string) (*Script, error) {
	if path == "" {
		return DefaultScript(), nil
	}
	data, err := fsutil.ReadFileScoped(path)
	if err != nil {
		return nil, fmt.Errorf("reading script: %w", err)
	}
	s, err := ParseScript(data)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ParseScript decodes and validates a YAML script.
func ParseScript(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, core.ErrValidation(core.CodeScriptInvalid, "invalid script YAML").WithCause(err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Script) validate() error {
	if len(s.Scenarios) == 0 {
		return core.ErrValidation(core.CodeScriptInvalid, "script has no scenarios")
	}
	for i, sc := range s.Scenarios {
		name := sc.Name
		if name == "" {
			name = fmt.Sprintf("#%d", i)
		}
		if len(sc.Steps) == 0 {
			return core.ErrValidation(core.CodeScriptInvalid, "scenario has no steps").
				WithDetail("scenario", name)
		}
		for j, st := range sc.Steps {
			if st.kinds() != 1 {
				return core.ErrValidation(core.CodeScriptInvalid, "step must set exactly one of reasoning, tool, data, message, error").
					WithDetail("scenario", name).
					WithDetail("step", j)
			}
			for _, text := range []string{st.Reasoning, st.Message, st.Error, stringData(st.Data)} {
				if _, err := template.New("step").Funcs(templateFuncs).Parse(text); err != nil {
					return core.ErrValidation(core.CodeScriptInvalid, "invalid template").
						WithDetail("scenario", name).
						WithDetail("step", j).
						WithCause(err)
				}
			}
		}
	}
	return nil
}

func stringData(v any) string {
	s, _ := v.(string)
	return s
}

// Select returns the scenario for query: the first whose keywords match,
// else the last scenario without keywords.
func (s *Script) Select(query string) (Scenario, bool) {
	q := strings.ToLower(query)
	var fallback *Scenario
	for i := range s.Scenarios {
		sc := &s.Scenarios[i]
		if len(sc.Match) == 0 {
			fallback = sc
			continue
		}
		for _, kw := range sc.Match {
			if kw != "" && strings.Contains(q, strings.ToLower(kw)) {
				return *sc, true
			}
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return Scenario{}, false
}

// ScriptSource is a core.EventSource that replays a Script.
type ScriptSource struct {
	mu     sync.RWMutex
	script *Script
	delay  time.Duration
	logger *logging.Logger
}

// ScriptOption configures a ScriptSource.
type ScriptOption func(*ScriptSource)

// WithEventDelay paces emitted items.
func WithEventDelay(d time.Duration) ScriptOption {
	return func(s *ScriptSource) { s.delay = d }
}

// WithScriptLogger sets the logger.
func WithScriptLogger(l *logging.Logger) ScriptOption {
	return func(s *ScriptSource) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewScriptSource creates a source for script. A nil script uses the
// embedded default.
func NewScriptSource(script *Script, opts ...ScriptOption) *ScriptSource {
	if script == nil {
		script = DefaultScript()
	}
	s := &ScriptSource{script: script, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithSource("script")
	return s
}

// SetScript swaps the scenarios used by future streams.
func (s *ScriptSource) SetScript(script *Script) {
	s.mu.Lock()
	s.script = script
	s.mu.Unlock()
}

// Script returns the current script.
func (s *ScriptSource) Script() *Script {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.script
}

// Stream implements core.EventSource.
func (s *ScriptSource) Stream(ctx context.Context, query string) (core.EventStream, error) {
	sc, ok := s.Script().Select(query)
	if !ok {
		return nil, core.ErrNotFound("scenario", query)
	}

	data := struct{ Query string }{Query: query}
	items := make([]scriptItem, 0, len(sc.Steps))
	for i, st := range sc.Steps {
		item, err := renderStep(st, data)
		if err != nil {
			return nil, core.ErrExecution(core.CodeScriptInvalid, "rendering scenario step").
				WithDetail("scenario", sc.Name).
				WithDetail("step", i).
				WithCause(err)
		}
		items = append(items, item)
	}

	s.logger.Debug("replaying scenario", "scenario", sc.Name, "steps", len(items))
	return &scriptStream{ctx: ctx, items: items, delay: s.delay}, nil
}

type scriptItem struct {
	event core.StreamEvent
	err   error
}

func renderStep(st Step, data any) (scriptItem, error) {
	render := func(text string) (string, error) {
		tpl, err := template.New("step").Funcs(templateFuncs).Parse(text)
		if err != nil {
			return "", err
		}
		var buf bytes.Buffer
		if err := tpl.Execute(&buf, data); err != nil {
			return "", err
		}
		return buf.String(), nil
	}

	switch {
	case st.Reasoning != "":
		text, err := render(st.Reasoning)
		return scriptItem{event: core.StreamEvent{ReasoningText: text}}, err
	case st.Tool != "":
		input := make(map[string]any, len(st.Input))
		for k, v := range st.Input {
			if str, ok := v.(string); ok {
				rendered, err := render(str)
				if err != nil {
					return scriptItem{}, err
				}
				v = rendered
			}
			input[k] = v
		}
		return scriptItem{event: core.StreamEvent{CurrentToolUse: &core.ToolUse{
			Name:      st.Tool,
			ToolUseID: "tooluse_" + st.Tool,
			Input:     input,
		}}}, nil
	case st.Data != nil:
		str, ok := st.Data.(string)
		if !ok {
			return scriptItem{event: core.StreamEvent{Data: st.Data}}, nil
		}
		text, err := render(str)
		return scriptItem{event: core.StreamEvent{Data: text}}, err
	case st.Message != "":
		text, err := render(st.Message)
		return scriptItem{event: core.StreamEvent{Message: &core.AgentMessage{
			Role:    core.RoleAssistant,
			Content: []any{map[string]any{"text": text}},
		}}}, err
	default:
		text, err := render(st.Error)
		return scriptItem{err: errors.New(text)}, err
	}
}

type scriptStream struct {
	ctx   context.Context
	items []scriptItem
	pos   int
	delay time.Duration
}

func (s *scriptStream) Recv() (core.StreamEvent, error) {
	if s.pos >= len(s.items) {
		return core.StreamEvent{}, io.EOF
	}
	if s.delay > 0 {
		t := time.NewTimer(s.delay)
		select {
		case <-s.ctx.Done():
			t.Stop()
			return core.StreamEvent{}, s.ctx.Err()
		case <-t.C:
		}
	} else if err := s.ctx.Err(); err != nil {
		return core.StreamEvent{}, err
	}

	item := s.items[s.pos]
	s.pos++
	if item.err != nil {
		s.pos = len(s.items)
		return core.StreamEvent{}, item.err
	}
	return item.event, nil
}

func (s *scriptStream) Close() error {
	s.pos = len(s.items)
	return nil
}

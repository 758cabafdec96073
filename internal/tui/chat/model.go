// Package chat is the interactive terminal surface. It drives a
// stream.Session from bubbletea's event loop: every tick drains the session
// without blocking and re-renders the in-flight answer.
package chat

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/peteragility/smartone/internal/clip"
	"github.com/peteragility/smartone/internal/core"
	"github.com/peteragility/smartone/internal/logging"
	"github.com/peteragility/smartone/internal/stream"
)

const defaultTickInterval = 100 * time.Millisecond

type tickMsg time.Time

type statusKind int

const (
	statusInfo statusKind = iota
	statusSuccess
	statusWarn
	statusError
)

// Model is the bubbletea model for chat mode.
type Model struct {
	session  *stream.Session
	commands *CommandRegistry
	copier   *clip.Copier
	logger   *logging.Logger
	samples  []string
	interval time.Duration
	version  string

	input    textinput.Model
	spinner  spinner.Model
	viewport viewport.Model
	md       *glamour.TermRenderer
	styles   *MessageStyles

	// rendered assistant messages keyed by message ID; reset on resize
	cache map[string]string

	width  int
	height int

	submitted   string
	status      string
	statusKind  statusKind
	notice      string
	suggestions []string
	quitting    bool
}

// NewModel creates a chat model around session.
func NewModel(session *stream.Session) Model {
	ti := textinput.New()
	ti.Placeholder = "Ask anything, or type / for commands"
	ti.Prompt = "› "
	ti.CharLimit = core.MaxQueryLength
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	m := Model{
		session:  session,
		commands: NewCommandRegistry(),
		copier:   clip.NewCopier(),
		logger:   logging.NewNop(),
		interval: defaultTickInterval,
		input:    ti,
		spinner:  sp,
		cache:    make(map[string]string),
	}
	m.resize(80, 24)
	return m
}

// WithSamples sets the sample queries offered via alt+N and /sample.
func (m Model) WithSamples(samples []string) Model {
	m.samples = append([]string(nil), samples...)
	m.refresh()
	return m
}

// WithTickInterval sets how often the session is drained.
func (m Model) WithTickInterval(d time.Duration) Model {
	if d > 0 {
		m.interval = d
	}
	return m
}

// WithCopier overrides the clipboard used by /copy.
func (m Model) WithCopier(c *clip.Copier) Model {
	if c != nil {
		m.copier = c
	}
	return m
}

// WithLogger sets the logger.
func (m Model) WithLogger(l *logging.Logger) Model {
	if l != nil {
		m.logger = l
	}
	return m
}

// WithVersion sets the version shown in the header.
func (m Model) WithVersion(v string) Model {
	m.version = v
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		m.refresh()
		return m, nil

	case tickMsg:
		return m.handleTick()

	case spinner.TickMsg:
		if !m.session.Processing() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

// handleTick is one reconciliation step. It re-arms itself until the
// session reports completion.
func (m Model) handleTick() (tea.Model, tea.Cmd) {
	if !m.session.Processing() {
		return m, nil
	}

	res := m.session.Tick()
	if !res.Done {
		if res.Received > 0 {
			m.refresh()
		}
		return m, m.tick()
	}

	if res.Err != nil {
		m.setStatus(statusError, "agent failed: "+userMessage(res.Err))
	} else {
		m.setStatus(statusSuccess, fmt.Sprintf("done (%d blocks)", len(res.Blocks)))
	}
	if strings.TrimSpace(m.input.Value()) == m.submitted {
		m.input.Reset()
	}
	m.submitted = ""
	m.refresh()
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Alt && len(msg.Runes) == 1 && msg.Runes[0] >= '1' && msg.Runes[0] <= '9' {
		m.fillSample(int(msg.Runes[0] - '0'))
		return m, nil
	}

	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "enter":
		return m.handleEnter()
	case "tab":
		m.complete()
		return m, nil
	case "esc":
		m.suggestions = nil
		return m, nil
	case "pgup", "pgdown", "ctrl+u", "ctrl+d":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.updateSuggestions()
	return m, cmd
}

func (m Model) handleEnter() (tea.Model, tea.Cmd) {
	value := strings.TrimSpace(m.input.Value())
	if value == "" {
		return m, nil
	}
	if strings.HasPrefix(value, "/") {
		return m.runCommand(value)
	}
	if m.session.Processing() {
		m.setStatus(statusWarn, "still working on the previous query")
		return m, nil
	}

	if err := m.session.Submit(value); err != nil {
		m.setStatus(statusError, userMessage(err))
		return m, nil
	}
	m.submitted = value
	m.notice = ""
	m.suggestions = nil
	m.setStatus(statusInfo, "")
	m.refresh()
	return m, tea.Batch(m.tick(), m.spinner.Tick)
}

func (m *Model) fillSample(n int) {
	if n < 1 || n > len(m.samples) {
		m.setStatus(statusWarn, fmt.Sprintf("no sample query %d", n))
		return
	}
	m.input.SetValue(m.samples[n-1])
	m.input.CursorEnd()
	m.suggestions = nil
}

func (m *Model) updateSuggestions() {
	v := m.input.Value()
	if strings.HasPrefix(v, "/") && !strings.Contains(v, " ") {
		m.suggestions = m.commands.Suggest(v)
		return
	}
	m.suggestions = nil
}

func (m *Model) complete() {
	if len(m.suggestions) == 0 {
		return
	}
	cmd := m.commands.Get(m.suggestions[0])
	if cmd == nil {
		return
	}
	value := "/" + cmd.Name
	if strings.Contains(cmd.Usage, " ") {
		value += " "
	}
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.suggestions = nil
}

func (m *Model) setStatus(kind statusKind, text string) {
	m.statusKind = kind
	m.status = text
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.styles = NewMessageStyles(width)
	m.input.Width = max(width-8, 10)

	if r, err := newMarkdownRenderer(m.styles.bubbleWidth() - 4); err == nil {
		m.md = r
	}
	m.cache = make(map[string]string)

	// header, suggestions, bordered input and footer
	vh := max(height-7, 3)
	m.viewport = viewport.New(width, vh)
}

// refresh rebuilds the scrollback and pins it to the bottom.
func (m *Model) refresh() {
	m.viewport.SetContent(m.renderConversation())
	m.viewport.GotoBottom()
}

func (m *Model) renderConversation() string {
	msgs := m.session.History().Messages()

	var parts []string
	for i := len(msgs) - 1; i >= 0; i-- {
		msg := msgs[i]
		ts := msg.Timestamp.Format("15:04")
		switch msg.Role {
		case stream.RoleUser:
			parts = append(parts, m.styles.FormatUserMessage(msg.Content, ts))
		case stream.RoleAssistant:
			body, ok := m.cache[msg.ID]
			if !ok {
				body = m.renderBlocks(msg.Blocks)
				m.cache[msg.ID] = body
			}
			parts = append(parts, m.styles.FormatAssistantMessage(body, ts))
		}
	}

	if m.session.Processing() {
		body := m.renderBlocks(m.session.Transcript())
		if body == "" {
			body = mutedStyle.Render("thinking…")
		}
		parts = append(parts, m.styles.FormatAssistantMessage(body, ""))
	}

	if len(parts) == 0 {
		parts = append(parts, m.welcome())
	}
	if m.notice != "" {
		parts = append(parts, noticeStyle.Render(m.notice))
	}
	return strings.Join(parts, "\n\n")
}

func (m *Model) renderBlocks(blocks stream.Transcript) string {
	lines := make([]string, 0, len(blocks))
	for _, b := range blocks {
		switch b.Type {
		case stream.BlockImage:
			lines = append(lines, m.styles.FormatImage(b.Content))
		default:
			lines = append(lines, m.renderMarkdown(b.Content))
		}
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderMarkdown(text string) string {
	if m.md == nil {
		return text
	}
	out, err := m.md.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(out, "\n")
}

func (m *Model) welcome() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Ask the agent a question."))
	if len(m.samples) > 0 {
		sb.WriteString("\n\n")
		sb.WriteString(mutedStyle.Render("Sample queries:"))
		for i, q := range m.samples {
			fmt.Fprintf(&sb, "\n  alt+%d  %s", i+1, q)
		}
	}
	return sb.String()
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	header := titleStyle.Render("smartone")
	if m.version != "" {
		header += " " + mutedStyle.Render(m.version)
	}

	suggestions := ""
	if len(m.suggestions) > 0 {
		shown := m.suggestions
		if len(shown) > 5 {
			shown = shown[:5]
		}
		suggestions = suggestionStyle.Render("/"+strings.Join(shown, "  /")) + mutedStyle.Render("  tab to complete")
	}

	input := inputBorderStyle.Width(max(m.width-4, 20)).Render(m.input.View())

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.viewport.View(),
		suggestions,
		input,
		m.footer(),
	)
}

func (m Model) footer() string {
	if m.session.Processing() {
		return m.spinner.View() + " " + mutedStyle.Render("working… submit is disabled until the answer completes")
	}
	switch {
	case m.status == "":
		return mutedStyle.Render("enter send · alt+1..4 samples · /help · ctrl+c quit")
	case m.statusKind == statusError:
		return errorStyle.Render(m.status)
	case m.statusKind == statusWarn:
		return noticeStyle.Render(m.status)
	case m.statusKind == statusSuccess:
		return successStyle.Render(m.status)
	default:
		return mutedStyle.Render(m.status)
	}
}

// Status returns the footer status text.
func (m Model) Status() string { return m.status }

// Input returns the current input value.
func (m Model) Input() string { return m.input.Value() }

// Suggestions returns the visible command suggestions.
func (m Model) Suggestions() []string { return m.suggestions }

func userMessage(err error) string {
	var domErr *core.DomainError
	if errors.As(err, &domErr) {
		if domErr.Cause != nil {
			return domErr.Message + ": " + domErr.Cause.Error()
		}
		return domErr.Message
	}
	return err.Error()
}

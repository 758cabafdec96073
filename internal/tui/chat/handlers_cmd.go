package chat

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/peteragility/smartone/internal/core"
	"github.com/peteragility/smartone/internal/fsutil"
	"github.com/peteragility/smartone/internal/stream"
)

func (m Model) runCommand(input string) (tea.Model, tea.Cmd) {
	m.input.Reset()
	m.suggestions = nil

	cmd, args, ok := m.commands.Parse(input)
	if !ok {
		m.setStatus(statusError, "unknown command: "+input+" (try /help)")
		return m, nil
	}
	if cmd.RequiresArg() && len(args) == 0 {
		m.setStatus(statusWarn, "usage: "+cmd.Usage)
		return m, nil
	}

	switch cmd.Name {
	case "help":
		name := ""
		if len(args) > 0 {
			name = args[0]
		}
		m.notice = m.commands.Help(name)
		m.setStatus(statusInfo, "")
		m.refresh()

	case "sample":
		n, err := strconv.Atoi(args[0])
		if err != nil {
			m.setStatus(statusWarn, "usage: "+cmd.Usage)
			return m, nil
		}
		m.fillSample(n)

	case "copy":
		last, ok := m.session.History().LastAssistant()
		if !ok {
			m.setStatus(statusWarn, "nothing to copy yet")
			return m, nil
		}
		res, err := m.copier.Copy(last.Content)
		if err != nil {
			m.setStatus(statusError, "copy failed: "+err.Error())
			return m, nil
		}
		m.setStatus(statusSuccess, res.Describe())

	case "export":
		path := strings.Join(args, " ")
		msgs := m.session.History().Messages()
		if err := fsutil.WriteFileAtomic(path, []byte(ExportMarkdown(msgs)), 0o644); err != nil {
			exportErr := core.ErrExecution(core.CodeExportFailed, "writing conversation").
				WithCause(err).
				WithDetail("path", path)
			m.logger.Warn("export failed", "error", exportErr)
			m.setStatus(statusError, userMessage(exportErr))
			return m, nil
		}
		m.setStatus(statusSuccess, fmt.Sprintf("exported %d messages to %s", len(msgs), path))

	case "clear":
		if err := m.session.Reset(); err != nil {
			m.setStatus(statusWarn, userMessage(err))
			return m, nil
		}
		m.cache = make(map[string]string)
		m.notice = ""
		m.setStatus(statusInfo, "conversation cleared")
		m.refresh()

	case "quit":
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

// ExportMarkdown renders history (newest first, as stored) as a
// chronological markdown document.
func ExportMarkdown(msgs []stream.Message) string {
	var sb strings.Builder
	sb.WriteString("# smartone conversation\n")
	for i := len(msgs) - 1; i >= 0; i-- {
		msg := msgs[i]
		who := "You"
		if msg.Role == stream.RoleAssistant {
			who = "Assistant"
		}
		fmt.Fprintf(&sb, "\n## %s (%s)\n\n%s\n", who, msg.Timestamp.Format(time.RFC3339), msg.Content)
	}
	return sb.String()
}

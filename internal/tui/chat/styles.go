package chat

import (
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
)

var (
	colorPrimary   = lipgloss.Color("#7C3AED") // Purple
	colorUser      = lipgloss.Color("#f43f5e") // Rose
	colorAssistant = lipgloss.Color("#06B6D4") // Cyan
	colorText      = lipgloss.Color("#c9d1d9")
	colorMuted     = lipgloss.Color("#6b7280")
	colorSuccess   = lipgloss.Color("#10B981")
	colorWarning   = lipgloss.Color("#F59E0B")
	colorError     = lipgloss.Color("#EF4444")
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true)

	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	noticeStyle  = lipgloss.NewStyle().Foreground(colorWarning)
	errorStyle   = lipgloss.NewStyle().Foreground(colorError)
	successStyle = lipgloss.NewStyle().Foreground(colorSuccess)
	spinnerStyle = lipgloss.NewStyle().Foreground(colorPrimary)

	suggestionStyle = lipgloss.NewStyle().
			Foreground(colorAssistant)

	inputBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(colorPrimary).
				Padding(0, 1)
)

// MessageStyles renders chat bubbles for a given width.
type MessageStyles struct {
	width int
}

// NewMessageStyles creates message styles for the given width.
func NewMessageStyles(width int) *MessageStyles {
	if width < 40 {
		width = 80
	}
	return &MessageStyles{width: width}
}

func (s *MessageStyles) bubbleWidth() int {
	w := s.width * 85 / 100
	if w < 40 {
		w = 40
	}
	return w
}

// FormatUserMessage renders a "You hh:mm" header above a bordered bubble.
func (s *MessageStyles) FormatUserMessage(content, timestamp string) string {
	return s.bubble("You", colorUser, content, timestamp)
}

// FormatAssistantMessage renders pre-formatted assistant content.
func (s *MessageStyles) FormatAssistantMessage(content, timestamp string) string {
	return s.bubble("Assistant", colorAssistant, content, timestamp)
}

func (s *MessageStyles) bubble(name string, color lipgloss.Color, content, timestamp string) string {
	header := lipgloss.NewStyle().Foreground(color).Bold(true).Render(name)
	if timestamp != "" {
		header += " " + mutedStyle.Render(timestamp)
	}
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Foreground(colorText).
		Padding(0, 1).
		Width(s.bubbleWidth()).
		Render(content)
	return header + "\n" + box
}

// FormatImage renders an image reference; terminals cannot show the image itself.
func (s *MessageStyles) FormatImage(ref string) string {
	return successStyle.Render("🖼  " + ref)
}

// newMarkdownRenderer builds a glamour renderer wrapped to width.
func newMarkdownRenderer(width int) (*glamour.TermRenderer, error) {
	if width < 40 {
		width = 40
	}
	if width > 120 {
		width = 120
	}

	style := styles.DraculaStyleConfig
	style.Code = ansi.StyleBlock{
		StylePrimitive: ansi.StylePrimitive{
			Color:           stringPtr("229"),
			BackgroundColor: stringPtr(""),
		},
	}
	return glamour.NewTermRenderer(
		glamour.WithStyles(style),
		glamour.WithWordWrap(width),
	)
}

func stringPtr(s string) *string {
	return &s
}

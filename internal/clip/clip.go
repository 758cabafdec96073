// Package clip copies transcripts out of the terminal UI.
package clip

import (
	"errors"
	"fmt"
	"io"
	"os"

	atotto "github.com/atotto/clipboard"
	osc52 "github.com/aymanbagabas/go-osc52/v2"
	"golang.org/x/term"
)

// Method is the mechanism that made the text available.
type Method string

const (
	MethodNative Method = "native" // OS clipboard
	MethodOSC52  Method = "osc52"  // terminal clipboard escape sequence
	MethodFile   Method = "file"   // no clipboard; text saved to a temp file
)

// Result reports how a copy was performed.
type Result struct {
	Method   Method
	FilePath string // set only for MethodFile
}

// Describe returns a one-line status message for the chat footer.
func (r Result) Describe() string {
	switch r.Method {
	case MethodNative:
		return "copied to clipboard"
	case MethodOSC52:
		return "copied to clipboard (terminal)"
	default:
		return "clipboard unavailable, saved to " + r.FilePath
	}
}

// Conservative default; terminals can have strict OSC52 limits.
const osc52LimitBytes = 100_000

// Copier tries the native clipboard, then OSC52, then a temp file.
type Copier struct {
	Native  func(string) error
	OSC52   func(string) error
	TempDir string
}

// NewCopier returns a copier writing OSC52 sequences to stderr, which keeps
// them out of bubbletea's stdout renderer.
func NewCopier() *Copier {
	return &Copier{
		Native: atotto.WriteAll,
		OSC52:  func(text string) error { return writeOSC52(os.Stderr, text) },
	}
}

// Copy makes text available and reports how.
func (c *Copier) Copy(text string) (Result, error) {
	if text == "" {
		return Result{}, errors.New("nothing to copy")
	}
	if c.Native != nil && c.Native(text) == nil {
		return Result{Method: MethodNative}, nil
	}
	if c.OSC52 != nil && c.OSC52(text) == nil {
		return Result{Method: MethodOSC52}, nil
	}

	path, err := c.writeTempFile(text)
	if err != nil {
		return Result{}, fmt.Errorf("saving transcript: %w", err)
	}
	return Result{Method: MethodFile, FilePath: path}, nil
}

// WriteAll copies text with the default copier.
func WriteAll(text string) (Result, error) {
	return NewCopier().Copy(text)
}

func writeOSC52(f *os.File, text string) error {
	if !term.IsTerminal(int(f.Fd())) {
		return errors.New("not a terminal")
	}
	return writeSequence(f, text)
}

func writeSequence(w io.Writer, text string) error {
	if len(text) > osc52LimitBytes {
		return fmt.Errorf("text too large for OSC52 (%d bytes > %d)", len(text), osc52LimitBytes)
	}
	seq := osc52.New(text).Limit(osc52LimitBytes)
	if os.Getenv("TMUX") != "" {
		seq = seq.Tmux()
	} else if os.Getenv("STY") != "" {
		seq = seq.Screen()
	}
	_, err := seq.WriteTo(w)
	return err
}

func (c *Copier) writeTempFile(text string) (path string, err error) {
	f, err := os.CreateTemp(c.TempDir, "smartone-transcript-*.md")
	if err != nil {
		return "", err
	}
	path = f.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(path)
		}
	}()

	if _, err = f.WriteString(text); err != nil {
		_ = f.Close()
		return "", err
	}
	if err = f.Close(); err != nil {
		return "", err
	}
	return path, nil
}

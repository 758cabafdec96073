package clip

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"
)

var errNope = errors.New("nope")

func TestCopy_PrefersNative(t *testing.T) {
	var got string
	c := &Copier{
		Native: func(s string) error { got = s; return nil },
		OSC52: func(string) error {
			t.Fatal("osc52 should not be called when native succeeds")
			return nil
		},
	}

	res, err := c.Copy("hello")
	if err != nil {
		t.Fatalf("Copy() error = %v", err)
	}
	if res.Method != MethodNative || got != "hello" {
		t.Errorf("Copy() = %+v, native got %q", res, got)
	}
	if res.Describe() != "copied to clipboard" {
		t.Errorf("Describe() = %q", res.Describe())
	}
}

func TestCopy_FallsBackToOSC52(t *testing.T) {
	c := &Copier{
		Native: func(string) error { return errNope },
		OSC52:  func(string) error { return nil },
	}
	res, err := c.Copy("hello")
	if err != nil {
		t.Fatalf("Copy() error = %v", err)
	}
	if res.Method != MethodOSC52 {
		t.Errorf("Method = %q, want %q", res.Method, MethodOSC52)
	}
}

func TestCopy_FallsBackToFile(t *testing.T) {
	c := &Copier{
		Native:  func(string) error { return errNope },
		OSC52:   func(string) error { return errNope },
		TempDir: t.TempDir(),
	}
	res, err := c.Copy("# transcript")
	if err != nil {
		t.Fatalf("Copy() error = %v", err)
	}
	if res.Method != MethodFile || res.FilePath == "" {
		t.Fatalf("Copy() = %+v", res)
	}
	if !strings.HasSuffix(res.FilePath, ".md") {
		t.Errorf("FilePath = %q, want .md suffix", res.FilePath)
	}
	b, err := os.ReadFile(res.FilePath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(b) != "# transcript" {
		t.Errorf("file contents = %q", b)
	}
	if !strings.Contains(res.Describe(), res.FilePath) {
		t.Errorf("Describe() = %q, want path", res.Describe())
	}
}

func TestCopy_Empty(t *testing.T) {
	if _, err := (&Copier{}).Copy(""); err == nil {
		t.Error("expected error for empty text")
	}
}

func TestWriteSequence(t *testing.T) {
	t.Setenv("TMUX", "")
	t.Setenv("STY", "")

	var buf bytes.Buffer
	if err := writeSequence(&buf, "hi"); err != nil {
		t.Fatalf("writeSequence() error = %v", err)
	}
	if !strings.HasPrefix(buf.String(), "\x1b]52;c;") {
		t.Errorf("sequence = %q", buf.String())
	}

	if err := writeSequence(&buf, strings.Repeat("x", osc52LimitBytes+1)); err == nil {
		t.Error("expected error for oversized text")
	}
}

func TestWriteOSC52_NotTerminal(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "out")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := writeOSC52(f, "x"); err == nil {
		t.Error("expected error for non-terminal file")
	}
}

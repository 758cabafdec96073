package testutil

import (
	"flag"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

var update = flag.Bool("update", false, "update golden files")

var (
	uuidRe      = regexp.MustCompile(`[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`)
	timestampRe = []*regexp.Regexp{
		regexp.MustCompile(`\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?(Z|[+-]\d{2}:\d{2})?`),
		regexp.MustCompile(`\d{2}:\d{2}:\d{2}`),
	}
)

// Golden compares rendered output against files under testdata.
type Golden struct {
	t   *testing.T
	dir string
}

// NewGolden creates a golden helper rooted at dir.
func NewGolden(t *testing.T, dir string) *Golden {
	return &Golden{t: t, dir: dir}
}

// AssertString compares actual with dir/name.golden. Run the test with
// -update to rewrite the file.
func (g *Golden) AssertString(name, actual string) {
	g.t.Helper()

	path := filepath.Join(g.dir, name+".golden")
	if *update {
		if err := os.MkdirAll(g.dir, 0o755); err != nil {
			g.t.Fatalf("creating golden dir: %v", err)
		}
		if err := os.WriteFile(path, []byte(actual), 0o644); err != nil {
			g.t.Fatalf("writing golden file: %v", err)
		}
		g.t.Logf("updated golden file: %s", path)
		return
	}

	want, err := os.ReadFile(path)
	if err != nil {
		g.t.Fatalf("reading golden file %s: %v", path, err)
	}
	if Normalize(actual) != Normalize(string(want)) {
		g.t.Errorf("output mismatch for %s:\n--- want ---\n%s\n--- got ---\n%s", name, want, actual)
	}
}

// Normalize unifies line endings and strips trailing whitespace.
func Normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}

// ScrubUUIDs replaces generated IDs with [UUID].
func ScrubUUIDs(s string) string {
	return uuidRe.ReplaceAllString(s, "[UUID]")
}

// ScrubTimestamps replaces RFC 3339 timestamps and clock times with [TIMESTAMP].
func ScrubTimestamps(s string) string {
	for _, re := range timestampRe {
		s = re.ReplaceAllString(s, "[TIMESTAMP]")
	}
	return s
}

// TempFile writes content to dir/name and returns the path.
func TempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("creating dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing temp file: %v", err)
	}
	return path
}

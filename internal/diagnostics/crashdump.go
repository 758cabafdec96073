package diagnostics

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/peteragility/smartone/internal/fsutil"
	"github.com/peteragility/smartone/internal/logging"
)

// DefaultDir is used when no crash dump directory is configured.
const DefaultDir = ".smartone/crashdumps"

// CrashDump is one persisted panic report.
type CrashDump struct {
	Timestamp time.Time `json:"timestamp"`
	ProcessID int       `json:"process_id"`
	GoVersion string    `json:"go_version"`
	GOOS      string    `json:"goos"`
	GOARCH    string    `json:"goarch"`

	PanicValue string `json:"panic_value"`
	StackTrace string `json:"stack_trace,omitempty"`

	QueryID string `json:"query_id,omitempty"`
	Query   string `json:"query,omitempty"`
	Source  string `json:"source,omitempty"`

	CommandPath string   `json:"command_path,omitempty"`
	CommandArgs []string `json:"command_args,omitempty"`
	WorkDir     string   `json:"work_dir,omitempty"`

	RedactedEnv map[string]string `json:"redacted_env,omitempty"`
}

// CommandContext describes the CLI invocation a dump belongs to.
type CommandContext struct {
	Path    string
	Args    []string
	WorkDir string
}

// CrashDumpWriter persists crash dumps and prunes old ones.
type CrashDumpWriter struct {
	dir        string
	maxFiles   int
	includeEnv bool
	source     string
	logger     *logging.Logger

	cmd atomic.Pointer[CommandContext]

	mu  sync.Mutex
	seq int
}

// NewCrashDumpWriter creates a writer. Empty dir and non-positive maxFiles
// select the defaults.
func NewCrashDumpWriter(dir string, maxFiles int, includeEnv bool, logger *logging.Logger) *CrashDumpWriter {
	if dir == "" {
		dir = DefaultDir
	}
	if maxFiles <= 0 {
		maxFiles = 10
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &CrashDumpWriter{
		dir:        dir,
		maxFiles:   maxFiles,
		includeEnv: includeEnv,
		logger:     logger,
	}
}

// Dir returns the dump directory.
func (w *CrashDumpWriter) Dir() string { return w.dir }

// SetSource records which agent source is in use (script, http).
func (w *CrashDumpWriter) SetSource(source string) {
	w.mu.Lock()
	w.source = source
	w.mu.Unlock()
}

// SetCurrentCommand records the CLI invocation.
func (w *CrashDumpWriter) SetCurrentCommand(ctx *CommandContext) {
	w.cmd.Store(ctx)
}

// HandlePanic writes a dump for a panic recovered while serving queryID.
// It matches stream.PanicHook and never fails; write errors are logged.
func (w *CrashDumpWriter) HandlePanic(queryID, query string, value any, stack []byte) {
	path, err := w.WriteCrashDump(queryID, query, value, stack)
	logger := w.logger.WithQuery(queryID)
	if err != nil {
		logger.Error("failed to write crash dump", "error", err, "panic", fmt.Sprint(value))
		return
	}
	logger.Error("crash dump written", "path", path, "panic", fmt.Sprint(value))
}

// WriteCrashDump builds and persists a dump, returning its path.
func (w *CrashDumpWriter) WriteCrashDump(queryID, query string, value any, stack []byte) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	dump := CrashDump{
		Timestamp:  time.Now().UTC(),
		ProcessID:  os.Getpid(),
		GoVersion:  runtime.Version(),
		GOOS:       runtime.GOOS,
		GOARCH:     runtime.GOARCH,
		PanicValue: fmt.Sprint(value),
		StackTrace: string(stack),
		QueryID:    queryID,
		Query:      query,
		Source:     w.source,
	}
	if cmd := w.cmd.Load(); cmd != nil {
		dump.CommandPath = cmd.Path
		dump.CommandArgs = cmd.Args
		dump.WorkDir = cmd.WorkDir
	}
	if w.includeEnv {
		dump.RedactedEnv = redactEnvironment(os.Environ())
	}

	data, err := json.MarshalIndent(dump, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling crash dump: %w", err)
	}

	w.seq++
	name := fmt.Sprintf("crash-%s-%03d.json", dump.Timestamp.Format("2006-01-02T15-04-05"), w.seq)
	path := filepath.Join(w.dir, name)
	if err := fsutil.WriteFileAtomic(path, data, 0o600); err != nil {
		return "", fmt.Errorf("writing crash dump: %w", err)
	}

	if err := w.cleanupOldDumps(); err != nil {
		w.logger.Warn("failed to prune crash dumps", "dir", w.dir, "error", err)
	}
	return path, nil
}

func isDumpFile(e os.DirEntry) bool {
	return !e.IsDir() && strings.HasPrefix(e.Name(), "crash-") && strings.HasSuffix(e.Name(), ".json")
}

// cleanupOldDumps removes the oldest dumps beyond maxFiles. Names sort
// chronologically.
func (w *CrashDumpWriter) cleanupOldDumps() error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return err
	}

	var names []string
	for _, e := range entries {
		if isDumpFile(e) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for len(names) > w.maxFiles {
		path := filepath.Join(w.dir, names[0])
		if err := os.Remove(path); err != nil {
			w.logger.Warn("failed to remove old crash dump", "path", path, "error", err)
		}
		names = names[1:]
	}
	return nil
}

var sensitiveEnv = []string{
	"TOKEN", "KEY", "SECRET", "PASSWORD", "CREDENTIAL",
	"AUTH", "PRIVATE",
}

func redactEnvironment(environ []string) map[string]string {
	result := make(map[string]string, len(environ))
	for _, env := range environ {
		key, value, ok := strings.Cut(env, "=")
		if !ok {
			continue
		}
		upper := strings.ToUpper(key)
		for _, s := range sensitiveEnv {
			if strings.Contains(upper, s) {
				value = "[REDACTED]"
				break
			}
		}
		result[key] = value
	}
	return result
}

// LoadLatestCrashDump reads the most recent dump in dir.
func LoadLatestCrashDump(dir string) (*CrashDump, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading crash dump dir: %w", err)
	}

	latest := ""
	for _, e := range entries {
		if isDumpFile(e) && e.Name() > latest {
			latest = e.Name()
		}
	}
	if latest == "" {
		return nil, fmt.Errorf("no crash dumps in %s", dir)
	}

	data, err := fsutil.ReadFileScoped(filepath.Join(dir, latest))
	if err != nil {
		return nil, fmt.Errorf("reading crash dump: %w", err)
	}

	var dump CrashDump
	if err := json.Unmarshal(data, &dump); err != nil {
		return nil, fmt.Errorf("parsing crash dump: %w", err)
	}
	return &dump, nil
}

package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peteragility/smartone/internal/agent"
	"github.com/peteragility/smartone/internal/config"
	"github.com/peteragility/smartone/internal/core"
	"github.com/peteragility/smartone/internal/diagnostics"
	"github.com/peteragility/smartone/internal/testutil"
)

const quietConfig = `
log:
  level: error
agent:
  event_delay: 0s
`

// runCLI executes the root command against a throwaway config file.
func runCLI(t *testing.T, cfgYAML string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	path := testutil.TempFile(t, t.TempDir(), ".smartone.yaml", cfgYAML)

	askJSON, askPlain, askOut = false, false, ""
	if f := rootCmd.Flags().Lookup("help"); f != nil {
		_ = f.Value.Set("false")
	}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(append(args, "--config", path))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestExecute_Help(t *testing.T) {
	out, err := runCLI(t, quietConfig, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "smartone")
	assert.Contains(t, out, "ask")
	assert.Contains(t, out, "serve")
}

func TestVersionCommand(t *testing.T) {
	SetVersion("v1.2.3", "abc123def", "2026-01-15")
	assert.Equal(t, "v1.2.3", GetVersion())

	out, err := runCLI(t, quietConfig, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "smartone v1.2.3")
	assert.Contains(t, out, "commit: abc123def")
	assert.Contains(t, out, "built:  2026-01-15")
}

func TestAsk_PlainArithmetic(t *testing.T) {
	out, err := runCLI(t, quietConfig, "ask", "--plain", config.DefaultSampleQueries[0])
	require.NoError(t, err)

	assert.Contains(t, out, "🤔 **Reasoning:** The question has two parts")
	assert.Contains(t, out, "🔧 **Using tool:** calculator")
	assert.Contains(t, out, "🔧 **Using tool:** word_count")
	assert.Contains(t, out, "69223 22")
	assert.Contains(t, out, "✅ **Final Answer:** The result of (1234 * 56) + (789 - 432) / 3 is 69223")

	// final answer comes last
	assert.True(t, strings.HasPrefix(strings.TrimSpace(out[strings.Index(out, "✅"):]), "✅"))
	assert.Less(t, strings.Index(out, "69223 22"), strings.Index(out, "✅"))
}

func TestAsk_JSONImage(t *testing.T) {
	out, err := runCLI(t, quietConfig, "ask", "--json", config.DefaultSampleQueries[3])
	require.NoError(t, err)

	var res askResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, config.DefaultSampleQueries[3], res.Query)
	assert.NotEmpty(t, res.QueryID)
	assert.Empty(t, res.Error)
	assert.Equal(t, []string{"output/cat_playing_chess.png"}, res.Images)

	tools := 0
	for _, b := range res.Blocks {
		if strings.Contains(b.Content, "generate_image") {
			tools++
		}
	}
	assert.Equal(t, 1, tools, "consecutive tool uses collapse into one block")
}

func TestAsk_FailureKeepsPartialTranscript(t *testing.T) {
	out, err := runCLI(t, quietConfig, "ask", "--plain", "this should fail")
	require.Error(t, err)
	assert.Equal(t, core.CodeAgentStreamFailed, core.GetCode(err))
	assert.Contains(t, err.Error(), "division by zero")
	assert.Contains(t, out, "🔧 **Using tool:** calculator")
	assert.NotContains(t, out, "✅")
}

func TestAsk_WritesOutFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "answers", "one.md")

	out, err := runCLI(t, quietConfig, "ask", "--plain", "--out", path, "hello there")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, out, string(data))
	assert.Contains(t, string(data), "hello there")
}

func TestAsk_RequiresQuery(t *testing.T) {
	_, err := runCLI(t, quietConfig, "ask")
	assert.Error(t, err)
}

func TestLoadConfig_Invalid(t *testing.T) {
	_, err := runCLI(t, "agent:\n  source: carrier-pigeon\n", "ask", "--plain", "hi")
	require.Error(t, err)
	assert.Equal(t, core.CodeInvalidConfig, core.GetCode(err))
	assert.Contains(t, err.Error(), "agent.source")
}

func TestBuildSource(t *testing.T) {
	logger := testLogger()

	t.Run("http", func(t *testing.T) {
		cfg := &config.Config{Agent: config.AgentConfig{Source: config.SourceHTTP, URL: "http://127.0.0.1:1"}}
		src, closer, err := buildSource(cfg, logger)
		require.NoError(t, err)
		defer closer.Close()
		assert.IsType(t, &agent.HTTPSource{}, src)
	})

	t.Run("script with watch", func(t *testing.T) {
		path := testutil.TempFile(t, t.TempDir(), "scenarios.yaml", `
scenarios:
  - name: echo
    steps:
      - message: "{{.Query}}"
`)
		cfg := &config.Config{Agent: config.AgentConfig{Source: config.SourceScript, Script: path, Watch: true}}
		src, closer, err := buildSource(cfg, logger)
		require.NoError(t, err)
		defer closer.Close()
		assert.IsType(t, &agent.ScriptSource{}, src)
		assert.IsType(t, &agent.Watcher{}, closer)
	})

	t.Run("bad script", func(t *testing.T) {
		path := testutil.TempFile(t, t.TempDir(), "scenarios.yaml", "scenarios: []\n")
		cfg := &config.Config{Agent: config.AgentConfig{Source: config.SourceScript, Script: path}}
		_, _, err := buildSource(cfg, logger)
		require.Error(t, err)
		assert.Equal(t, core.CodeScriptInvalid, core.GetCode(err))
	})
}

func TestNewLogger_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "smartone.log")
	cfg := &config.Config{Log: config.LogConfig{Level: "info", Format: "json", File: path}}

	logger, closeLog, err := newLogger(cfg, true)
	require.NoError(t, err)
	logger.Info("hello from chat")
	closeLog()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello from chat")
}

func TestPanicHook(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		Agent:       config.AgentConfig{Source: config.SourceScript},
		Diagnostics: config.DiagnosticsConfig{CrashDumps: true, CrashDir: dir, MaxDumps: 3},
	}

	hook := panicHook(askCmd, []string{"draw"}, cfg, testLogger())
	require.NotNil(t, hook)
	hook("q-1", "draw", "boom", []byte("stack"))

	dump, err := diagnostics.LoadLatestCrashDump(dir)
	require.NoError(t, err)
	assert.Equal(t, "boom", dump.PanicValue)
	assert.Equal(t, "script", dump.Source)
	assert.Equal(t, []string{"draw"}, dump.CommandArgs)
	assert.Contains(t, dump.CommandPath, "ask")

	cfg.Diagnostics.CrashDumps = false
	assert.Nil(t, panicHook(askCmd, nil, cfg, testLogger()))
}

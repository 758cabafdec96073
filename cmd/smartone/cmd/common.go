package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/peteragility/smartone/internal/agent"
	"github.com/peteragility/smartone/internal/config"
	"github.com/peteragility/smartone/internal/core"
	"github.com/peteragility/smartone/internal/diagnostics"
	"github.com/peteragility/smartone/internal/logging"
	"github.com/peteragility/smartone/internal/stream"
)

// loadConfig loads and validates configuration using the global viper,
// which carries the flag bindings.
func loadConfig() (*config.Config, error) {
	loader := config.NewLoaderWithViper(viper.GetViper())
	if cfgFile != "" {
		loader.WithConfigFile(cfgFile)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if err := config.NewValidator().Validate(cfg); err != nil {
		return nil, core.ErrValidation(core.CodeInvalidConfig, "invalid configuration").WithCause(err)
	}
	return cfg, nil
}

// newLogger builds the process logger. When log.file is set records go
// there; otherwise they go to stderr, unless quiet is set because the
// terminal belongs to the TUI. The returned func closes the log file.
func newLogger(cfg *config.Config, quiet bool) (*logging.Logger, func(), error) {
	if cfg.Log.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Log.File), 0o750); err != nil {
			return nil, nil, fmt.Errorf("creating log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		logger := logging.New(logging.Config{
			Level:  cfg.Log.Level,
			Format: cfg.Log.Format,
			Output: f,
		})
		return logger, func() { _ = f.Close() }, nil
	}

	if quiet {
		return logging.NewNop(), func() {}, nil
	}
	logger := logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})
	return logger, func() {}, nil
}

// buildSource creates the configured agent event source. The returned
// closer stops the script watcher, if any.
func buildSource(cfg *config.Config, logger *logging.Logger) (core.EventSource, io.Closer, error) {
	switch cfg.Agent.Source {
	case config.SourceHTTP:
		logger.Info("using http agent", "url", cfg.Agent.URL)
		return agent.NewHTTPSource(cfg.Agent.URL, cfg.Agent.TimeoutDuration(), logger), nopCloser{}, nil

	default:
		script, err := agent.LoadScript(cfg.Agent.Script)
		if err != nil {
			return nil, nil, err
		}
		src := agent.NewScriptSource(script,
			agent.WithEventDelay(cfg.Agent.EventDelayDuration()),
			agent.WithScriptLogger(logger),
		)
		if !cfg.Agent.Watch || cfg.Agent.Script == "" {
			return src, nopCloser{}, nil
		}

		w, err := agent.WatchScript(src, cfg.Agent.Script, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("watching script: %w", err)
		}
		return src, w, nil
	}
}

// panicHook returns a hook that writes crash dumps for panicking agent
// sources, or nil when crash dumps are disabled.
func panicHook(cmd *cobra.Command, args []string, cfg *config.Config, logger *logging.Logger) stream.PanicHook {
	if !cfg.Diagnostics.CrashDumps {
		return nil
	}
	w := diagnostics.NewCrashDumpWriter(
		cfg.Diagnostics.CrashDir,
		cfg.Diagnostics.MaxDumps,
		cfg.Diagnostics.IncludeEnv,
		logger,
	)
	w.SetSource(cfg.Agent.Source)

	wd, _ := os.Getwd()
	w.SetCurrentCommand(&diagnostics.CommandContext{
		Path:    cmd.CommandPath(),
		Args:    args,
		WorkDir: wd,
	})
	return w.HandlePanic
}

// newSession wires a stream.Session with the configured formatter, history
// limit and panic hook.
func newSession(ctx context.Context, cfg *config.Config, source core.EventSource, logger *logging.Logger, hook stream.PanicHook) *stream.Session {
	formatter := stream.DefaultFormatter()
	formatter.ImageTool = cfg.Chat.ImageTool

	opts := []stream.Option{
		stream.WithFormatter(formatter),
		stream.WithLogger(logger),
		stream.WithHistoryLimit(cfg.Chat.HistoryLimit),
	}
	if hook != nil {
		opts = append(opts, stream.WithPanicHook(hook))
	}
	return stream.NewSession(ctx, source, opts...)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

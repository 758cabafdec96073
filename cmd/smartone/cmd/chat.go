package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/peteragility/smartone/internal/tui/chat"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start interactive chat mode",
	Long: `Start an interactive chat session with the configured agent.

The answer streams into the conversation while the agent works. Submit is
disabled until the current answer completes.

  alt+1..4         Put a sample query into the input
  /sample <n>      Same as alt+N
  /copy            Copy the last answer to the clipboard
  /export <path>   Write the conversation to a markdown file
  /clear           Clear conversation history
  /help            Show all commands

Example:
  smartone chat
  smartone chat --script scenarios.yaml
  smartone chat --agent-source http --agent-url http://agent:8787`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// The alt-screen owns the terminal, so logs only go to log.file.
	logger, closeLog, err := newLogger(cfg, true)
	if err != nil {
		return err
	}
	defer closeLog()

	source, closer, err := buildSource(cfg, logger)
	if err != nil {
		return err
	}
	defer closer.Close()

	session := newSession(ctx, cfg, source, logger, panicHook(cmd, args, cfg, logger))
	model := chat.NewModel(session).
		WithSamples(cfg.Chat.SampleQueries).
		WithTickInterval(cfg.Chat.TickIntervalDuration()).
		WithLogger(logger).
		WithVersion(appVersion)

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("running chat: %w", err)
	}
	return nil
}

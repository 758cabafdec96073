package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/peteragility/smartone/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose the configured agent over HTTP",
	Long: `Start an HTTP server that streams the configured agent's events as
server-sent events. Another smartone can consume it with
--agent-source http.

Endpoints:
  GET  /health
  POST /api/v1/stream   {"query": "..."}

Examples:
  # Serve the built-in scenarios on localhost:8787
  smartone serve

  # Bind all interfaces on a custom port
  smartone serve --host 0.0.0.0 --port 9000`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "localhost", "Host address to bind to")
	serveCmd.Flags().IntP("port", "p", 8787, "Port to listen on")

	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, closeLog, err := newLogger(cfg, false)
	if err != nil {
		return err
	}
	defer closeLog()

	source, closer, err := buildSource(cfg, logger)
	if err != nil {
		return err
	}
	defer closer.Close()

	webCfg := web.DefaultConfig()
	webCfg.Host = cfg.Server.Host
	webCfg.Port = cfg.Server.Port
	webCfg.ShutdownTimeout = cfg.Server.ShutdownTimeoutDuration()
	webCfg.CORSOrigins = cfg.Server.CORSOrigins
	webCfg.OnPanic = panicHook(cmd, args, cfg, logger)

	server := web.New(webCfg, source, logger)
	logger.Info("serving agent", "addr", server.Addr(), "source", cfg.Agent.Source)

	start := time.Now()
	if err := server.Serve(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("server: %w", err)
	}
	logger.Info("server stopped", "uptime", time.Since(start).Round(time.Second))
	return nil
}

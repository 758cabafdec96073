package config

import "time"

// Config holds all application configuration.
type Config struct {
	Log    LogConfig    `mapstructure:"log"`
	Agent  AgentConfig  `mapstructure:"agent"`
	Chat   ChatConfig   `mapstructure:"chat"`
	Server ServerConfig `mapstructure:"server"`

	Diagnostics DiagnosticsConfig `mapstructure:"diagnostics"`
}

// LogConfig configures logging behavior.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// Agent event source kinds.
const (
	SourceScript = "script"
	SourceHTTP   = "http"
)

// AgentConfig selects and configures the agent event source.
type AgentConfig struct {
	Source     string `mapstructure:"source"`
	Script     string `mapstructure:"script"`
	Watch      bool   `mapstructure:"watch"`
	EventDelay string `mapstructure:"event_delay"`
	URL        string `mapstructure:"url"`
	Timeout    string `mapstructure:"timeout"`
}

// ChatConfig configures the interactive session.
type ChatConfig struct {
	TickInterval  string   `mapstructure:"tick_interval"`
	HistoryLimit  int      `mapstructure:"history_limit"`
	ImageTool     string   `mapstructure:"image_tool"`
	SampleQueries []string `mapstructure:"sample_queries"`
}

// ServerConfig configures `smartone serve`.
type ServerConfig struct {
	Host            string   `mapstructure:"host"`
	Port            int      `mapstructure:"port"`
	CORSOrigins     []string `mapstructure:"cors_origins"`
	ShutdownTimeout string   `mapstructure:"shutdown_timeout"`
}

// DiagnosticsConfig configures crash dumps for panicking agent sources.
type DiagnosticsConfig struct {
	CrashDumps bool   `mapstructure:"crash_dumps"`
	CrashDir   string `mapstructure:"crash_dir"`
	MaxDumps   int    `mapstructure:"max_dumps"`
	IncludeEnv bool   `mapstructure:"include_env"`
}

// DefaultSampleQueries are offered as one-key shortcuts in chat mode.
var DefaultSampleQueries = []string{
	"What is the result of (1234 * 56) + (789 - 432) / 3, and how many words are in this question?",
	"Calculate (9876 / 12) * (34 + 56) - 123, and count the words in this sentence.",
	"What is the current time in New York?",
	"Generate an image of a cat playing chess.",
}

// EventDelayDuration returns agent.event_delay parsed, or zero when unset or invalid.
func (c AgentConfig) EventDelayDuration() time.Duration {
	return parseDurationOr(c.EventDelay, 0)
}

// TimeoutDuration returns agent.timeout parsed, defaulting to 30s.
func (c AgentConfig) TimeoutDuration() time.Duration {
	return parseDurationOr(c.Timeout, 30*time.Second)
}

// TickIntervalDuration returns chat.tick_interval parsed, defaulting to 100ms.
func (c ChatConfig) TickIntervalDuration() time.Duration {
	return parseDurationOr(c.TickInterval, 100*time.Millisecond)
}

// ShutdownTimeoutDuration returns server.shutdown_timeout parsed, defaulting to 10s.
func (c ServerConfig) ShutdownTimeoutDuration() time.Duration {
	return parseDurationOr(c.ShutdownTimeout, 10*time.Second)
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}

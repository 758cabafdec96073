package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides (SMARTONE_LOG_LEVEL, ...).
const EnvPrefix = "SMARTONE"

// Loader handles configuration loading from multiple sources.
type Loader struct {
	v          *viper.Viper
	configFile string
	envPrefix  string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		v:         viper.New(),
		envPrefix: EnvPrefix,
	}
}

// NewLoaderWithViper creates a loader using an existing viper instance.
// This allows integration with CLI flag bindings.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	return &Loader{
		v:         v,
		envPrefix: EnvPrefix,
	}
}

// WithConfigFile sets an explicit config file path.
func (l *Loader) WithConfigFile(path string) *Loader {
	l.configFile = path
	return l
}

// WithEnvPrefix sets the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// Viper returns the underlying viper instance for flag binding.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// Load loads configuration from all sources.
// Precedence (highest to lowest):
// 1. CLI flags (set via viper.BindPFlag)
// 2. Environment variables (SMARTONE_*)
// 3. Project config (.smartone.yaml in current directory)
// 4. User config (~/.config/smartone/.smartone.yaml)
// 5. Defaults
func (l *Loader) Load() (*Config, error) {
	l.setDefaults()

	l.v.SetEnvPrefix(l.envPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
	} else {
		l.v.SetConfigName(".smartone")
		l.v.SetConfigType("yaml")
		l.v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			l.v.AddConfigPath(filepath.Join(home, ".config", "smartone"))
		}
	}

	if err := l.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values.
func (l *Loader) setDefaults() {
	l.v.SetDefault("log.level", "info")
	l.v.SetDefault("log.format", "auto")
	l.v.SetDefault("log.file", "")

	l.v.SetDefault("agent.source", SourceScript)
	l.v.SetDefault("agent.script", "")
	l.v.SetDefault("agent.watch", false)
	l.v.SetDefault("agent.event_delay", "120ms")
	l.v.SetDefault("agent.url", "http://localhost:8787")
	l.v.SetDefault("agent.timeout", "30s")

	l.v.SetDefault("chat.tick_interval", "100ms")
	l.v.SetDefault("chat.history_limit", 200)
	l.v.SetDefault("chat.image_tool", "generate_image")
	l.v.SetDefault("chat.sample_queries", DefaultSampleQueries)

	l.v.SetDefault("server.host", "localhost")
	l.v.SetDefault("server.port", 8787)
	l.v.SetDefault("server.cors_origins", []string{"*"})
	l.v.SetDefault("server.shutdown_timeout", "10s")

	l.v.SetDefault("diagnostics.crash_dumps", true)
	l.v.SetDefault("diagnostics.crash_dir", ".smartone/crashdumps")
	l.v.SetDefault("diagnostics.max_dumps", 10)
	l.v.SetDefault("diagnostics.include_env", false)
}

// ConfigFile returns the config file path if one was used.
func (l *Loader) ConfigFile() string {
	return l.v.ConfigFileUsed()
}

// Set sets a configuration value.
func (l *Loader) Set(key string, value interface{}) {
	l.v.Set(key, value)
}

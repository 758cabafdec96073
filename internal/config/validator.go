package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation: %s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors collects multiple validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

// Validate validates the entire configuration.
func (v *Validator) Validate(cfg *Config) error {
	v.validateLog(&cfg.Log)
	v.validateAgent(&cfg.Agent)
	v.validateChat(&cfg.Chat)
	v.validateServer(&cfg.Server)
	v.validateDiagnostics(&cfg.Diagnostics)

	if len(v.errors) > 0 {
		return v.errors
	}
	return nil
}

// Errors returns the collected validation errors.
func (v *Validator) Errors() ValidationErrors {
	return v.errors
}

func (v *Validator) addError(field string, value interface{}, msg string) {
	v.errors = append(v.errors, ValidationError{
		Field:   field,
		Value:   value,
		Message: msg,
	})
}

func (v *Validator) validateLog(cfg *LogConfig) {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[cfg.Level] {
		v.addError("log.level", cfg.Level, "must be one of: debug, info, warn, error")
	}

	validFormats := map[string]bool{
		"auto": true, "text": true, "json": true,
	}
	if !validFormats[cfg.Format] {
		v.addError("log.format", cfg.Format, "must be one of: auto, text, json")
	}
}

func (v *Validator) validateAgent(cfg *AgentConfig) {
	switch cfg.Source {
	case SourceScript:
	case SourceHTTP:
		u, err := url.Parse(cfg.URL)
		if cfg.URL == "" || err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			v.addError("agent.url", cfg.URL, "must be an absolute http(s) URL when agent.source is http")
		}
	default:
		v.addError("agent.source", cfg.Source, "must be one of: script, http")
	}

	v.validateDuration("agent.event_delay", cfg.EventDelay, true)
	v.validateDuration("agent.timeout", cfg.Timeout, false)
}

func (v *Validator) validateChat(cfg *ChatConfig) {
	v.validateDuration("chat.tick_interval", cfg.TickInterval, false)

	if cfg.HistoryLimit < 0 || cfg.HistoryLimit == 1 {
		v.addError("chat.history_limit", cfg.HistoryLimit, "must be 0 (unlimited) or at least 2")
	}

	if strings.TrimSpace(cfg.ImageTool) == "" {
		v.addError("chat.image_tool", cfg.ImageTool, "tool name required")
	}
}

func (v *Validator) validateServer(cfg *ServerConfig) {
	if cfg.Port < 1 || cfg.Port > 65535 {
		v.addError("server.port", cfg.Port, "must be between 1 and 65535")
	}
	v.validateDuration("server.shutdown_timeout", cfg.ShutdownTimeout, false)
}

func (v *Validator) validateDiagnostics(cfg *DiagnosticsConfig) {
	if !cfg.CrashDumps {
		return
	}
	if strings.TrimSpace(cfg.CrashDir) == "" {
		v.addError("diagnostics.crash_dir", cfg.CrashDir, "directory required when crash_dumps is enabled")
	}
	if cfg.MaxDumps < 1 {
		v.addError("diagnostics.max_dumps", cfg.MaxDumps, "must be at least 1")
	}
}

// validateDuration checks that value parses as a duration. Zero is accepted
// only when allowZero is set; empty strings fall back to defaults.
func (v *Validator) validateDuration(field, value string, allowZero bool) {
	if value == "" {
		return
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		v.addError(field, value, "invalid duration format")
		return
	}
	if d < 0 || (d == 0 && !allowZero) {
		v.addError(field, value, "must be positive")
	}
}

package logging

import (
	"regexp"
	"unicode/utf8"
)

// DefaultMaxValueLen bounds logged string values. Agent output can be large.
const DefaultMaxValueLen = 512

// Sanitizer redacts credentials and truncates oversized values.
type Sanitizer struct {
	patterns    []*regexp.Regexp
	redacted    string
	maxValueLen int
}

// NewSanitizer creates a sanitizer with default patterns.
func NewSanitizer() *Sanitizer {
	return &Sanitizer{
		patterns:    defaultPatterns(),
		redacted:    "[REDACTED]",
		maxValueLen: DefaultMaxValueLen,
	}
}

func defaultPatterns() []*regexp.Regexp {
	patterns := []string{
		// Provider API keys
		`sk-ant-[a-zA-Z0-9-]{40,}`,
		`sk-[A-Za-z0-9]{20,}`,
		`AIza[a-zA-Z0-9_-]{35}`,
		`AKIA[0-9A-Z]{16}`,
		// GitHub tokens
		`gh[pousr]_[A-Za-z0-9]{36}`,
		// Authorization headers
		`(?i)bearer\s+[a-zA-Z0-9._-]{20,}`,
		// key=value style secrets
		`(?i)(api[_-]?key|secret|token)["'\s:=]+[a-zA-Z0-9_-]{20,}`,
		`(?i)password["'\s:=]+[^\s"']{8,}`,
	}

	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		compiled = append(compiled, regexp.MustCompile(p))
	}
	return compiled
}

// Sanitize redacts secrets and truncates the result to the configured length.
func (s *Sanitizer) Sanitize(input string) string {
	result := input
	for _, pattern := range s.patterns {
		result = pattern.ReplaceAllString(result, s.redacted)
	}
	return s.truncate(result)
}

func (s *Sanitizer) truncate(v string) string {
	if s.maxValueLen <= 0 || len(v) <= s.maxValueLen {
		return v
	}
	cut := s.maxValueLen
	for cut > 0 && !utf8.RuneStart(v[cut]) {
		cut--
	}
	return v[:cut] + "…"
}

// AddPattern adds a custom pattern.
func (s *Sanitizer) AddPattern(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	s.patterns = append(s.patterns, re)
	return nil
}

// SetMaxValueLen changes the truncation limit. Zero disables truncation.
func (s *Sanitizer) SetMaxValueLen(n int) {
	s.maxValueLen = n
}

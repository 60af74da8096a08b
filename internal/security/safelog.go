// Package security masks credentials before they reach logs or terminal output.
package security

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// sensitiveFields contains field names that should be masked in logs.
var sensitiveFields = map[string]bool{
	"api_key":       true,
	"apikey":        true,
	"authorization": true,
	"secret":        true,
	"token":         true,
	"bearer":        true,
	"credential":    true,
	"credentials":   true,
}

// sensitivePatterns contains regex patterns for sensitive data.
var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(api[_-]?key|secret[_-]?key|access[_-]?token|auth[_-]?token|bearer)[=:\s]+["']?([^\s"']+)["']?`),
	regexp.MustCompile(`(sk-[A-Za-z0-9_\-]{20,})`),   // OpenAI keys
	regexp.MustCompile(`(AIza[0-9A-Za-z_\-]{30,})`), // Google API keys
}

// MaskCredential masks a credential value, showing at most the first and last 4 chars.
func MaskCredential(value string) string {
	if len(value) == 0 {
		return ""
	}
	if len(value) <= 4 {
		return strings.Repeat("*", len(value))
	}
	if len(value) <= 8 {
		return value[:2] + strings.Repeat("*", len(value)-2)
	}
	return value[:4] + strings.Repeat("*", len(value)-8) + value[len(value)-4:]
}

// ContainsSensitiveData checks if a string contains sensitive data patterns.
func ContainsSensitiveData(input string) bool {
	for _, pattern := range sensitivePatterns {
		if pattern.MatchString(input) {
			return true
		}
	}
	return false
}

// MaskString masks every sensitive pattern found in input.
func MaskString(input string) string {
	result := input

	for _, pattern := range sensitivePatterns {
		result = pattern.ReplaceAllStringFunc(result, func(match string) string {
			parts := strings.SplitN(match, "=", 2)
			if len(parts) == 2 {
				return parts[0] + "=" + MaskCredential(strings.Trim(parts[1], "\"' "))
			}
			parts = strings.SplitN(match, ":", 2)
			if len(parts) == 2 {
				return parts[0] + ":" + MaskCredential(strings.Trim(parts[1], "\"' "))
			}
			// For patterns like sk-xxx, mask the whole thing
			return MaskCredential(match)
		})
	}

	return result
}

// MaskError returns an error whose message has sensitive data masked.
func MaskError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if !ContainsSensitiveData(msg) {
		return err
	}
	return fmt.Errorf("%s", MaskString(msg))
}

// SafeLogger emits zerolog events whose string fields, errors and messages
// pass through MaskString first. Fields named like credentials are masked
// outright.
type SafeLogger struct {
	logger zerolog.Logger
}

// NewSafeLogger wraps logger.
func NewSafeLogger(logger zerolog.Logger) SafeLogger {
	return SafeLogger{logger: logger}
}

// At starts an event at level. Events below the logger's level are no-ops.
func (sl SafeLogger) At(level zerolog.Level) *SafeEvent {
	return &SafeEvent{event: sl.logger.WithLevel(level)}
}

// SafeEvent is a zerolog event under construction.
type SafeEvent struct {
	event *zerolog.Event
}

// Str adds a string field.
func (se *SafeEvent) Str(key, val string) *SafeEvent {
	if sensitiveFields[strings.ToLower(key)] {
		val = MaskCredential(val)
	} else {
		val = MaskString(val)
	}
	se.event = se.event.Str(key, val)
	return se
}

// Dur adds a duration field.
func (se *SafeEvent) Dur(key string, val time.Duration) *SafeEvent {
	se.event = se.event.Dur(key, val)
	return se
}

// Err adds the error field when err is non-nil.
func (se *SafeEvent) Err(err error) *SafeEvent {
	if err != nil {
		se.event = se.event.Err(MaskError(err))
	}
	return se
}

// Msg sends the event.
func (se *SafeEvent) Msg(msg string) {
	se.event.Msg(MaskString(msg))
}

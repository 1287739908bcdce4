package ai

import (
	"fmt"
	"strings"
)

// ConfigError reports a problem detected while constructing a provider client:
// unknown provider, missing credentials or an unusable client configuration.
type ConfigError struct {
	Message string
	Err     error
}

func NewConfigError(message string, err error) *ConfigError {
	return &ConfigError{Message: message, Err: err}
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ConfigError) Unwrap() error { return e.Err }

// ParseError reports provider output that could not be decoded as a JSON object.
type ParseError struct {
	// Raw is the provider text after fence stripping.
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return e.Err.Error()
}

func (e *ParseError) Unwrap() error { return e.Err }

// ValidationError reports a well-formed object that misses required fields
// or carries values outside their allowed range.
type ValidationError struct {
	Missing  []string
	Problems []string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, 2)
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("Missing required field: %s", strings.Join(e.Missing, ", ")))
	}
	if len(e.Problems) > 0 {
		parts = append(parts, strings.Join(e.Problems, "; "))
	}
	if len(parts) == 0 {
		return "invalid response"
	}
	return strings.Join(parts, "; ")
}

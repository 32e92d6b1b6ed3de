package core

import (
	"errors"
	"fmt"
)

// Sentinel errors describing the failure taxonomy. Concrete error types below
// match them via errors.Is.
var (
	ErrMissingField = errors.New("missing required field")
	ErrUnknownAgent = errors.New("unknown agent")
	ErrConfig       = errors.New("configuration error")
	ErrValidation   = errors.New("validation error")
	ErrBackend      = errors.New("backend error")
	ErrParse        = errors.New("parse error")
)

// MissingFieldError is returned when a dispatch lacks the agent name or message.
type MissingFieldError struct{}

func (*MissingFieldError) Error() string { return "Missing required field (agent_name, message)" }

// Is reports whether target is ErrMissingField.
func (*MissingFieldError) Is(target error) bool { return target == ErrMissingField }

// UnknownAgentError is returned when a name does not resolve to a dispatchable node.
type UnknownAgentError struct {
	Name string
}

func (e *UnknownAgentError) Error() string {
	return fmt.Sprintf("Unknown agent or type for '%s'", e.Name)
}

// Is reports whether target is ErrUnknownAgent.
func (e *UnknownAgentError) Is(target error) bool { return target == ErrUnknownAgent }

// ConfigError reports a missing or malformed configuration entry.
type ConfigError struct {
	Kind string // node, prompt, tool, template, document
	ID   string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s config: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s config %q: %v", e.Kind, e.ID, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ConfigError) Unwrap() error { return e.Err }

// Is reports whether target is ErrConfig.
func (e *ConfigError) Is(target error) bool { return target == ErrConfig }

// NewConfigError builds a ConfigError from a format string.
func NewConfigError(kind, id, format string, args ...any) *ConfigError {
	return &ConfigError{Kind: kind, ID: id, Err: fmt.Errorf(format, args...)}
}

// BackendError wraps a failure reported by a language model backend.
type BackendError struct {
	Provider string
	Err      error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s backend: %v", e.Provider, e.Err)
}

// Unwrap returns the underlying cause.
func (e *BackendError) Unwrap() error { return e.Err }

// Is reports whether target is ErrBackend.
func (e *BackendError) Is(target error) bool { return target == ErrBackend }

// ParseError reports that an agent's final text could not be turned into a
// JSON object.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return "Could not parse agent response" }

// Unwrap returns the underlying cause.
func (e *ParseError) Unwrap() error { return e.Err }

// Is reports whether target is ErrParse.
func (e *ParseError) Is(target error) bool { return target == ErrParse }

// Package apperrors defines the error taxonomy and exit codes shared by the
// sampling loop, the command loop and the application entry point.
package apperrors

import (
	"context"
	"errors"
	"fmt"
)

// Application exit codes.
const (
	ExitSuccess      = 0 // terminated by command or signal
	ExitErrorGeneric = 1 // unexpected failure (HTTP listener, TUI, ...)
	ExitErrorConfig  = 4 // invalid flags, env or config file
)

// Tick-scoped failure conditions. None of them ever leaves the sampling loop.
var (
	// ErrMetricsUnavailable means the host memory query failed, timed out or
	// returned values that cannot be trusted.
	ErrMetricsUnavailable = errors.New("metrics unavailable")
	// ErrRenderFailed means a chart update could not be delivered.
	ErrRenderFailed = errors.New("render failed")
	// ErrEncodingFailed means the snapshot could not be round-tripped
	// through its text encoding.
	ErrEncodingFailed = errors.New("encoding failed")
	// ErrInputClosed is returned by the command loop when its input reaches
	// EOF before the terminate command was read.
	ErrInputClosed = errors.New("command input closed")
)

// Stage names the step of a tick that failed.
type Stage string

const (
	StageSample Stage = "sample"
	StageEncode Stage = "encode"
	StageRender Stage = "render"
)

// TickError records which step of which tick failed.
type TickError struct {
	// Attempt is the 1-based tick attempt number, failed ticks included.
	Attempt uint64
	Stage   Stage
	Cause   error
}

func (e *TickError) Error() string {
	return fmt.Sprintf("tick %d: %s: %v", e.Attempt, e.Stage, e.Cause)
}

// Unwrap returns the underlying cause so errors.Is can match the sentinels.
func (e *TickError) Unwrap() error { return e.Cause }

// ConfigError represents an invalid configuration value. It indicates that
// the application cannot start.
type ConfigError struct {
	// Message explains the specific configuration error.
	Message string
}

// Error returns the error message for a ConfigError.
func (e ConfigError) Error() string { return e.Message }

// NewConfigError creates a new ConfigError with a formatted message.
func NewConfigError(format string, a ...any) error {
	return ConfigError{Message: fmt.Sprintf(format, a...)}
}

// Mark wraps err with sentinel unless err already matches it, so callers can
// rely on errors.Is(err, sentinel) while keeping the original cause.
func Mark(err, sentinel error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sentinel) {
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}

// WrapError wraps an error with additional context using fmt.Errorf and %w.
// It returns nil if err is nil.
func WrapError(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// IsContextError checks if the error is a context cancellation or deadline exceeded error.
func IsContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

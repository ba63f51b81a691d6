package engine

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCancelled marks a class that stopped because the run was cancelled.
// Cancellation is an outcome, not a failure; Report.Err ignores it.
var ErrCancelled = errors.New("CANCELLED")

// ConfigError reports an invalid coordinator setup.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return "INVALID_CONFIG: " + e.Message
}

func configErrorf(format string, args ...any) *ConfigError {
	return &ConfigError{Message: fmt.Sprintf(format, args...)}
}

// RunError aggregates the failed classes of one run.
//
// It unwraps to each class error, so errors.Is and errors.As see through it
// (e.g. catalog.IsColumnComputationError(err)).
type RunError struct {
	RunID  string
	Failed []ClassOutcome
	Total  int
}

func (e *RunError) Error() string {
	parts := make([]string, len(e.Failed))
	for i, f := range e.Failed {
		parts[i] = fmt.Sprintf("%s: %v", strings.Join(f.Catalogs, ","), f.Err)
	}
	return fmt.Sprintf("%d of %d classes failed (run=%s): %s",
		len(e.Failed), e.Total, e.RunID, strings.Join(parts, "; "))
}

func (e *RunError) Unwrap() []error {
	errs := make([]error, len(e.Failed))
	for i, f := range e.Failed {
		errs[i] = f.Err
	}
	return errs
}

// IsCancelled returns true if err is or wraps ErrCancelled.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}

// IsRunError returns true if err is or wraps a RunError.
func IsRunError(err error) bool {
	var re *RunError
	return errors.As(err, &re)
}

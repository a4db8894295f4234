package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/rubies/internal/environment"
	"github.com/roach88/rubies/internal/shell"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Resolution or configuration failure
	ExitCommandError = 2 // Usage error (missing/unknown subcommand, wrong arguments)
)

// ExitError represents an error with a specific exit code.
// Every error a command returns is an ExitError; anything else reaching
// Execute came from argument parsing and is reported as a usage error.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// UsageError reports a missing or unknown subcommand or a wrong argument.
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string {
	return "usage: " + e.Message
}

// usageError builds a UsageError carrying ExitCommandError.
func usageError(format string, args ...any) *ExitError {
	return WrapExitError(ExitCommandError, "invalid invocation", &UsageError{Message: fmt.Sprintf(format, args...)})
}

// IsUsageError returns true if err is or wraps a *UsageError.
func IsUsageError(err error) bool {
	var ue *UsageError
	return errors.As(err, &ue)
}

// Output buffers shell code until a command has fully succeeded, so a
// failing command never leaves half a mutation for the shell to eval.
type Output struct {
	Writer io.Writer
	buf    bytes.Buffer
}

// Emit renders m as shell code into the buffer.
func (o *Output) Emit(m *environment.Mapping) error {
	return shell.Write(&o.buf, m)
}

// Println buffers a line of plain text.
func (o *Output) Println(s string) {
	o.buf.WriteString(s)
	o.buf.WriteString("\n")
}

// Flush copies everything buffered so far to Writer.
func (o *Output) Flush() error {
	_, err := o.buf.WriteTo(o.Writer)
	return err
}

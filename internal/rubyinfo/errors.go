package rubyinfo

import (
	"errors"
	"fmt"
)

// ResolutionError reports that no Descriptor could be built for an
// interpreter.
type ResolutionError struct {
	// Code identifies the failure category.
	Code ResolutionErrorCode

	// Message is a human-readable description.
	Message string

	// Interpreter is the executable that was queried, when known.
	Interpreter string

	// Details contains additional context.
	Details map[string]string

	// Err is the underlying cause, if any.
	Err error
}

// ResolutionErrorCode categorizes resolution failures.
type ResolutionErrorCode string

const (
	// ErrCodeExecFailed indicates the self-query process could not be
	// started or exited non-zero.
	ErrCodeExecFailed ResolutionErrorCode = "EXEC_FAILED"

	// ErrCodeMalformedOutput indicates the self-query output was not three
	// non-empty lines.
	ErrCodeMalformedOutput ResolutionErrorCode = "MALFORMED_OUTPUT"

	// ErrCodeNotFound indicates no interpreter was found on the search path.
	ErrCodeNotFound ResolutionErrorCode = "NOT_FOUND"
)

// Error implements the error interface.
func (e *ResolutionError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Interpreter != "" {
		msg = fmt.Sprintf("%s (interpreter=%s)", msg, e.Interpreter)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// IsResolutionError returns true if err is or wraps a *ResolutionError.
func IsResolutionError(err error) bool {
	var re *ResolutionError
	return errors.As(err, &re)
}

// HasCode returns true if err wraps a *ResolutionError with the given code.
func HasCode(err error, code ResolutionErrorCode) bool {
	var re *ResolutionError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// NewNotFoundError creates a ResolutionError for a missing interpreter.
func NewNotFoundError(command, searchPath string) *ResolutionError {
	return &ResolutionError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("no %q executable on search path", command),
		Details: map[string]string{"path": searchPath},
	}
}

package domain

import (
	"errors"
	"fmt"
)

// Error kinds shared by every core operation. Callers match on these with errors.Is
// and read the human-readable reason from Error().
var (
	ErrNotFound           = errors.New("not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrFailedPrecondition = errors.New("failed precondition")
)

// Error couples an error kind with the reason shown to the caller.
type Error struct {
	Kind   error
	Reason string
}

func (e *Error) Error() string {
	return e.Reason
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// NotFound reports a referenced entity that does not exist.
func NotFound(format string, args ...interface{}) error {
	return &Error{Kind: ErrNotFound, Reason: fmt.Sprintf(format, args...)}
}

// Unauthorized reports an actor that is not the required participant, owner or admin.
func Unauthorized(format string, args ...interface{}) error {
	return &Error{Kind: ErrUnauthorized, Reason: fmt.Sprintf(format, args...)}
}

// FailedPrecondition reports a business-rule violation.
func FailedPrecondition(format string, args ...interface{}) error {
	return &Error{Kind: ErrFailedPrecondition, Reason: fmt.Sprintf(format, args...)}
}

// Reason returns the human-readable reason of a domain error, or the plain error text.
func Reason(err error) string {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Reason
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

package alerting

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a domain error so handlers and callers can branch on
// the kind instead of matching message text.
type ErrorKind string

const (
	KindValidation           ErrorKind = "validation_error"
	KindNotFound             ErrorKind = "not_found"
	KindDuplicateActiveAlert ErrorKind = "duplicate_active_alert"
	KindInvalidTransition    ErrorKind = "invalid_state_transition"
	KindNotAssigned          ErrorKind = "not_assigned"
	KindInvalidAssignment    ErrorKind = "invalid_assignment"
	KindAssignmentFailed     ErrorKind = "assignment_failed"
)

// Error is a typed domain error with a specific, actionable message
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// NewError builds a typed domain error with a formatted message
func NewError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// IsKind reports whether err is a domain error of the given kind
func IsKind(err error, kind ErrorKind) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind == kind
	}
	return false
}

// KindOf returns the kind of a domain error, or "" for other errors
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

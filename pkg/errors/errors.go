package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches two typed errors by code so clones and wraps of a sentinel still compare equal.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

var (
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrTenantRequired     = New("TENANT_REQUIRED", http.StatusBadRequest, "tenant scope is required")
	ErrTimeout            = New("TIMEOUT", http.StatusGatewayTimeout, "operation timed out")

	ErrIncompleteMarks      = New("INCOMPLETE_MARKS", http.StatusUnprocessableEntity, "marks entry is incomplete")
	ErrProcessingInProgress = New("PROCESSING_IN_PROGRESS", http.StatusConflict, "results processing already running for this class")
	ErrConfirmationRequired = New("CONFIRMATION_REQUIRED", http.StatusBadRequest, "explicit confirmation is required")
	ErrInvalidTransition    = New("INVALID_TRANSITION", http.StatusConflict, "publication transition not allowed")
	ErrGradeOverlap         = New("GRADE_RANGE_OVERLAP", http.StatusBadRequest, "grade range overlaps an existing band")
	ErrNoStudents           = New("NO_ACTIVE_STUDENTS", http.StatusPreconditionFailed, "no active students found in this class")
	ErrNoSubjects           = New("NO_SUBJECTS_CONFIGURED", http.StatusPreconditionFailed, "no subjects configured for this class")
	ErrUnsupportedFormat    = New("UNSUPPORTED_FORMAT", http.StatusBadRequest, "unsupported export format")

	// ErrCacheMiss is returned by cache lookups with no stored value.
	ErrCacheMiss = errors.New("cache miss")
)

// FromError normalises any error into an *Error. Deadline expiry, typically a processing run
// waiting on another run's lock, becomes TIMEOUT; anything untyped becomes INTERNAL_ERROR.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Wrap(err, ErrTimeout.Code, ErrTimeout.Status, ErrTimeout.Message)
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies an AppError. The gateway maps kinds to HTTP status
// codes; everything below the gateway only ever inspects the kind.
type Kind string

const (
	// KindNoSession is raised locally, before any backend call, when an
	// operation requires an authenticated user and none is present.
	KindNoSession Kind = "NO_SESSION"
	// KindQuery covers failed reads or writes against the hosted tables.
	KindQuery Kind = "QUERY_FAILED"
	// KindStorage covers failed object-storage uploads and deletes.
	KindStorage Kind = "STORAGE_FAILED"
	// KindDecode covers malformed payloads from the realtime feed.
	KindDecode Kind = "DECODE_FAILED"

	KindInvalid   Kind = "INVALID_ARGUMENT"
	KindNotFound  Kind = "NOT_FOUND"
	KindForbidden Kind = "FORBIDDEN"
	KindConflict  Kind = "CONFLICT"
	KindInternal  Kind = "INTERNAL"
)

// AppError is the error type every operation returns. Op names the
// failing operation ("MessageService.SendText"), Cause keeps the
// underlying error reachable for errors.Is/As.
type AppError struct {
	Kind    Kind   `json:"kind"`
	Op      string `json:"op"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError creates a new AppError
func NewAppError(kind Kind, op, message string, cause error) *AppError {
	return &AppError{
		Kind:    kind,
		Op:      op,
		Message: message,
		Cause:   cause,
	}
}

// Helper constructors, one per kind

func NoSession(op string) *AppError {
	return NewAppError(KindNoSession, op, "no authenticated user", nil)
}

func Query(op string, cause error) *AppError {
	return NewAppError(KindQuery, op, "backend query failed", cause)
}

func Storage(op string, cause error) *AppError {
	return NewAppError(KindStorage, op, "object storage operation failed", cause)
}

func Decode(op string, cause error) *AppError {
	return NewAppError(KindDecode, op, "malformed payload", cause)
}

func Invalid(op, msg string) *AppError {
	return NewAppError(KindInvalid, op, msg, nil)
}

func NotFound(op, msg string) *AppError {
	return NewAppError(KindNotFound, op, msg, nil)
}

func Forbidden(op, msg string) *AppError {
	return NewAppError(KindForbidden, op, msg, nil)
}

func Conflict(op, msg string) *AppError {
	return NewAppError(KindConflict, op, msg, nil)
}

func Internal(op string, cause error) *AppError {
	return NewAppError(KindInternal, op, "unexpected failure", cause)
}

// KindOf walks the error chain and returns the kind of the outermost
// AppError, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var app *AppError
	if stderrors.As(err, &app) {
		return app.Kind
	}
	return KindInternal
}

// IsKind reports whether the error chain carries an AppError of the
// given kind.
func IsKind(err error, kind Kind) bool {
	var app *AppError
	if stderrors.As(err, &app) {
		return app.Kind == kind
	}
	return false
}

// IsApp reports whether the error chain carries an AppError at all.
// Callers use it to avoid re-wrapping an already classified error.
func IsApp(err error) bool {
	var app *AppError
	return stderrors.As(err, &app)
}

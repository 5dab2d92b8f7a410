// Package apperror defines the domain error taxonomy shared by services and handlers.
//
// Services return these errors; handlers translate them to HTTP status codes
// (see handler/response.go). A service never chooses a status code itself.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrTransaction  = errors.New("transaction failed")
)

type AppError struct {
	Err     error  // sentinel, matched with errors.Is
	Message string // safe to show to the client
	Field   string // optional: request field that failed validation
	Cause   error  // optional: underlying store error, never serialized
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap exposes both the sentinel and the underlying cause to errors.Is/As.
func (e *AppError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Err, e.Cause}
	}
	return []error{e.Err}
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

// NotFoundMessage is NotFound with a caller-chosen message, for lookups that
// are not keyed by id (invite codes, share tokens).
func NotFoundMessage(message string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: message,
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// TransactionFailed reports that a multi-step write was rolled back.
// The message is generic; cause is kept for logs only.
func TransactionFailed(op string, cause error) *AppError {
	return &AppError{
		Err:     ErrTransaction,
		Message: fmt.Sprintf("could not %s, no changes were saved", op),
		Cause:   cause,
	}
}

// Is reports whether err carries an AppError (as opposed to a raw store error).
func Is(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

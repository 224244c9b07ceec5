package service

import (
	"context"
	"errors"

	"parkspot/backend/services/parking-service/internal/repository"
)

// Error kinds. Match with errors.Is.
var (
	ErrValidation  = errors.New("validation error")
	ErrConflict    = errors.New("conflict")
	ErrCapacity    = errors.New("insufficient capacity")
	ErrNotFound    = errors.New("not found")
	ErrPersistence = errors.New("persistence failure")
)

// Error carries a caller-facing message together with its kind and cause.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Kind.Error()
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind error, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

func validation(message string) error {
	return newError(ErrValidation, message, nil)
}

// translate maps repository failures onto the service taxonomy. notFound is the
// message used when the referenced row is missing.
func translate(err error, notFound string) error {
	switch {
	case err == nil:
		return nil
	case errors.As(err, new(*Error)):
		return err
	case errors.Is(err, repository.ErrNotFound):
		return newError(ErrNotFound, notFound, err)
	case errors.Is(err, repository.ErrInsufficientCapacity):
		return newError(ErrCapacity, "parking lot has no free slots", err)
	case errors.Is(err, repository.ErrOpenSessionExists):
		return newError(ErrConflict, "user already has an active or booked session", err)
	case errors.Is(err, repository.ErrStaleState):
		return newError(ErrConflict, "session changed concurrently, retry", err)
	case errors.Is(err, repository.ErrLotInUse):
		return newError(ErrConflict, "parking lot has open sessions", err)
	case errors.Is(err, repository.ErrInvalidValue):
		return newError(ErrValidation, "value out of range", err)
	case errors.Is(err, repository.ErrTransient),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return newError(ErrPersistence, "storage temporarily unavailable, retry", err)
	default:
		return err
	}
}

// reason labels an error for metrics.
func reason(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrCapacity):
		return "capacity"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrPersistence):
		return "persistence"
	default:
		return "internal"
	}
}

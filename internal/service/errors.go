package service

import (
	"errors"
	"fmt"
	"time"

	"techanswers/internal/repository"
)

var (
	// ErrInvalidCredentials indicates that provided login credentials are incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	// ErrBlocked is matched by *BlockedError.
	ErrBlocked      = errors.New("too many failed attempts")
	ErrInvalidCode  = errors.New("invalid or expired code")
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrValidation is matched by *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrUnavailable is returned when an optional integration is not configured.
	ErrUnavailable = errors.New("service unavailable")
)

// Error pairs a sentinel kind with a message safe to show to the client.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, message string) error {
	return &Error{Kind: kind, Message: message}
}

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }
func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// BlockedError carries the end of a brute-force lockout.
type BlockedError struct {
	Until time.Time
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("too many failed attempts, blocked until %s", e.Until.Format(time.RFC3339))
}

func (e *BlockedError) Unwrap() error { return ErrBlocked }

// translate maps repository sentinels onto service ones, keeping the cause.
func translate(err error, message string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return &Error{Kind: ErrNotFound, Message: message}
	case errors.Is(err, repository.ErrDuplicate), errors.Is(err, repository.ErrReferenced):
		return &Error{Kind: ErrConflict, Message: message}
	}
	return err
}

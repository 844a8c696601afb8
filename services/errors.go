package services

import (
	"errors"
	"fmt"

	"edunet/database"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrUnavailable  = errors.New("unavailable")
)

type inputError struct{ msg string }

func (e *inputError) Error() string        { return e.msg }
func (e *inputError) Is(target error) bool { return target == ErrInvalidInput }

// InvalidInput returns an error matching ErrInvalidInput whose message is shown to clients as is.
func InvalidInput(msg string) error {
	return &inputError{msg: msg}
}

type reasonError struct {
	kind error
	msg  string
}

func (e *reasonError) Error() string        { return e.msg }
func (e *reasonError) Is(target error) bool { return target == e.kind }

func forbidden(msg string) error   { return &reasonError{kind: ErrForbidden, msg: msg} }
func conflict(msg string) error    { return &reasonError{kind: ErrConflict, msg: msg} }
func unauthorized(msg string) error { return &reasonError{kind: ErrUnauthorized, msg: msg} }

// notFound yields messages such as "post not found".
func notFound(what string) error {
	return &reasonError{kind: ErrNotFound, msg: what + " not found"}
}

// lookup converts a repository miss into a not-found error for what.
func lookup(err error, what string) error {
	if errors.Is(err, database.ErrNotFound) {
		return notFound(what)
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", what, err)
	}
	return nil
}

// Package apperr holds the error classes shared by services that the
// transport layer maps to status codes.
package apperr

import "github.com/cockroachdb/errors"

var (
	// ErrInvalidArgument marks input that fails validation.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrForbidden marks operations the caller may not perform.
	ErrForbidden = errors.New("forbidden")
)

// Mark returns err classified as class. The message and the Unwrap chain of
// err are kept, and both the standard library and cockroachdb errors.Is
// report class. nil stays nil.
func Mark(err, class error) error {
	if err == nil {
		return nil
	}
	return &marked{cause: err, class: class}
}

type marked struct {
	cause error
	class error
}

func (m *marked) Error() string { return m.cause.Error() }

func (m *marked) Unwrap() error { return m.cause }

func (m *marked) Is(target error) bool { return target == m.class }

// Invalid marks err as an ErrInvalidArgument. nil stays nil.
func Invalid(err error) error {
	return Mark(err, ErrInvalidArgument)
}

// Forbidden returns an ErrForbidden with msg.
func Forbidden(msg string) error {
	return errors.Wrap(ErrForbidden, msg)
}

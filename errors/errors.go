// Package errors defines the error taxonomy shared by every blockfs
// component. Errors are sentinel values rather than error codes, so callers
// can use errors.Is instead of comparing against a process-wide status
// variable.
package errors

import "fmt"

// BlockfsError is the common interface implemented by every sentinel error
// in this package and by the values returned from WithMessage/Wrap.
type BlockfsError interface {
	error
	WithMessage(message string) BlockfsError
	Wrap(err error) BlockfsError
}

// Code is a sentinel error value. It implements BlockfsError directly so
// that bare taxonomy values (ErrOutOfSpace, ErrFileNotOpen, ...) can be
// returned, compared with errors.Is, and decorated with extra context.
type Code string

func (e Code) Error() string {
	return string(e)
}

func (e Code) WithMessage(message string) BlockfsError {
	return &wrappedError{
		message: fmt.Sprintf("%s: %s", string(e), message),
		code:    e,
	}
}

func (e Code) Wrap(err error) BlockfsError {
	return &wrappedError{
		message: fmt.Sprintf("%s: %s", string(e), err.Error()),
		code:    e,
		cause:   err,
	}
}

// wrappedError decorates a Code with an additional message and/or an
// underlying cause, while still satisfying errors.Is against the original
// Code via Unwrap.
type wrappedError struct {
	message string
	code    Code
	cause   error
}

func (e *wrappedError) Error() string {
	return e.message
}

func (e *wrappedError) WithMessage(message string) BlockfsError {
	return &wrappedError{
		message: fmt.Sprintf("%s: %s", e.message, message),
		code:    e.code,
		cause:   e,
	}
}

func (e *wrappedError) Wrap(err error) BlockfsError {
	return &wrappedError{
		message: fmt.Sprintf("%s: %s", e.message, err.Error()),
		code:    e.code,
		cause:   err,
	}
}

// Unwrap lets errors.Is(err, ErrOutOfSpace) succeed even after the sentinel
// has been decorated with WithMessage/Wrap.
func (e *wrappedError) Unwrap() []error {
	if e.cause != nil {
		return []error{e.cause, e.code}
	}
	return []error{e.code}
}

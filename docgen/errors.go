package docgen

import (
	"context"
	"errors"

	errorslib "github.com/goliatone/go-errors"
)

// ErrorKind defines conversion error kinds.
type ErrorKind string

const (
	KindValidation  ErrorKind = "validation"
	KindUnavailable ErrorKind = "unavailable"
	KindTimeout     ErrorKind = "timeout"
	KindCanceled    ErrorKind = "canceled"
	KindInternal    ErrorKind = "internal"
	KindNotImpl     ErrorKind = "not_implemented"
)

// Error wraps errors with a kind.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	return e.Msg + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new conversion error.
func NewError(kind ErrorKind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// AsGoError maps an error into a go-errors error.
func AsGoError(err error) *errorslib.Error {
	if err == nil {
		return nil
	}

	var ge *errorslib.Error
	if errors.As(err, &ge) {
		return ge
	}

	kind := KindFromError(err)
	msg := err.Error()

	var docErr *Error
	if errors.As(err, &docErr) && docErr.Msg != "" {
		msg = docErr.Error()
	}

	switch kind {
	case KindValidation:
		return errorslib.New(msg, errorslib.CategoryValidation).WithTextCode("validation")
	case KindUnavailable:
		return errorslib.New(msg, errorslib.CategoryExternal).WithTextCode("unavailable")
	case KindTimeout:
		return errorslib.New(msg, errorslib.CategoryOperation).WithTextCode("timeout")
	case KindCanceled:
		return errorslib.New(msg, errorslib.CategoryOperation).WithTextCode("canceled")
	case KindNotImpl:
		return errorslib.New(msg, errorslib.CategoryOperation).WithTextCode("not_implemented")
	default:
		return errorslib.New(msg, errorslib.CategoryInternal).WithTextCode("internal")
	}
}

// KindFromError maps an error to its kind.
func KindFromError(err error) ErrorKind {
	if err == nil {
		return ""
	}

	var docErr *Error
	if errors.As(err, &docErr) {
		return docErr.Kind
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}

	return KindInternal
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool {
	return KindFromError(err) == KindValidation
}

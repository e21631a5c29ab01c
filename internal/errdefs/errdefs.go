// Package errdefs defines the error taxonomy of the inference handler.
// Every failure that crosses a component boundary is one of four kinds:
// invalid input, model load, generation, or storage. Errors are never
// translated between kinds on their way up; the serving layer maps them
// to HTTP statuses at the request boundary.
package errdefs

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindInvalidInput Kind = "invalid_input"
	KindModelLoad    Kind = "model_load"
	KindGeneration   Kind = "generation"
	KindStorage      Kind = "storage"
)

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Err == nil:
		return e.Msg
	case e.Msg == "":
		return e.Err.Error()
	default:
		return e.Msg + ": " + e.Err.Error()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// InvalidInput reports a malformed request. The user's fault; never retried.
func InvalidInput(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidInput, Msg: fmt.Sprintf(format, args...)}
}

// ModelLoad reports a fatal initialization failure.
func ModelLoad(err error, msg string) *Error {
	return &Error{Kind: KindModelLoad, Msg: msg, Err: err}
}

// Generation reports a synthesis failure. Fatal for the request; the caller
// may resubmit but the handler never retries on its own.
func Generation(err error, msg string) *Error {
	return &Error{Kind: KindGeneration, Msg: msg, Err: err}
}

// Storage reports a persistence failure on the async output path.
func Storage(err error, msg string) *Error {
	return &Error{Kind: KindStorage, Msg: msg, Err: err}
}

func IsInvalidInput(err error) bool { return is(err, KindInvalidInput) }
func IsModelLoad(err error) bool    { return is(err, KindModelLoad) }
func IsGeneration(err error) bool   { return is(err, KindGeneration) }
func IsStorage(err error) bool      { return is(err, KindStorage) }

func is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

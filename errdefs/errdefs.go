// Package errdefs defines the typed errors surfaced by the pipeline.
package errdefs

import (
	"errors"
	"fmt"

	goerrors "github.com/go-errors/errors"
)

type Kind string

const (
	KindIO     Kind = "IO"
	KindParse  Kind = "PARSE"
	KindSchema Kind = "SCHEMA"
)

// Error is a pipeline error with a kind, a wrapped cause, and a captured
// stack. Load (IO) and schema errors abort the run; cell-level parse
// failures degrade to null and never become an Error.
type Error struct {
	Kind    Kind
	Message string
	Err     error
	stack   []byte
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) StackTrace() []byte {
	return e.stack
}

func newError(kind Kind, message string, err error) *Error {
	var stack []byte
	if err != nil {
		if stackErr, ok := err.(*goerrors.Error); ok {
			stack = stackErr.Stack()
		} else {
			stack = goerrors.Wrap(err, 2).Stack()
		}
	} else {
		stack = goerrors.New(message).Stack()
	}

	return &Error{
		Kind:    kind,
		Message: message,
		Err:     err,
		stack:   stack,
	}
}

func IO(message string, err error) *Error {
	return newError(KindIO, message, err)
}

func Parse(message string, err error) *Error {
	return newError(KindParse, message, err)
}

func Schema(message string, err error) *Error {
	return newError(KindSchema, message, err)
}

func isKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

func IsIO(err error) bool { return isKind(err, KindIO) }

func IsParse(err error) bool { return isKind(err, KindParse) }

func IsSchema(err error) bool { return isKind(err, KindSchema) }

// Package apperr carries the error taxonomy shared by the order service:
// validation failures, missing aggregates, domain conflicts and
// infrastructure failures. Handlers map kinds onto HTTP status codes;
// everything else wraps and rethrows.
package apperr

import (
	"errors"
	"fmt"
)

type Kind uint8

const (
	Unknown Kind = iota
	Validation
	NotFound
	Conflict
	Infra
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case Infra:
		return "infra"
	default:
		return "unknown"
	}
}

type Error struct {
	kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.err }

func (e *Error) Kind() Kind { return e.kind }

func Validationf(format string, args ...any) *Error {
	return &Error{kind: Validation, msg: fmt.Sprintf(format, args...)}
}

func NotFoundf(resource, id string) *Error {
	return &Error{kind: NotFound, msg: fmt.Sprintf("%s %s not found", resource, id)}
}

func Conflictf(format string, args ...any) *Error {
	return &Error{kind: Conflict, msg: fmt.Sprintf(format, args...)}
}

func Infraf(cause error, format string, args ...any) *Error {
	return &Error{kind: Infra, msg: fmt.Sprintf(format, args...), err: cause}
}

// KindOf reports the kind of the first *Error in err's chain,
// or Unknown when the chain carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	return Unknown
}

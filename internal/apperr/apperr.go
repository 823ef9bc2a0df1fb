// Package apperr defines the typed failures returned by the coordination engine.
// Every failed intent carries one Kind so callers can react without parsing text.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind string

const (
	KindInternal           Kind = "internal"
	KindValidation         Kind = "validation"
	KindInvalidTransition  Kind = "invalid_transition"
	KindClaimConflict      Kind = "claim_conflict"
	KindNotFound           Kind = "not_found"
	KindNetwork            Kind = "network"
	KindRoutingUnavailable Kind = "routing_unavailable"
	KindTerminal           Kind = "terminal"
	KindUnauthorized       Kind = "unauthorized"
)

// Sentinels for errors.Is. They match any *Error of the same Kind.
var (
	ErrValidation         = &Error{Kind: KindValidation}
	ErrInvalidTransition  = &Error{Kind: KindInvalidTransition}
	ErrClaimConflict      = &Error{Kind: KindClaimConflict}
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrNetwork            = &Error{Kind: KindNetwork}
	ErrRoutingUnavailable = &Error{Kind: KindRoutingUnavailable}
	ErrTerminal           = &Error{Kind: KindTerminal}
	ErrUnauthorized       = &Error{Kind: KindUnauthorized}
)

// Error is a classified failure. Op names the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinels by kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Msg == ""
}

// New returns an error of the given kind.
func New(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies err under kind. A nil err yields nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Validation, NotFound etc. are shorthands for New.
func Validation(op, format string, args ...any) error {
	return New(KindValidation, op, format, args...)
}

func NotFound(op, format string, args ...any) error {
	return New(KindNotFound, op, format, args...)
}

func InvalidTransition(op, format string, args ...any) error {
	return New(KindInvalidTransition, op, format, args...)
}

func ClaimConflict(op, format string, args ...any) error {
	return New(KindClaimConflict, op, format, args...)
}

func Terminal(op, format string, args ...any) error {
	return New(KindTerminal, op, format, args...)
}

func Unauthorized(op, format string, args ...any) error {
	return New(KindUnauthorized, op, format, args...)
}

// KindOf returns the Kind of the first *Error in err's chain, KindInternal for
// any other non-nil error and "" for nil.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

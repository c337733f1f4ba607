// Package apperr defines the error kinds surfaced by the matching, conversation,
// report and trip modules. Every error carries a machine-checkable kind and a
// human-readable message.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindNotFound          Kind = "not_found"
	KindForbidden         Kind = "forbidden"
	KindInvalidState      Kind = "invalid_state"
	KindConflict          Kind = "conflict"
	KindInsufficientFunds Kind = "insufficient_funds"
	KindValidation        Kind = "validation_failure"
	KindInternal          Kind = "internal"
)

type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

func New(kind Kind, message string) error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func NotFound(entity string) error {
	return New(KindNotFound, entity+" not found")
}

func Forbidden(msg string) error {
	return New(KindForbidden, msg)
}

// InvalidState reports an operation attempted outside its legal transition.
func InvalidState(entity, status, action string) error {
	return New(KindInvalidState, fmt.Sprintf("%s is %s; cannot %s", entity, status, action))
}

func Conflict(msg string) error {
	return New(KindConflict, msg)
}

func InsufficientFunds(required, available int64) error {
	return New(KindInsufficientFunds, fmt.Sprintf("insufficient credits: required %d, available %d", required, available))
}

func Validation(msg string) error {
	return New(KindValidation, msg)
}

func Internal(cause error) error {
	return Wrap(KindInternal, "internal error", cause)
}

// KindOf returns the kind of err, or KindInternal for errors that did not originate here.
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

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message returns the user-facing message; internal causes are never exposed.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Message
	}
	return "internal error"
}

func HTTPStatus(kind Kind) int {
	switch kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindInvalidState, KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindInsufficientFunds:
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

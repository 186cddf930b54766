package core

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindValidation  ErrorKind = "validation"
	KindConflict    ErrorKind = "conflict"
	KindBadRequest  ErrorKind = "bad_request"
	KindNotFound    ErrorKind = "not_found"
	KindNotEligible ErrorKind = "not_eligible"
)

// Error is a domain failure the caller can act on. Compare with errors.Is
// against the sentinels below.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Message == "" && t.Kind == e.Kind
}

var (
	ErrValidation  = &Error{Kind: KindValidation}
	ErrConflict    = &Error{Kind: KindConflict}
	ErrBadRequest  = &Error{Kind: KindBadRequest}
	ErrNotFound    = &Error{Kind: KindNotFound}
	ErrNotEligible = &Error{Kind: KindNotEligible}

	// ErrDuplicateRecord is returned by Repository.CreateRecord when the
	// (student, practicum, date) row already exists.
	ErrDuplicateRecord = errors.New("attendance record already exists")
)

func newError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func ValidationError(format string, args ...interface{}) error {
	return newError(KindValidation, format, args...)
}

func ConflictError(format string, args ...interface{}) error {
	return newError(KindConflict, format, args...)
}

func BadRequestError(format string, args ...interface{}) error {
	return newError(KindBadRequest, format, args...)
}

func NotFoundError(format string, args ...interface{}) error {
	return newError(KindNotFound, format, args...)
}

func NotEligibleError(format string, args ...interface{}) error {
	return newError(KindNotEligible, format, args...)
}

// KindOf returns the kind of the first domain error in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

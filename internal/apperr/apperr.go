// Package apperr defines the stable error codes the core returns to callers.
package apperr

import (
	"errors"
	"fmt"
)

type Code string

const (
	CodeNotFound   Code = "not_found"
	CodeConflict   Code = "conflict"
	CodeValidation Code = "validation"
	CodeForbidden  Code = "forbidden"

	// CodeInternal marks states that should be unreachable by design, such as
	// a bracket slot whose both feeder winners forfeited. These are logged as
	// design-level inconsistencies, not user mistakes.
	CodeInternal Code = "internal"
)

type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string { return e.Message }

func newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return newf(CodeNotFound, format, args...)
}

func Conflict(format string, args ...any) *Error {
	return newf(CodeConflict, format, args...)
}

func Validation(format string, args ...any) *Error {
	return newf(CodeValidation, format, args...)
}

func Forbidden(format string, args ...any) *Error {
	return newf(CodeForbidden, format, args...)
}

func Internal(format string, args ...any) *Error {
	return newf(CodeInternal, format, args...)
}

// CodeOf unwraps err to its apperr code, defaulting to CodeInternal for
// anything that did not originate in this taxonomy.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

func IsCode(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

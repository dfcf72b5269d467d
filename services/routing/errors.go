package routing

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies engine failures.
type Code string

const (
	CodeValidation      Code = "VALIDATION_ERROR"
	CodeNotFound        Code = "NOT_FOUND"
	CodeInvalidState    Code = "INVALID_STATE"
	CodeForbidden       Code = "FORBIDDEN"
	CodeUnauthenticated Code = "UNAUTHENTICATED"
	CodeConflict        Code = "CONFLICT"
)

// HTTPStatus maps a code to its response status.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInvalidState, CodeConflict:
		return http.StatusConflict
	case CodeForbidden:
		return http.StatusForbidden
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified engine error. Anything else returned by the engine
// is an internal failure.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newError(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func validationError(format string, args ...interface{}) *Error {
	return newError(CodeValidation, format, args...)
}

func notFound(id string) *Error {
	return newError(CodeNotFound, "correspondence %s not found", id)
}

func invalidState(op Action, state interface{}) *Error {
	return newError(CodeInvalidState, "%s is not allowed while the case is %s", op, state)
}

func forbidden(format string, args ...interface{}) *Error {
	return newError(CodeForbidden, format, args...)
}

var errUnauthenticated = &Error{Code: CodeUnauthenticated, Message: "authentication required"}

// AsError extracts an *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsCode reports whether err carries code.
func IsCode(err error, code Code) bool {
	e, ok := AsError(err)
	return ok && e.Code == code
}

// Store sentinels. Stores return these (possibly wrapped); the engine maps
// them to classified errors.
var (
	ErrCaseNotFound = errors.New("correspondence not found")
	ErrStaleWrite   = errors.New("correspondence changed since it was read")
)

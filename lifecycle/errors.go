package lifecycle

import (
	"fmt"
	"net/http"
)

// ValidationError reports a missing or malformed required field
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

// NewValidationError builds a ValidationError from a format string
func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// ForbiddenError reports a caller whose scope does not cover the resource
type ForbiddenError struct {
	msg string
}

func (e *ForbiddenError) Error() string { return e.msg }

// NewForbiddenError builds a ForbiddenError from a format string
func NewForbiddenError(format string, args ...interface{}) *ForbiddenError {
	return &ForbiddenError{msg: fmt.Sprintf(format, args...)}
}

// NotFoundError reports a record or bed that does not exist
type NotFoundError struct {
	msg string
}

func (e *NotFoundError) Error() string { return e.msg }

// NewNotFoundError builds a NotFoundError from a format string
func NewNotFoundError(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{msg: fmt.Sprintf(format, args...)}
}

// ConflictError reports an illegal state transition, a lost optimistic-version
// race, or an attempt to double-book a bed
type ConflictError struct {
	msg string
}

func (e *ConflictError) Error() string { return e.msg }

// NewConflictError builds a ConflictError from a format string
func NewConflictError(format string, args ...interface{}) *ConflictError {
	return &ConflictError{msg: fmt.Sprintf(format, args...)}
}

// HTTPStatus maps a lifecycle error onto the status code the HTTP layer
// should answer with. Anything outside the taxonomy is a generic failure.
func HTTPStatus(err error) int {
	switch err.(type) {
	case *ValidationError:
		return http.StatusBadRequest
	case *ForbiddenError:
		return http.StatusForbidden
	case *NotFoundError:
		return http.StatusNotFound
	case *ConflictError:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

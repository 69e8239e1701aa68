package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a semantic classification shared across transport layers.
type ErrorCode string

const (
	ErrCodeBadRequest       ErrorCode = "BAD_REQUEST"
	ErrCodeNotFound         ErrorCode = "NOT_FOUND"
	ErrCodeMethodNotAllowed ErrorCode = "METHOD_NOT_ALLOWED"
	ErrCodeUnprocessable    ErrorCode = "UNPROCESSABLE"
	ErrCodeInternal         ErrorCode = "INTERNAL"
)

// Error represents a domain-level error.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewError builds a domain error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError wraps an existing error with a domain classification.
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain errors.
var (
	ErrTaskNotFound      = NewError(ErrCodeNotFound, "task not found")
	ErrVolunteerNotFound = NewError(ErrCodeNotFound, "volunteer not found")
	ErrNoTasks           = NewError(ErrCodeNotFound, "no tasks")
	ErrEmptyBody         = NewError(ErrCodeBadRequest, "request body is required")
	ErrInvalidPayload    = NewError(ErrCodeBadRequest, "invalid payload")
)

// MissingField reports a required field absent from a create request.
func MissingField(name string) *Error {
	return NewError(ErrCodeBadRequest, name+" is required")
}

// InvalidField reports a field whose value fails validation.
func InvalidField(name, reason string) *Error {
	return NewError(ErrCodeUnprocessable, fmt.Sprintf("%s %s", name, reason))
}

// IsDomainError helps checking error codes.
func IsDomainError(err error, code ErrorCode) bool {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}

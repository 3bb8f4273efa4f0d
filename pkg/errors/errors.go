package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// ErrorCode represents a unique error code
type ErrorCode int

// AppError represents an application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Fields  []string  `json:"fields,omitempty"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any AppError carrying the same code, so callers can test
// against the sentinels below with errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code && (t.Message == "" || t.Message == e.Message)
}

// Common error codes
const (
	ErrNotFound ErrorCode = iota + 1000
	ErrBadRequest
	ErrUnauthorized
	ErrForbidden
	ErrInternal
	ErrValidation
	ErrConflict
)

// SlotTakenMessage is shown to the seeker when a slot key already has an active booking.
const SlotTakenMessage = "This time slot is already booked."

// GenericMessage is what callers see for anything that is not their fault.
const GenericMessage = "Something went wrong, please try again."

// ErrSlotTaken is the conflict outcome of a lost slot claim.
var ErrSlotTaken = &AppError{Code: ErrConflict, Message: SlotTakenMessage}

// Error constructors
func NewNotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func NewBadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    ErrBadRequest,
		Message: message,
		Err:     err,
	}
}

func NewInternal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Message: GenericMessage,
		Err:     err,
	}
}

// NewValidation reports a malformed request without naming fields.
func NewValidation(message string) *AppError {
	return &AppError{
		Code:    ErrValidation,
		Message: message,
	}
}

// NewMissingFields lists every required field that was absent.
func NewMissingFields(fields ...string) *AppError {
	return &AppError{
		Code:    ErrValidation,
		Message: "Missing required fields: " + strings.Join(fields, ", "),
		Fields:  fields,
	}
}

func NewConflict(message string, err error) *AppError {
	return &AppError{
		Code:    ErrConflict,
		Message: message,
		Err:     err,
	}
}

// SlotTaken wraps the store error that revealed the conflict.
func SlotTaken(err error) *AppError {
	return &AppError{
		Code:    ErrConflict,
		Message: SlotTakenMessage,
		Err:     err,
	}
}

// Common errors
func NotFound(resource string, err error) *AppError {
	return NewNotFound(resource, err)
}

func Internal(err error) *AppError {
	return NewInternal(err)
}

func Unauthorized(err error) *AppError {
	return &AppError{
		Code:    ErrUnauthorized,
		Message: "unauthorized",
		Err:     err,
	}
}

func Forbidden(message string) *AppError {
	return &AppError{
		Code:    ErrForbidden,
		Message: message,
	}
}

// CodeOf returns the code of the outermost AppError in err's chain,
// or ErrInternal when there is none.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternal
}

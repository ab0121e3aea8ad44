package errors

import stderrors "errors"

// ErrorDetails represents detailed information about an error.
type ErrorDetails struct {
	// Message (required) is the user-defined error message.
	// E.g. "quantity must be positive".
	Message string

	// Code (required) is one of the ErrorCode values.
	Code string

	// Field (optional) is the related field the error occurred on, if any.
	Field string

	// Object (optional) is the related object the error occured on, if any.
	Object interface{}

	// Cause (optional) is the sentinel this detail reports, kept for errors.Is.
	Cause error
}

// NewErrorDetails creates a new ErrorDetails struct with the given parameters.
func NewErrorDetails(message, code, field string) *ErrorDetails {
	return &ErrorDetails{
		Message: message,
		Code:    code,
		Field:   field,
	}
}

// NewErrorDetailsWithCause creates ErrorDetails that unwraps to cause.
func NewErrorDetailsWithCause(cause error, code ErrorCode, field string) *ErrorDetails {
	return &ErrorDetails{
		Message: cause.Error(),
		Code:    string(code),
		Field:   field,
		Cause:   cause,
	}
}

// Error() is used to implement the Golang `error` interface.
func (e *ErrorDetails) Error() string {
	return e.Message
}

// Unwrap returns the sentinel cause, if any.
func (e *ErrorDetails) Unwrap() error {
	return e.Cause
}

// ErrorCodeEquals checks whether a given `error` has a specific code.
func ErrorCodeEquals(err error, code ErrorCode) bool {
	var errDetails *ErrorDetails
	if !stderrors.As(err, &errDetails) {
		return false
	}

	return errDetails.Code == string(code)
}

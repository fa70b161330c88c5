package apperrors

import (
	"errors"
	"fmt"
)

type AppError struct {
	Code    int    // error class code
	Message string // user-facing message
	Err     error  // underlying error (optional)
}

const (
	ErrNetwork      = 1001 // request to a collaborator could not be completed
	ErrDecode       = 1002 // response was not in the expected shape
	ErrValidation   = 1003 // user input fails a precondition
	ErrAuthRequired = 1004 // action attempted without an authenticated identity
	ErrNotFound     = 1005 // target entry does not exist

	ErrInternalServer = 500
)

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Error creation utility
func New(code int, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrapping utility
func Wrap(code int, err error, message string) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// CodeOf returns the error class code, or ErrInternalServer for errors that
// did not originate here.
func CodeOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternalServer
}

func IsNetwork(err error) bool      { return CodeOf(err) == ErrNetwork }
func IsDecode(err error) bool       { return CodeOf(err) == ErrDecode }
func IsValidation(err error) bool   { return CodeOf(err) == ErrValidation }
func IsAuthRequired(err error) bool { return CodeOf(err) == ErrAuthRequired }
func IsNotFound(err error) bool     { return CodeOf(err) == ErrNotFound }

package models

import (
	"errors"
	"fmt"
)

// Error codes used in API responses and internal error handling.
const (
	// Core login pipeline.
	ErrCodeInvalidURL = "INVALID_URL"
	ErrCodeNetwork    = "NETWORK_ERROR"
	ErrCodeParse      = "PARSE_ERROR"

	// API layer.
	ErrCodeInvalidInput = "INVALID_INPUT"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeRateLimited  = "RATE_LIMITED"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeInternal     = "INTERNAL_ERROR"
)

// ErrorDetail is the structured error in API responses.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// LoginError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
// Messages never contain credential values.
type LoginError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *LoginError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *LoginError) Unwrap() error {
	return e.Err
}

// NewLoginError creates a new LoginError.
func NewLoginError(code, message string, err error) *LoginError {
	return &LoginError{Code: code, Message: message, Err: err}
}

// ToDetail converts an internal error to an API-facing ErrorDetail.
func (e *LoginError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: e.Code, Message: e.Message}
}

// CodeOf returns the code of the first LoginError in err's chain, or
// ErrCodeInternal when there is none.
func CodeOf(err error) string {
	var le *LoginError
	if errors.As(err, &le) {
		return le.Code
	}
	return ErrCodeInternal
}

// IsCode reports whether err carries the given LoginError code.
func IsCode(err error, code string) bool {
	var le *LoginError
	return errors.As(err, &le) && le.Code == code
}

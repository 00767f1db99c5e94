// Package apperr maps domain errors onto HTTP status codes and machine-readable
// error codes. Clients rely on the codes to discriminate "profile not found"
// from genuine backend errors, so handlers must never collapse them into a
// generic 500.
package apperr

import (
	"errors"
	"net/http"
)

var (
	ErrProfileNotFound    = errors.New("profile not found")
	ErrProfileExists      = errors.New("profile already exists")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrBranchNotFound     = errors.New("branch not found")
	ErrTokenRevoked       = errors.New("token has been revoked")
)

// ErrorResponse is the JSON body every failed request carries.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

func (e *HTTPError) ToResponse() ErrorResponse {
	return ErrorResponse{Error: e.Message, Code: e.Code}
}

func New(statusCode int, message, code string) *HTTPError {
	return &HTTPError{StatusCode: statusCode, Message: message, Code: code}
}

// FromError maps a domain error to an HTTPError. Unknown errors become a
// generic 500 without leaking internals.
func FromError(err error) *HTTPError {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}

	switch {
	case errors.Is(err, ErrProfileNotFound):
		return New(http.StatusNotFound, err.Error(), "PROFILE_NOT_FOUND")
	case errors.Is(err, ErrProfileExists):
		return New(http.StatusConflict, err.Error(), "PROFILE_EXISTS")
	case errors.Is(err, ErrEmailTaken):
		return New(http.StatusConflict, err.Error(), "EMAIL_TAKEN")
	case errors.Is(err, ErrInvalidCredentials):
		return New(http.StatusUnauthorized, err.Error(), "INVALID_CREDENTIALS")
	case errors.Is(err, ErrBranchNotFound):
		return New(http.StatusNotFound, err.Error(), "BRANCH_NOT_FOUND")
	case errors.Is(err, ErrTokenRevoked):
		return New(http.StatusUnauthorized, err.Error(), "TOKEN_REVOKED")
	default:
		return New(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}

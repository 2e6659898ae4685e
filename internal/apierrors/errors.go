package apierrors

import (
	"errors"
	"net/http"
)

// Error codes used in the response envelope.
const (
	CodeInvalidRequest       = "invalid_request"
	CodeNotFound             = "not_found"
	CodeUnauthorized         = "unauthorized"
	CodeInsufficientScope    = "insufficient_scope"
	CodeInvalidGrant         = "invalid_grant"
	CodeUnsupportedGrantType = "unsupported_grant_type"
	CodeServerError          = "server_error"
)

const (
	DefaultError         = "Something went wrong"
	UserNotFound         = "User not found"
	RequestNotFound      = "Request not found"
	MissingEmailUsername = "Missing email or username parameters"
)

// APIError is the uniform error shape surfaced to clients.
type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Status  int    `json:"-"`
}

func (e *APIError) Error() string {
	return e.Message
}

func New(message, code string, status int) *APIError {
	return &APIError{Message: message, Code: code, Status: status}
}

func InvalidRequest(message string) *APIError {
	return New(message, CodeInvalidRequest, http.StatusBadRequest)
}

func NotFound(message string) *APIError {
	return New(message, CodeNotFound, http.StatusNotFound)
}

func Unauthorized(message string) *APIError {
	return New(message, CodeUnauthorized, http.StatusUnauthorized)
}

func InsufficientScope() *APIError {
	return New("Insufficient scope", CodeInsufficientScope, http.StatusForbidden)
}

func InvalidGrant(message string) *APIError {
	return New(message, CodeInvalidGrant, http.StatusBadRequest)
}

func Server(message string) *APIError {
	return New(message, CodeServerError, http.StatusInternalServerError)
}

// AsAPIError unwraps err to an *APIError if there is one in the chain.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

package vapi

import (
	"errors"
	"fmt"
)

// Sentinel errors for the vapi package.
var (
	// ErrMissingAPIKey indicates the API key was not provided.
	ErrMissingAPIKey = errors.New("vapi: API key is required")

	// ErrMissingTarget indicates neither a workflow nor an assistant was
	// configured.
	ErrMissingTarget = errors.New("vapi: workflow or assistant ID is required")

	// ErrAmbiguousTarget indicates both a workflow and an assistant were
	// configured.
	ErrAmbiguousTarget = errors.New("vapi: workflow and assistant IDs are mutually exclusive")

	// ErrNotConnected indicates the engine has no open call transport.
	ErrNotConnected = errors.New("vapi: not connected")

	// ErrAlreadyConnected indicates a call is already in progress.
	ErrAlreadyConnected = errors.New("vapi: already connected")

	// ErrConnectionClosed indicates the transport closed unexpectedly.
	ErrConnectionClosed = errors.New("vapi: connection closed")

	// ErrNoTransportURL indicates the created call did not include a
	// websocket transport URL.
	ErrNoTransportURL = errors.New("vapi: call has no websocket transport URL")

	// ErrInvalidMessage indicates a malformed event was received.
	ErrInvalidMessage = errors.New("vapi: invalid message")

	// ErrMissingUserID indicates a token was requested without a user.
	ErrMissingUserID = errors.New("vapi: user ID is required")

	// ErrMissingPrivateKey indicates token minting was attempted without
	// a signing key.
	ErrMissingPrivateKey = errors.New("vapi: private key is required")

	// ErrTimeout indicates an operation timed out.
	ErrTimeout = errors.New("vapi: operation timed out")

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("vapi: rate limited")
)

// APIError represents an error response from the platform REST API.
type APIError struct {
	// StatusCode is the HTTP status code (if applicable).
	StatusCode int

	// Code is the error code from the API.
	Code string

	// Message is the human-readable error message.
	Message string

	// Retryable indicates if the request can be retried.
	Retryable bool
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("vapi: API error [%s]: %s", e.Code, e.Message)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("vapi: API error (HTTP %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("vapi: API error: %s", e.Message)
}

// Unwrap returns nil as APIError is a leaf error.
func (e *APIError) Unwrap() error {
	return nil
}

// IsRetryable returns true if the error can be retried.
func (e *APIError) IsRetryable() bool {
	return e.Retryable
}

// NewAPIError creates a new APIError.
func NewAPIError(statusCode int, code, message string) *APIError {
	retryable := statusCode == 429 || statusCode >= 500
	return &APIError{
		StatusCode: statusCode,
		Code:       code,
		Message:    message,
		Retryable:  retryable,
	}
}

// ConnectionError represents a call transport error.
type ConnectionError struct {
	// Reason describes why the connection failed.
	Reason string

	// Cause is the underlying error.
	Cause error

	// Retryable indicates if a fresh call could succeed. The engine
	// itself never retries; that is the caller's decision.
	Retryable bool
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("vapi: connection error: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("vapi: connection error: %s", e.Reason)
}

// Unwrap returns the underlying cause.
func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// IsRetryable returns true if a fresh call could succeed.
func (e *ConnectionError) IsRetryable() bool {
	return e.Retryable
}

// NewConnectionError creates a new ConnectionError.
func NewConnectionError(reason string, cause error, retryable bool) *ConnectionError {
	return &ConnectionError{
		Reason:    reason,
		Cause:     cause,
		Retryable: retryable,
	}
}

// Error checking helpers.

// IsNotConnected returns true if the error indicates no connection.
func IsNotConnected(err error) bool {
	return errors.Is(err, ErrNotConnected) || errors.Is(err, ErrConnectionClosed)
}

// IsRetryable returns true if the error can be retried.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsRetryable()
	}
	var connErr *ConnectionError
	if errors.As(err, &connErr) {
		return connErr.IsRetryable()
	}
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrTimeout)
}

// IsRateLimited returns true if the error is due to rate limiting.
func IsRateLimited(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}

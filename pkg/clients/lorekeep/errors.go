package lorekeep

import (
	"errors"
	"fmt"
)

// Error represents an error from the Lorekeep API
type Error struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	Body       string `json:"body,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("lorekeep: %s (status: %d, request_id: %s)", e.Message, e.StatusCode, e.RequestID)
	}
	return fmt.Sprintf("lorekeep: %s (status: %d)", e.Message, e.StatusCode)
}

// IsRetryable returns true if the error might be resolved by retrying
func (e *Error) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}

// IsClientError returns true if the error is due to client input
func (e *Error) IsClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// IsServerError returns true if the error is due to server issues
func (e *Error) IsServerError() bool {
	return e.StatusCode >= 500
}

// IsNotFound returns true if the resource was not found
func (e *Error) IsNotFound() bool {
	return e.StatusCode == 404
}

// IsConflict returns true if the operation clashed with one in flight,
// such as reindexing a file that is already being indexed
func (e *Error) IsConflict() bool {
	return e.StatusCode == 409
}

// IsUnprocessable returns true if the submitted content could not be
// ingested, such as an undecodable file
func (e *Error) IsUnprocessable() bool {
	return e.StatusCode == 422
}

// IsLorekeepError checks if an error is, or wraps, a Lorekeep API error
func IsLorekeepError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsNotFoundError checks if an error is a not-found API error
func IsNotFoundError(err error) bool {
	if e, ok := IsLorekeepError(err); ok {
		return e.IsNotFound()
	}
	return false
}

// IsRetryableError checks if an error is retryable
func IsRetryableError(err error) bool {
	if e, ok := IsLorekeepError(err); ok {
		return e.IsRetryable()
	}
	return false
}

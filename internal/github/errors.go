package github

import (
	"errors"
	"fmt"
	"time"
)

// AuthenticationError represents an authentication failure (401)
type AuthenticationError struct {
	Message string
	Err     error
}

func (e *AuthenticationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication failed: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("authentication failed: %s", e.Message)
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// NewAuthenticationError creates a new AuthenticationError
func NewAuthenticationError(message string, err error) *AuthenticationError {
	return &AuthenticationError{
		Message: message,
		Err:     err,
	}
}

// IsAuthenticationError checks if an error is (or wraps) an AuthenticationError
func IsAuthenticationError(err error) bool {
	var target *AuthenticationError
	return errors.As(err, &target)
}

// RateLimitError represents an exhausted API rate limit (403/429)
type RateLimitError struct {
	Message   string
	Limit     int
	Remaining int
	ResetAt   int64 // Unix timestamp
	Err       error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded: %s (limit: %d, remaining: %d, resets at: %s)",
		e.Message, e.Limit, e.Remaining, time.Unix(e.ResetAt, 0).Format(time.RFC3339))
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

// NewRateLimitError creates a new RateLimitError
func NewRateLimitError(message string, limit, remaining int, resetAt int64, err error) *RateLimitError {
	return &RateLimitError{
		Message:   message,
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   resetAt,
		Err:       err,
	}
}

// IsRateLimitError checks if an error is (or wraps) a RateLimitError
func IsRateLimitError(err error) bool {
	var target *RateLimitError
	return errors.As(err, &target)
}

// NotFoundError is returned for a 404 response
type NotFoundError struct {
	Resource string
	Err      error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("not found: %s", e.Resource)
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource string, err error) *NotFoundError {
	return &NotFoundError{Resource: resource, Err: err}
}

// IsNotFoundError checks if an error is (or wraps) a NotFoundError
func IsNotFoundError(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

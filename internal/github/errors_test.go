package github

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAuthenticationError(t *testing.T) {
	base := errors.New("token expired")
	err := NewAuthenticationError("failed to get current user", base)

	assert.Equal(t, "authentication failed: failed to get current user: token expired", err.Error())
	assert.ErrorIs(t, err, base)
	assert.True(t, IsAuthenticationError(fmt.Errorf("wrapped: %w", err)))
	assert.False(t, IsAuthenticationError(base))

	assert.Equal(t, "authentication failed: no token", NewAuthenticationError("no token", nil).Error())
}

func TestRateLimitError(t *testing.T) {
	err := NewRateLimitError("API rate limit exceeded", 60, 0, 0, nil)

	assert.Contains(t, err.Error(), "rate limit exceeded: API rate limit exceeded")
	assert.Contains(t, err.Error(), "limit: 60, remaining: 0")
	assert.True(t, IsRateLimitError(fmt.Errorf("search: %w", err)))
	assert.False(t, IsRateLimitError(errors.New("other")))
}

func TestNotFoundError(t *testing.T) {
	base := errors.New("HTTP 404")
	err := NewNotFoundError("/repos/acme/widgets/pulls/1", base)

	assert.Equal(t, "not found: /repos/acme/widgets/pulls/1", err.Error())
	assert.ErrorIs(t, err, base)
	assert.True(t, IsNotFoundError(fmt.Errorf("fetch: %w", err)))
}

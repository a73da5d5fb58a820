package github

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseRateLimitHeaders(t *testing.T) {
	t.Run("parses all headers", func(t *testing.T) {
		headers := http.Header{}
		headers.Set("X-RateLimit-Limit", "5000")
		headers.Set("X-RateLimit-Remaining", "4999")
		headers.Set("X-RateLimit-Reset", "1234567890")

		info := ParseRateLimitHeaders(headers)

		assert.Equal(t, 5000, info.Limit)
		assert.Equal(t, 4999, info.Remaining)
		assert.True(t, info.Reset.Equal(time.Unix(1234567890, 0)))
		assert.True(t, info.Known())
		assert.False(t, info.IsRateLimited())
	})

	t.Run("handles missing headers", func(t *testing.T) {
		info := ParseRateLimitHeaders(http.Header{})

		assert.Zero(t, info.Limit)
		assert.Zero(t, info.Remaining)
		assert.True(t, info.Reset.IsZero())
		assert.False(t, info.Known())
	})

	t.Run("handles invalid values", func(t *testing.T) {
		headers := http.Header{}
		headers.Set("X-RateLimit-Limit", "invalid")
		headers.Set("X-RateLimit-Remaining", "invalid")
		headers.Set("X-RateLimit-Reset", "invalid")

		info := ParseRateLimitHeaders(headers)

		assert.Zero(t, info.Limit)
		assert.Zero(t, info.Remaining)
		assert.True(t, info.Reset.IsZero())
	})
}

func TestRateLimitString(t *testing.T) {
	var missing *RateLimitInfo
	assert.Equal(t, "requests remaining: unknown", missing.String())

	info := &RateLimitInfo{Limit: 30, Remaining: 12, Reset: time.Now()}
	assert.Contains(t, info.String(), "requests remaining: 12/30")

	exhausted := &RateLimitInfo{Limit: 30, Remaining: 0}
	assert.True(t, exhausted.IsRateLimited())
}

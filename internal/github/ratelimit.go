package github

import (
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// RateLimitInfo contains information about GitHub API rate limits
type RateLimitInfo struct {
	Limit     int       // Maximum number of requests per hour
	Remaining int       // Number of requests remaining in the current window
	Reset     time.Time // Time when the rate limit resets
}

// ParseRateLimitHeaders extracts rate limit information from HTTP response headers
// GitHub returns X-RateLimit-* headers with rate limit information
func ParseRateLimitHeaders(headers http.Header) *RateLimitInfo {
	info := &RateLimitInfo{}

	if limit := headers.Get("X-RateLimit-Limit"); limit != "" {
		if val, err := strconv.Atoi(limit); err == nil {
			info.Limit = val
		}
	}

	if remaining := headers.Get("X-RateLimit-Remaining"); remaining != "" {
		if val, err := strconv.Atoi(remaining); err == nil {
			info.Remaining = val
		}
	}

	// Unix timestamp
	if reset := headers.Get("X-RateLimit-Reset"); reset != "" {
		if val, err := strconv.ParseInt(reset, 10, 64); err == nil {
			info.Reset = time.Unix(val, 0)
		}
	}

	return info
}

// IsRateLimited checks if the rate limit has been exceeded
func (r *RateLimitInfo) IsRateLimited() bool {
	return r.Remaining == 0
}

// Known reports whether the response carried rate limit headers
func (r *RateLimitInfo) Known() bool {
	return r != nil && r.Limit > 0
}

// String renders the remaining request budget for the operator
func (r *RateLimitInfo) String() string {
	if !r.Known() {
		return "requests remaining: unknown"
	}
	return fmt.Sprintf("requests remaining: %d/%d (resets at %s)",
		r.Remaining, r.Limit, r.Reset.Local().Format(time.Kitchen))
}

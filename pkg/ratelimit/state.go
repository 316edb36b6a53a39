// Package ratelimit implements Recurly API rate limit tracking and request
// gating. It monitors the X-RateLimit-Limit, X-RateLimit-Remaining and
// X-RateLimit-Reset headers and slows down or blocks requests before the
// server starts rejecting them with 429.
package ratelimit

import (
	"time"
)

// Thresholds for rate limit decisions.
const (
	// ThresholdCritical blocks all requests when remaining requests fall below this value.
	ThresholdCritical = 5

	// ThresholdWarning applies throttling when remaining requests fall below this value.
	ThresholdWarning = 20

	// ThresholdHealthy indicates normal operation.
	// When remaining requests are at or above this value, no restrictions apply.
	ThresholdHealthy = 50
)

// RateLimitState represents the current rate limit window.
type RateLimitState struct {
	// Limit is the window size from the X-RateLimit-Limit header.
	Limit int `json:"limit"`

	// Remaining is the number of requests left in the current window.
	// Extracted from the X-RateLimit-Remaining header.
	Remaining int `json:"remaining"`

	// ResetAt is when the window resets (X-RateLimit-Reset, unix seconds).
	ResetAt time.Time `json:"reset_at"`

	// LastUpdate is when this state was last updated.
	LastUpdate time.Time `json:"last_update"`

	// IsHealthy is true when Remaining >= ThresholdHealthy.
	IsHealthy bool `json:"is_healthy"`
}

// IsStale returns true if the state data is older than the given duration.
func (s *RateLimitState) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// WindowExpired reports whether the reset time has passed, making the
// recorded Remaining count meaningless.
func (s *RateLimitState) WindowExpired() bool {
	return !s.ResetAt.IsZero() && !time.Now().Before(s.ResetAt)
}

// NeedsCriticalBlock returns true if requests should be blocked.
func (s *RateLimitState) NeedsCriticalBlock() bool {
	return s.Remaining < ThresholdCritical && !s.WindowExpired()
}

// NeedsThrottling returns true if requests should be throttled due to warning threshold.
func (s *RateLimitState) NeedsThrottling() bool {
	return s.Remaining < ThresholdWarning && !s.WindowExpired() && !s.NeedsCriticalBlock()
}

// TimeUntilReset returns the duration until the window resets.
// Returns 0 if the reset time has already passed.
func (s *RateLimitState) TimeUntilReset() time.Duration {
	duration := time.Until(s.ResetAt)
	if duration < 0 {
		return 0
	}
	return duration
}

// UpdateHealth updates the IsHealthy field based on current Remaining.
func (s *RateLimitState) UpdateHealth() {
	s.IsHealthy = s.Remaining >= ThresholdHealthy
}

// defaultState is assumed until the first response reports real numbers.
func defaultState() *RateLimitState {
	now := time.Now()
	return &RateLimitState{
		Limit:      1000,
		Remaining:  1000,
		LastUpdate: now,
		IsHealthy:  true,
	}
}

package ratelimit

import (
	"testing"
	"time"
)

func TestRateLimitState_IsStale(t *testing.T) {
	tests := []struct {
		name     string
		state    *RateLimitState
		maxAge   time.Duration
		expected bool
	}{
		{
			name:     "fresh state",
			state:    &RateLimitState{LastUpdate: time.Now()},
			maxAge:   5 * time.Minute,
			expected: false,
		},
		{
			name:     "stale state",
			state:    &RateLimitState{LastUpdate: time.Now().Add(-10 * time.Minute)},
			maxAge:   5 * time.Minute,
			expected: true,
		},
		{
			name:     "just under max age",
			state:    &RateLimitState{LastUpdate: time.Now().Add(-4 * time.Minute)},
			maxAge:   5 * time.Minute,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := tt.state.IsStale(tt.maxAge); result != tt.expected {
				t.Errorf("IsStale() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestRateLimitState_NeedsCriticalBlock(t *testing.T) {
	future := time.Now().Add(time.Minute)
	past := time.Now().Add(-time.Minute)

	tests := []struct {
		name      string
		remaining int
		resetAt   time.Time
		expected  bool
	}{
		{name: "well above critical threshold", remaining: 50, resetAt: future, expected: false},
		{name: "at critical threshold", remaining: ThresholdCritical, resetAt: future, expected: false},
		{name: "just below critical threshold", remaining: ThresholdCritical - 1, resetAt: future, expected: true},
		{name: "zero remaining", remaining: 0, resetAt: future, expected: true},
		{name: "zero remaining, unknown reset", remaining: 0, expected: true},
		{name: "zero remaining, window already reset", remaining: 0, resetAt: past, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := &RateLimitState{Remaining: tt.remaining, ResetAt: tt.resetAt}
			if result := state.NeedsCriticalBlock(); result != tt.expected {
				t.Errorf("NeedsCriticalBlock() = %v, want %v (remaining=%d)", result, tt.expected, tt.remaining)
			}
		})
	}
}

func TestRateLimitState_NeedsThrottling(t *testing.T) {
	future := time.Now().Add(time.Minute)

	tests := []struct {
		name      string
		remaining int
		resetAt   time.Time
		expected  bool
	}{
		{name: "healthy state", remaining: 50, resetAt: future, expected: false},
		{name: "at warning threshold", remaining: ThresholdWarning, resetAt: future, expected: false},
		{name: "just below warning threshold", remaining: ThresholdWarning - 1, resetAt: future, expected: true},
		{name: "just above critical threshold", remaining: ThresholdCritical + 1, resetAt: future, expected: true},
		// Critical blocks, not throttles
		{name: "below critical threshold", remaining: ThresholdCritical - 1, resetAt: future, expected: false},
		{name: "window already reset", remaining: 10, resetAt: time.Now().Add(-time.Second), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := &RateLimitState{Remaining: tt.remaining, ResetAt: tt.resetAt}
			if result := state.NeedsThrottling(); result != tt.expected {
				t.Errorf("NeedsThrottling() = %v, want %v (remaining=%d)", result, tt.expected, tt.remaining)
			}
		})
	}
}

func TestRateLimitState_TimeUntilReset(t *testing.T) {
	tests := []struct {
		name    string
		resetAt time.Time
		wantMin time.Duration
		wantMax time.Duration
	}{
		{name: "reset in future", resetAt: time.Now().Add(30 * time.Second), wantMin: 29 * time.Second, wantMax: 30 * time.Second},
		{name: "reset in past", resetAt: time.Now().Add(-30 * time.Second), wantMin: 0, wantMax: 0},
		{name: "reset unknown", wantMin: 0, wantMax: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := &RateLimitState{ResetAt: tt.resetAt}
			got := state.TimeUntilReset()
			if got < tt.wantMin || got > tt.wantMax {
				t.Errorf("TimeUntilReset() = %v, want between %v and %v", got, tt.wantMin, tt.wantMax)
			}
		})
	}
}

func TestRateLimitState_UpdateHealth(t *testing.T) {
	tests := []struct {
		remaining int
		want      bool
	}{
		{remaining: 1000, want: true},
		{remaining: ThresholdHealthy, want: true},
		{remaining: ThresholdHealthy - 1, want: false},
		{remaining: 0, want: false},
	}

	for _, tt := range tests {
		state := &RateLimitState{Remaining: tt.remaining}
		state.UpdateHealth()
		if state.IsHealthy != tt.want {
			t.Errorf("UpdateHealth() remaining=%d: IsHealthy = %v, want %v", tt.remaining, state.IsHealthy, tt.want)
		}
	}
}

func TestThresholdConstants(t *testing.T) {
	if !(ThresholdCritical < ThresholdWarning && ThresholdWarning < ThresholdHealthy) {
		t.Errorf("thresholds out of order: critical=%d warning=%d healthy=%d",
			ThresholdCritical, ThresholdWarning, ThresholdHealthy)
	}
}

package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestTracker() (*Tracker, *MemoryStore) {
	store := NewMemoryStore()
	tracker := NewTracker(store, zerolog.Nop())
	tracker.SetThrottleDelay(10 * time.Millisecond)
	return tracker, store
}

func rateLimitHeaders(limit, remaining int, reset time.Time) http.Header {
	h := http.Header{}
	h.Set(HeaderLimit, strconv.Itoa(limit))
	h.Set(HeaderRemaining, strconv.Itoa(remaining))
	h.Set(HeaderReset, strconv.FormatInt(reset.Unix(), 10))
	return h
}

func TestTracker_GetState_Default(t *testing.T) {
	tracker, _ := newTestTracker()

	state, err := tracker.GetState(context.Background())
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if !state.IsHealthy {
		t.Error("default state should be healthy")
	}
	if state.NeedsCriticalBlock() || state.NeedsThrottling() {
		t.Error("default state must not restrict requests")
	}
}

func TestUpdateFromHeaders_ValidHeaders(t *testing.T) {
	reset := time.Now().Add(5 * time.Minute).Truncate(time.Second)

	tests := []struct {
		name            string
		remaining       int
		expectedHealthy bool
	}{
		{name: "healthy state", remaining: 900, expectedHealthy: true},
		{name: "warning state", remaining: 15, expectedHealthy: false},
		{name: "critical state", remaining: 3, expectedHealthy: false},
		{name: "at healthy threshold", remaining: ThresholdHealthy, expectedHealthy: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker, _ := newTestTracker()
			ctx := context.Background()

			if err := tracker.UpdateFromHeaders(ctx, rateLimitHeaders(1000, tt.remaining, reset)); err != nil {
				t.Fatalf("UpdateFromHeaders() error = %v", err)
			}

			state, err := tracker.GetState(ctx)
			if err != nil {
				t.Fatalf("GetState() error = %v", err)
			}
			if state.Remaining != tt.remaining {
				t.Errorf("Remaining = %d, want %d", state.Remaining, tt.remaining)
			}
			if state.Limit != 1000 {
				t.Errorf("Limit = %d, want 1000", state.Limit)
			}
			if !state.ResetAt.Equal(reset) {
				t.Errorf("ResetAt = %v, want %v", state.ResetAt, reset)
			}
			if state.IsHealthy != tt.expectedHealthy {
				t.Errorf("IsHealthy = %v, want %v", state.IsHealthy, tt.expectedHealthy)
			}
		})
	}
}

func TestUpdateFromHeaders_InvalidHeaders(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		wantErr bool
	}{
		{name: "no headers", headers: map[string]string{}, wantErr: false},
		{name: "non numeric remaining", headers: map[string]string{HeaderRemaining: "lots"}, wantErr: true},
		{name: "non numeric limit", headers: map[string]string{HeaderRemaining: "10", HeaderLimit: "x"}, wantErr: true},
		{name: "non numeric reset", headers: map[string]string{HeaderRemaining: "10", HeaderReset: "soon"}, wantErr: true},
		{name: "remaining only", headers: map[string]string{HeaderRemaining: "10"}, wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker, store := newTestTracker()
			h := http.Header{}
			for k, v := range tt.headers {
				h.Set(k, v)
			}

			err := tracker.UpdateFromHeaders(context.Background(), h)
			if (err != nil) != tt.wantErr {
				t.Fatalf("UpdateFromHeaders() error = %v, wantErr %v", err, tt.wantErr)
			}

			if tt.wantErr {
				if state, _ := store.Load(context.Background()); state != nil {
					t.Error("invalid headers must not change the stored state")
				}
			}
		})
	}
}

func TestShouldAllowRequest(t *testing.T) {
	future := time.Now().Add(time.Minute)

	tests := []struct {
		name      string
		remaining int
		resetAt   time.Time
		allowed   bool
		throttled bool
	}{
		{name: "healthy", remaining: 500, resetAt: future, allowed: true},
		{name: "warning throttles", remaining: ThresholdWarning - 1, resetAt: future, allowed: true, throttled: true},
		{name: "critical blocks", remaining: ThresholdCritical - 1, resetAt: future, allowed: false},
		{name: "critical but window reset", remaining: 0, resetAt: time.Now().Add(-time.Second), allowed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker, store := newTestTracker()
			ctx := context.Background()
			_ = store.Save(ctx, &RateLimitState{Remaining: tt.remaining, ResetAt: tt.resetAt, LastUpdate: time.Now()})

			start := time.Now()
			allowed, err := tracker.ShouldAllowRequest(ctx)
			elapsed := time.Since(start)

			if err != nil {
				t.Fatalf("ShouldAllowRequest() error = %v", err)
			}
			if allowed != tt.allowed {
				t.Errorf("ShouldAllowRequest() = %v, want %v", allowed, tt.allowed)
			}
			if tt.throttled && elapsed < 10*time.Millisecond {
				t.Errorf("expected throttle pause, request took %v", elapsed)
			}
		})
	}
}

func TestShouldAllowRequest_ThrottleHonoursContext(t *testing.T) {
	tracker, store := newTestTracker()
	tracker.SetThrottleDelay(time.Hour)

	_ = store.Save(context.Background(), &RateLimitState{
		Remaining: ThresholdWarning - 1,
		ResetAt:   time.Now().Add(time.Minute),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	allowed, err := tracker.ShouldAllowRequest(ctx)
	if allowed {
		t.Error("cancelled request must not be allowed")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want context.DeadlineExceeded", err)
	}
}

type failingStore struct{}

func (failingStore) Load(context.Context) (*RateLimitState, error) {
	return nil, errors.New("store down")
}

func (failingStore) Save(context.Context, *RateLimitState) error {
	return errors.New("store down")
}

func TestShouldAllowRequest_StoreError(t *testing.T) {
	tracker := NewTracker(failingStore{}, zerolog.Nop())

	allowed, err := tracker.ShouldAllowRequest(context.Background())
	if err == nil {
		t.Fatal("expected error from failing store")
	}
	if allowed {
		t.Error("request must not be allowed when state is unavailable")
	}
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	state := &RateLimitState{Remaining: 10}
	_ = store.Save(ctx, state)
	state.Remaining = 99

	loaded, _ := store.Load(ctx)
	if loaded.Remaining != 10 {
		t.Errorf("Remaining = %d, want 10", loaded.Remaining)
	}

	loaded.Remaining = 1
	again, _ := store.Load(ctx)
	if again.Remaining != 10 {
		t.Errorf("Load() exposes internal state: Remaining = %d", again.Remaining)
	}
}

package realtime

import (
	"testing"
	"time"
)

func TestRateLimiterAllow(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(3, time.Second)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		if !rl.Allow(base.Add(time.Duration(i) * time.Millisecond)) {
			t.Fatalf("event %d denied under limit", i)
		}
	}
	if rl.Allow(base.Add(4 * time.Millisecond)) {
		t.Fatal("event over limit allowed")
	}

	// Window slides: old events expire.
	if !rl.Allow(base.Add(1100 * time.Millisecond)) {
		t.Fatal("event after window denied")
	}
}

func TestRateLimiterDefaults(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(0, 0)
	if !rl.Allow(time.Now()) {
		t.Fatal("limiter with defaults denied first event")
	}
}

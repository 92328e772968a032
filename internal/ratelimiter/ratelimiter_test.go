package ratelimiter

import (
	"context"
	"testing"
	"time"
)

// TestNew verifies throttle creation with different parameters.
func TestNew(t *testing.T) {
	tests := []struct {
		name            string
		acceptsPerSec   uint
		burst           uint
		wantNilThrottle bool
	}{
		{name: "standard rate", acceptsPerSec: 100, burst: 200},
		{name: "zero burst raised to one", acceptsPerSec: 5, burst: 0},
		{name: "unlimited (zero rate)", acceptsPerSec: 0, burst: 0, wantNilThrottle: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			throttle := New(tt.acceptsPerSec, tt.burst)
			if tt.wantNilThrottle {
				if throttle != nil {
					t.Fatal("New() should return nil for unlimited rate")
				}
				return
			}
			if throttle == nil || throttle.limiter == nil {
				t.Fatal("New() returned an unusable throttle")
			}
			if throttle.limiter.Burst() < 1 {
				t.Fatalf("burst = %d, want >= 1", throttle.limiter.Burst())
			}
		})
	}
}

// TestNilThrottle verifies the unlimited throttle never blocks.
func TestNilThrottle(t *testing.T) {
	var throttle *Throttle

	start := time.Now()
	for i := 0; i < 1000; i++ {
		if err := throttle.Wait(context.Background()); err != nil {
			t.Fatalf("nil throttle Wait() returned %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Fatalf("nil throttle waited %v", elapsed)
	}
}

// TestWaitEnforcesRate verifies the burst passes at once and the next
// accept waits for a token.
func TestWaitEnforcesRate(t *testing.T) {
	throttle := New(10, 10)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 10; i++ {
		if err := throttle.Wait(ctx); err != nil {
			t.Fatalf("accept %d: Wait() returned %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Fatalf("burst of 10 took %v, want immediate", elapsed)
	}

	start = time.Now()
	if err := throttle.Wait(ctx); err != nil {
		t.Fatalf("Wait() returned %v", err)
	}
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Fatalf("accept after burst took %v, want about 100ms", elapsed)
	}
}

// TestWaitContextCancellation verifies Wait() respects context cancellation.
func TestWaitContextCancellation(t *testing.T) {
	throttle := New(1, 1)
	if err := throttle.Wait(context.Background()); err != nil {
		t.Fatalf("first accept: Wait() returned %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := throttle.Wait(ctx); err == nil {
		t.Fatal("Wait() should return error when context is cancelled")
	}
}

package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

func closeLimiter(t *testing.T, m *MemoryLimiter) {
	t.Helper()
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

// frozenLimiter pins the limiter's clock so tests control refill exactly.
func frozenLimiter(t *testing.T, rate float64, burst int) (*MemoryLimiter, *time.Time) {
	t.Helper()
	m := NewMemoryLimiter(rate, burst)
	t.Cleanup(func() { closeLimiter(t, m) })
	now := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	return m, &now
}

func mustAllow(t *testing.T, m *MemoryLimiter, key string) bool {
	t.Helper()
	ok, err := m.Allow(context.Background(), key)
	if err != nil {
		t.Fatalf("Allow(%q): %v", key, err)
	}
	return ok
}

func TestMemoryLimiterBurstThenDenied(t *testing.T) {
	m, _ := frozenLimiter(t, 10, 3)

	for i := 0; i < 3; i++ {
		if !mustAllow(t, m, "203.0.113.9") {
			t.Fatalf("request %d should fit in the burst", i)
		}
	}
	if mustAllow(t, m, "203.0.113.9") {
		t.Fatal("request past the burst should be denied")
	}
}

func TestMemoryLimiterRefillsOverTime(t *testing.T) {
	m, now := frozenLimiter(t, 2, 1) // one token back every 500ms

	if !mustAllow(t, m, "203.0.113.9") {
		t.Fatal("fresh key should be allowed")
	}
	if mustAllow(t, m, "203.0.113.9") {
		t.Fatal("empty bucket should deny")
	}

	*now = now.Add(600 * time.Millisecond)
	if !mustAllow(t, m, "203.0.113.9") {
		t.Fatal("bucket should have refilled after 600ms at 2/s")
	}
}

func TestMemoryLimiterAllowanceCappedAtBurst(t *testing.T) {
	m, now := frozenLimiter(t, 100, 2)

	mustAllow(t, m, "203.0.113.9")
	*now = now.Add(time.Hour) // a long lull must not bank extra allowance

	for i := 0; i < 2; i++ {
		if !mustAllow(t, m, "203.0.113.9") {
			t.Fatalf("request %d should succeed after the lull", i)
		}
	}
	if mustAllow(t, m, "203.0.113.9") {
		t.Fatal("allowance should cap at the burst, not accumulate")
	}
}

func TestMemoryLimiterKeysAreIndependent(t *testing.T) {
	m, _ := frozenLimiter(t, 10, 1)

	if !mustAllow(t, m, "203.0.113.9") {
		t.Fatal("first key's first request should succeed")
	}
	if mustAllow(t, m, "203.0.113.9") {
		t.Fatal("first key is spent")
	}
	if !mustAllow(t, m, "198.51.100.4") {
		t.Fatal("a different key has its own bucket")
	}
}

func TestMemoryLimiterConcurrentSameKey(t *testing.T) {
	m := NewMemoryLimiter(0.001, 40) // effectively no refill during the test
	defer closeLimiter(t, m)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				ok, err := m.Allow(context.Background(), "shared")
				if err != nil {
					t.Errorf("Allow: %v", err)
					return
				}
				if ok {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	if allowed != 40 {
		t.Fatalf("80 concurrent requests against burst 40: allowed %d, want exactly 40", allowed)
	}
}

func TestMemoryLimiterDropsIdleVisitors(t *testing.T) {
	m, now := frozenLimiter(t, 10, 5)

	mustAllow(t, m, "idle")
	*now = now.Add(idleTTL + time.Minute)
	mustAllow(t, m, "active")

	m.dropIdle()

	m.mu.Lock()
	_, idleKept := m.visitors["idle"]
	_, activeKept := m.visitors["active"]
	m.mu.Unlock()

	if idleKept {
		t.Fatal("visitor idle past the TTL should be dropped")
	}
	if !activeKept {
		t.Fatal("recently seen visitor should survive the sweep")
	}
}

func TestMemoryLimiterCloseTwice(t *testing.T) {
	m := NewMemoryLimiter(10, 5)
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestNoopLimiterAllowsEverything(t *testing.T) {
	var l NoopLimiter
	ok, err := l.Allow(context.Background(), "anything")
	if err != nil || !ok {
		t.Fatalf("NoopLimiter.Allow = %v, %v; want true, nil", ok, err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("NoopLimiter.Close: %v", err)
	}
}

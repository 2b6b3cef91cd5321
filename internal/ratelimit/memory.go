package ratelimit

import (
	"context"
	"sync"
	"time"
)

// visitor holds the remaining request allowance for one caller.
type visitor struct {
	allowance float64
	seenAt    time.Time
}

// MemoryLimiter is a per-key token bucket held in process memory, used to
// keep a single chatty client from flooding the write endpoints. Each key
// (the client IP, in practice) drains its own bucket; allowance refills at
// the sustained rate up to the burst ceiling. A sweeper goroutine drops
// buckets idle past idleTTL so the map stays bounded.
type MemoryLimiter struct {
	rate  float64 // allowance regained per second
	burst float64 // bucket ceiling
	now   func() time.Time

	mu       sync.Mutex
	visitors map[string]*visitor

	stopOnce sync.Once
	done     chan struct{}
}

// NewMemoryLimiter returns a limiter sustaining rate requests per second
// per key with bursts up to burst. Call Close to stop the idle sweeper.
func NewMemoryLimiter(rate float64, burst int) *MemoryLimiter {
	m := &MemoryLimiter{
		rate:     rate,
		burst:    float64(burst),
		now:      time.Now,
		visitors: make(map[string]*visitor),
		done:     make(chan struct{}),
	}
	go m.sweep()
	return m
}

// Allow spends one unit of key's allowance, reporting whether any remained.
func (m *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	v, ok := m.visitors[key]
	if !ok {
		// Unseen key: full bucket, spend one.
		m.visitors[key] = &visitor{allowance: m.burst - 1, seenAt: now}
		return true, nil
	}

	v.allowance = min(v.allowance+now.Sub(v.seenAt).Seconds()*m.rate, m.burst)
	v.seenAt = now
	if v.allowance < 1 {
		return false, nil
	}
	v.allowance--
	return true, nil
}

// Close stops the idle sweeper. Safe to call more than once.
func (m *MemoryLimiter) Close() error {
	m.stopOnce.Do(func() { close(m.done) })
	return nil
}

const (
	idleTTL       = 10 * time.Minute
	sweepInterval = time.Minute
)

func (m *MemoryLimiter) sweep() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.dropIdle()
		}
	}
}

func (m *MemoryLimiter) dropIdle() {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-idleTTL)
	for key, v := range m.visitors {
		if v.seenAt.Before(cutoff) {
			delete(m.visitors, key)
		}
	}
}

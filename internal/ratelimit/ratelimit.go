// Package ratelimit provides a keyed token-bucket limiter used to throttle
// login and signup attempts per client.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyedLimiter manages per-key rate limiting. Keys idle for longer than
// the idle timeout are evicted by a background sweep.
type KeyedLimiter struct {
	mu       sync.Mutex
	limiters map[string]*entry
	limit    rate.Limit
	burst    int
	idle     time.Duration
	now      func() time.Time

	done     chan struct{}
	stopOnce sync.Once
}

// PerMinute creates a limiter allowing n requests per minute per key, with
// a burst of n.
func PerMinute(n int) *KeyedLimiter {
	return New(rate.Limit(float64(n)/60), n, 10*time.Minute)
}

// New creates a keyed limiter and starts its sweep goroutine.
func New(limit rate.Limit, burst int, idle time.Duration) *KeyedLimiter {
	kl := &KeyedLimiter{
		limiters: make(map[string]*entry),
		limit:    limit,
		burst:    burst,
		idle:     idle,
		now:      time.Now,
		done:     make(chan struct{}),
	}
	go kl.sweepLoop()
	return kl
}

// Allow reports whether a request for key may proceed now.
func (kl *KeyedLimiter) Allow(key string) bool {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	now := kl.now()
	e, ok := kl.limiters[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(kl.limit, kl.burst)}
		kl.limiters[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

// Len returns the number of tracked keys.
func (kl *KeyedLimiter) Len() int {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	return len(kl.limiters)
}

// Sweep evicts keys not seen within the idle timeout.
func (kl *KeyedLimiter) Sweep() {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	cutoff := kl.now().Add(-kl.idle)
	for key, e := range kl.limiters {
		if e.lastSeen.Before(cutoff) {
			delete(kl.limiters, key)
		}
	}
}

// Stop shuts down the sweep goroutine.
func (kl *KeyedLimiter) Stop() {
	kl.stopOnce.Do(func() {
		close(kl.done)
	})
}

func (kl *KeyedLimiter) sweepLoop() {
	interval := kl.idle
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			kl.Sweep()
		case <-kl.done:
			return
		}
	}
}

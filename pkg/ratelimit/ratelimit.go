// Package ratelimit provides a per-key token bucket limiter for inbound requests.
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

// KeyedLimiter gives every key (client address) its own bucket. Buckets idle
// for longer than idleTTL are evicted by a background sweep.
type KeyedLimiter struct {
	mu      sync.Mutex
	entries map[string]*entry
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time

	done     chan struct{}
	stopOnce sync.Once
}

// New creates a limiter allowing rps requests per second per key with the given burst.
func New(rps float64, burst int, idleTTL time.Duration) *KeyedLimiter {
	kl := &KeyedLimiter{
		entries: make(map[string]*entry),
		limit:   rate.Limit(rps),
		burst:   burst,
		idleTTL: idleTTL,
		now:     time.Now,
		done:    make(chan struct{}),
	}

	if idleTTL > 0 {
		go kl.sweepLoop()
	}

	return kl
}

// Allow reports whether a request for key may proceed now. It never blocks.
func (kl *KeyedLimiter) Allow(key string) bool {
	kl.mu.Lock()
	e, ok := kl.entries[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(kl.limit, kl.burst)}
		kl.entries[key] = e
	}
	now := kl.now()
	e.lastSeen = now
	kl.mu.Unlock()

	return e.limiter.AllowN(now, 1)
}

// Len returns the number of tracked keys.
func (kl *KeyedLimiter) Len() int {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	return len(kl.entries)
}

// Sweep drops buckets not used within idleTTL.
func (kl *KeyedLimiter) Sweep() {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	cutoff := kl.now().Add(-kl.idleTTL)
	for key, e := range kl.entries {
		if e.lastSeen.Before(cutoff) {
			delete(kl.entries, key)
		}
	}
}

func (kl *KeyedLimiter) sweepLoop() {
	ticker := time.NewTicker(kl.idleTTL)
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

// Stop ends the background sweep.
func (kl *KeyedLimiter) Stop() {
	kl.stopOnce.Do(func() {
		close(kl.done)
	})
}

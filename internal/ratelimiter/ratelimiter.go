// Package ratelimiter provides a per-host token bucket for the crawler, so
// one slow or aggressive host never starves fetches to the rest of a
// collection's frontier.
package ratelimiter

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// HostLimiter hands out a token-bucket rate.Limiter per host, lazily
// creating one on first use and garbage-collecting buckets that have gone
// idle past ttl.
type HostLimiter struct {
	mu            sync.Mutex
	buckets       map[string]*hostBucket
	ratePerSecond float64
	burst         int
	ttl           time.Duration
	stop          chan struct{}
	stopOnce      sync.Once
}

type hostBucket struct {
	limiter    *rate.Limiter
	lastUsedAt time.Time
}

// New constructs a HostLimiter with the given per-host rate (requests/sec)
// and bucket capacity, and starts a background goroutine that evicts idle
// buckets every ttl.
func New(ratePerSecond float64, burst int, ttl time.Duration) *HostLimiter {
	if ratePerSecond <= 0 {
		ratePerSecond = 1
	}
	if burst <= 0 {
		burst = 1
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	hl := &HostLimiter{
		buckets:       make(map[string]*hostBucket),
		ratePerSecond: ratePerSecond,
		burst:         burst,
		ttl:           ttl,
		stop:          make(chan struct{}),
	}
	go hl.gcLoop()
	return hl
}

// Wait blocks cooperatively (respecting ctx cancellation) until host's
// bucket has a token available.
func (hl *HostLimiter) Wait(ctx context.Context, host string) error {
	return hl.bucketFor(host).Wait(ctx)
}

func (hl *HostLimiter) bucketFor(host string) *rate.Limiter {
	hl.mu.Lock()
	defer hl.mu.Unlock()
	b, ok := hl.buckets[host]
	if !ok {
		b = &hostBucket{limiter: rate.NewLimiter(rate.Limit(hl.ratePerSecond), hl.burst)}
		hl.buckets[host] = b
	}
	b.lastUsedAt = time.Now()
	return b.limiter
}

// Close stops the background eviction goroutine.
func (hl *HostLimiter) Close() {
	hl.stopOnce.Do(func() { close(hl.stop) })
}

func (hl *HostLimiter) gcLoop() {
	ticker := time.NewTicker(hl.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-hl.stop:
			return
		case <-ticker.C:
			hl.evictIdle()
		}
	}
}

func (hl *HostLimiter) evictIdle() {
	hl.mu.Lock()
	defer hl.mu.Unlock()
	cutoff := time.Now().Add(-hl.ttl)
	for host, b := range hl.buckets {
		if b.lastUsedAt.Before(cutoff) {
			delete(hl.buckets, host)
		}
	}
}

// Len reports the number of live per-host buckets, for tests and metrics.
func (hl *HostLimiter) Len() int {
	hl.mu.Lock()
	defer hl.mu.Unlock()
	return len(hl.buckets)
}

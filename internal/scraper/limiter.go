package scraper

import (
	"context"
	"sync"
	"time"

	"event-scout/internal/domain/event"
)

// RateLimiter caps outbound requests per source kind per minute bucket.
// Acquire is cooperative: when a bucket is exhausted it delays the next call
// until the bucket rolls over, it never cancels an in-flight request.
type RateLimiter struct {
	mu     sync.Mutex
	limits map[event.SourceKind]int
	counts map[bucketKey]int
	window time.Duration
	now    func() time.Time
}

type bucketKey struct {
	kind   event.SourceKind
	bucket int64
}

func NewRateLimiter(limits map[event.SourceKind]int) *RateLimiter {
	l := &RateLimiter{
		limits: make(map[event.SourceKind]int, len(limits)),
		counts: make(map[bucketKey]int),
		window: time.Minute,
		now:    time.Now,
	}
	for k, v := range limits {
		l.limits[k] = v
	}
	return l
}

// Acquire blocks until a slot in the current bucket is free for the given
// kind, or the context is done. Unknown kinds are unlimited.
func (l *RateLimiter) Acquire(ctx context.Context, kind event.SourceKind) error {
	for {
		wait, ok := l.tryAcquire(kind)
		if ok {
			return nil
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (l *RateLimiter) tryAcquire(kind event.SourceKind) (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	limit, ok := l.limits[kind]
	if !ok || limit <= 0 {
		return 0, true
	}

	now := l.now()
	bucket := now.UnixNano() / int64(l.window)
	key := bucketKey{kind: kind, bucket: bucket}

	if l.counts[key] < limit {
		l.counts[key]++
		l.evictStale(bucket)
		return 0, true
	}

	next := time.Unix(0, (bucket+1)*int64(l.window))
	return next.Sub(now), false
}

// evictStale drops counters from rolled-over buckets so the map stays small.
func (l *RateLimiter) evictStale(current int64) {
	for k := range l.counts {
		if k.bucket < current {
			delete(l.counts, k)
		}
	}
}

// Usage returns the request count consumed in the current bucket for a kind.
func (l *RateLimiter) Usage(kind event.SourceKind) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	bucket := l.now().UnixNano() / int64(l.window)
	return l.counts[bucketKey{kind: kind, bucket: bucket}]
}

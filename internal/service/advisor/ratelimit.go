package advisor

import (
	"errors"
	"sync"
	"time"
)

// ErrRateLimited is returned when a subject exceeds its completion quota.
var ErrRateLimited = errors.New("too many requests, please retry in a minute")

// rateLimiter allows at most limit hits per key inside a sliding window.
type rateLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time
	mu     sync.Mutex
	hits   map[string][]time.Time
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{limit: limit, window: window, now: time.Now, hits: make(map[string][]time.Time)}
}

// Allow records a hit for key and reports whether it was within the limit.
// A nil limiter or a non-positive limit allows everything.
func (l *rateLimiter) Allow(key string) bool {
	if l == nil || l.limit <= 0 {
		return true
	}
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := now.Add(-l.window)
	for k, q := range l.hits {
		if k != key && len(q) > 0 && !q[len(q)-1].After(cutoff) {
			delete(l.hits, k)
		}
	}

	queue := l.hits[key]
	idx := 0
	for _, t := range queue {
		if t.After(cutoff) {
			break
		}
		idx++
	}
	if idx > 0 {
		queue = queue[idx:]
	}
	if len(queue) >= l.limit {
		l.hits[key] = queue
		return false
	}
	l.hits[key] = append(queue, now)
	return true
}

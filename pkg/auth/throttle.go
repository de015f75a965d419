package auth

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// sendThrottle limits magic link sends per email address. Limiters are
// created lazily and evicted after an idle period to keep memory bounded
// under enumeration attempts.
type sendThrottle struct {
	mu       sync.Mutex
	limiters map[string]*throttleEntry
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
	now      func() time.Time
}

type throttleEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newSendThrottle(interval time.Duration, burst int) *sendThrottle {
	return &sendThrottle{
		limiters: make(map[string]*throttleEntry),
		limit:    rate.Every(interval),
		burst:    burst,
		idleTTL:  time.Hour,
		now:      time.Now,
	}
}

// Allow reports whether a send to the given email may proceed.
func (t *sendThrottle) Allow(email string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.evict(now)

	entry, ok := t.limiters[email]
	if !ok {
		entry = &throttleEntry{limiter: rate.NewLimiter(t.limit, t.burst)}
		t.limiters[email] = entry
	}
	entry.lastSeen = now

	return entry.limiter.Allow()
}

func (t *sendThrottle) evict(now time.Time) {
	for email, entry := range t.limiters {
		if now.Sub(entry.lastSeen) > t.idleTTL {
			delete(t.limiters, email)
		}
	}
}

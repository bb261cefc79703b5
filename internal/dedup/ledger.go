// Package dedup provides small in-process expiring sets used to recognize
// retransmitted webhook deliveries and short-lived conversational state.
//
// Both types are clock-parameterized so tests can drive time, and both evict
// lazily: expired entries are dropped during lookups instead of by a
// background goroutine, which is adequate at the bot's request rates.
package dedup

import (
	"sync"
	"time"

	"github.com/crabbro/crabbot/internal/domain"
)

// Ledger is a time-windowed set of already-processed inbound message keys,
// partitioned by platform. It exists to absorb webhook retries: messaging
// platforms redeliver a callback when the previous delivery timed out or
// returned an error, and a redelivered message must not trigger a second
// reply.
//
// Ledger is safe for concurrent use.
type Ledger struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]time.Time
}

// NewLedger constructs a Ledger with the given retention window.
func NewLedger(ttl time.Duration) *Ledger {
	return &Ledger{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]time.Time),
	}
}

// WithClock replaces the ledger's time source. Intended for tests.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// Seen reports whether (platform, key) was already recorded within the TTL
// window, recording it as seen when it was not. An empty key can never be
// deduplicated and always reports false, so keyless messages are processed
// rather than silently dropped.
func (l *Ledger) Seen(platform domain.Platform, key string) bool {
	if key == "" {
		return false
	}
	k := string(platform) + ":" + key

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.evictLocked(now)

	if at, ok := l.entries[k]; ok && now.Sub(at) < l.ttl {
		return true
	}
	l.entries[k] = now
	return false
}

// Len returns the number of live entries. Intended for tests and metrics.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.evictLocked(l.now())
	return len(l.entries)
}

// evictLocked drops expired entries. Caller holds l.mu.
func (l *Ledger) evictLocked(now time.Time) {
	for k, at := range l.entries {
		if now.Sub(at) >= l.ttl {
			delete(l.entries, k)
		}
	}
}

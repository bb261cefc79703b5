package dedup

import (
	"sync"
	"time"
)

// TTLSet is a generic expiring membership set keyed by string. Unlike Ledger
// it is not platform-partitioned and exposes explicit Mark/Active/Clear
// operations, which fits single-slot conversational state such as "waiting
// for a zodiac sign from this user".
//
// TTLSet is safe for concurrent use.
type TTLSet struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]time.Time
}

// NewTTLSet constructs a TTLSet with the given entry lifetime.
func NewTTLSet(ttl time.Duration) *TTLSet {
	return &TTLSet{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]time.Time),
	}
}

// WithClock replaces the set's time source. Intended for tests.
func (s *TTLSet) WithClock(now func() time.Time) *TTLSet {
	s.now = now
	return s
}

// Mark records key as active, refreshing its lifetime if already present.
func (s *TTLSet) Mark(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.evictLocked(now)
	s.entries[key] = now
}

// Active reports whether key is present and not expired.
func (s *TTLSet) Active(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.evictLocked(now)
	at, ok := s.entries[key]
	return ok && now.Sub(at) < s.ttl
}

// Clear removes key regardless of its remaining lifetime.
func (s *TTLSet) Clear(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

func (s *TTLSet) evictLocked(now time.Time) {
	for k, at := range s.entries {
		if now.Sub(at) >= s.ttl {
			delete(s.entries, k)
		}
	}
}

// Package providers contains the content handlers the reply router tries in
// order: administrative broadcasts, horoscope, tarot card of the day, angel
// time, "who's today" titles, lunar day, time of day, and the generic keyword
// rules. Each provider implements router.Provider and owns its own triggers
// and state; none of them talks to a messaging platform directly.
package providers

import (
	"math/rand"
	"strings"
	"time"
)

// Pick selects an index in [0, n). Providers take it as a field so tests can
// pin the "random" choice; the zero value falls back to math/rand.
type Pick func(n int) int

// choose applies p (or math/rand when p is nil) to n options.
func choose(p Pick, n int) int {
	if n <= 1 {
		return 0
	}
	if p == nil {
		return rand.Intn(n)
	}
	return p(n)
}

// normalize lowercases and trims message text for trigger matching.
func normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// containsAny reports whether low contains any of the substrings.
func containsAny(low string, subs []string) bool {
	for _, s := range subs {
		if strings.Contains(low, s) {
			return true
		}
	}
	return false
}

// dayString renders a time as the canonical day key used by the daily-limited
// features.
func dayString(t time.Time) string {
	return t.Format("2006-01-02")
}

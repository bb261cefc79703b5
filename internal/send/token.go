// Package send delivers ordered action lists to the messaging platforms.
// It owns the retry-safety mechanics (idempotency token derivation), the
// typing simulation, and the media-fallback behavior. Nothing in this package
// propagates an error to its caller: a failed delivery is logged and
// swallowed, because surfacing it to the webhook handler would trigger
// platform-level retries and cascade duplicate sends.
package send

import (
	"encoding/binary"
	"hash/fnv"
	"strconv"

	"github.com/google/uuid"
)

// DeriveToken maps (seed, index) to a stable non-negative token. The same
// inputs always yield the same token, so re-delivering an action list built
// from the same inbound message resolves to the same platform-visible
// message instead of a duplicate.
func DeriveToken(seed string, index int) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(seed))
	_, _ = h.Write([]byte{'|'})
	_, _ = h.Write([]byte(strconv.Itoa(index)))
	return int64(h.Sum64() &^ (1 << 63))
}

// RandomToken returns a fresh non-negative token for deliveries with no
// originating message (administrative broadcasts), where uniqueness matters
// more than replay protection.
func RandomToken() int64 {
	u := uuid.New()
	return int64(binary.BigEndian.Uint64(u[:8]) &^ (1 << 63))
}

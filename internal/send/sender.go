package send

import (
	"context"
	"math/rand"
	"time"

	"github.com/crabbro/crabbot/internal/domain"
)

// Sender delivers an ordered action list to one chat on one platform.
//
// seed is the idempotency seed derived from the inbound message (e.g. the
// VK conversation message id); an empty seed means no stable seed exists and
// random tokens are used. Deliver never returns an error: failures are
// handled inside the sender (fallback, log, swallow).
type Sender interface {
	Deliver(ctx context.Context, chatID int64, actions []domain.Action, seed string)
}

// Multiplexer routes a delivery to the sender for its platform. Platforms
// without a configured sender are skipped silently, which lets the bot run
// single-platform.
type Multiplexer struct {
	VK Sender
	TG Sender
}

// To delivers actions to (platform, chatID), reporting whether a sender for
// the platform was available.
func (m *Multiplexer) To(ctx context.Context, platform domain.Platform, chatID int64, actions []domain.Action, seed string) bool {
	var s Sender
	switch platform {
	case domain.PlatformVK:
		s = m.VK
	case domain.PlatformTG:
		s = m.TG
	}
	if s == nil {
		return false
	}
	s.Deliver(ctx, chatID, actions, seed)
	return true
}

// Typing simulates the human pause before a reply: one typing-indicator call
// followed by a randomized sleep within [Min, Max]. The sleep and random
// source are injectable so tests run instantly.
type Typing struct {
	Min   time.Duration
	Max   time.Duration
	Sleep func(time.Duration)
	Rand  func(n int) int
}

// Pause sleeps for a random duration in [Min, Max].
func (t Typing) Pause() {
	sleep := t.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	d := t.Min
	if span := t.Max - t.Min; span > 0 {
		intn := t.Rand
		if intn == nil {
			intn = rand.Intn
		}
		d += time.Duration(intn(int(span)))
	}
	if d > 0 {
		sleep(d)
	}
}

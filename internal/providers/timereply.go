package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/crabbro/crabbot/internal/domain"
)

var timeTriggers = []string{"который час", "сколько времени", "сколько время", "время?", "часов?"}

// TimeReply answers "который час" style questions with the bot's local time.
type TimeReply struct {
	Now func() time.Time
	Loc *time.Location
}

// Name implements router.Provider.
func (t *TimeReply) Name() string { return "time_reply" }

// TryHandle implements router.Provider.
func (t *TimeReply) TryHandle(_ context.Context, msg domain.InboundMessage) ([]domain.Action, error) {
	low := normalize(msg.Text)
	if !containsAny(low, timeTriggers) && low != "время" {
		return nil, nil
	}
	now := t.Now().In(t.Loc)
	zone, _ := now.Zone()
	return []domain.Action{domain.Text(fmt.Sprintf("🕒 Сейчас %s (%s).", now.Format("15:04"), zone))}, nil
}

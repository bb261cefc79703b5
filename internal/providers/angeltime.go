package providers

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/crabbro/crabbot/internal/domain"
	"github.com/crabbro/crabbot/internal/repo"
)

var (
	angelTimeRE     = regexp.MustCompile(`^(?:[01]\d|2[0-3]):[0-5]\d$`)
	angelTimeLikeRE = regexp.MustCompile(`^\d{1,2}[.\-:]\d{1,2}$`)
)

var angelStatsTriggers = []string{"моё ангельское время", "мое ангельское время", "/my_angel_time"}

const angelTolerance = time.Minute

// AngelStore is the persistence slice the angel-time provider needs.
type AngelStore interface {
	RecordSighting(ctx context.Context, platform domain.Platform, chatID, userID int64, timeValue string) error
	Stats(ctx context.Context, platform domain.Platform, chatID, userID int64, topN int) (int64, []repo.TimeCount, error)
}

// AngelTime reacts to a bare HH:MM message sent at (about) that very minute,
// records the sighting, and replies with the time's meaning. It also serves
// per-user sighting stats.
type AngelTime struct {
	Store    AngelStore
	Meanings map[string]string // "HH:MM" -> interpretation
	Now      func() time.Time
	Loc      *time.Location
	Log      zerolog.Logger
}

// Name implements router.Provider.
func (a *AngelTime) Name() string { return "angel_time" }

// TryHandle implements router.Provider.
func (a *AngelTime) TryHandle(ctx context.Context, msg domain.InboundMessage) ([]domain.Action, error) {
	text := strings.TrimSpace(msg.Text)
	low := normalize(msg.Text)

	if containsAny(low, angelStatsTriggers) {
		return a.stats(ctx, msg)
	}

	if !angelTimeRE.MatchString(text) {
		if angelTimeLikeRE.MatchString(text) {
			return []domain.Action{domain.Text("🕐 Похоже на время, но формат не тот. Напиши строго ЧЧ:ММ, например 11:11.")}, nil
		}
		return nil, nil
	}

	now := a.Now().In(a.Loc)
	sent, _ := time.ParseInLocation("15:04", text, a.Loc)
	sent = time.Date(now.Year(), now.Month(), now.Day(), sent.Hour(), sent.Minute(), 0, 0, a.Loc)

	diff := now.Sub(sent)
	if diff < 0 {
		diff = -diff
	}
	// midnight wrap: 23:59 sent at 00:00
	if wrapped := 24*time.Hour - diff; wrapped < diff {
		diff = wrapped
	}
	// seconds inside the current minute do not count against the sender,
	// so the cutoff is tolerance plus one full minute
	if diff >= angelTolerance+time.Minute {
		return []domain.Action{domain.Text(fmt.Sprintf("⏰ Сейчас %s, а не %s. Ангельское время нужно ловить в моменте!", now.Format("15:04"), text))}, nil
	}

	if err := a.Store.RecordSighting(ctx, msg.Platform, msg.ChatID, msg.UserID, text); err != nil {
		a.Log.Warn().Err(err).Str("time", text).Msg("angel: record failed")
	}

	meaning, ok := a.Meanings[text]
	if !ok {
		return []domain.Action{domain.Text(fmt.Sprintf("✨ %s — время поймано! Особого значения у него нет, но момент засчитан.", text))}, nil
	}
	return []domain.Action{domain.Text(fmt.Sprintf("✨ %s — %s\n\nНапиши «моё ангельское время» — покажу твою статистику.", text, meaning))}, nil
}

func (a *AngelTime) stats(ctx context.Context, msg domain.InboundMessage) ([]domain.Action, error) {
	total, top, err := a.Store.Stats(ctx, msg.Platform, msg.ChatID, msg.UserID, 5)
	if err != nil {
		return nil, fmt.Errorf("angel stats: %w", err)
	}
	if total == 0 {
		return []domain.Action{domain.Text("✨ Ты ещё не ловил ангельское время. Напиши, например, 11:11 ровно в 11:11.")}, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "✨ Твоя статистика ангельского времени: поймано %d.\n", total)
	b.WriteString("Чаще всего:\n")
	for _, tc := range top {
		fmt.Fprintf(&b, "• %s — %d\n", tc.TimeValue, tc.Count)
	}
	return []domain.Action{domain.Text(strings.TrimRight(b.String(), "\n"))}, nil
}

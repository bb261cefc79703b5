package providers

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/crabbro/crabbot/internal/domain"
	"github.com/crabbro/crabbot/internal/repo"
)

// tarot trigger phrases, matched as substrings of the lowercased text.
var tarotTriggers = []string{
	"карта дня",
	"карту дня",
	"карте дня",
	"таро",
	"совет",
}

// tarotResetTriggers clear the requester's own draw for today so the card can
// be requested again. Useful when verifying the deck.
var tarotResetTriggers = map[string]bool{
	"/tarot_reset":        true,
	"/reset_tarot":        true,
	"сброс карты дня":     true,
	"сбросить карту дня":  true,
	"сброс карты таро":    true,
	"сбросить карту таро": true,
}

var tarotAlreadyPhrases = []string{
	"Эй, полегче 😄 Карта дня уже была. Вселенная на сегодня высказалась, следующая — только завтра 🔮",
	"Я бы рада, но карты сегодня уже всё сказали 😏 Завтра будет новое предсказание ✨",
	"Вторую карту сегодня не выдаём — гадание по расписанию 😄 Следующая завтра",
	"Осторожно, перерасход магии! ✨ На сегодня лимит исчерпан, приходи завтра 🔮",
	"Вселенная сказала: «Хватит на сегодня» 🤷‍♀️ Завтра продолжим 🔮",
}

// TarotStore is the persistence contract for the once-per-day draw state.
type TarotStore interface {
	// Draw returns the card already drawn today, or repo.ErrNotFound.
	Draw(ctx context.Context, platform domain.Platform, userID int64, day string) (string, error)
	// Record stores today's draw; a concurrent duplicate yields repo.ErrDuplicate.
	Record(ctx context.Context, platform domain.Platform, userID int64, day, card string) error
	// Reset deletes today's draw, reporting whether one existed.
	Reset(ctx context.Context, platform domain.Platform, userID int64, day string) (bool, error)
}

// Tarot grants each user one card of the day: a photo plus its description.
// Repeat requests the same day get an "already given" phrase instead of a
// second draw.
type Tarot struct {
	Store TarotStore
	Deck  []TarotCard
	Now   func() time.Time
	Loc   *time.Location
	Pick  Pick
	Log   zerolog.Logger
}

// Name implements router.Provider.
func (t *Tarot) Name() string { return "tarot" }

// TryHandle implements router.Provider.
func (t *Tarot) TryHandle(ctx context.Context, msg domain.InboundMessage) ([]domain.Action, error) {
	low := normalize(msg.Text)
	day := dayString(t.Now().In(t.Loc))

	if tarotResetTriggers[low] {
		cleared, err := t.Store.Reset(ctx, msg.Platform, msg.UserID, day)
		if err != nil {
			return nil, err
		}
		if cleared {
			return []domain.Action{domain.Text("✅ Сбросила твою запись о «карте дня». Можешь запросить карту снова 🙂")}, nil
		}
		return []domain.Action{domain.Text("ℹ️ У тебя и так нет записи о карте на сегодня. Просто попроси «карту дня».")}, nil
	}

	if !containsAny(low, tarotTriggers) {
		return nil, nil
	}

	if _, err := t.Store.Draw(ctx, msg.Platform, msg.UserID, day); err == nil {
		return t.alreadyGiven(), nil
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	if len(t.Deck) == 0 {
		return []domain.Action{domain.Text("Колода пока пуста — карт на сегодня нет.")}, nil
	}

	card := t.Deck[choose(t.Pick, len(t.Deck))]
	if err := t.Store.Record(ctx, msg.Platform, msg.UserID, day, card.Path); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			// lost a race with a parallel request from the same user
			return t.alreadyGiven(), nil
		}
		return nil, err
	}

	return []domain.Action{
		domain.Photo(card.Path, ""),
		domain.Text(card.Description),
	}, nil
}

func (t *Tarot) alreadyGiven() []domain.Action {
	phrase := tarotAlreadyPhrases[choose(t.Pick, len(tarotAlreadyPhrases))]
	return []domain.Action{domain.Text(phrase)}
}

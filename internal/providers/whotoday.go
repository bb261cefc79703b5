package providers

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/crabbro/crabbot/internal/directory"
	"github.com/crabbro/crabbot/internal/domain"
)

var whoTodayRE = regexp.MustCompile(`(?:^|[^а-яё])кто\s+сегодня(.*)$`)

// filler words between "кто сегодня" and the actual title
var whoFillers = []string{"у нас", "в чате", "тут", "вообще", "сейчас", "значит"}

const whoTitleMaxRunes = 60

// WhoToday picks a random chat member as the holder of a requested daily
// title ("кто сегодня котик?"). A member gets at most one title per day per
// chat; the asker is excluded unless nobody else is left.
type WhoToday struct {
	Dir       *directory.Directory
	Phrases   []string // templates with {user} and {title} placeholders
	Fallbacks []string // used when every member already holds a title
	Now       func() time.Time
	Loc       *time.Location
	Pick      Pick
	Log       zerolog.Logger
}

// Name implements router.Provider.
func (w *WhoToday) Name() string { return "who_today" }

// TryHandle implements router.Provider.
func (w *WhoToday) TryHandle(ctx context.Context, msg domain.InboundMessage) ([]domain.Action, error) {
	if !domain.IsGroupChat(msg.Platform, msg.ChatID) {
		return nil, nil
	}
	low := normalize(msg.Text)
	m := whoTodayRE.FindStringSubmatch(low)
	if m == nil {
		return nil, nil
	}

	title := cleanTitle(m[1])
	if title == "" {
		return []domain.Action{domain.Text("Кто сегодня кто? 🙂 Допиши титул, например «кто сегодня котик».")}, nil
	}
	if len([]rune(title)) > whoTitleMaxRunes {
		return nil, nil
	}

	day := dayString(w.Now().In(w.Loc))
	candidates := w.Dir.CandidatesWithoutAssignmentToday(ctx, msg.Platform, msg.ChatID, day)

	// the asker only wins when nobody else is in the running
	var pool []directory.Member
	for _, c := range candidates {
		if c.UserID != msg.UserID {
			pool = append(pool, c)
		}
	}
	if len(pool) == 0 && len(candidates) == 1 && candidates[0].UserID == msg.UserID {
		pool = candidates
	}
	if len(pool) == 0 {
		if len(w.Fallbacks) == 0 {
			return []domain.Action{domain.Text("🤷 Сегодня все титулы уже разобраны. Приходите завтра!")}, nil
		}
		return []domain.Action{domain.Text(w.Fallbacks[choose(w.Pick, len(w.Fallbacks))])}, nil
	}

	winner := pool[choose(w.Pick, len(pool))]
	if err := w.Dir.RecordAssignment(ctx, msg.Platform, msg.ChatID, day, winner.UserID, title); err != nil {
		w.Log.Warn().Err(err).Str("title", title).Msg("who today: record failed")
	}

	phrase := "Сегодня {title} — это {user}! 🎉"
	if len(w.Phrases) > 0 {
		phrase = w.Phrases[choose(w.Pick, len(w.Phrases))]
	}
	text := strings.ReplaceAll(phrase, "{user}", mentionFor(msg.Platform, winner))
	text = strings.ReplaceAll(text, "{title}", title)
	return []domain.Action{domain.Text(text)}, nil
}

// cleanTitle strips filler words, leading connectors, and trailing
// punctuation from the raw tail of "кто сегодня ...".
func cleanTitle(raw string) string {
	title := strings.TrimSpace(raw)
	for changed := true; changed; {
		changed = false
		for _, f := range whoFillers {
			if strings.HasPrefix(title, f+" ") || title == f {
				title = strings.TrimSpace(strings.TrimPrefix(title, f))
				changed = true
			}
		}
	}
	title = strings.TrimRight(title, "?!.,:; ")
	return strings.TrimSpace(title)
}

// mentionFor renders a member reference the way each platform expects:
// VK inline mention markup, plain name elsewhere.
func mentionFor(p domain.Platform, m directory.Member) string {
	name := m.DisplayName
	if name == "" {
		name = fmt.Sprintf("пользователь %d", m.UserID)
	}
	if p == domain.PlatformVK {
		return fmt.Sprintf("[id%d|%s]", m.UserID, name)
	}
	return name
}

package providers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/crabbro/crabbot/internal/domain"
)

const synodicMonth = 29.530588853 // days

// reference new moon, 2000-01-06 18:14 UTC
var lunarEpoch = time.Date(2000, time.January, 6, 18, 14, 0, 0, time.UTC)

var lunarTriggers = []string{"лунный день", "лунные сутки", "какая луна", "фаза луны"}

var lunarExtraTriggers = []string{"подробн", "расскажи", "еще про луну", "ещё про луну"}

// Lunar reports the current lunar day, the moon phase, and a short
// description; a "подробнее" style request adds per-sphere advice.
type Lunar struct {
	Short map[int]string // lunar day -> one-line description
	Extra map[int]string // lunar day -> "Работа=..;Общение=.." blocks
	Now   func() time.Time
	Loc   *time.Location
}

// Name implements router.Provider.
func (l *Lunar) Name() string { return "lunar" }

// TryHandle implements router.Provider.
func (l *Lunar) TryHandle(_ context.Context, msg domain.InboundMessage) ([]domain.Action, error) {
	low := normalize(msg.Text)
	if !containsAny(low, lunarTriggers) {
		return nil, nil
	}

	now := l.Now().In(l.Loc)
	day := LunarDay(now)
	phase := lunarPhase(day)

	var b strings.Builder
	fmt.Fprintf(&b, "🌙 Сегодня %d-е лунные сутки (%s).", day, phase)
	nextNew, nextFull := nextMoonEvents(now)
	fmt.Fprintf(&b, "\nНоволуние %s, полнолуние %s.", nextNew.Format("02.01"), nextFull.Format("02.01"))
	if short, ok := l.Short[day]; ok {
		b.WriteString("\n\n")
		b.WriteString(short)
	}
	if containsAny(low, lunarExtraTriggers) {
		if extra, ok := l.Extra[day]; ok {
			b.WriteString("\n\n")
			b.WriteString(formatLunarExtra(extra))
		}
	} else if _, ok := l.Extra[day]; ok {
		b.WriteString("\n\nНапиши «лунный день подробнее» — расскажу про работу, общение и здоровье.")
	}
	return []domain.Action{domain.Text(b.String())}, nil
}

// LunarDay computes the lunar day (1..30) for a moment in time from the
// reference new moon. Day 30 exists only on long months; the arithmetic here
// clamps it to 29 to avoid overshoot at month boundaries.
func LunarDay(t time.Time) int {
	elapsed := t.Sub(lunarEpoch).Hours() / 24
	age := elapsed - synodicMonth*float64(int(elapsed/synodicMonth))
	if age < 0 {
		age += synodicMonth
	}
	day := int(age) + 1
	if day > 29 {
		day = 29
	}
	return day
}

// nextMoonEvents returns the next new moon and full moon after t, from the
// same reference cycle the day arithmetic uses.
func nextMoonEvents(t time.Time) (nextNew, nextFull time.Time) {
	const dayHours = 24 * float64(time.Hour)
	elapsed := t.Sub(lunarEpoch).Hours() / 24
	age := elapsed - synodicMonth*float64(int(elapsed/synodicMonth))
	if age < 0 {
		age += synodicMonth
	}

	toNew := synodicMonth - age
	toFull := synodicMonth/2 - age
	if toFull < 0 {
		toFull += synodicMonth
	}
	nextNew = t.Add(time.Duration(toNew * dayHours))
	nextFull = t.Add(time.Duration(toFull * dayHours))
	return nextNew, nextFull
}

func lunarPhase(day int) string {
	switch {
	case day <= 1:
		return "новолуние"
	case day < 8:
		return "растущая луна"
	case day < 9:
		return "первая четверть"
	case day < 15:
		return "растущая луна"
	case day < 17:
		return "полнолуние"
	case day < 23:
		return "убывающая луна"
	case day < 24:
		return "последняя четверть"
	default:
		return "убывающая луна"
	}
}

// formatLunarExtra turns "Работа=совет;Общение=совет" into bullet lines.
func formatLunarExtra(raw string) string {
	var lines []string
	for _, block := range strings.Split(raw, ";") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		if k, v, ok := strings.Cut(block, "="); ok {
			lines = append(lines, fmt.Sprintf("• %s: %s", strings.TrimSpace(k), strings.TrimSpace(v)))
		} else {
			lines = append(lines, "• "+block)
		}
	}
	return strings.Join(lines, "\n")
}

package providers

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/crabbro/crabbot/internal/dedup"
	"github.com/crabbro/crabbot/internal/domain"
)

// signSlugs maps the canonical sign to its page slug on the horoscope site.
var signSlugs = map[string]string{
	"овен":     "oven",
	"телец":    "telec",
	"близнецы": "bliznecy",
	"рак":      "rak",
	"лев":      "lev",
	"дева":     "deva",
	"весы":     "vesy",
	"скорпион": "skorpion",
	"стрелец":  "strelec",
	"козерог":  "kozerog",
	"водолей":  "vodoley",
	"рыбы":     "ryby",
}

// signForms lists the case forms people actually type, per canonical sign.
var signForms = map[string][]string{
	"овен":     {"овен", "овна", "овну", "овнов", "овнам"},
	"телец":    {"телец", "тельца", "тельцу", "тельцов", "тельцам"},
	"близнецы": {"близнецы", "близнеца", "близнецу", "близнецов", "близнецам"},
	"рак":      {"рак", "рака", "раку", "раков", "ракам"},
	"лев":      {"лев", "льва", "льву", "львов", "львам"},
	"дева":     {"дева", "девы", "деве", "девам", "дев"},
	"весы":     {"весы", "весов", "весам"},
	"скорпион": {"скорпион", "скорпиона", "скорпиону", "скорпионам"},
	"стрелец":  {"стрелец", "стрельца", "стрельцу", "стрельцам"},
	"козерог":  {"козерог", "козерога", "козерогу", "козерогам"},
	"водолей":  {"водолей", "водолея", "водолею", "водолеям"},
	"рыбы":     {"рыбы", "рыбе", "рыбам", "рыб"},
}

// formToSign and signRE are derived from signForms at init. The regexp
// requires non-Cyrillic (or edge) context around the form because Go's \b is
// ASCII-only and useless for Cyrillic words.
var (
	formToSign = map[string]string{}
	signRE     *regexp.Regexp
)

func init() {
	var forms []string
	for canon, fs := range signForms {
		for _, f := range fs {
			formToSign[f] = canon
			forms = append(forms, regexp.QuoteMeta(f))
		}
	}
	// longest first so "близнецов" is not cut to "близнец"
	sort.Slice(forms, func(i, j int) bool { return len(forms[i]) > len(forms[j]) })
	signRE = regexp.MustCompile(`(?:^|[^а-яё])(` + strings.Join(forms, "|") + `)(?:$|[^а-яё])`)
}

const horoscopeAsk = "🔮 Хочешь гороскоп? Напиши, для какого знака.\n" +
	"Я всех не упомню 🙂\n\n" +
	"Примеры:\n" +
	"• гороскоп овен\n" +
	"• гороскоп деве\n" +
	"• овну"

const horoscopeUnavailable = "😕 Не получилось получить гороскоп с сайта сейчас. Попробуй чуть позже."

// Horoscope answers "гороскоп" requests. When the sign is missing it asks and
// remembers a pending slot per (platform, chat, user) for ten minutes; the
// companion HoroscopePending provider completes the exchange when a bare sign
// arrives later. The two run at different positions in the provider chain:
// the continuation must beat everything that could claim a one-word message,
// while the keyword trigger yields to the more specific features.
type Horoscope struct {
	Pending *dedup.TTLSet
	Fetch   func(ctx context.Context, sign string) (string, error)
	Now     func() time.Time
	Loc     *time.Location
	Log     zerolog.Logger
}

// Name implements router.Provider.
func (h *Horoscope) Name() string { return "horoscope" }

// TryHandle implements router.Provider.
func (h *Horoscope) TryHandle(ctx context.Context, msg domain.InboundMessage) ([]domain.Action, error) {
	low := normalize(msg.Text)
	if low == "" || !strings.Contains(low, "гороскоп") {
		return nil, nil
	}

	slot := pendingKey(msg)
	sign := extractSign(low)
	if sign == "" {
		h.Pending.Mark(slot)
		return []domain.Action{domain.Text(horoscopeAsk)}, nil
	}
	h.Pending.Clear(slot)
	return h.answer(ctx, sign), nil
}

// HoroscopePending resolves a bare zodiac sign sent while the asker has an
// open horoscope slot.
type HoroscopePending struct {
	H *Horoscope
}

// Name implements router.Provider.
func (p *HoroscopePending) Name() string { return "horoscope_pending" }

// TryHandle implements router.Provider.
func (p *HoroscopePending) TryHandle(ctx context.Context, msg domain.InboundMessage) ([]domain.Action, error) {
	low := normalize(msg.Text)
	if low == "" || strings.Contains(low, "гороскоп") {
		return nil, nil
	}
	slot := pendingKey(msg)
	if !p.H.Pending.Active(slot) {
		return nil, nil
	}
	sign := extractSign(low)
	if sign == "" {
		return nil, nil
	}
	p.H.Pending.Clear(slot)
	return p.H.answer(ctx, sign), nil
}

func (h *Horoscope) answer(ctx context.Context, sign string) []domain.Action {
	text, err := h.Fetch(ctx, sign)
	if err != nil {
		h.Log.Warn().Err(err).Str("sign", sign).Msg("horoscope: fetch failed")
		return []domain.Action{domain.Text(horoscopeUnavailable)}
	}
	date := h.Now().In(h.Loc).Format("02.01.2006")
	title := cases.Title(language.Russian).String(sign)
	return []domain.Action{domain.Text(fmt.Sprintf("🔮 Гороскоп на сегодня (%s) — %s\n\n%s", date, title, text))}
}

// extractSign returns the canonical sign mentioned in the lowercased text,
// or "".
func extractSign(low string) string {
	m := signRE.FindStringSubmatch(low)
	if m == nil {
		return ""
	}
	return formToSign[m[1]]
}

func pendingKey(msg domain.InboundMessage) string {
	return fmt.Sprintf("%s:%d:%d", msg.Platform, msg.ChatID, msg.UserID)
}

// HoroscopeFetcher scrapes the per-sign horoscope page.
type HoroscopeFetcher struct {
	BaseURL string // defaults to the public site; overridable in tests
	HTTP    *http.Client
}

// NewHoroscopeFetcher constructs a fetcher with a conservative timeout.
func NewHoroscopeFetcher() *HoroscopeFetcher {
	return &HoroscopeFetcher{
		BaseURL: "http://www.abc-moon.ru/goroskop",
		HTTP:    &http.Client{Timeout: 15 * time.Second},
	}
}

// Fetch downloads and extracts the horoscope text for a canonical sign.
func (f *HoroscopeFetcher) Fetch(ctx context.Context, sign string) (string, error) {
	slug, ok := signSlugs[sign]
	if !ok {
		return "", fmt.Errorf("unknown sign %q", sign)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.BaseURL+"/"+slug+"/", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; CrabBot/1.0)")
	req.Header.Set("Accept-Language", "ru-RU,ru;q=0.9,en;q=0.8")

	resp, err := f.HTTP.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("horoscope page: status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", err
	}
	section := doc.Find("div.entry-content").First()
	if section.Length() == 0 {
		return "", fmt.Errorf("horoscope page: no entry-content section")
	}
	// links carry navigation noise, not forecast text
	section.Find("a").Remove()

	var parts []string
	section.Find("p").Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	text := strings.Join(parts, "\n\n")
	if text == "" {
		text = strings.TrimSpace(section.Text())
	}
	if text == "" {
		return "", fmt.Errorf("horoscope page: empty forecast")
	}

	// drop boilerplate before the first "Гороскоп" heading when present
	if idx := strings.Index(strings.ToLower(text), "гороскоп"); idx > 0 {
		text = strings.TrimSpace(text[idx:])
	}
	return text, nil
}

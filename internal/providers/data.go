package providers

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// readLines returns the non-empty, non-comment lines of a content file.
// A missing file yields an empty slice, never an error: content files are
// optional and providers degrade to built-in defaults.
func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		out = append(out, s)
	}
	return out
}

// readPairs parses "key|value" lines into a map, skipping malformed lines.
func readPairs(path string) map[string]string {
	out := make(map[string]string)
	for _, line := range readLines(path) {
		k, v, ok := strings.Cut(line, "|")
		if !ok {
			continue
		}
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if k != "" && v != "" {
			// literal \n markers become real newlines so multi-paragraph
			// descriptions survive the one-line-per-entry format
			out[k] = strings.ReplaceAll(v, `\n`, "\n")
		}
	}
	return out
}

// readNumbered parses "N|text" lines into an int-keyed map.
func readNumbered(path string) map[int]string {
	out := make(map[int]string)
	for k, v := range readPairs(path) {
		if n, err := strconv.Atoi(k); err == nil {
			out[n] = v
		}
	}
	return out
}

// TarotCard is one entry of the tarot deck: a local image path plus its
// description text.
type TarotCard struct {
	Path        string
	Description string
}

// LoadTarotDeck reads dataDir/tarot.txt ("relative/image.jpg|description")
// and resolves image paths against dataDir. Order follows the file.
func LoadTarotDeck(dataDir string) []TarotCard {
	var deck []TarotCard
	for _, line := range readLines(filepath.Join(dataDir, "tarot.txt")) {
		img, desc, ok := strings.Cut(line, "|")
		if !ok {
			continue
		}
		img, desc = strings.TrimSpace(img), strings.TrimSpace(desc)
		if img == "" || desc == "" {
			continue
		}
		deck = append(deck, TarotCard{
			Path:        filepath.Join(dataDir, img),
			Description: strings.ReplaceAll(desc, `\n`, "\n"),
		})
	}
	return deck
}

// Rule is one generic keyword rule: any trigger substring selects a random
// response.
type Rule struct {
	Triggers  []string
	Responses []string
}

// LoadRules reads dataDir/rules.txt. Line format:
//
//	trigger1,trigger2|response one;;response two
func LoadRules(dataDir string) []Rule {
	var rules []Rule
	for _, line := range readLines(filepath.Join(dataDir, "rules.txt")) {
		trig, resp, ok := strings.Cut(line, "|")
		if !ok {
			continue
		}
		var triggers []string
		for _, t := range strings.Split(trig, ",") {
			if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
				triggers = append(triggers, t)
			}
		}
		var responses []string
		for _, r := range strings.Split(resp, ";;") {
			if r = strings.TrimSpace(r); r != "" {
				responses = append(responses, strings.ReplaceAll(r, `\n`, "\n"))
			}
		}
		if len(triggers) > 0 && len(responses) > 0 {
			rules = append(rules, Rule{Triggers: triggers, Responses: responses})
		}
	}
	return rules
}

// LoadAngelMeanings reads dataDir/angel_times.txt ("HH:MM|meaning").
func LoadAngelMeanings(dataDir string) map[string]string {
	return readPairs(filepath.Join(dataDir, "angel_times.txt"))
}

// LoadLunarTexts reads the short per-day descriptions and the extended
// per-sphere advice ("N|text" in both files).
func LoadLunarTexts(dataDir string) (short, extra map[int]string) {
	return readNumbered(filepath.Join(dataDir, "lunar_short.txt")),
		readNumbered(filepath.Join(dataDir, "lunar_extra.txt"))
}

// LoadWhoPhrases reads the winner announcement templates.
func LoadWhoPhrases(dataDir string) []string {
	return readLines(filepath.Join(dataDir, "who_phrases.txt"))
}

// LoadWhoFallbacks reads the all-titles-taken replies.
func LoadWhoFallbacks(dataDir string) []string {
	return readLines(filepath.Join(dataDir, "who_fallbacks.txt"))
}

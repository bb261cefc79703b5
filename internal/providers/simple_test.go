package providers

import (
	"context"
	"testing"

	"github.com/crabbro/crabbot/internal/domain"
)

func newTestSimple() *Simple {
	return &Simple{
		Rules: []Rule{
			{Triggers: []string{"привет", "здравствуй"}, Responses: []string{"Привет! 👋", "Здравствуйте!"}},
			{Triggers: []string{"спасибо"}, Responses: []string{"Пожалуйста!"}},
			{Triggers: []string{"анекдот"}, Responses: nil},
		},
		Pick: firstPick,
	}
}

func TestSimple_FirstMatchingRuleWins(t *testing.T) {
	s := newTestSimple()

	actions, err := s.TryHandle(context.Background(), domain.InboundMessage{Text: "Привет, бот! Спасибо за вчера."})
	if err != nil {
		t.Fatalf("TryHandle: %v", err)
	}
	if len(actions) != 1 || actions[0].Body != "Привет! 👋" {
		t.Fatalf("first listed rule must win, got %+v", actions)
	}
}

func TestSimple_SecondTriggerOfRuleMatches(t *testing.T) {
	s := newTestSimple()

	actions, err := s.TryHandle(context.Background(), domain.InboundMessage{Text: "здравствуйте"})
	if err != nil || len(actions) != 1 {
		t.Fatalf("expected a greeting, got %+v / %v", actions, err)
	}
}

func TestSimple_RuleWithoutResponsesIsSkipped(t *testing.T) {
	s := newTestSimple()

	actions, err := s.TryHandle(context.Background(), domain.InboundMessage{Text: "расскажи анекдот"})
	if err != nil || actions != nil {
		t.Fatalf("a rule without responses must stay silent, got %+v / %v", actions, err)
	}
}

func TestSimple_NoMatchAndEmptyText(t *testing.T) {
	s := newTestSimple()

	for _, text := range []string{"", "   ", "погода завтра"} {
		actions, err := s.TryHandle(context.Background(), domain.InboundMessage{Text: text})
		if err != nil || actions != nil {
			t.Fatalf("TryHandle(%q): expected silence, got %+v / %v", text, actions, err)
		}
	}
}

package providers

import (
	"context"

	"github.com/crabbro/crabbot/internal/domain"
)

// Simple answers keyword-triggered small talk from a rules file. It runs last
// in the chain so specialized providers always win.
type Simple struct {
	Rules []Rule
	Pick  Pick
}

// Name implements router.Provider.
func (s *Simple) Name() string { return "simple_rules" }

// TryHandle implements router.Provider.
func (s *Simple) TryHandle(_ context.Context, msg domain.InboundMessage) ([]domain.Action, error) {
	low := normalize(msg.Text)
	if low == "" {
		return nil, nil
	}
	for _, r := range s.Rules {
		if !containsAny(low, r.Triggers) || len(r.Responses) == 0 {
			continue
		}
		return []domain.Action{domain.Text(r.Responses[choose(s.Pick, len(r.Responses))])}, nil
	}
	return nil, nil
}

// Package router implements the reply router: an ordered chain of content
// providers tried against each inbound message, where the first provider to
// produce actions wins.
//
// Order is part of the contract. Administrative commands run first so a
// broadcast is never swallowed by a content trigger; the pending-question
// continuation (horoscope sign disambiguation) runs next; daily-limited
// features follow; generic keyword rules come last. A provider failure is
// contained: it is logged and the chain continues, so one broken feature
// never silences the bot.
package router

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/crabbro/crabbot/internal/domain"
)

// Provider is a content handler that inspects an inbound message and
// optionally produces reply actions. Returning (nil, nil) means "not mine":
// the router moves on to the next provider.
type Provider interface {
	// Name identifies the provider in logs.
	Name() string

	// TryHandle inspects msg and returns the reply actions, or nil when the
	// message does not trigger this provider.
	TryHandle(ctx context.Context, msg domain.InboundMessage) ([]domain.Action, error)
}

// Router applies providers in a fixed order and returns the first non-empty
// result. It is stateless; all conversational state lives in the providers.
type Router struct {
	providers []Provider
	log       zerolog.Logger
}

// New constructs a Router over the given ordered provider chain.
func New(log zerolog.Logger, providers ...Provider) *Router {
	return &Router{providers: providers, log: log}
}

// Route returns the reply actions for msg, or nil for deliberate silence.
// Empty input text is silence. Each provider runs inside an error boundary:
// an error or panic is logged with the provider's name and the next provider
// gets its turn.
func (r *Router) Route(ctx context.Context, msg domain.InboundMessage) []domain.Action {
	if strings.TrimSpace(msg.Text) == "" {
		return nil
	}

	for _, p := range r.providers {
		actions, err := r.tryOne(ctx, p, msg)
		if err != nil {
			r.log.Error().Err(err).
				Str("provider", p.Name()).
				Str("platform", string(msg.Platform)).
				Int64("chat_id", msg.ChatID).
				Msg("router: provider failed")
			continue
		}
		if cleaned := domain.CleanActions(actions); len(cleaned) > 0 {
			return cleaned
		}
	}
	return nil
}

// tryOne invokes one provider, converting a panic into an error so the
// router's loop survives it.
func (r *Router) tryOne(ctx context.Context, p Provider, msg domain.InboundMessage) (actions []domain.Action, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			actions = nil
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return p.TryHandle(ctx, msg)
}

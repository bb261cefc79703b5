package router

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/crabbro/crabbot/internal/domain"
)

// stubProvider is a scripted provider with call accounting.
type stubProvider struct {
	name    string
	actions []domain.Action
	err     error
	panics  bool
	calls   int
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) TryHandle(context.Context, domain.InboundMessage) ([]domain.Action, error) {
	s.calls++
	if s.panics {
		panic("boom")
	}
	return s.actions, s.err
}

func msg(text string) domain.InboundMessage {
	return domain.InboundMessage{Platform: domain.PlatformTG, ChatID: -1, UserID: 2, Text: text}
}

func TestRoute_FirstProviderWithActionsWins(t *testing.T) {
	silent := &stubProvider{name: "silent"}
	winner := &stubProvider{name: "winner", actions: []domain.Action{domain.Text("hi")}}
	unreached := &stubProvider{name: "unreached", actions: []domain.Action{domain.Text("no")}}

	r := New(zerolog.Nop(), silent, winner, unreached)
	actions := r.Route(context.Background(), msg("hello"))

	if len(actions) != 1 || actions[0].Body != "hi" {
		t.Fatalf("unexpected actions: %+v", actions)
	}
	if silent.calls != 1 || winner.calls != 1 {
		t.Fatalf("expected both leading providers consulted")
	}
	if unreached.calls != 0 {
		t.Fatalf("provider after the winner must not run")
	}
}

func TestRoute_ErrorSkipsToNextProvider(t *testing.T) {
	failing := &stubProvider{name: "failing", err: errors.New("backend down")}
	fallback := &stubProvider{name: "fallback", actions: []domain.Action{domain.Text("ok")}}

	r := New(zerolog.Nop(), failing, fallback)
	actions := r.Route(context.Background(), msg("hello"))

	if len(actions) != 1 || actions[0].Body != "ok" {
		t.Fatalf("expected fallback to answer, got %+v", actions)
	}
}

func TestRoute_PanicIsContainedToOneProvider(t *testing.T) {
	angry := &stubProvider{name: "angry", panics: true}
	calm := &stubProvider{name: "calm", actions: []domain.Action{domain.Text("fine")}}

	r := New(zerolog.Nop(), angry, calm)
	actions := r.Route(context.Background(), msg("hello"))

	if len(actions) != 1 || actions[0].Body != "fine" {
		t.Fatalf("panic must not take down routing, got %+v", actions)
	}
}

func TestRoute_EmptyTextAndNoTakersAreSilent(t *testing.T) {
	p := &stubProvider{name: "p"}
	r := New(zerolog.Nop(), p)

	if actions := r.Route(context.Background(), msg("   ")); actions != nil {
		t.Fatalf("blank text must be silent, got %+v", actions)
	}
	if p.calls != 0 {
		t.Fatalf("blank text must not reach providers")
	}

	if actions := r.Route(context.Background(), msg("no triggers here")); actions != nil {
		t.Fatalf("no takers must mean silence, got %+v", actions)
	}
}

func TestRoute_EmptyTextActionsAreDropped(t *testing.T) {
	// a provider returning only empty texts counts as not answering
	hollow := &stubProvider{name: "hollow", actions: []domain.Action{domain.Text("")}}
	real := &stubProvider{name: "real", actions: []domain.Action{domain.Text("content")}}

	r := New(zerolog.Nop(), hollow, real)
	actions := r.Route(context.Background(), msg("hello"))
	if len(actions) != 1 || actions[0].Body != "content" {
		t.Fatalf("empty actions must not short-circuit, got %+v", actions)
	}
}

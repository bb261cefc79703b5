package send

import (
	"context"
	"os"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"github.com/rs/zerolog"

	"github.com/crabbro/crabbot/internal/domain"
)

// telegramAPI is the slice of the telego bot surface the sender uses.
// *telego.Bot satisfies it; tests substitute a recorder.
type telegramAPI interface {
	SendMessage(params *telego.SendMessageParams) (*telego.Message, error)
	SendPhoto(params *telego.SendPhotoParams) (*telego.Message, error)
	SendChatAction(params *telego.SendChatActionParams) error
}

// TGSender delivers actions through the Telegram Bot API.
//
// Telegram exposes no client-side idempotency parameter, so the seed is not
// forwarded; retransmission safety for Telegram rests on the inbound dedup
// ledger upstream.
type TGSender struct {
	API    telegramAPI
	Typing Typing
	Log    zerolog.Logger
}

// NewTGSender wraps a telego bot.
func NewTGSender(bot *telego.Bot, typing Typing, log zerolog.Logger) *TGSender {
	return &TGSender{API: bot, Typing: typing, Log: log}
}

// Deliver sends actions to the chat strictly in order, preceded by one
// best-effort typing indicator and randomized pause. A failed photo send
// falls back to the caption as text; any remaining failure is logged and
// swallowed.
func (s *TGSender) Deliver(ctx context.Context, chatID int64, actions []domain.Action, seed string) {
	_ = seed
	if len(actions) == 0 {
		return
	}

	if err := s.API.SendChatAction(&telego.SendChatActionParams{
		ChatID: tu.ID(chatID),
		Action: telego.ChatActionTyping,
	}); err != nil {
		s.Log.Debug().Err(err).Int64("chat_id", chatID).Msg("tg: typing indicator failed")
	}
	s.Typing.Pause()

	for _, a := range actions {
		select {
		case <-ctx.Done():
			s.Log.Warn().Int64("chat_id", chatID).Msg("tg: delivery context cancelled")
			return
		default:
		}

		switch a.Kind {
		case domain.ActionText:
			if _, err := s.API.SendMessage(tu.Message(tu.ID(chatID), a.Body)); err != nil {
				s.Log.Error().Err(err).Int64("chat_id", chatID).Msg("tg: send text failed")
			}
		case domain.ActionPhoto:
			if err := s.sendPhoto(chatID, a); err != nil {
				s.Log.Warn().Err(err).Int64("chat_id", chatID).Str("path", a.Path).Msg("tg: photo failed, falling back to caption")
				if a.Caption != "" {
					if _, err := s.API.SendMessage(tu.Message(tu.ID(chatID), a.Caption)); err != nil {
						s.Log.Error().Err(err).Int64("chat_id", chatID).Msg("tg: caption fallback failed")
					}
				}
			}
		}
	}
}

func (s *TGSender) sendPhoto(chatID int64, a domain.Action) error {
	f, err := os.Open(a.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = s.API.SendPhoto(&telego.SendPhotoParams{
		ChatID:  tu.ID(chatID),
		Photo:   tu.File(f),
		Caption: a.Caption,
	})
	return err
}

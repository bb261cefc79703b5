// Package handlers implements the webhook endpoints the chat platforms call
// into: the VK Callback API receiver and the Telegram bot webhook. Both feed
// the same pipeline: authenticate the callback, drop replays, register the
// chat and the sender in the directory, acknowledge immediately, and hand the
// message to the reply router in the background.
package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/crabbro/crabbot/internal/dedup"
	"github.com/crabbro/crabbot/internal/directory"
	"github.com/crabbro/crabbot/internal/domain"
	"github.com/crabbro/crabbot/internal/router"
	"github.com/crabbro/crabbot/internal/send"
)

// Handler owns the webhook endpoints and the shared inbound pipeline.
type Handler struct {
	Dedup  *dedup.Ledger
	Dir    *directory.Directory
	Router *router.Router
	Out    *send.Multiplexer

	VKSecret       string
	VKConfirmation string
	TGSecret       string

	SendTimeout time.Duration
	Log         zerolog.Logger

	wg sync.WaitGroup
}

// process runs the shared inbound pipeline. It returns quickly: dedup and
// directory bookkeeping happen synchronously, routing and delivery continue
// in the background so the platform gets its acknowledgment before any
// typing simulation starts.
func (h *Handler) process(msg domain.InboundMessage) {
	if h.Dedup.Seen(msg.Platform, msg.DedupKey) {
		dedupDrops.WithLabelValues(string(msg.Platform)).Inc()
		h.Log.Debug().
			Str("platform", string(msg.Platform)).
			Str("key", msg.DedupKey).
			Msg("webhook: duplicate dropped")
		return
	}
	inboundMsgs.WithLabelValues(string(msg.Platform)).Inc()

	h.Dir.TouchChat(msg.Platform, msg.ChatID)
	h.Dir.TouchUser(msg.Platform, msg.ChatID, msg.UserID, msg.DisplayName)

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), h.SendTimeout)
		defer cancel()

		actions := h.Router.Route(ctx, msg)
		if len(actions) == 0 {
			return
		}
		seed := string(msg.Platform) + ":" + msg.DedupKey
		repliesSent.WithLabelValues(string(msg.Platform)).Inc()
		if !h.Out.To(ctx, msg.Platform, msg.ChatID, actions, seed) {
			h.Log.Warn().
				Str("platform", string(msg.Platform)).
				Int64("chat_id", msg.ChatID).
				Msg("webhook: no sender configured for platform")
		}
	}()
}

// Wait blocks until all background deliveries finish. Used on shutdown and
// in tests.
func (h *Handler) Wait() {
	h.wg.Wait()
}

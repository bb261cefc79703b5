package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/crabbro/crabbot/internal/domain"
	"github.com/crabbro/crabbot/internal/http/middleware"
)

// vkCallback is the envelope VK posts to the Callback API endpoint.
type vkCallback struct {
	Type    string          `json:"type"`
	GroupID int64           `json:"group_id"`
	Secret  string          `json:"secret"`
	Object  json.RawMessage `json:"object"`
}

// vkMessage covers the message payload across API versions: 5.103+ nests it
// under "message", older groups still post the fields at the top level.
type vkMessage struct {
	FromID                int64  `json:"from_id"`
	UserID                int64  `json:"user_id"`
	PeerID                int64  `json:"peer_id"`
	ConversationMessageID int64  `json:"conversation_message_id"`
	ID                    int64  `json:"id"`
	Text                  string `json:"text"`
}

type vkMessageNew struct {
	Message *vkMessage `json:"message"`
	vkMessage
}

// VKWebhook handles POST callbacks from the VK group event server.
//
// Contract quirks worth knowing:
//   - VK retries any callback that does not get a literal "ok" body, so every
//     accepted event answers "ok" even when the payload is useless.
//   - type=confirmation must answer with the confirmation code in plaintext.
//   - The shared secret arrives inside the JSON body, not in a header.
func (h *Handler) VKWebhook(c *gin.Context) {
	lg := middleware.LoggerFrom(c)

	var cb vkCallback
	if err := c.ShouldBindJSON(&cb); err != nil {
		lg.Warn().Err(err).Msg("vk: malformed callback")
		c.String(http.StatusBadRequest, "bad request")
		return
	}

	if h.VKSecret != "" && cb.Secret != h.VKSecret {
		lg.Warn().Int64("group_id", cb.GroupID).Msg("vk: secret mismatch")
		c.String(http.StatusForbidden, "forbidden")
		return
	}

	switch cb.Type {
	case "confirmation":
		c.String(http.StatusOK, h.VKConfirmation)
		return

	case "message_new":
		msg, ok := parseVKMessage(cb.Object)
		if !ok {
			lg.Warn().Msg("vk: message_new without usable message object")
			c.String(http.StatusOK, "ok")
			return
		}
		h.process(msg)
		c.String(http.StatusOK, "ok")

	default:
		// other event types are subscribed away in group settings; ack anyway
		c.String(http.StatusOK, "ok")
	}
}

func parseVKMessage(raw json.RawMessage) (domain.InboundMessage, bool) {
	var obj vkMessageNew
	if err := json.Unmarshal(raw, &obj); err != nil {
		return domain.InboundMessage{}, false
	}
	m := obj.vkMessage
	if obj.Message != nil {
		m = *obj.Message
	}
	if m.PeerID == 0 {
		return domain.InboundMessage{}, false
	}

	userID := m.FromID
	if userID == 0 {
		userID = m.UserID
	}

	// conversation_message_id is stable across VK's redeliveries; the global
	// message id fills in for old payloads that lack it
	eventID := m.ConversationMessageID
	if eventID == 0 {
		eventID = m.ID
	}

	return domain.InboundMessage{
		Platform: domain.PlatformVK,
		ChatID:   m.PeerID,
		UserID:   userID,
		Text:     m.Text,
		DedupKey: fmt.Sprintf("%d:%d", m.PeerID, eventID),
	}, true
}

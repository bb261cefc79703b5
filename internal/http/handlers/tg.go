package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mymmrac/telego"

	"github.com/crabbro/crabbot/internal/domain"
	"github.com/crabbro/crabbot/internal/http/middleware"
	"github.com/crabbro/crabbot/internal/sysutil"
)

// TGWebhook handles POST updates from the Telegram Bot API. The webhook URL
// embeds a secret path segment; a mismatch is treated as a probe.
func (h *Handler) TGWebhook(c *gin.Context) {
	if c.Param("secret") != h.TGSecret {
		c.JSON(http.StatusForbidden, gin.H{"ok": false})
		return
	}

	var upd telego.Update
	if err := c.ShouldBindJSON(&upd); err != nil {
		middleware.LoggerFrom(c).Warn().Err(err).Msg("tg: malformed update")
		c.JSON(http.StatusBadRequest, gin.H{"ok": false})
		return
	}

	if msg, ok := parseTGUpdate(upd); ok {
		h.process(msg)
	}
	// Telegram retries on non-2xx; anything we cannot use is still accepted
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func parseTGUpdate(upd telego.Update) (domain.InboundMessage, bool) {
	m := upd.Message
	if m == nil {
		m = upd.EditedMessage
	}
	if m == nil || m.From == nil {
		return domain.InboundMessage{}, false
	}

	name := sysutil.FirstNonEmpty(
		strings.TrimSpace(m.From.FirstName+" "+m.From.LastName),
		m.From.Username,
	)

	return domain.InboundMessage{
		Platform:    domain.PlatformTG,
		ChatID:      m.Chat.ID,
		UserID:      m.From.ID,
		Text:        m.Text,
		DedupKey:    strconv.Itoa(upd.UpdateID),
		DisplayName: name,
	}, true
}

package providers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/crabbro/crabbot/internal/directory"
	"github.com/crabbro/crabbot/internal/domain"
	"github.com/crabbro/crabbot/internal/send"
)

// ChatLister is the directory slice the admin provider needs.
type ChatLister interface {
	ListChats(platform domain.Platform) []directory.ChatRef
	ListGroupChats(platform domain.Platform) []directory.ChatRef
}

var adminCommands = map[string]bool{
	"/all": true, "/groups": true, "/tg": true, "/vk": true, "/send": true,
}

// Admin handles broadcast commands from configured operators:
//
//	/all <text>       every known chat on both platforms
//	/groups <text>    group chats only
//	/tg <text>        every known Telegram chat
//	/vk <text>        every known VK chat
//	/send tg <chat_id> <text>, /send vk <chat_id> <text>
//	/send tg_user <user_id> <text>, /send vk_user <user_id> <text>
//
// A command-shaped message from anyone else gets a polite brush-off so the
// grammar stays undiscoverable.
type Admin struct {
	Chats    ChatLister
	Out      *send.Multiplexer
	VKAdmins []int64
	TGAdmins []int64
	Log      zerolog.Logger
}

// Name implements router.Provider.
func (a *Admin) Name() string { return "admin" }

// TryHandle implements router.Provider.
func (a *Admin) TryHandle(ctx context.Context, msg domain.InboundMessage) ([]domain.Action, error) {
	text := strings.TrimSpace(msg.Text)
	fields := strings.Fields(text)
	if len(fields) == 0 || !adminCommands[strings.ToLower(fields[0])] {
		return nil, nil
	}
	if !a.isAdmin(msg.Platform, msg.UserID) {
		return []domain.Action{domain.Text("🤖 Эта команда только для операторов бота.")}, nil
	}

	cmd := strings.ToLower(fields[0])
	body := strings.TrimSpace(strings.TrimPrefix(text, fields[0]))

	switch cmd {
	case "/all":
		return a.fanOut(ctx, a.Chats.ListChats(domain.PlatformVK), a.Chats.ListChats(domain.PlatformTG), body), nil
	case "/groups":
		return a.fanOut(ctx, a.Chats.ListGroupChats(domain.PlatformVK), a.Chats.ListGroupChats(domain.PlatformTG), body), nil
	case "/vk":
		return a.fanOut(ctx, a.Chats.ListChats(domain.PlatformVK), nil, body), nil
	case "/tg":
		return a.fanOut(ctx, nil, a.Chats.ListChats(domain.PlatformTG), body), nil
	default: // /send
		return a.sendTo(ctx, fields, body), nil
	}
}

// sendTo handles the targeted form: /send <vk|tg|vk_user|tg_user> <id> <text>.
func (a *Admin) sendTo(ctx context.Context, fields []string, body string) []domain.Action {
	if len(fields) < 4 {
		return []domain.Action{domain.Text(adminUsage)}
	}

	var platform domain.Platform
	switch strings.ToLower(fields[1]) {
	case "vk", "vk_user":
		platform = domain.PlatformVK
	case "tg", "tg_user":
		platform = domain.PlatformTG
	default:
		return []domain.Action{domain.Text(adminUsage)}
	}

	id, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return []domain.Action{domain.Text("⚠️ Не понял ID получателя: " + fields[2])}
	}

	body = strings.TrimSpace(strings.TrimPrefix(body, fields[1]))
	body = strings.TrimSpace(strings.TrimPrefix(body, fields[2]))
	target := []directory.ChatRef{{Platform: platform, ChatID: id}}
	if platform == domain.PlatformVK {
		return a.fanOut(ctx, target, nil, body)
	}
	return a.fanOut(ctx, nil, target, body)
}

const adminUsage = "Формат:\n" +
	"/all <текст> | /groups <текст>\n" +
	"/vk <текст> | /tg <текст>\n" +
	"/send vk <id> <текст> | /send tg <id> <текст>\n" +
	"/send vk_user <id> <текст> | /send tg_user <id> <текст>"

// fanOut delivers the broadcast synchronously and reports per-platform
// counts back to the operator.
func (a *Admin) fanOut(ctx context.Context, vk, tg []directory.ChatRef, body string) []domain.Action {
	if body == "" {
		return []domain.Action{domain.Text(adminUsage)}
	}
	actions := []domain.Action{domain.Text(body)}

	var vkSent, tgSent int
	for _, c := range vk {
		if a.Out.To(ctx, c.Platform, c.ChatID, actions, broadcastSeed(c, body)) {
			vkSent++
		}
	}
	for _, c := range tg {
		if a.Out.To(ctx, c.Platform, c.ChatID, actions, broadcastSeed(c, body)) {
			tgSent++
		}
	}
	a.Log.Info().Int("vk", vkSent).Int("tg", tgSent).Msg("admin: broadcast done")
	return []domain.Action{domain.Text(fmt.Sprintf("✅ Отправлено: VK=%d, TG=%d, всего=%d", vkSent, tgSent, vkSent+tgSent))}
}

func (a *Admin) isAdmin(p domain.Platform, userID int64) bool {
	ids := a.VKAdmins
	if p == domain.PlatformTG {
		ids = a.TGAdmins
	}
	for _, id := range ids {
		if id == userID {
			return true
		}
	}
	return false
}

// broadcastSeed keeps retried broadcasts idempotent per recipient.
func broadcastSeed(c directory.ChatRef, body string) string {
	return fmt.Sprintf("bcast:%s:%d:%s", c.Platform, c.ChatID, body)
}

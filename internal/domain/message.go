// Package domain defines the core types shared across the bot: the messaging
// platforms, the normalized inbound message, the outbound action variants, and
// the persistence models mapped with GORM.
package domain

// Platform identifies the messaging platform a message came from or is
// delivered to.
type Platform string

const (
	// PlatformVK is the VK Callback API platform.
	PlatformVK Platform = "vk"
	// PlatformTG is the Telegram Bot API platform.
	PlatformTG Platform = "tg"
)

// Valid reports whether p is one of the known platforms.
func (p Platform) Valid() bool {
	return p == PlatformVK || p == PlatformTG
}

// GroupThreshold is the smallest VK peer_id that denotes a group conversation.
// Personal VK dialogs use the plain user id; conversations are offset by 2e9.
const GroupThreshold int64 = 2_000_000_000

// IsGroupChat reports whether chatID denotes a group conversation on the
// given platform. Telegram group/supergroup ids are negative; VK conversation
// peer ids start at GroupThreshold. This is a structural property of the id
// space, not a stored flag.
func IsGroupChat(p Platform, chatID int64) bool {
	switch p {
	case PlatformTG:
		return chatID < 0
	case PlatformVK:
		return chatID >= GroupThreshold
	default:
		return false
	}
}

// InboundMessage is the platform-neutral view of one incoming webhook message.
// It is constructed per webhook call and never persisted.
//
// DedupKey is the platform-supplied retransmission identifier:
// VK uses (peer_id, conversation_message_id), Telegram uses update_id.
// An empty DedupKey means the message cannot be deduplicated and is always
// processed.
type InboundMessage struct {
	Platform    Platform
	ChatID      int64
	UserID      int64
	Text        string
	DedupKey    string
	DisplayName string
}

// Package directory maintains the durable record of which chats and which
// users-per-chat the bot has observed, plus the daily title assignments that
// depend on it.
//
// The design keeps two copies of the data: an in-memory cache that is updated
// synchronously (so reads within the same process are immediately
// consistent), and GORM-backed tables written asynchronously so the webhook
// response path never blocks on persistence. On startup the cache is warmed
// from the database, which is how broadcast targeting survives redeploys.
// When the database is unreachable the bot keeps answering from memory and
// logs the failure.
package directory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/crabbro/crabbot/internal/domain"
	"github.com/crabbro/crabbot/internal/repo"
)

// Store defines the repository contract required by the Directory.
// Implementations are responsible for persistence of directory aggregates.
type Store interface {
	// UpsertChat inserts or refreshes a known chat row.
	UpsertChat(ctx context.Context, db *gorm.DB, platform domain.Platform, chatID int64, seenAt time.Time) error

	// UpsertChatUser inserts or refreshes a chat member row.
	UpsertChatUser(ctx context.Context, db *gorm.DB, platform domain.Platform, chatID, userID int64, displayName string, seenAt time.Time) error

	// ListKnownChats returns all recorded chats.
	ListKnownChats(ctx context.Context, db *gorm.DB) ([]domain.KnownChat, error)

	// ListAllChatUsers returns all recorded chat members.
	ListAllChatUsers(ctx context.Context, db *gorm.DB) ([]domain.ChatUser, error)

	// CreateAssignment inserts a daily title row; duplicates yield repo.ErrDuplicate.
	CreateAssignment(ctx context.Context, db *gorm.DB, platform domain.Platform, chatID int64, day string, userID int64, title string) error

	// ListAssignedUserIDs returns user ids already holding a title today.
	ListAssignedUserIDs(ctx context.Context, db *gorm.DB, platform domain.Platform, chatID int64, day string) ([]int64, error)
}

// ChatRef identifies one known chat.
type ChatRef struct {
	Platform domain.Platform
	ChatID   int64
}

// Member is one known user of a chat.
type Member struct {
	UserID      int64
	DisplayName string
}

type chatKey struct {
	platform domain.Platform
	chatID   int64
}

type memberState struct {
	displayName string
	lastSeen    time.Time
}

// Directory is the chat/user directory service. The zero value is not usable;
// construct with New.
type Directory struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the directory repository used by this service.
	Repo Store

	log zerolog.Logger
	now func() time.Time

	mu       sync.RWMutex
	chats    map[chatKey]time.Time
	users    map[chatKey]map[int64]memberState
	assigned map[string]map[int64]string // platform:chat:day -> userID -> title

	// persistTimeout bounds each background write.
	persistTimeout time.Duration
	wg             sync.WaitGroup
}

// New constructs a Directory over the given DB handle and repository.
func New(db *gorm.DB, store Store, log zerolog.Logger) *Directory {
	return &Directory{
		DB:             db,
		Repo:           store,
		log:            log,
		now:            time.Now,
		chats:          make(map[chatKey]time.Time),
		users:          make(map[chatKey]map[int64]memberState),
		assigned:       make(map[string]map[int64]string),
		persistTimeout: 10 * time.Second,
	}
}

// WithClock replaces the directory's time source. Intended for tests.
func (d *Directory) WithClock(now func() time.Time) *Directory {
	d.now = now
	return d
}

// WarmUp loads known chats and members from the database into the in-memory
// cache. Called once at startup; a failure leaves the cache empty but the
// service operational.
func (d *Directory) WarmUp(ctx context.Context) error {
	chats, err := d.Repo.ListKnownChats(ctx, d.DB)
	if err != nil {
		return fmt.Errorf("load known chats: %w", err)
	}
	users, err := d.Repo.ListAllChatUsers(ctx, d.DB)
	if err != nil {
		return fmt.Errorf("load chat users: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for _, c := range chats {
		d.chats[chatKey{domain.Platform(c.Platform), c.ChatID}] = c.LastSeenAt
	}
	for _, u := range users {
		k := chatKey{domain.Platform(u.Platform), u.ChatID}
		if d.users[k] == nil {
			d.users[k] = make(map[int64]memberState)
		}
		d.users[k][u.UserID] = memberState{displayName: u.DisplayName, lastSeen: u.LastSeenAt}
	}
	return nil
}

// TouchChat records that a chat was just active. The cache is updated
// synchronously; persistence happens in the background.
func (d *Directory) TouchChat(platform domain.Platform, chatID int64) {
	now := d.now()

	d.mu.Lock()
	d.chats[chatKey{platform, chatID}] = now
	d.mu.Unlock()

	d.persist("touch chat", func(ctx context.Context) error {
		return d.Repo.UpsertChat(ctx, d.DB, platform, chatID, now)
	})
}

// TouchUser records that a user was just seen in a chat. An empty displayName
// never overwrites a previously observed name.
func (d *Directory) TouchUser(platform domain.Platform, chatID, userID int64, displayName string) {
	now := d.now()
	k := chatKey{platform, chatID}

	d.mu.Lock()
	if d.users[k] == nil {
		d.users[k] = make(map[int64]memberState)
	}
	st := d.users[k][userID]
	if displayName != "" {
		st.displayName = displayName
	}
	st.lastSeen = now
	d.users[k][userID] = st
	d.mu.Unlock()

	d.persist("touch user", func(ctx context.Context) error {
		return d.Repo.UpsertChatUser(ctx, d.DB, platform, chatID, userID, displayName, now)
	})
}

// ListChats returns all known chats, optionally filtered by platform
// (empty platform means all).
func (d *Directory) ListChats(platform domain.Platform) []ChatRef {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]ChatRef, 0, len(d.chats))
	for k := range d.chats {
		if platform != "" && k.platform != platform {
			continue
		}
		out = append(out, ChatRef{Platform: k.platform, ChatID: k.chatID})
	}
	return out
}

// ListGroupChats returns known group conversations only, classified by the
// platform id convention (negative Telegram ids, high VK peer ids).
func (d *Directory) ListGroupChats(platform domain.Platform) []ChatRef {
	all := d.ListChats(platform)
	out := make([]ChatRef, 0, len(all))
	for _, c := range all {
		if domain.IsGroupChat(c.Platform, c.ChatID) {
			out = append(out, c)
		}
	}
	return out
}

// CandidatesWithoutAssignmentToday returns the chat members that do not yet
// hold a title for day. Membership comes from the in-memory cache; the
// assigned set comes from the database, falling back to the in-memory
// assignment record when the database is unreachable.
func (d *Directory) CandidatesWithoutAssignmentToday(ctx context.Context, platform domain.Platform, chatID int64, day string) []Member {
	taken := make(map[int64]bool)
	ids, err := d.Repo.ListAssignedUserIDs(ctx, d.DB, platform, chatID, day)
	if err != nil {
		d.log.Warn().Err(err).
			Str("platform", string(platform)).
			Int64("chat_id", chatID).
			Msg("directory: assignment lookup failed, using in-memory record")
		d.mu.RLock()
		for uid := range d.assigned[assignKey(platform, chatID, day)] {
			taken[uid] = true
		}
		d.mu.RUnlock()
	} else {
		for _, id := range ids {
			taken[id] = true
		}
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	members := d.users[chatKey{platform, chatID}]
	out := make([]Member, 0, len(members))
	for uid, st := range members {
		if taken[uid] {
			continue
		}
		out = append(out, Member{UserID: uid, DisplayName: st.displayName})
	}
	return out
}

// RecordAssignment stores that userID holds title in the chat for day.
// Recording an already-assigned (platform, chat, day, user) is a no-op, not
// an error. A database failure degrades to the in-memory record so the same
// process still refuses double titles.
func (d *Directory) RecordAssignment(ctx context.Context, platform domain.Platform, chatID int64, day string, userID int64, title string) error {
	k := assignKey(platform, chatID, day)

	d.mu.Lock()
	if d.assigned[k] == nil {
		d.assigned[k] = make(map[int64]string)
	}
	if _, dup := d.assigned[k][userID]; dup {
		d.mu.Unlock()
		return nil
	}
	d.assigned[k][userID] = title
	d.mu.Unlock()

	err := d.Repo.CreateAssignment(ctx, d.DB, platform, chatID, day, userID, title)
	if errors.Is(err, repo.ErrDuplicate) {
		return nil
	}
	if err != nil {
		d.log.Warn().Err(err).
			Str("platform", string(platform)).
			Int64("chat_id", chatID).
			Int64("user_id", userID).
			Msg("directory: assignment persist failed, kept in memory")
	}
	return nil
}

// Wait blocks until outstanding background writes have finished. Used by
// graceful shutdown and tests.
func (d *Directory) Wait() {
	d.wg.Wait()
}

// persist runs fn on a background goroutine with a bounded context and logs
// failures instead of surfacing them to the request path.
func (d *Directory) persist(op string, fn func(ctx context.Context) error) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.persistTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			d.log.Warn().Err(err).Str("op", op).Msg("directory: persist failed")
		}
	}()
}

func assignKey(platform domain.Platform, chatID int64, day string) string {
	return fmt.Sprintf("%s:%d:%s", platform, chatID, day)
}

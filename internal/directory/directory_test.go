package directory

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/crabbro/crabbot/internal/domain"
	"github.com/crabbro/crabbot/internal/repo"
)

// memStore is an in-memory Store used to observe persistence calls without a
// database.
type memStore struct {
	mu          sync.Mutex
	chats       []domain.KnownChat
	users       []domain.ChatUser
	assignments map[string]bool // platform:chat:day:user
	assignErr   error
	listErr     error
}

func newMemStore() *memStore {
	return &memStore{assignments: make(map[string]bool)}
}

func (m *memStore) UpsertChat(_ context.Context, _ *gorm.DB, platform domain.Platform, chatID int64, seenAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chats = append(m.chats, domain.KnownChat{Platform: string(platform), ChatID: chatID, LastSeenAt: seenAt})
	return nil
}

func (m *memStore) UpsertChatUser(_ context.Context, _ *gorm.DB, platform domain.Platform, chatID, userID int64, displayName string, seenAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users = append(m.users, domain.ChatUser{Platform: string(platform), ChatID: chatID, UserID: userID, DisplayName: displayName, LastSeenAt: seenAt})
	return nil
}

func (m *memStore) ListKnownChats(context.Context, *gorm.DB) ([]domain.KnownChat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.KnownChat(nil), m.chats...), nil
}

func (m *memStore) ListAllChatUsers(context.Context, *gorm.DB) ([]domain.ChatUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.ChatUser(nil), m.users...), nil
}

func (m *memStore) CreateAssignment(_ context.Context, _ *gorm.DB, platform domain.Platform, chatID int64, day string, userID int64, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.assignErr != nil {
		return m.assignErr
	}
	k := fmt.Sprintf("%s:%d:%s:%d", platform, chatID, day, userID)
	if m.assignments[k] {
		return repo.ErrDuplicate
	}
	m.assignments[k] = true
	return nil
}

func (m *memStore) ListAssignedUserIDs(_ context.Context, _ *gorm.DB, platform domain.Platform, chatID int64, day string) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []int64
	prefix := fmt.Sprintf("%s:%d:%s:", platform, chatID, day)
	for k := range m.assignments {
		if len(k) <= len(prefix) || k[:len(prefix)] != prefix {
			continue
		}
		var uid int64
		if _, err := fmt.Sscanf(k[len(prefix):], "%d", &uid); err == nil {
			out = append(out, uid)
		}
	}
	return out, nil
}

func newTestDirectory(t *testing.T, store Store) *Directory {
	t.Helper()
	return New(nil, store, zerolog.Nop())
}

func TestTouchChat_VisibleImmediatelyAndPersisted(t *testing.T) {
	store := newMemStore()
	d := newTestDirectory(t, store)

	d.TouchChat(domain.PlatformVK, 2000000001)
	chats := d.ListChats(domain.PlatformVK)
	if len(chats) != 1 || chats[0].ChatID != 2000000001 {
		t.Fatalf("chat not visible after TouchChat: %v", chats)
	}

	d.Wait()
	if len(store.chats) != 1 {
		t.Fatalf("expected background persist, got %d rows", len(store.chats))
	}
}

func TestTouchUser_EmptyNameKeepsKnownName(t *testing.T) {
	store := newMemStore()
	d := newTestDirectory(t, store)

	d.TouchUser(domain.PlatformTG, -50, 7, "Ann")
	d.TouchUser(domain.PlatformTG, -50, 7, "")
	d.Wait()

	members := d.CandidatesWithoutAssignmentToday(context.Background(), domain.PlatformTG, -50, "2026-02-01")
	if len(members) != 1 || members[0].DisplayName != "Ann" {
		t.Fatalf("expected preserved name, got %+v", members)
	}
}

func TestListGroupChats_ClassifiesByPlatformConvention(t *testing.T) {
	d := newTestDirectory(t, newMemStore())

	d.TouchChat(domain.PlatformVK, 2000000042) // group peer
	d.TouchChat(domain.PlatformVK, 12345)      // direct dialog
	d.TouchChat(domain.PlatformTG, -100500)    // group
	d.TouchChat(domain.PlatformTG, 777)        // direct
	d.Wait()

	var got []int64
	for _, c := range d.ListGroupChats("") {
		got = append(got, c.ChatID)
	}
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	want := []int64{-100500, 2000000042}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("group chats = %v, want %v", got, want)
	}
}

func TestCandidates_ExcludesAlreadyAssigned(t *testing.T) {
	store := newMemStore()
	d := newTestDirectory(t, store)
	ctx := context.Background()

	d.TouchUser(domain.PlatformVK, 2000000001, 1, "a")
	d.TouchUser(domain.PlatformVK, 2000000001, 2, "b")
	d.Wait()

	if err := d.RecordAssignment(ctx, domain.PlatformVK, 2000000001, "2026-02-01", 1, "котик"); err != nil {
		t.Fatalf("RecordAssignment: %v", err)
	}

	left := d.CandidatesWithoutAssignmentToday(ctx, domain.PlatformVK, 2000000001, "2026-02-01")
	if len(left) != 1 || left[0].UserID != 2 {
		t.Fatalf("expected only user 2 left, got %+v", left)
	}
}

func TestRecordAssignment_DuplicateIsNoOp(t *testing.T) {
	store := newMemStore()
	d := newTestDirectory(t, store)
	ctx := context.Background()

	if err := d.RecordAssignment(ctx, domain.PlatformTG, -5, "2026-02-01", 9, "гений"); err != nil {
		t.Fatalf("first RecordAssignment: %v", err)
	}
	if err := d.RecordAssignment(ctx, domain.PlatformTG, -5, "2026-02-01", 9, "герой"); err != nil {
		t.Fatalf("duplicate RecordAssignment must be a no-op, got %v", err)
	}
}

func TestCandidates_FallsBackToMemoryOnStoreError(t *testing.T) {
	store := newMemStore()
	store.listErr = errors.New("db is down")
	d := newTestDirectory(t, store)
	ctx := context.Background()

	d.TouchUser(domain.PlatformVK, 2000000002, 1, "a")
	d.TouchUser(domain.PlatformVK, 2000000002, 2, "b")
	d.Wait()

	// the assignment also fails to persist but is kept in memory
	store.assignErr = errors.New("db is down")
	if err := d.RecordAssignment(ctx, domain.PlatformVK, 2000000002, "2026-02-01", 1, "котик"); err != nil {
		t.Fatalf("RecordAssignment with failing store: %v", err)
	}

	left := d.CandidatesWithoutAssignmentToday(ctx, domain.PlatformVK, 2000000002, "2026-02-01")
	if len(left) != 1 || left[0].UserID != 2 {
		t.Fatalf("in-memory fallback should exclude user 1, got %+v", left)
	}
}

func TestWarmUp_LoadsChatsAndUsersFromDB(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "dir_test.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := db.AutoMigrate(&domain.KnownChat{}, &domain.ChatUser{}, &domain.DailyAssignment{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	ctx := context.Background()
	now := time.Now().UTC()
	if err := repo.UpsertChat(ctx, db, domain.PlatformVK, 2000000010, now); err != nil {
		t.Fatalf("seed chat: %v", err)
	}
	if err := repo.UpsertChatUser(ctx, db, domain.PlatformVK, 2000000010, 3, "Boris", now); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	d := New(db, dbStore{}, zerolog.Nop())
	if err := d.WarmUp(ctx); err != nil {
		t.Fatalf("WarmUp: %v", err)
	}

	if chats := d.ListChats(domain.PlatformVK); len(chats) != 1 {
		t.Fatalf("warmed chats = %v", chats)
	}
	members := d.CandidatesWithoutAssignmentToday(ctx, domain.PlatformVK, 2000000010, "2026-02-01")
	if len(members) != 1 || members[0].DisplayName != "Boris" {
		t.Fatalf("warmed members = %+v", members)
	}
}

// dbStore adapts repo free functions for the warm-up test.
type dbStore struct{}

func (dbStore) UpsertChat(ctx context.Context, db *gorm.DB, p domain.Platform, chatID int64, seenAt time.Time) error {
	return repo.UpsertChat(ctx, db, p, chatID, seenAt)
}

func (dbStore) UpsertChatUser(ctx context.Context, db *gorm.DB, p domain.Platform, chatID, userID int64, name string, seenAt time.Time) error {
	return repo.UpsertChatUser(ctx, db, p, chatID, userID, name, seenAt)
}

func (dbStore) ListKnownChats(ctx context.Context, db *gorm.DB) ([]domain.KnownChat, error) {
	return repo.ListKnownChats(ctx, db)
}

func (dbStore) ListAllChatUsers(ctx context.Context, db *gorm.DB) ([]domain.ChatUser, error) {
	return repo.ListAllChatUsers(ctx, db)
}

func (dbStore) CreateAssignment(ctx context.Context, db *gorm.DB, p domain.Platform, chatID int64, day string, userID int64, title string) error {
	return repo.CreateAssignment(ctx, db, p, chatID, day, userID, title)
}

func (dbStore) ListAssignedUserIDs(ctx context.Context, db *gorm.DB, p domain.Platform, chatID int64, day string) ([]int64, error) {
	return repo.ListAssignedUserIDs(ctx, db, p, chatID, day)
}

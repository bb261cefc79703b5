// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the chat/user
// directory tables.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a record is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/crabbro/crabbot/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the directory layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// UpsertChat inserts a KnownChat row or refreshes its last_seen_at timestamp.
func UpsertChat(ctx context.Context, db *gorm.DB, platform domain.Platform, chatID int64, seenAt time.Time) error {
	row := domain.KnownChat{
		Platform:   string(platform),
		ChatID:     chatID,
		LastSeenAt: seenAt.UTC(),
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "platform"}, {Name: "chat_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_seen_at"}),
		}).
		Create(&row).Error
}

// UpsertChatUser inserts a ChatUser row or refreshes it. The display name is
// only written when non-empty, so an observed name is never clobbered by a
// later message that carried none.
func UpsertChatUser(ctx context.Context, db *gorm.DB, platform domain.Platform, chatID, userID int64, displayName string, seenAt time.Time) error {
	row := domain.ChatUser{
		Platform:    string(platform),
		ChatID:      chatID,
		UserID:      userID,
		DisplayName: displayName,
		LastSeenAt:  seenAt.UTC(),
	}
	assign := []string{"last_seen_at"}
	if displayName != "" {
		assign = append(assign, "display_name")
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "platform"}, {Name: "chat_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns(assign),
		}).
		Create(&row).Error
}

// ListKnownChats returns every recorded chat, most recently seen first.
// Used to warm the in-memory directory at startup.
func ListKnownChats(ctx context.Context, db *gorm.DB) ([]domain.KnownChat, error) {
	var out []domain.KnownChat
	err := db.WithContext(ctx).
		Order("last_seen_at desc").
		Find(&out).Error
	return out, err
}

// ListChatUsers returns every recorded user of a single chat.
func ListChatUsers(ctx context.Context, db *gorm.DB, platform domain.Platform, chatID int64) ([]domain.ChatUser, error) {
	var out []domain.ChatUser
	err := db.WithContext(ctx).
		Where("platform = ? AND chat_id = ?", string(platform), chatID).
		Order("last_seen_at desc").
		Find(&out).Error
	return out, err
}

// ListAllChatUsers returns every recorded chat user across all chats.
// Used to warm the in-memory directory at startup.
func ListAllChatUsers(ctx context.Context, db *gorm.DB) ([]domain.ChatUser, error) {
	var out []domain.ChatUser
	err := db.WithContext(ctx).Find(&out).Error
	return out, err
}

// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for the daily title
// assignments produced by the "who's today" feature.
package repo

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/crabbro/crabbot/internal/domain"
)

// ErrDuplicate indicates that a uniquely-keyed record already exists.
var ErrDuplicate = errors.New("duplicate")

// CreateAssignment inserts a daily title assignment. A duplicate
// (platform, chat, day, user) insert returns ErrDuplicate, which callers
// treat as a no-op: at most one title per user per chat per day.
func CreateAssignment(ctx context.Context, db *gorm.DB, platform domain.Platform, chatID int64, day string, userID int64, title string) error {
	rec := &domain.DailyAssignment{
		ID:       uuid.NewString(),
		Platform: string(platform),
		ChatID:   chatID,
		Day:      day,
		UserID:   userID,
		Title:    title,
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// ListAssignedUserIDs returns the ids of users that already hold a title in
// the chat on the given day.
func ListAssignedUserIDs(ctx context.Context, db *gorm.DB, platform domain.Platform, chatID int64, day string) ([]int64, error) {
	var out []int64
	err := db.WithContext(ctx).
		Model(&domain.DailyAssignment{}).
		Where("platform = ? AND chat_id = ? AND day = ?", string(platform), chatID, day).
		Pluck("user_id", &out).Error
	return out, err
}

// CountAssignments returns the number of assignment rows for a
// (platform, chat, day) tuple. Intended for tests and introspection.
func CountAssignments(ctx context.Context, db *gorm.DB, platform domain.Platform, chatID int64, day string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.DailyAssignment{}).
		Where("platform = ? AND chat_id = ? AND day = ?", string(platform), chatID, day).
		Count(&total).Error
	return total, err
}

// isUniqueViolation recognizes unique-constraint failures across the error
// shapes gorm and glebarez/sqlite produce.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique")
}

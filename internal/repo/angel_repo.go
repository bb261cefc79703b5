// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for the "angel time"
// sighting log and its per-user statistics.
package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/crabbro/crabbot/internal/domain"
)

// TimeCount is one aggregated row of a user's angel-time statistics.
type TimeCount struct {
	TimeValue string
	Count     int64
}

// CreateAngelSighting logs one matched mirror-time hit.
func CreateAngelSighting(ctx context.Context, db *gorm.DB, platform domain.Platform, chatID, userID int64, timeValue string) error {
	rec := &domain.AngelSighting{
		ID:        uuid.NewString(),
		Platform:  string(platform),
		ChatID:    chatID,
		UserID:    userID,
		TimeValue: timeValue,
	}
	return db.WithContext(ctx).Create(rec).Error
}

// AngelStats returns the total number of sightings for (platform, chat, user)
// and the top matched times, most frequent first, capped at limit.
func AngelStats(ctx context.Context, db *gorm.DB, platform domain.Platform, chatID, userID int64, limit int) (int64, []TimeCount, error) {
	q := db.WithContext(ctx).
		Model(&domain.AngelSighting{}).
		Where("platform = ? AND chat_id = ? AND user_id = ?", string(platform), chatID, userID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, nil, err
	}
	if total == 0 {
		return 0, nil, nil
	}

	var top []TimeCount
	err := db.WithContext(ctx).
		Model(&domain.AngelSighting{}).
		Select("time_value, COUNT(*) as count").
		Where("platform = ? AND chat_id = ? AND user_id = ?", string(platform), chatID, userID).
		Group("time_value").
		Order("count DESC, time_value ASC").
		Limit(limit).
		Scan(&top).Error
	return total, top, err
}

// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for the once-per-day
// tarot card state.
package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/crabbro/crabbot/internal/domain"
)

// GetTarotDraw returns the card drawn by (platform, user) on day, or
// ErrNotFound when the user has not drawn yet.
func GetTarotDraw(ctx context.Context, db *gorm.DB, platform domain.Platform, userID int64, day string) (*domain.TarotDraw, error) {
	var rec domain.TarotDraw
	err := db.WithContext(ctx).
		Where("platform = ? AND user_id = ? AND day = ?", string(platform), userID, day).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// CreateTarotDraw records the card drawn by (platform, user) on day.
// A concurrent duplicate insert returns ErrDuplicate.
func CreateTarotDraw(ctx context.Context, db *gorm.DB, platform domain.Platform, userID int64, day, card string) error {
	rec := &domain.TarotDraw{
		ID:       uuid.NewString(),
		Platform: string(platform),
		UserID:   userID,
		Day:      day,
		Card:     card,
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// DeleteTarotDraw removes the user's draw for day, reporting whether a row
// was actually deleted. Backs the user-scoped reset command.
func DeleteTarotDraw(ctx context.Context, db *gorm.DB, platform domain.Platform, userID int64, day string) (bool, error) {
	res := db.WithContext(ctx).
		Where("platform = ? AND user_id = ? AND day = ?", string(platform), userID, day).
		Delete(&domain.TarotDraw{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

package providers

import (
	"context"

	"gorm.io/gorm"

	"github.com/crabbro/crabbot/internal/domain"
	"github.com/crabbro/crabbot/internal/repo"
)

// TarotDB adapts the repo layer to TarotStore.
type TarotDB struct {
	DB *gorm.DB
}

func (t TarotDB) Draw(ctx context.Context, platform domain.Platform, userID int64, day string) (string, error) {
	draw, err := repo.GetTarotDraw(ctx, t.DB, platform, userID, day)
	if err != nil {
		return "", err
	}
	return draw.Card, nil
}

func (t TarotDB) Record(ctx context.Context, platform domain.Platform, userID int64, day, card string) error {
	return repo.CreateTarotDraw(ctx, t.DB, platform, userID, day, card)
}

func (t TarotDB) Reset(ctx context.Context, platform domain.Platform, userID int64, day string) (bool, error) {
	return repo.DeleteTarotDraw(ctx, t.DB, platform, userID, day)
}

// AngelDB adapts the repo layer to AngelStore.
type AngelDB struct {
	DB *gorm.DB
}

func (a AngelDB) RecordSighting(ctx context.Context, platform domain.Platform, chatID, userID int64, timeValue string) error {
	return repo.CreateAngelSighting(ctx, a.DB, platform, chatID, userID, timeValue)
}

func (a AngelDB) Stats(ctx context.Context, platform domain.Platform, chatID, userID int64, topN int) (int64, []repo.TimeCount, error) {
	return repo.AngelStats(ctx, a.DB, platform, chatID, userID, topN)
}

package repo

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/models"
)

type CachedGame struct {
	Position           int                 `gorm:"primaryKey;autoIncrement:false"`
	ID                 int64               `gorm:"not null;index"`
	Title              string              `gorm:"not null"`
	Genre              string
	Platform           string
	OriginalPrice      decimal.Decimal     `gorm:"type:text;not null"`
	PriceMissing       bool
	DiscountPrice      decimal.NullDecimal `gorm:"type:text"`
	DiscountPercentage float64
	Rating             *float64
	Image              string
	Badge              string
	Featured           bool
}

func (CachedGame) TableName() string {
	return "cached_games"
}

type CacheMeta struct {
	Name      string `gorm:"primaryKey"`
	UpdatedAt time.Time
}

const catalogMetaKey = "catalog"

// ReplaceCatalog swaps the cached catalog for games in one transaction,
// keeping their order.
func (r *GormRepo) ReplaceCatalog(ctx context.Context, games []models.Game) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&CachedGame{}).Error; err != nil {
			return err
		}
		if len(games) > 0 {
			rows := make([]CachedGame, 0, len(games))
			for i, g := range games {
				rows = append(rows, toCached(i+1, g))
			}
			if err := tx.CreateInBatches(rows, 200).Error; err != nil {
				return err
			}
		}
		return tx.Save(&CacheMeta{Name: catalogMetaKey, UpdatedAt: time.Now().UTC()}).Error
	})
}

// LoadCatalog returns the cached catalog in its original order and the time
// it was stored. ok is false when nothing was ever cached.
func (r *GormRepo) LoadCatalog(ctx context.Context) (games []models.Game, updatedAt time.Time, ok bool, err error) {
	var meta CacheMeta
	if err := r.DB.WithContext(ctx).Where("name = ?", catalogMetaKey).First(&meta).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, time.Time{}, false, nil
		}
		return nil, time.Time{}, false, err
	}

	var rows []CachedGame
	if err := r.DB.WithContext(ctx).Order("position ASC").Find(&rows).Error; err != nil {
		return nil, time.Time{}, false, err
	}

	games = make([]models.Game, 0, len(rows))
	for _, row := range rows {
		games = append(games, fromCached(row))
	}
	return games, meta.UpdatedAt, true, nil
}

func toCached(pos int, g models.Game) CachedGame {
	return CachedGame{
		ID:                 int64(g.ID),
		Position:           pos,
		Title:              g.Title,
		Genre:              g.Genre,
		Platform:           g.Platform,
		OriginalPrice:      g.OriginalPrice,
		PriceMissing:       g.PriceMissing,
		DiscountPrice:      g.DiscountPrice,
		DiscountPercentage: g.DiscountPercentage,
		Rating:             g.Rating,
		Image:              g.Image,
		Badge:              string(g.Badge),
		Featured:           g.Featured,
	}
}

func fromCached(row CachedGame) models.Game {
	return models.Game{
		ID:                 models.ID(row.ID),
		Title:              row.Title,
		Genre:              row.Genre,
		Platform:           row.Platform,
		OriginalPrice:      row.OriginalPrice,
		PriceMissing:       row.PriceMissing,
		DiscountPrice:      row.DiscountPrice,
		DiscountPercentage: row.DiscountPercentage,
		Rating:             row.Rating,
		Image:              row.Image,
		Badge:              models.Badge(row.Badge),
		Featured:           row.Featured,
	}
}

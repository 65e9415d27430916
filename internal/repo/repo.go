package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type GormRepo struct {
	DB *gorm.DB
}

// Open opens the local sqlite cache at path and migrates it. Use ":memory:"
// only with a single connection.
func Open(ctx context.Context, path string) (*GormRepo, error) {
	if path == "" {
		return nil, fmt.Errorf("cache path is empty")
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
		Logger:  logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open catalog cache: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping catalog cache: %w", err)
	}

	if err := db.WithContext(ctx).AutoMigrate(&CachedGame{}, &CacheMeta{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate catalog cache: %w", err)
	}

	return &GormRepo{DB: db}, nil
}

func (r *GormRepo) Close() error {
	sqlDB, err := r.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

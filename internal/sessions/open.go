package sessions

import (
	"context"

	"go.uber.org/zap"

	"github.com/cliptag/backend/pkg/database"
)

// Open picks the store implementation for dsn, runs migrations and returns a closer.
func Open(ctx context.Context, dsn string, logger *zap.Logger) (Store, func(), error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if database.IsPostgres(dsn) {
		pool, err := database.NewPostgresPool(ctx, dsn, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := database.Migrate(ctx, pool, logger); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return NewRepository(pool), pool.Close, nil
	}

	db, err := database.OpenGorm(dsn, logger)
	if err != nil {
		return nil, nil, err
	}
	repo := NewGormRepository(db)
	if err := repo.Migrate(); err != nil {
		_ = database.CloseGorm(db)
		return nil, nil, err
	}
	return repo, func() {
		if err := database.CloseGorm(db); err != nil {
			logger.Warn("close database", zap.Error(err))
		}
	}, nil
}

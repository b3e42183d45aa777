package database

import (
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenGorm opens a MySQL (mysql://...) or SQLite (anything else) database.
func OpenGorm(dsn string, log *zap.Logger) (*gorm.DB, error) {
	if log == nil {
		log = zap.NewNop()
	}
	dial, isSQLite := dialector(dsn)
	db, err := gorm.Open(dial, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if isSQLite {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("sql handle: %w", err)
		}
		// SQLite allows one writer; in-memory databases are per connection.
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	}
	log.Info("database opened", zap.Bool("sqlite", isSQLite))
	return db, nil
}

// CloseGorm closes the underlying connection pool.
func CloseGorm(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func dialector(dsn string) (gorm.Dialector, bool) {
	if strings.HasPrefix(dsn, "mysql://") {
		return mysql.Open(strings.TrimPrefix(dsn, "mysql://")), false
	}
	return sqlite.Open(sqliteDSN(dsn)), true
}

// sqliteDSN turns on foreign keys so events cascade with their session.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "foreign_keys") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)"
}

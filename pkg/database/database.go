// Package database owns the shared GORM handle. The connection is opened
// once at startup; handlers reach it through GetDB and scope every query by
// tenant themselves.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/upzento/upzento-crm-sub000/pkg/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB is the process-wide handle. Tests swap in an in-memory database.
var DB *gorm.DB

// pingTimeout bounds the readiness probe so a stalled connection cannot
// hang the health endpoint.
const pingTimeout = 2 * time.Second

// InitDB opens the postgres connection and applies the pool settings from
// config. Errors are returned wrapped; logging is the caller's concern.
func InitDB(dbConfig *config.DBConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dbConfig.GetDSN(),
		PreferSimpleProtocol: true, // disables implicit prepared statement usage
	}), &gorm.Config{
		Logger: logger.Default.LogMode(dbConfig.LogLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access connection pool: %w", err)
	}
	sqlDB.SetMaxIdleConns(dbConfig.MaxIdleConns)
	sqlDB.SetMaxOpenConns(dbConfig.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(dbConfig.ConnMaxLifetime)

	DB = db
	return DB, nil
}

// MigrateModels runs AutoMigrate for the given models.
func MigrateModels(models ...interface{}) error {
	if DB == nil {
		return fmt.Errorf("database is not initialized")
	}
	if err := DB.AutoMigrate(models...); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}
	return nil
}

// GetDB returns the shared handle.
func GetDB() *gorm.DB {
	return DB
}

// Ping verifies the backing connection answers within pingTimeout. The
// readiness endpoint uses it to gate traffic.
func Ping(ctx context.Context) error {
	if DB == nil {
		return fmt.Errorf("database is not initialized")
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return sqlDB.PingContext(ctx)
}

package store

import (
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to the SQLite database at path and migrates the schema.
// Use ":memory:" (or "file::memory:?cache=shared") for tests.
func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("store: access connection pool: %w", err)
	}
	// SQLite serializes writers; a small pool avoids lock contention.
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates the tables used by this package.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&AuthUser{},
		&AuthRole{},
		&AuthResource{},
		&UserRole{},
		&RoleResource{},
		&LoginLog{},
	)
	if err != nil {
		return fmt.Errorf("store: migrate schema: %w", err)
	}
	return nil
}

package database

import (
	"fmt"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/GeorgeTG/oracle/internal/adapters/persistence"
	"github.com/GeorgeTG/oracle/internal/infrastructure/config"
)

// NewConnection opens the SQLite store and runs migrations. A locked
// database file means another instance owns it; callers treat that as fatal.
func NewConnection(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		if strings.Contains(err.Error(), "database is locked") {
			return nil, fmt.Errorf("database %s is locked by another instance: %w", path, err)
		}
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// NewTestConnection creates an in-memory SQLite database for testing
func NewTestConnection() (*gorm.DB, error) {
	return NewConnection(&config.DatabaseConfig{Path: ":memory:"})
}

// AutoMigrate runs auto-migration for all models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&persistence.PlayerModel{},
		&persistence.ItemModel{},
		&persistence.InventoryItemModel{},
		&persistence.SessionModel{},
		&persistence.MapCompletionModel{},
		&persistence.MapCompletionItemModel{},
		&persistence.AffixModel{},
		&persistence.MapAffixModel{},
		&persistence.MarketTransactionModel{},
		&persistence.PriceRevisionModel{},
	)
}

// Close closes the database connection
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

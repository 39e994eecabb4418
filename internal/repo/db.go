// Package repo persists error events (the journal) with GORM on SQLite.
package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/go-error-views/internal/domain"
)

// journalPragmas favour cheap appends from request goroutines over durability
// of the last few events on power loss.
var journalPragmas = []string{
	"PRAGMA journal_mode=WAL;",
	"PRAGMA synchronous=NORMAL;",
	"PRAGMA busy_timeout=5000;",
}

const (
	journalMaxConns    = 10
	journalConnIdle    = 5 * time.Minute
	journalConnMaxLife = 30 * time.Minute
)

// OpenSQLite opens (or creates) the journal database at path. Journal queries
// are traced as children of the request span; query arguments carry request
// paths and are left out of span attributes.
func OpenSQLite(path string) (*gorm.DB, error) {
	// sqlite reports a missing directory as "out of memory (14)"; check first.
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("journal dir: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open journal %q: %w", path, err)
	}
	if err := db.Use(tracing.NewPlugin(tracing.WithoutQueryVariables())); err != nil {
		return nil, fmt.Errorf("install tracing plugin: %w", err)
	}
	for _, p := range journalPragmas {
		if err := db.Exec(p).Error; err != nil {
			return nil, fmt.Errorf("%s %w", p, err)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(journalMaxConns)
	sqlDB.SetMaxIdleConns(journalMaxConns)
	sqlDB.SetConnMaxIdleTime(journalConnIdle)
	sqlDB.SetConnMaxLifetime(journalConnMaxLife)
	return db, nil
}

// AutoMigrate creates or updates the error_events table.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&domain.ErrorRecord{})
}

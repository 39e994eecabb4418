// Package repo implements the persistence layer of the error event journal.
// This file provides small aggregate queries used for conditional responses
// (ETag generation) in the HTTP layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-error-views/internal/domain"
)

// ErrorRecordsStats returns the number of records matching f and the newest
// CreatedAt among them. When nothing matches, count is 0 and latest is nil.
func ErrorRecordsStats(ctx context.Context, db *gorm.DB, f ErrorRecordFilter) (count int64, latest *time.Time, err error) {
	q := f.apply(db.WithContext(ctx).Model(&domain.ErrorRecord{}))

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest created_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		CreatedAt time.Time
	}
	q = f.apply(db.WithContext(ctx).Model(&domain.ErrorRecord{}))
	if err = q.Select("created_at").Order("created_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.CreatedAt, nil
}

// Package repo – error events
//
// Thin repository functions for domain.ErrorRecord. All functions take a
// *gorm.DB so they can run inside transactions; they hold no business logic.
//
// Functions:
//
//   - CreateErrorRecord(ctx, db, rec) -> error
//     Inserts a record, assigning a UUID and a UTC timestamp when missing.
//
//   - CountErrorRecords(ctx, db, f) -> (int64, error)
//     Counts records matching f.
//
//   - ListErrorRecordsPage(ctx, db, f, offset, limit) -> ([]domain.ErrorRecord, error)
//     Returns a page of records matching f, newest first.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-error-views/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrorRecordFilter narrows journal queries. Zero values match everything.
type ErrorRecordFilter struct {
	Status int
	Source string
}

func (f ErrorRecordFilter) apply(q *gorm.DB) *gorm.DB {
	if f.Status != 0 {
		q = q.Where("status = ?", f.Status)
	}
	if f.Source != "" {
		q = q.Where("source = ?", f.Source)
	}
	return q
}

// CreateErrorRecord inserts rec. ID and CreatedAt are filled in when empty.
func CreateErrorRecord(ctx context.Context, db *gorm.DB, rec *domain.ErrorRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(rec).Error
}

// GetErrorRecord fetches a record by id, or ErrNotFound.
func GetErrorRecord(ctx context.Context, db *gorm.DB, id string) (*domain.ErrorRecord, error) {
	var rec domain.ErrorRecord
	if err := db.WithContext(ctx).Where("id = ?", id).First(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// CountErrorRecords returns the number of records matching f.
func CountErrorRecords(ctx context.Context, db *gorm.DB, f ErrorRecordFilter) (int64, error) {
	var total int64
	err := f.apply(db.WithContext(ctx).Model(&domain.ErrorRecord{})).Count(&total).Error
	return total, err
}

// ListErrorRecordsPage returns records matching f ordered by creation time
// descending. The caller computes offset and limit from the page number.
func ListErrorRecordsPage(ctx context.Context, db *gorm.DB, f ErrorRecordFilter, offset, limit int) ([]domain.ErrorRecord, error) {
	var out []domain.ErrorRecord
	err := f.apply(db.WithContext(ctx)).
		Order("created_at desc").
		Order("id").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-error-views/internal/domain"
)

func newTestDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()
	// Unique DB per test to avoid schema leaking across tests.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func seedRecord(t *testing.T, db *gorm.DB, status int, source string, at time.Time) *domain.ErrorRecord {
	t.Helper()
	rec := &domain.ErrorRecord{
		Status:    status,
		Message:   fmt.Sprintf("status %d", status),
		Method:    "GET",
		Path:      fmt.Sprintf("/p/%d", status),
		Source:    source,
		CreatedAt: at,
	}
	if err := CreateErrorRecord(context.Background(), db, rec); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return rec
}

func TestErrorRecordsStats_CountError_NoTable(t *testing.T) {
	db := newTestDB(t /* no migrations */)
	_, _, err := ErrorRecordsStats(context.Background(), db, ErrorRecordFilter{})
	if err == nil {
		t.Fatalf("expected error due to missing error_events table")
	}
}

func TestErrorRecordsStats_ZeroRows(t *testing.T) {
	db := newTestDB(t, &domain.ErrorRecord{})
	count, latest, err := ErrorRecordsStats(context.Background(), db, ErrorRecordFilter{})
	if err != nil {
		t.Fatalf("ErrorRecordsStats error: %v", err)
	}
	if count != 0 || latest != nil {
		t.Fatalf("expected (0, nil), got (%d, %v)", count, latest)
	}
}

func TestErrorRecordsStats_CountAndLatest(t *testing.T) {
	db := newTestDB(t, &domain.ErrorRecord{})
	base := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	seedRecord(t, db, 404, domain.SourceStatus, base)
	seedRecord(t, db, 404, domain.SourceView, base.Add(2*time.Minute))
	seedRecord(t, db, 500, domain.SourceException, base.Add(5*time.Minute))

	count, latest, err := ErrorRecordsStats(context.Background(), db, ErrorRecordFilter{Status: 404})
	if err != nil {
		t.Fatalf("ErrorRecordsStats: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d; want 2", count)
	}
	if latest == nil || !latest.Equal(base.Add(2*time.Minute)) {
		t.Fatalf("latest = %v; want %v", latest, base.Add(2*time.Minute))
	}

	count, _, err = ErrorRecordsStats(context.Background(), db, ErrorRecordFilter{})
	if err != nil || count != 3 {
		t.Fatalf("unfiltered count = %d, err = %v", count, err)
	}
}

package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/go-error-views/internal/domain"
)

func TestCreateErrorRecord_AssignsIDAndTimestamp(t *testing.T) {
	db := newTestDB(t, &domain.ErrorRecord{})
	rec := &domain.ErrorRecord{Status: 403, Message: "Permission Denied", Method: "POST", Path: "/x", Source: domain.SourceStatus}

	if err := CreateErrorRecord(context.Background(), db, rec); err != nil {
		t.Fatalf("CreateErrorRecord: %v", err)
	}
	if len(rec.ID) != 36 {
		t.Fatalf("expected UUID id, got %q", rec.ID)
	}
	if rec.CreatedAt.IsZero() || rec.CreatedAt.Location() != time.UTC {
		t.Fatalf("expected UTC CreatedAt, got %v", rec.CreatedAt)
	}
}

func TestGetErrorRecord_NotFound(t *testing.T) {
	db := newTestDB(t, &domain.ErrorRecord{})
	_, err := GetErrorRecord(context.Background(), db, "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListErrorRecordsPage_OrderFilterAndPaging(t *testing.T) {
	db := newTestDB(t, &domain.ErrorRecord{})
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		seedRecord(t, db, 404, domain.SourceStatus, base.Add(time.Duration(i)*time.Second))
	}
	seedRecord(t, db, 500, domain.SourceException, base.Add(time.Hour))

	ctx := context.Background()

	all, err := ListErrorRecordsPage(ctx, db, ErrorRecordFilter{}, 0, 10)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 6 || all[0].Status != 500 {
		t.Fatalf("expected newest first (500), got %d rows first=%+v", len(all), all[0])
	}

	page2, err := ListErrorRecordsPage(ctx, db, ErrorRecordFilter{Status: 404}, 2, 2)
	if err != nil {
		t.Fatalf("list page: %v", err)
	}
	if len(page2) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(page2))
	}
	if !page2[0].CreatedAt.Equal(base.Add(2*time.Second)) || !page2[1].CreatedAt.Equal(base.Add(time.Second)) {
		t.Fatalf("unexpected page order: %v, %v", page2[0].CreatedAt, page2[1].CreatedAt)
	}

	n, err := CountErrorRecords(ctx, db, ErrorRecordFilter{Source: domain.SourceException})
	if err != nil || n != 1 {
		t.Fatalf("count by source = %d, err = %v", n, err)
	}
}

// Package services – ErrorEventService
//
// This file implements ErrorEventService, which owns the optional error event
// journal: every logged error view response can be persisted and listed
// later, newest first, with pagination and filters.
//
// Service-level errors (ErrEventNotFound, ErrInvalidFilter) are returned for
// predictable cases so handlers can map them to HTTP results consistently.
//
// Observability: public methods are OpenTelemetry-instrumented; spans carry
// the filter and pagination parameters.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-error-views/internal/domain"
	"github.com/tbourn/go-error-views/internal/repo"
)

const tracerErrorEvents = "services/ErrorEventService"

// ErrorEventRepo defines the repository contract required by ErrorEventService.
type ErrorEventRepo interface {
	// CreateErrorRecord inserts a record, assigning id and timestamp if empty.
	CreateErrorRecord(ctx context.Context, db *gorm.DB, rec *domain.ErrorRecord) error
	// GetErrorRecord fetches one record by id.
	GetErrorRecord(ctx context.Context, db *gorm.DB, id string) (*domain.ErrorRecord, error)
	// CountErrorRecords counts records matching f.
	CountErrorRecords(ctx context.Context, db *gorm.DB, f repo.ErrorRecordFilter) (int64, error)
	// ListErrorRecordsPage returns a page of records matching f, newest first.
	ListErrorRecordsPage(ctx context.Context, db *gorm.DB, f repo.ErrorRecordFilter, offset, limit int) ([]domain.ErrorRecord, error)
	// ErrorRecordsStats returns the count and newest timestamp for f.
	ErrorRecordsStats(ctx context.Context, db *gorm.DB, f repo.ErrorRecordFilter) (int64, *time.Time, error)
}

// ErrorEventService records and lists error events.
type ErrorEventService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the journal repository.
	Repo ErrorEventRepo

	// MaxMessageLen and MaxPathLen clip stored fields to the column sizes.
	MaxMessageLen int
	MaxPathLen    int
}

// NewErrorEventService constructs an ErrorEventService with column-sized limits.
func NewErrorEventService(db *gorm.DB, r ErrorEventRepo) *ErrorEventService {
	return &ErrorEventService{DB: db, Repo: r, MaxMessageLen: 512, MaxPathLen: 2048}
}

// Record persists one error event.
func (s *ErrorEventService) Record(ctx context.Context, rec domain.ErrorRecord) error {
	ctx, span := otel.Tracer(tracerErrorEvents).Start(ctx, "Record",
		trace.WithAttributes(
			attribute.Int("http.status_code", rec.Status),
			attribute.String("error.source", rec.Source),
		),
	)
	defer span.End()

	if rec.Status < 400 || rec.Status > 599 {
		return fmt.Errorf("%w: status %d", ErrInvalidFilter, rec.Status)
	}
	rec.Message = clipBytes(rec.Message, s.MaxMessageLen)
	rec.Path = clipBytes(rec.Path, s.MaxPathLen)

	if err := s.Repo.CreateErrorRecord(ctx, s.DB, &rec); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create error record")
		return err
	}
	return nil
}

// Get returns one event by id.
func (s *ErrorEventService) Get(ctx context.Context, id string) (*domain.ErrorRecord, error) {
	ctx, span := otel.Tracer(tracerErrorEvents).Start(ctx, "Get",
		trace.WithAttributes(attribute.String("error_event.id", id)),
	)
	defer span.End()

	rec, err := s.Repo.GetErrorRecord(ctx, s.DB, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrEventNotFound
	}
	return rec, err
}

// ListPage returns a page of events matching f and the total count. Invalid
// page/pageSize values fall back to 1 and 20.
func (s *ErrorEventService) ListPage(ctx context.Context, f repo.ErrorRecordFilter, page, pageSize int) ([]domain.ErrorRecord, int64, error) {
	ctx, span := otel.Tracer(tracerErrorEvents).Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.Int("filter.status", f.Status),
			attribute.String("filter.source", f.Source),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if err := ValidateFilter(f); err != nil {
		return nil, 0, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}

	total, err := s.Repo.CountErrorRecords(ctx, s.DB, f)
	if err != nil {
		span.RecordError(err)
		return nil, 0, err
	}
	if total == 0 {
		return []domain.ErrorRecord{}, 0, nil
	}

	items, err := s.Repo.ListErrorRecordsPage(ctx, s.DB, f, (page-1)*pageSize, pageSize)
	if err != nil {
		span.RecordError(err)
	}
	return items, total, err
}

// Stats returns the number of events matching f and the newest event time,
// used to build weak ETags.
func (s *ErrorEventService) Stats(ctx context.Context, f repo.ErrorRecordFilter) (int64, *time.Time, error) {
	ctx, span := otel.Tracer(tracerErrorEvents).Start(ctx, "Stats")
	defer span.End()
	return s.Repo.ErrorRecordsStats(ctx, s.DB, f)
}

// ValidateFilter rejects statuses outside 400–599 and unknown sources.
func ValidateFilter(f repo.ErrorRecordFilter) error {
	if f.Status != 0 && (f.Status < 400 || f.Status > 599) {
		return fmt.Errorf("%w: status %d", ErrInvalidFilter, f.Status)
	}
	switch f.Source {
	case "", domain.SourceException, domain.SourceStatus, domain.SourceView:
		return nil
	}
	return fmt.Errorf("%w: source %q", ErrInvalidFilter, f.Source)
}

// clipBytes truncates s to at most n bytes without splitting a rune.
func clipBytes(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// Error event HTTP handlers.
//
// This file exposes the read side of the error event journal:
//   - GET /error-events        (list, paginated, filters, ETag support)
//   - GET /error-events/{id}   (single event)
//
// The journal is written by the Exceptions middleware sink; these handlers
// only read it.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-error-views/internal/domain"
	"github.com/tbourn/go-error-views/internal/repo"
	"github.com/tbourn/go-error-views/internal/services"
)

// ErrorEventService defines the journal queries consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type ErrorEventService interface {
	// ListPage returns a page of events matching f and the total count.
	ListPage(ctx context.Context, f repo.ErrorRecordFilter, page, pageSize int) ([]domain.ErrorRecord, int64, error)
	// Stats returns the count and newest timestamp for f (ETag input).
	Stats(ctx context.Context, f repo.ErrorRecordFilter) (int64, *time.Time, error)
	// Get returns one event by id.
	Get(ctx context.Context, id string) (*domain.ErrorRecord, error)
}

// ErrorEventHandlers serves the error event journal.
type ErrorEventHandlers struct {
	svc   ErrorEventService
	views *ErrorViews
}

// NewErrorEventHandlers binds the journal endpoints to svc. Failures are
// rendered through views.
func NewErrorEventHandlers(svc ErrorEventService, views *ErrorViews) *ErrorEventHandlers {
	return &ErrorEventHandlers{svc: svc, views: views}
}

// ListErrorEventsResponse wraps a page of error events and pagination information.
type ListErrorEventsResponse struct {
	Events     []domain.ErrorRecord `json:"error_events"`
	Pagination Pagination           `json:"pagination"`
}

// errorEventFilter reads the status and source query params.
func errorEventFilter(c *gin.Context) (repo.ErrorRecordFilter, error) {
	var f repo.ErrorRecordFilter
	if s := strings.TrimSpace(c.Query("status")); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return f, fmt.Errorf("%w: status must be a number", services.ErrInvalidFilter)
		}
		f.Status = n
	}
	f.Source = strings.ToLower(strings.TrimSpace(c.Query("source")))
	return f, services.ValidateFilter(f)
}

// ListErrorEvents godoc
// @ID          listErrorEvents
// @Summary     List error events (paginated)
// @Description Returns recorded error events, newest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        ErrorEvents
// @Produce     json
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"error-events:0::1:20:12:1700000000\")
// @Param       status         query   int     false "Only events with this status"  minimum(400) maximum(599)
// @Param       source         query   string  false "Only events from this source"  Enums(exception, status, view)
// @Param       page           query   int     false "Page number"                  minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"               minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListErrorEventsResponse
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     400  {object} domain.ErrorBody "Invalid filter"
// @Failure     500  {object} domain.ErrorBody "Internal error"
// @Router      /error-events [get]
func (h *ErrorEventHandlers) ListErrorEvents(c *gin.Context) {
	ctx := c.Request.Context()
	f, err := errorEventFilter(c)
	if err != nil {
		h.views.Fail(c, http.StatusBadRequest, ErrCodeInvalidFilter, err.Error())
		return
	}
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort). The tag names the page, so a cached page
	// never validates a request for another one.
	if count, maxTS, err := h.svc.Stats(ctx, f); err == nil {
		var ts int64
		if maxTS != nil {
			ts = maxTS.Unix()
		}
		etag := fmt.Sprintf(`W/"error-events:%d:%s:%d:%d:%d:%d"`, f.Status, f.Source, page, pageSize, count, ts)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			notModified(c)
			return
		}
	}

	items, total, err := h.svc.ListPage(ctx, f, page, pageSize)
	if err != nil {
		_ = c.Error(err)
		h.views.Fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not list error events")
		return
	}
	ok(c, http.StatusOK, ListErrorEventsResponse{
		Events:     items,
		Pagination: newPagination(page, pageSize, total),
	})
}

// GetErrorEvent godoc
// @ID          getErrorEvent
// @Summary     Get an error event
// @Description Returns one recorded error event.
// @Tags        ErrorEvents
// @Produce     json
//
// @Param       id  path  string  true  "Event ID (UUID)"  format(uuid) example(141add05-4415-4938-b5a1-17e0d3171aff)
//
// @Success     200  {object} domain.ErrorRecord
// @Failure     400  {object} domain.ErrorBody "Bad request"
// @Failure     404  {object} domain.ErrorBody "Event not found"
// @Failure     500  {object} domain.ErrorBody "Internal error"
// @Router      /error-events/{id} [get]
func (h *ErrorEventHandlers) GetErrorEvent(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		h.views.Fail(c, http.StatusBadRequest, ErrCodeBadRequest, "event id must be a UUID")
		return
	}

	rec, err := h.svc.Get(c.Request.Context(), id)
	switch {
	case errors.Is(err, services.ErrEventNotFound):
		h.views.Fail(c, http.StatusNotFound, ErrCodeNotFound, "error event not found")
		return
	case err != nil:
		_ = c.Error(err)
		h.views.Fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not load error event")
		return
	}
	ok(c, http.StatusOK, rec)
}

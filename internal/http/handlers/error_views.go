// Error views.
//
// This file holds the registry mapping each handled HTTP status to the view
// that renders it. The same registry serves both entry points:
//   - Gin-native registration (NoRoute → 404, NoMethod → 405) via Handler
//   - middleware interception via Render (middleware.ErrorViews)
//
// so a status always produces the same response regardless of how it was
// reached.
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-error-views/internal/config"
	"github.com/tbourn/go-error-views/internal/domain"
	"github.com/tbourn/go-error-views/internal/http/middleware"
	"github.com/tbourn/go-error-views/internal/services"
)

// RenderMode selects how error views are represented.
type RenderMode string

const (
	// ModeAuto negotiates HTML or JSON from the Accept header (JSON wins ties).
	ModeAuto RenderMode = "auto"
	ModeHTML RenderMode = "html"
	ModeJSON RenderMode = "json"
)

// ParseRenderMode parses "auto", "html" or "json" (case-insensitive).
func ParseRenderMode(s string) (RenderMode, error) {
	switch m := RenderMode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeAuto, ModeHTML, ModeJSON:
		return m, nil
	case "":
		return ModeAuto, nil
	}
	return "", fmt.Errorf("unknown render mode %q", s)
}

// ErrMissingView is returned by Validate for a handled status without a view.
var ErrMissingView = errors.New("no error view registered")

// ViewFunc renders the error response for one status. err is the triggering
// error and may be nil.
type ViewFunc func(c *gin.Context, err error) domain.ErrorResponse

// ErrorViews is the status → view registry. Register views before serving;
// the registry is read-only afterwards.
type ErrorViews struct {
	builder *services.ErrorBuilder
	mode    RenderMode
	views   map[int]ViewFunc
}

var _ middleware.ErrorViews = (*ErrorViews)(nil)

// NewErrorViews constructs a registry with a view for every status in
// config.DefaultHandledStatuses.
func NewErrorViews(b *services.ErrorBuilder, mode RenderMode) *ErrorViews {
	if mode == "" {
		mode = ModeAuto
	}
	v := &ErrorViews{builder: b, mode: mode, views: make(map[int]ViewFunc)}
	for _, s := range config.DefaultHandledStatuses {
		v.views[s] = v.statusView(s)
	}
	// Server errors may have lost their cause; the view never reads it.
	v.views[http.StatusInternalServerError] = func(c *gin.Context, _ error) domain.ErrorResponse {
		return v.builder.View(http.StatusInternalServerError, v.format(c), middleware.RequestIDFrom(c))
	}
	return v
}

// Register installs fn as the view for status, replacing any previous one.
func (v *ErrorViews) Register(status int, fn ViewFunc) {
	v.views[status] = fn
}

// Statuses returns the registered statuses in ascending order.
func (v *ErrorViews) Statuses() []int {
	out := make([]int, 0, len(v.views))
	for s := range v.views {
		out = append(out, s)
	}
	sort.Ints(out)
	return out
}

// Validate checks that every status in handled is an error status with a
// registered view.
func (v *ErrorViews) Validate(handled []int) error {
	var errs []error
	for _, s := range handled {
		if s < 400 || s > 599 {
			errs = append(errs, fmt.Errorf("status %d: not an error status", s))
			continue
		}
		if v.views[s] == nil {
			errs = append(errs, fmt.Errorf("status %d: %w", s, ErrMissingView))
		}
	}
	return errors.Join(errs...)
}

// Render produces the error response for status. Statuses without a
// registered view get the generic view built from the base configuration.
func (v *ErrorViews) Render(c *gin.Context, status int, err error) domain.ErrorResponse {
	if fn := v.views[status]; fn != nil {
		return fn(c, err)
	}
	return v.statusView(status)(c, err)
}

// Handler returns a Gin handler serving the view for status, for use with
// native registration such as engine.NoRoute and engine.NoMethod.
func (v *ErrorViews) Handler(status int) gin.HandlerFunc {
	return func(c *gin.Context) {
		cause := lastError(c)
		middleware.Respond(c, v.Render(c, status, cause), cause, domain.SourceView)
	}
}

// BaseView serves the base entry of the error configuration (label,
// context, template and log flag) with its configured status code.
func (v *ErrorViews) BaseView() gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := v.builder.BaseView(v.format(c), middleware.RequestIDFrom(c))
		middleware.Respond(c, resp, nil, domain.SourceView)
	}
}

// Fail aborts the request with a JSON problem carrying a machine-readable code.
// The label comes from the error configuration for status; msg is the
// human-readable sentence. The last Gin error, if any, is logged as the cause.
func (v *ErrorViews) Fail(c *gin.Context, status int, code, msg string) {
	if code == "" {
		code = CodeForStatus(status)
	}
	resp := v.builder.JSON(services.Problem{
		Status:    status,
		Error:     v.builder.Label(status),
		Message:   msg,
		Code:      code,
		RequestID: middleware.RequestIDFrom(c),
	})
	// API failures below 500 are client mistakes; keep them out of the error log.
	resp.Log = resp.Log && status >= http.StatusInternalServerError
	middleware.Respond(c, resp, lastError(c), domain.SourceView)
}

func lastError(c *gin.Context) error {
	if last := c.Errors.Last(); last != nil {
		return last.Err
	}
	return nil
}

// statusView is the default view for status: the configured ErrorSpec in the
// negotiated format. The triggering error is reported in logs, not bodies.
func (v *ErrorViews) statusView(status int) ViewFunc {
	return func(c *gin.Context, _ error) domain.ErrorResponse {
		return v.builder.View(status, v.format(c), middleware.RequestIDFrom(c))
	}
}

// format resolves the render mode for the request.
func (v *ErrorViews) format(c *gin.Context) services.Format {
	switch v.mode {
	case ModeHTML:
		return services.FormatHTML
	case ModeJSON:
		return services.FormatJSON
	}
	if c == nil || c.Request == nil {
		return services.FormatJSON
	}
	if c.NegotiateFormat(gin.MIMEJSON, gin.MIMEHTML) == gin.MIMEHTML {
		return services.FormatHTML
	}
	return services.FormatJSON
}

// TemplateNames lists every template the registry can render, for startup
// checks against the template engine.
func (v *ErrorViews) TemplateNames() []string {
	names := v.builder.Resolver.TemplateNames()
	for _, s := range v.Statuses() {
		if n := v.builder.TemplateName(s); !slices.Contains(names, n) {
			names = append(names, n)
		}
	}
	return names
}

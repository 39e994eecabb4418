// Package httpapi wires the HTTP transport (Gin) to the error views,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, the exception boundary,
// metrics, compression, CORS, security headers, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → exceptions)
//   - One error view registry for native fallbacks and intercepted statuses
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-error-views/internal/config"
	"github.com/tbourn/go-error-views/internal/docs"
	"github.com/tbourn/go-error-views/internal/domain"
	"github.com/tbourn/go-error-views/internal/errorconf"
	"github.com/tbourn/go-error-views/internal/http/handlers"
	"github.com/tbourn/go-error-views/internal/http/middleware"
	"github.com/tbourn/go-error-views/internal/repo"
	"github.com/tbourn/go-error-views/internal/services"
	"github.com/tbourn/go-error-views/internal/view"
)

// errorEventRepoShim adapts the repository free functions to the
// services.ErrorEventRepo interface expected by the ErrorEventService.
type errorEventRepoShim struct{}

// CreateErrorRecord proxies repo.CreateErrorRecord.
func (errorEventRepoShim) CreateErrorRecord(ctx context.Context, db *gorm.DB, rec *domain.ErrorRecord) error {
	return repo.CreateErrorRecord(ctx, db, rec)
}

// GetErrorRecord proxies repo.GetErrorRecord.
func (errorEventRepoShim) GetErrorRecord(ctx context.Context, db *gorm.DB, id string) (*domain.ErrorRecord, error) {
	return repo.GetErrorRecord(ctx, db, id)
}

// CountErrorRecords proxies repo.CountErrorRecords (pagination support).
func (errorEventRepoShim) CountErrorRecords(ctx context.Context, db *gorm.DB, f repo.ErrorRecordFilter) (int64, error) {
	return repo.CountErrorRecords(ctx, db, f)
}

// ListErrorRecordsPage proxies repo.ListErrorRecordsPage (pagination support).
func (errorEventRepoShim) ListErrorRecordsPage(ctx context.Context, db *gorm.DB, f repo.ErrorRecordFilter, offset, limit int) ([]domain.ErrorRecord, error) {
	return repo.ListErrorRecordsPage(ctx, db, f, offset, limit)
}

// ErrorRecordsStats proxies repo.ErrorRecordsStats (ETag support).
func (errorEventRepoShim) ErrorRecordsStats(ctx context.Context, db *gorm.DB, f repo.ErrorRecordFilter) (int64, *time.Time, error) {
	return repo.ErrorRecordsStats(ctx, db, f)
}

// NewErrorViews builds the error view registry from configuration: the
// optional YAML override table, the template set (embedded or TEMPLATE_DIR)
// and the render mode. Every handled status must have a view and, unless the
// mode is json, every configured template must exist.
func NewErrorViews(cfg config.Config) (*handlers.ErrorViews, error) {
	overrides, err := errorconf.LoadFile(cfg.Errors.ConfigPath)
	if err != nil {
		return nil, err
	}
	mode, err := handlers.ParseRenderMode(cfg.Errors.RenderMode)
	if err != nil {
		return nil, err
	}
	eng, err := view.NewDefaultEngine(cfg.Errors.TemplateDir)
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}

	views := handlers.NewErrorViews(services.NewErrorBuilder(errorconf.NewResolver(overrides), eng), mode)
	if mode != handlers.ModeJSON {
		if err := eng.Check(views.TemplateNames()); err != nil {
			return nil, err
		}
	}
	if err := views.Validate(handledStatuses(cfg)); err != nil {
		return nil, err
	}
	return views, nil
}

func handledStatuses(cfg config.Config) []int {
	if len(cfg.Errors.HandledStatuses) == 0 {
		return config.DefaultHandledStatuses
	}
	return cfg.Errors.HandledStatuses
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), the exception
// boundary, rate limiting, CORS and security headers, health and metrics
// endpoints, and then mounts the optional journal, docs and demo routes.
//
// db may be nil when the error event journal is disabled. RegisterRoutes
// panics when a handled status has no view, like config.MustLoad.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger (or Logger): structured access logs
//  4. Metrics: sees the final status, including rendered panics
//  5. Gzip: compresses error pages as well as API responses
//  6. Exceptions: panics and handled statuses → error views
//  7. Body size limiter
//  8. Rate limiter (429 rendered by the 429 view)
//  9. CORS and Security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, views *handlers.ErrorViews, cfg config.Config) {
	handled := handledStatuses(cfg)
	if err := views.Validate(handled); err != nil {
		panic(err)
	}
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging (with redaction unless LOG_REDACT=false)
	masked := []string{
		"X-API-Key", // project-specific sensitive header example
	}
	if cfg.LogRedact {
		r.Use(middleware.RedactingLogger(middleware.RedactOptions{MaskHeaders: masked}))
	} else {
		r.Use(middleware.Logger())
	}

	// 4) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 5) Compression (promhttp negotiates its own)
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	// 6) Exception boundary: panics and handled statuses → error views
	var events *services.ErrorEventService
	opts := middleware.ExceptionOptions{
		Handled:    handled,
		MaxBodyLog: cfg.Errors.LogBodyMax,
		Redactor:   middleware.NewRedactor(middleware.RedactOptions{MaskHeaders: masked}),
	}
	if cfg.EventsEnabled && db != nil {
		events = services.NewErrorEventService(db, errorEventRepoShim{})
		opts.Sink = func(ctx context.Context, rec domain.ErrorRecord) {
			if err := events.Record(ctx, rec); err != nil {
				log.Warn().Err(err).Str("request_id", rec.RequestID).Msg("error event not recorded")
			}
		}
	}
	r.Use(middleware.Exceptions(views, opts))

	// 7) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 8) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 9) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "HEAD", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "If-None-Match", "X-Request-ID"},
			ExposeHeaders:    []string{"X-Request-ID", "ETag", "Retry-After"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "HEAD", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "If-None-Match", "X-Request-ID"},
			ExposeHeaders:    []string{"X-Request-ID", "ETag", "Retry-After"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:            cfg.Security.EnableHSTS,
		HSTSMaxAge:            cfg.Security.HSTSMaxAge,
		NoStore:               false,
		EnablePolicy:          true,
		ContentSecurityPolicy: middleware.DefaultErrorPageCSP,
	}))

	// Fallbacks share the registry with the exception boundary.
	r.NoRoute(views.Handler(http.StatusNotFound))
	r.NoMethod(views.Handler(http.StatusMethodNotAllowed))

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// API docs
	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = cfg.APIBasePath
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Public API
	api := groupWithPrefix(r, cfg.APIBasePath) // e.g. "/api/v1"
	if events != nil {
		h := handlers.NewErrorEventHandlers(events, views)
		api.GET("/error-events", h.ListErrorEvents)
		api.GET("/error-events/:id", h.GetErrorEvent)
	}

	if cfg.DemoRoutes {
		handlers.NewDemoHandlers(views).Register(r.Group("/demo"))
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}

package httpapi

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-error-views/internal/config"
	"github.com/tbourn/go-error-views/internal/domain"
	"github.com/tbourn/go-error-views/internal/repo"
)

// --- test DB helper (pure-Go sqlite, no CGO) ---
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:routerdb_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func testConfig() config.Config {
	return config.Config{
		APIBasePath: "/api/v1",
		LogRedact:   true,
		RateRPS:     100,
		RateBurst:   10,
		CORS:        config.CORSConfig{AllowedOrigins: nil}, // triggers AllowAllOrigins branch
		Security:    config.SecurityConfig{EnableHSTS: false, HSTSMaxAge: 0},
		OTEL:        config.OTELConfig{ServiceName: "test-svc"},
		Errors: config.ErrorsConfig{
			RenderMode:      "auto",
			HandledStatuses: config.DefaultHandledStatuses,
		},
	}
}

func quietLogs(t *testing.T) {
	t.Helper()
	prev := log.Logger
	log.Logger = zerolog.New(io.Discard)
	t.Cleanup(func() { log.Logger = prev })
}

func newRouter(t *testing.T, db *gorm.DB, cfg config.Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	quietLogs(t)
	views, err := NewErrorViews(cfg)
	if err != nil {
		t.Fatalf("NewErrorViews: %v", err)
	}
	r := gin.New()
	RegisterRoutes(r, db, views, cfg)
	return r
}

func do(r http.Handler, method, target string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func jsonBody(t *testing.T, b []byte) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("json: %v (body=%s)", err, b)
	}
	return m
}

func TestRegisterRoutes_CORSAllowAll_Health_Metrics_Fallbacks(t *testing.T) {
	r := newRouter(t, nil, testConfig())

	// /health works
	w := do(r, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	// CORS (AllowAllOrigins) → header "*"
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("AllowAllOrigins expected '*', got %q", got)
	}

	// /metrics is wired
	w = do(r, http.MethodGet, "/metrics", nil)
	if w.Code != http.StatusOK || len(w.Body.Bytes()) == 0 {
		t.Fatalf("GET /metrics bad: code=%d len=%d", w.Code, w.Body.Len())
	}

	// NoRoute → 404 view
	w = do(r, http.MethodGet, "/nope", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("GET /nope expected 404, got %d", w.Code)
	}
	body := jsonBody(t, w.Body.Bytes())
	if body["error"] != "Page Not Found" || body["request_id"] != w.Header().Get("X-Request-ID") {
		t.Fatalf("unexpected 404 body: %#v", body)
	}
	if w.Header().Get("Content-Security-Policy") == "" {
		t.Fatalf("expected CSP on error responses")
	}

	// NoMethod → 405 (POST /health)
	w = do(r, http.MethodPost, "/health", nil)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST /health expected 405, got %d", w.Code)
	}
	if got := jsonBody(t, w.Body.Bytes())["error"]; got != "Method Not Allowed" {
		t.Fatalf("unexpected 405 label: %v", got)
	}

	// HTML when the client prefers it
	w = do(r, http.MethodGet, "/nope", map[string]string{"Accept": "text/html"})
	if ct := w.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Fatalf("expected HTML error page, got %q", ct)
	}
}

func TestRegisterRoutes_CORSWithOrigins_HeaderEcho(t *testing.T) {
	cfg := testConfig()
	cfg.APIBasePath = "/api/v2"
	cfg.CORS = config.CORSConfig{AllowedOrigins: []string{"http://example.com"}}
	r := newRouter(t, nil, cfg)

	// Any request runs through CORS middleware; header should reflect origin.
	w := do(r, http.MethodGet, "/health", map[string]string{"Origin": "http://example.com"})
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://example.com" {
		t.Fatalf("expected ACAO echo, got %q", got)
	}
}

func TestRegisterRoutes_GzipCompressesErrorPages(t *testing.T) {
	r := newRouter(t, nil, testConfig())

	w := do(r, http.MethodGet, "/nope", map[string]string{"Accept-Encoding": "gzip"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if w.Header().Get("Content-Encoding") != "gzip" {
		t.Fatalf("expected gzip encoding, headers=%v", w.Header())
	}
	zr, err := gzip.NewReader(w.Body)
	if err != nil {
		t.Fatalf("gzip reader: %v", err)
	}
	raw, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("gunzip: %v", err)
	}
	if jsonBody(t, raw)["error"] != "Page Not Found" {
		t.Fatalf("unexpected body: %s", raw)
	}
}

func TestRegisterRoutes_RateLimitRendersTooManyRequests(t *testing.T) {
	cfg := testConfig()
	cfg.RateRPS = 0.001
	cfg.RateBurst = 1
	r := newRouter(t, nil, cfg)

	if w := do(r, http.MethodGet, "/health", nil); w.Code != http.StatusOK {
		t.Fatalf("first request = %d", w.Code)
	}
	w := do(r, http.MethodGet, "/health", nil)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}
	if got := jsonBody(t, w.Body.Bytes())["error"]; got != "Too Many Requests" {
		t.Fatalf("unexpected 429 label: %v", got)
	}
}

func TestRegisterRoutes_JournalRecordsAndLists(t *testing.T) {
	cfg := testConfig()
	cfg.EventsEnabled = true
	db := newTestDB(t)
	r := newRouter(t, db, cfg)

	if w := do(r, http.MethodGet, "/missing-page", nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}

	w := do(r, http.MethodGet, "/api/v1/error-events?status=404", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list = %d body=%s", w.Code, w.Body.String())
	}
	events, _ := jsonBody(t, w.Body.Bytes())["error_events"].([]any)
	if len(events) != 1 {
		t.Fatalf("expected 1 recorded event, got %d", len(events))
	}
	ev := events[0].(map[string]any)
	if ev["path"] != "/missing-page" || ev["source"] != domain.SourceView || ev["message"] != "Page Not Found" {
		t.Fatalf("unexpected event: %#v", ev)
	}
	if w.Header().Get("ETag") == "" {
		t.Fatalf("expected ETag on list")
	}
}

func TestRegisterRoutes_OptionalRoutes(t *testing.T) {
	// Disabled by default: journal, demo and swagger are plain 404s.
	r := newRouter(t, newTestDB(t), testConfig())
	for _, p := range []string{"/api/v1/error-events", "/demo/panic", "/swagger/doc.json"} {
		if w := do(r, http.MethodGet, p, nil); w.Code != http.StatusNotFound {
			t.Fatalf("GET %s expected 404 when disabled, got %d", p, w.Code)
		}
	}

	cfg := testConfig()
	cfg.DemoRoutes = true
	cfg.SwaggerEnabled = true
	r = newRouter(t, nil, cfg)

	w := do(r, http.MethodGet, "/demo/panic", nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("demo panic expected 500, got %d", w.Code)
	}
	if got := jsonBody(t, w.Body.Bytes())["error"]; got != "Server Error" {
		t.Fatalf("unexpected 500 label: %v", got)
	}
	if w := do(r, http.MethodGet, "/demo/status/410", nil); w.Code != http.StatusGone {
		t.Fatalf("demo status expected 410, got %d", w.Code)
	}
	if w := do(r, http.MethodGet, "/swagger/doc.json", nil); w.Code != http.StatusOK {
		t.Fatalf("swagger doc expected 200, got %d", w.Code)
	}
}

func TestRegisterRoutes_PanicsOnUnregisteredHandledStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	views, err := NewErrorViews(testConfig())
	if err != nil {
		t.Fatalf("NewErrorViews: %v", err)
	}
	cfg := testConfig()
	cfg.Errors.HandledStatuses = []int{404, 418}

	defer func() {
		if recover() == nil {
			t.Fatalf("RegisterRoutes should panic on a handled status without a view")
		}
	}()
	RegisterRoutes(gin.New(), nil, views, cfg)
}

func TestNewErrorViews_StartupChecks(t *testing.T) {
	dir := t.TempDir()

	t.Run("override file applies", func(t *testing.T) {
		p := filepath.Join(dir, "errors.yaml")
		yaml := "\"404\":\n  default_message: Nothing Here\n"
		if err := os.WriteFile(p, []byte(yaml), 0o600); err != nil {
			t.Fatal(err)
		}
		cfg := testConfig()
		cfg.Errors.ConfigPath = p
		r := newRouter(t, nil, cfg)
		w := do(r, http.MethodGet, "/nope", nil)
		if got := jsonBody(t, w.Body.Bytes())["error"]; got != "Nothing Here" {
			t.Fatalf("override not applied: %v", got)
		}
	})
	t.Run("missing override file", func(t *testing.T) {
		cfg := testConfig()
		cfg.Errors.ConfigPath = filepath.Join(dir, "absent.yaml")
		if _, err := NewErrorViews(cfg); err == nil {
			t.Fatalf("expected error for missing config file")
		}
	})
	t.Run("unknown render mode", func(t *testing.T) {
		cfg := testConfig()
		cfg.Errors.RenderMode = "xml"
		if _, err := NewErrorViews(cfg); err == nil {
			t.Fatalf("expected render mode error")
		}
	})
	t.Run("template dir without the default template", func(t *testing.T) {
		cfg := testConfig()
		cfg.Errors.TemplateDir = dir
		if _, err := NewErrorViews(cfg); err == nil {
			t.Fatalf("expected missing template error")
		}
		cfg.Errors.RenderMode = "json"
		if _, err := NewErrorViews(cfg); err != nil {
			t.Fatalf("json mode needs no templates: %v", err)
		}
	})
	t.Run("handled status without view", func(t *testing.T) {
		cfg := testConfig()
		cfg.Errors.HandledStatuses = []int{422}
		if _, err := NewErrorViews(cfg); err == nil {
			t.Fatalf("expected missing view error")
		}
	})
}

func Test_handledStatuses_DefaultsMatchRegistry(t *testing.T) {
	cfg := testConfig()
	cfg.Errors.HandledStatuses = nil
	got := handledStatuses(cfg)
	if fmt.Sprint(got) != fmt.Sprint(config.DefaultHandledStatuses) {
		t.Fatalf("fallback = %v, want %v", got, config.DefaultHandledStatuses)
	}
	views, err := NewErrorViews(cfg)
	if err != nil {
		t.Fatalf("NewErrorViews: %v", err)
	}
	if fmt.Sprint(views.Statuses()) != fmt.Sprint(got) {
		t.Fatalf("registry = %v, want %v", views.Statuses(), got)
	}
	if err := views.Validate(got); err != nil {
		t.Fatalf("default statuses lack a view: %v", err)
	}
}

func Test_limitBody_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	// tiny cap to trigger MaxBytesReader
	r.Use(limitBody(10))
	r.POST("/echo", func(c *gin.Context) {
		_, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.String(http.StatusRequestEntityTooLarge, "too big")
			return
		}
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/echo", bytes.NewBufferString("0123456789AB")) // 12 bytes
	r.ServeHTTP(w, req)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 from limitBody, got %d", w.Code)
	}
}

func Test_groupWithPrefix(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	// "/" and "" should mount at root
	root1 := groupWithPrefix(r, "/")
	root1.GET("/one", func(c *gin.Context) { c.String(http.StatusOK, "one") })
	root2 := groupWithPrefix(r, "")
	root2.GET("/two", func(c *gin.Context) { c.String(http.StatusOK, "two") })

	// non-root prefix
	api := groupWithPrefix(r, "/api")
	api.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	for path, want := range map[string]string{"/one": "one", "/two": "two", "/api/ping": "pong"} {
		rec := do(r, http.MethodGet, path, nil)
		if rec.Code != http.StatusOK || rec.Body.String() != want {
			t.Fatalf("GET %s got %d %q", path, rec.Code, rec.Body.String())
		}
	}
}

// Smoke test that a request traverses ratelimit + otel + security headers pipeline.
func TestPipeline_Smoke(t *testing.T) {
	cfg := testConfig()
	cfg.Security = config.SecurityConfig{EnableHSTS: true, HSTSMaxAge: time.Hour} // enabled (but only set on https)
	cfg.LogRedact = false
	r := newRouter(t, nil, cfg)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	// simulate https so HSTS could be eligible if middleware checks scheme
	req.URL.Scheme = "https"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("pipeline GET /health = %d", w.Code)
	}
	// RequestID header should be present (from RequestID middleware)
	if rid := w.Header().Get("X-Request-ID"); rid == "" {
		t.Fatalf("expected X-Request-ID header to be set")
	}
}

func Test_errorEventRepoShim_Proxies(t *testing.T) {
	db := newTestDB(t)
	shim := errorEventRepoShim{}
	ctx := context.Background()

	rec := &domain.ErrorRecord{Status: 404, Message: "Page Not Found", Method: "GET", Path: "/a", Source: domain.SourceStatus}
	if err := shim.CreateErrorRecord(ctx, db, rec); err != nil {
		t.Fatalf("CreateErrorRecord: %v", err)
	}
	if rec.ID == "" {
		t.Fatalf("CreateErrorRecord did not assign an id")
	}
	if err := shim.CreateErrorRecord(ctx, db, &domain.ErrorRecord{Status: 500, Message: "Server Error", Method: "GET", Path: "/b", Source: domain.SourceException}); err != nil {
		t.Fatalf("CreateErrorRecord: %v", err)
	}

	got, err := shim.GetErrorRecord(ctx, db, rec.ID)
	if err != nil || got.Path != "/a" {
		t.Fatalf("GetErrorRecord = %+v, %v", got, err)
	}

	n, err := shim.CountErrorRecords(ctx, db, repo.ErrorRecordFilter{})
	if err != nil || n != 2 {
		t.Fatalf("CountErrorRecords = %d, %v", n, err)
	}

	page, err := shim.ListErrorRecordsPage(ctx, db, repo.ErrorRecordFilter{Status: 500}, 0, 10)
	if err != nil || len(page) != 1 || page[0].Path != "/b" {
		t.Fatalf("ListErrorRecordsPage = %+v, %v", page, err)
	}

	count, latest, err := shim.ErrorRecordsStats(ctx, db, repo.ErrorRecordFilter{})
	if err != nil || count != 2 || latest == nil {
		t.Fatalf("ErrorRecordsStats = %d, %v, %v", count, latest, err)
	}
}

// Package config loads application settings from environment variables:
// server timeouts, logging, error views, the error event journal, rate
// limiting and observability. Values are defaulted, normalized and then
// validated with struct tags; the `env` tag names the variable in errors.
package config

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS"`
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool          `env:"ENABLE_HSTS"`
	HSTSMaxAge time.Duration `env:"HSTS_MAX_AGE" validate:"gte=0"`
}

// OTELConfig defines OpenTelemetry tracing settings.
type OTELConfig struct {
	Enabled     bool    `env:"OTEL_ENABLED"`
	Endpoint    string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT"` // e.g. "otel:4317"
	Insecure    bool    `env:"OTEL_EXPORTER_OTLP_INSECURE"` // plaintext gRPC
	ServiceName string  `env:"OTEL_SERVICE_NAME"`
	SampleRatio float64 `env:"OTEL_TRACES_SAMPLER_ARG" validate:"gte=0,lte=1"`
}

// ErrorsConfig defines how error views are configured and rendered.
type ErrorsConfig struct {
	ConfigPath      string `env:"ERROR_CONFIG_PATH"` // optional YAML override table
	RenderMode      string `env:"ERROR_RENDER_MODE" validate:"oneof=auto html json"`
	HandledStatuses []int  `env:"HANDLED_STATUSES"`   // statuses replaced by error views
	LogBodyMax      int    `env:"ERROR_LOG_BODY_MAX"` // request body bytes kept for logs (<0 disables)
	TemplateDir     string `env:"TEMPLATE_DIR"`       // overrides the embedded templates
}

// DefaultHandledStatuses is the HANDLED_STATUSES default and the set of
// statuses that get an error view out of the box.
var DefaultHandledStatuses = []int{
	http.StatusBadRequest,
	http.StatusUnauthorized,
	http.StatusForbidden,
	http.StatusNotFound,
	http.StatusMethodNotAllowed,
	http.StatusRequestTimeout,
	http.StatusGone,
	http.StatusTooManyRequests,
	http.StatusInternalServerError,
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        `env:"PORT" validate:"required"`
	ReadTimeout       time.Duration `env:"READ_TIMEOUT" validate:"gt=0"`
	ReadHeaderTimeout time.Duration `env:"READ_HEADER_TIMEOUT" validate:"gt=0"`
	WriteTimeout      time.Duration `env:"WRITE_TIMEOUT" validate:"gt=0"`
	IdleTimeout       time.Duration `env:"IDLE_TIMEOUT" validate:"gt=0"`
	MaxHeaderBytes    int           `env:"MAX_HEADER_BYTES" validate:"gt=0"`
	GinMode           string        `env:"GIN_MODE"`

	// Logging / Docs
	LogLevel       string `env:"LOG_LEVEL" validate:"oneof=debug info warn error fatal panic"`
	LogPretty      bool   `env:"LOG_PRETTY"`
	LogRedact      bool   `env:"LOG_REDACT"` // RedactingLogger instead of Logger
	SwaggerEnabled bool   `env:"SWAGGER_ENABLED"`
	APIBasePath    string `env:"API_BASE_PATH"`

	Errors ErrorsConfig

	// Error event journal / demo
	EventsEnabled bool   `env:"EVENTS_ENABLED"`
	DBPath        string `env:"DB_PATH" validate:"required_if=EventsEnabled true"`
	DemoRoutes    bool   `env:"DEMO_ROUTES"`

	// Rate limiting
	RateRPS   float64 `env:"RATE_RPS" validate:"gte=0"`
	RateBurst int     `env:"RATE_BURST" validate:"gte=1"`

	CORS     CORSConfig
	Security SecurityConfig
	OTEL     OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables, applies defaults,
// normalizes values and validates the result. All invalid variables are
// reported together.
func Load() (Config, error) {
	handled, err := parseStatuses(getenv("HANDLED_STATUSES", ""))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port:              strings.TrimSpace(getenv("PORT", "8080")),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		LogRedact:      getbool("LOG_REDACT", true),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		Errors: ErrorsConfig{
			ConfigPath:      strings.TrimSpace(getenv("ERROR_CONFIG_PATH", "")),
			RenderMode:      strings.ToLower(strings.TrimSpace(getenv("ERROR_RENDER_MODE", "auto"))),
			HandledStatuses: handled,
			LogBodyMax:      getint("ERROR_LOG_BODY_MAX", 64<<10),
			TemplateDir:     strings.TrimSpace(getenv("TEMPLATE_DIR", "")),
		},

		EventsEnabled: getbool("EVENTS_ENABLED", false),
		DBPath:        strings.TrimSpace(getenv("DB_PATH", "errors.db")),
		DemoRoutes:    getbool("DEMO_ROUTES", false),

		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-error-views"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	return cfg, validate(cfg)
}

var validate = newValidator()

// newValidator reports fields by their `env` tag so messages name the
// variable to fix.
func newValidator() func(Config) error {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("env"); name != "" {
			return name
		}
		return f.Name
	})
	return func(cfg Config) error {
		err := v.Struct(cfg)
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		out := make([]error, 0, len(verrs))
		for _, fe := range verrs {
			out = append(out, fieldError(fe))
		}
		return errors.Join(out...)
	}
}

func fieldError(fe validator.FieldError) error {
	name := fe.Field()
	switch fe.Tag() {
	case "required", "required_if":
		return fmt.Errorf("%s must not be empty", name)
	case "oneof":
		return fmt.Errorf("%s must be one of: %s", name, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gt":
		if fe.Kind() == reflect.Int64 && fe.Type() == reflect.TypeOf(time.Duration(0)) {
			return fmt.Errorf("%s must be a positive duration", name)
		}
		return fmt.Errorf("%s must be > %s", name, fe.Param())
	case "gte":
		return fmt.Errorf("%s must be >= %s", name, fe.Param())
	case "lte":
		return fmt.Errorf("%s must be <= %s", name, fe.Param())
	}
	return fmt.Errorf("%s is invalid (%s)", name, fe.Tag())
}

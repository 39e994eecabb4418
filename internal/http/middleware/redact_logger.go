// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements the PII scrubbing shared by the access log
// (RedactingLogger) and the error event log (Respond). Error events include
// request headers and body, so both go through the same Redactor before
// reaching the log.
//
// Design goals:
//   - Redacts common identifiers (emails, phone numbers, UUIDs)
//   - Masks sensitive headers (Authorization, Cookie, Set-Cookie, plus custom)
//   - Produces structured JSON logs via zerolog
//
// Usage:
//
//	r := gin.New()
//	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
//	    MaskHeaders: []string{"X-Api-Key"},
//	}))
package middleware

import (
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// RedactOptions configures additional scrub behavior.
//
// MaskHeaders specifies extra HTTP header names whose values will be fully
// replaced with "[REDACTED]". Matching is case-insensitive and merged with
// built-in sensitive headers ("Authorization", "Cookie", "Set-Cookie").
type RedactOptions struct {
	MaskHeaders []string
}

// Redactor scrubs identifiers from strings and masks sensitive headers.
// It is safe for concurrent use.
type Redactor struct {
	uuidRE  *regexp.Regexp
	emailRE *regexp.Regexp
	phoneRE *regexp.Regexp
	masked  map[string]struct{}
}

// NewRedactor compiles the scrub patterns and the header mask set.
//
// NOTE: UUIDs are redacted *before* phone numbers so the phone pattern does
// not match the digit/hyphen segments of a UUID.
func NewRedactor(opts RedactOptions) *Redactor {
	r := &Redactor{
		uuidRE:  regexp.MustCompile(`(?i)\b[0-9a-f]{8}\-[0-9a-f]{4}\-[1-5][0-9a-f]{3}\-[89ab][0-9a-f]{3}\-[0-9a-f]{12}\b`),
		emailRE: regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`),
		// Digits-only phone pattern, e.g. "+1 212-555-1212", "(212) 555-1212".
		phoneRE: regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`),
		masked: map[string]struct{}{
			"authorization": {},
			"cookie":        {},
			"set-cookie":    {},
		},
	}
	for _, h := range opts.MaskHeaders {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			r.masked[h] = struct{}{}
		}
	}
	return r
}

// String scrubs ids, emails and phone numbers from s.
func (r *Redactor) String(s string) string {
	if s == "" {
		return s
	}
	// Order matters: IDs → email → phone (phone is the loosest).
	s = r.uuidRE.ReplaceAllString(s, "[REDACTED:id]")
	s = r.emailRE.ReplaceAllString(s, "[REDACTED:email]")
	return r.phoneRE.ReplaceAllString(s, "[REDACTED:phone]")
}

// Headers returns a flattened, scrubbed copy of h.
func (r *Redactor) Headers(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vv := range h {
		if _, ok := r.masked[strings.ToLower(k)]; ok {
			out[k] = "[REDACTED]"
			continue
		}
		out[k] = r.String(strings.Join(vv, ", "))
	}
	return out
}

// RedactingLogger is Logger with secrets scrubbed: the query string and the
// request headers pass through the Redactor before they are logged. It
// stores a request-scoped logger (request_id, method, path) for LoggerFrom
// and uses the same levels as Logger.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	red := NewRedactor(opts)

	return func(c *gin.Context) {
		start := time.Now()
		path := routeLabel(c)
		safeQuery := red.String(c.Request.URL.RawQuery)
		safeHeaders := red.Headers(c.Request.Header)

		l := log.With().
			Str("request_id", RequestIDFrom(c)).
			Str("method", c.Request.Method).
			Str("path", path).
			Logger()
		c.Set(loggerKey, &l)

		c.Next()

		l.WithLevel(accessLevel(c)).
			Str("query", safeQuery).
			Int("status", c.Writer.Status()).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Str("error_source", ErrorSourceFrom(c)).
			Interface("headers", safeHeaders).
			Msg("http_request")
	}
}

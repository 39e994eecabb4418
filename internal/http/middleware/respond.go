package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-error-views/internal/domain"
	"github.com/tbourn/go-error-views/internal/observability"
)

const (
	// ctxKeyErrorSource marks a request whose response came from an error view.
	ctxKeyErrorSource = "error.source"
	// ctxKeyErrorOptions carries the ExceptionOptions of the enclosing Exceptions.
	ctxKeyErrorOptions = "error.options"
	// ctxKeyRequestBody holds the captured (capped) request body.
	ctxKeyRequestBody = "error.request_body"
)

// EventSink receives one record per logged error event. Implementations must
// not block for long; they run on the request goroutine.
type EventSink func(ctx context.Context, rec domain.ErrorRecord)

var defaultRedactor = NewRedactor(RedactOptions{})

// ErrorSourceFrom returns the source of the error view that served the
// request ("exception", "status", "view"), or "" for regular responses.
func ErrorSourceFrom(c *gin.Context) string {
	v, _ := c.Get(ctxKeyErrorSource)
	return asString(v)
}

// IsErrorHandled reports whether an error view already produced the response.
func IsErrorHandled(c *gin.Context) bool {
	return ErrorSourceFrom(c) != ""
}

// Respond writes resp to the client and performs the side effects of an
// error event: one ERROR log line when resp.Log is set, a WARN line when the
// HTML render fell back to JSON, the error response counter, a span
// annotation and the event sink. It aborts the remaining handlers.
//
// err is the underlying cause, if any; source is one of the domain.Source*
// constants. Respond marks the request handled so Exceptions will not dispatch
// a second view for the same status.
func Respond(c *gin.Context, resp domain.ErrorResponse, err error, source string) {
	c.Set(ctxKeyErrorSource, source)
	opts := optionsFrom(c)

	if resp.Log {
		logErrorEvent(c, resp, err, opts.redactor())
	}
	if resp.RenderErr != nil {
		LoggerFrom(c).Warn().
			Err(resp.RenderErr).
			Int("status", resp.StatusCode).
			Msg("error view rendered as JSON")
	}
	observeErrorResponse(resp.StatusCode, source)
	observability.MarkErrorView(c.Request.Context(), resp.StatusCode, source, err)
	if opts.Sink != nil && (resp.Log || source == domain.SourceException) {
		opts.Sink(c.Request.Context(), domain.ErrorRecord{
			RequestID: RequestIDFrom(c),
			Status:    resp.StatusCode,
			Message:   resp.Message,
			Method:    c.Request.Method,
			Path:      c.Request.URL.Path,
			Source:    source,
		})
	}

	if c.Writer.Written() {
		// Headers are gone (e.g. a streaming handler flushed); only stop the chain.
		c.Abort()
		return
	}
	h := c.Writer.Header()
	h.Del("Content-Length")
	h.Set("Content-Type", resp.ContentType)
	c.Data(resp.StatusCode, resp.ContentType, resp.Body)
	c.Abort()
}

// logErrorEvent writes the single ERROR entry for a rendered error.
func logErrorEvent(c *gin.Context, resp domain.ErrorResponse, err error, red *Redactor) {
	ev := withRequest(log.Error(), c, red).
		Int("status", resp.StatusCode).
		Interface("details", resp.Details)
	if err != nil {
		ev = ev.Err(err)
	}
	ev.Msg(resp.Message)
}

// withRequest adds the request context of an error event: id, path, method,
// scrubbed headers and the captured body decoded as UTF-8 with replacement.
func withRequest(ev *zerolog.Event, c *gin.Context, red *Redactor) *zerolog.Event {
	ev = ev.
		Str("request_id", RequestIDFrom(c)).
		Str("path", c.Request.URL.Path).
		Str("method", c.Request.Method).
		Interface("headers", red.Headers(c.Request.Header))
	if body := requestBody(c); len(body) > 0 {
		ev = ev.Str("body", red.String(strings.ToValidUTF8(string(body), "\uFFFD")))
	}
	return ev
}

// requestBody returns the body captured by Exceptions, if any.
func requestBody(c *gin.Context) []byte {
	v, ok := c.Get(ctxKeyRequestBody)
	if !ok {
		return nil
	}
	b, _ := v.([]byte)
	return b
}

func optionsFrom(c *gin.Context) *ExceptionOptions {
	if v, ok := c.Get(ctxKeyErrorOptions); ok {
		if o, ok := v.(*ExceptionOptions); ok {
			return o
		}
	}
	return &ExceptionOptions{}
}

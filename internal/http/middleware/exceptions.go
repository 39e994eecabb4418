package middleware

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-error-views/internal/domain"
	"github.com/tbourn/go-error-views/internal/errorconf"
)

// DefaultMaxBodyLog caps how much of a request body is kept for error logs.
const DefaultMaxBodyLog = 64 << 10

// ErrorViews renders the error response for a status.
type ErrorViews interface {
	Render(c *gin.Context, status int, err error) domain.ErrorResponse
}

// ExceptionOptions configures Exceptions.
type ExceptionOptions struct {
	// Handled lists the statuses whose responses are replaced by error views.
	Handled []int
	// MaxBodyLog caps the captured request body. Zero means DefaultMaxBodyLog;
	// a negative value disables body capture.
	MaxBodyLog int
	// Redactor scrubs headers and body in error logs (default: built-in masks).
	Redactor *Redactor
	// Sink, when set, receives every logged error event.
	Sink EventSink
}

func (o *ExceptionOptions) redactor() *Redactor {
	if o == nil || o.Redactor == nil {
		return defaultRedactor
	}
	return o.Redactor
}

// Exceptions is the outermost error boundary of the handler chain.
//
//   - A panic in a downstream handler is logged once at ERROR (panic value,
//     stack and request context) and answered with the 500 view.
//   - A response whose status is in opts.Handled, and that did not already
//     come from an error view, is discarded and replaced with the view for
//     that status. The last gin error, if any, is passed to the view.
//   - Every other response passes through unchanged and is not logged here.
//
// Downstream output is buffered until the chain returns. Handlers that call
// Flush or Hijack switch the buffer to pass-through from that point on.
func Exceptions(views ErrorViews, opts ExceptionOptions) gin.HandlerFunc {
	handled := make(map[int]struct{}, len(opts.Handled))
	for _, s := range opts.Handled {
		handled[s] = struct{}{}
	}
	if opts.MaxBodyLog == 0 {
		opts.MaxBodyLog = DefaultMaxBodyLog
	}
	o := &opts

	return func(c *gin.Context) {
		c.Set(ctxKeyErrorOptions, o)
		captureBody(c, o.MaxBodyLog)

		orig := c.Writer
		bw := &bufferedWriter{ResponseWriter: orig, status: orig.Status()}
		c.Writer = bw

		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			c.Writer = orig
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			bw.discard()

			err := panicError(rec)
			resp := renderSafely(views, c, http.StatusInternalServerError, err)
			withRequest(log.Error(), c, o.redactor()).
				Int("status", resp.StatusCode).
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Msg("panic recovered")

			resp.Log = false
			Respond(c, resp, err, domain.SourceException)
		}()

		c.Next()

		c.Writer = orig
		status := bw.Status()
		if _, ok := handled[status]; ok && !IsErrorHandled(c) && !bw.committed {
			bw.discard()
			var cause error
			if last := c.Errors.Last(); last != nil {
				cause = last.Err
			}
			Respond(c, renderSafely(views, c, status, cause), cause, domain.SourceStatus)
			return
		}
		bw.commit()
	}
}

// renderSafely calls views.Render, falling back to a literal JSON body when
// the view is missing or panics.
func renderSafely(views ErrorViews, c *gin.Context, status int, cause error) (resp domain.ErrorResponse) {
	defer func() {
		if rec := recover(); rec != nil {
			resp = fallbackResponse(status)
			resp.RenderErr = fmt.Errorf("error view %d panicked: %v", status, rec)
		}
	}()
	if views == nil {
		return fallbackResponse(status)
	}
	return views.Render(c, status, cause)
}

// fallbackResponse is the last-resort JSON error used when no view can run.
func fallbackResponse(status int) domain.ErrorResponse {
	body := domain.ErrorBody{
		Error:   http.StatusText(status),
		Details: errorconf.DetailsPlaceholder,
	}
	if status == http.StatusInternalServerError {
		body.Error = "Server Error"
		body.Message = "An unexpected error occurred. Please try again later."
	}
	out, _ := json.Marshal(body)
	return domain.ErrorResponse{
		StatusCode:  status,
		ContentType: "application/json",
		Body:        out,
		Message:     body.Error,
		Details:     body.Details,
		Log:         true,
	}
}

func panicError(rec any) error {
	if err, ok := rec.(error); ok {
		return err
	}
	return fmt.Errorf("panic: %v", rec)
}

// captureBody keeps the first max bytes of the request body for error logs
// and restores the full stream for downstream handlers.
func captureBody(c *gin.Context, max int) {
	if max <= 0 || c.Request.Body == nil || c.Request.Body == http.NoBody {
		return
	}
	head, _ := io.ReadAll(io.LimitReader(c.Request.Body, int64(max)))
	if len(head) == 0 {
		return
	}
	c.Request.Body = replayBody{
		Reader: io.MultiReader(bytes.NewReader(head), c.Request.Body),
		Closer: c.Request.Body,
	}
	c.Set(ctxKeyRequestBody, head)
}

type replayBody struct {
	io.Reader
	io.Closer
}

// bufferedWriter holds the downstream response until Exceptions decides
// whether to keep it or replace it with an error view.
type bufferedWriter struct {
	gin.ResponseWriter
	buf       bytes.Buffer
	status    int
	written   bool
	committed bool
}

func (w *bufferedWriter) WriteHeader(code int) {
	if w.committed {
		w.ResponseWriter.WriteHeader(code)
		return
	}
	if code > 0 && !w.written {
		w.status = code
	}
}

func (w *bufferedWriter) WriteHeaderNow() {
	if w.committed {
		w.ResponseWriter.WriteHeaderNow()
		return
	}
	w.written = true
}

func (w *bufferedWriter) Write(b []byte) (int, error) {
	if w.committed {
		return w.ResponseWriter.Write(b)
	}
	w.written = true
	return w.buf.Write(b)
}

func (w *bufferedWriter) WriteString(s string) (int, error) {
	if w.committed {
		return w.ResponseWriter.WriteString(s)
	}
	w.written = true
	return w.buf.WriteString(s)
}

func (w *bufferedWriter) Status() int {
	if w.committed {
		return w.ResponseWriter.Status()
	}
	return w.status
}

func (w *bufferedWriter) Size() int {
	if w.committed {
		return w.ResponseWriter.Size()
	}
	if !w.written {
		return -1
	}
	return w.buf.Len()
}

func (w *bufferedWriter) Written() bool {
	if w.committed {
		return w.ResponseWriter.Written()
	}
	return w.written
}

func (w *bufferedWriter) Flush() {
	w.commit()
	w.ResponseWriter.Flush()
}

func (w *bufferedWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if w.written {
		w.commit()
	}
	w.committed = true
	return w.ResponseWriter.Hijack()
}

// commit forwards the buffered status and body and switches to pass-through.
func (w *bufferedWriter) commit() {
	if w.committed {
		return
	}
	w.committed = true
	w.ResponseWriter.WriteHeader(w.status)
	if !w.written {
		return
	}
	if w.buf.Len() == 0 {
		w.ResponseWriter.WriteHeaderNow()
		return
	}
	_, _ = w.ResponseWriter.Write(w.buf.Bytes())
	w.buf.Reset()
}

// discard drops the buffered response. The underlying writer is untouched.
func (w *bufferedWriter) discard() {
	w.buf.Reset()
	w.written = false
}

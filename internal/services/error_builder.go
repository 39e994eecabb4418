// Package services – ErrorBuilder
//
// This file implements ErrorBuilder, the single parameterized response
// builder behind every error view. It resolves an ErrorSpec for a status from
// the error configuration and turns it into either a rendered HTML page or a
// JSON error envelope.
//
// The builder is pure: it performs no logging and no I/O beyond template
// execution. The HTTP boundary (middleware.Respond) decides what to log from
// the metadata carried on the returned domain.ErrorResponse.
package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tbourn/go-error-views/internal/domain"
	"github.com/tbourn/go-error-views/internal/errorconf"
)

// Content types of built responses.
const (
	ContentTypeJSON = "application/json"
	ContentTypeHTML = "text/html; charset=utf-8"
)

// Format selects the representation of an error response.
type Format int

const (
	FormatJSON Format = iota
	FormatHTML
)

// Renderer executes a named HTML template.
type Renderer interface {
	Render(name string, data any) ([]byte, error)
}

// Problem is the input of a JSON error response.
type Problem struct {
	Status    int
	Error     string // short label, e.g. "Page Not Found"
	Message   string // optional human-readable sentence
	Details   any    // optional; replaced by a placeholder when empty
	Code      string // optional machine-readable code
	RequestID string
}

// ErrorBuilder builds error responses from the resolved error configuration.
// It is safe for concurrent use.
type ErrorBuilder struct {
	Resolver *errorconf.Resolver
	Renderer Renderer

	// TitleLocale is used to case http.StatusText for statuses without an entry.
	TitleLocale language.Tag
}

// NewErrorBuilder constructs an ErrorBuilder with English titles.
func NewErrorBuilder(r *errorconf.Resolver, rn Renderer) *ErrorBuilder {
	return &ErrorBuilder{Resolver: r, Renderer: rn, TitleLocale: language.English}
}

// errorType returns the configuration key for status, or the base type when
// neither table knows the status.
func (b *ErrorBuilder) errorType(status int) (string, bool) {
	t := errorconf.TypeOf(status)
	if b.Resolver.Has(t) {
		return t, true
	}
	return errorconf.BaseType, false
}

// statusTitle is the standard status text, e.g. 422 → "Unprocessable Entity".
// http.StatusText is already title-cased for the registered codes; casing is
// only applied when it is not, so "HTTP" and "I'm a teapot" keep their form.
func (b *ErrorBuilder) statusTitle(status int) string {
	text := http.StatusText(status)
	if text == "" || !isLowerCased(text) {
		return text
	}
	return cases.Title(b.TitleLocale, cases.NoLower).String(text)
}

// isLowerCased reports whether s has no upper-case letter.
func isLowerCased(s string) bool {
	return strings.IndexFunc(s, unicode.IsUpper) < 0
}

// resolved is everything a view needs from the configuration for one
// error type.
type resolved struct {
	spec     domain.ErrorSpec
	label    string
	template string
	log      bool
}

// resolve looks up typ with the response status set to status. Unknown
// statuses (known == false) keep the base context but get a title and
// header derived from the status itself.
func (b *ErrorBuilder) resolve(typ string, status int, known bool) resolved {
	details := b.Resolver.DefaultDetails(typ)
	r := resolved{
		spec: domain.ErrorSpec{
			StatusCode: status,
			Title:      takeString(details, "title"),
			Header:     takeString(details, "header"),
			Message:    takeString(details, "message"),
			Redirect:   takeString(details, "redirect"),
		},
		label:    b.Resolver.DefaultMessage(typ),
		template: b.Resolver.TemplateName(typ),
		log:      b.Resolver.LogErrors(typ),
	}
	if !known {
		if t := b.statusTitle(status); t != "" {
			r.spec.Title = t
			r.label = t
		}
		r.spec.Header = fmt.Sprintf("%d Error", status)
	}
	if len(details) > 0 {
		r.spec.Extra = details
	}
	return r
}

func (b *ErrorBuilder) forStatus(status int) resolved {
	typ, known := b.errorType(status)
	return b.resolve(typ, status, known)
}

// Spec resolves the ErrorSpec for status. Statuses without a configured
// entry use the base entry's context with a title derived from the status.
func (b *ErrorBuilder) Spec(status int) domain.ErrorSpec {
	return b.forStatus(status).spec
}

// Label returns the short error label for status.
func (b *ErrorBuilder) Label(status int) string {
	return b.forStatus(status).label
}

// TemplateName returns the HTML template configured for status.
func (b *ErrorBuilder) TemplateName(status int) string {
	typ, _ := b.errorType(status)
	return b.Resolver.TemplateName(typ)
}

// LogEnabled reports whether error events for status should be logged.
func (b *ErrorBuilder) LogEnabled(status int) bool {
	typ, _ := b.errorType(status)
	return b.Resolver.LogErrors(typ)
}

// JSON builds a JSON error response. It never fails: details that cannot be
// serialized are replaced with the placeholder.
func (b *ErrorBuilder) JSON(p Problem) domain.ErrorResponse {
	return jsonResponse(p, b.LogEnabled(p.Status))
}

func jsonResponse(p Problem, log bool) domain.ErrorResponse {
	details := detailsOrPlaceholder(p.Details)
	body := domain.ErrorBody{
		RequestID: p.RequestID,
		Error:     p.Error,
		Message:   p.Message,
		Details:   details,
		Code:      p.Code,
	}
	out, err := json.Marshal(body)
	if err != nil {
		body.Details = errorconf.DetailsPlaceholder
		details = body.Details
		out, _ = json.Marshal(body)
	}
	return domain.ErrorResponse{
		StatusCode:  p.Status,
		ContentType: ContentTypeJSON,
		Body:        out,
		Message:     p.Error,
		Details:     details,
		Log:         log,
	}
}

// HTML renders spec with templateName. A render failure yields the JSON
// form of the same error with RenderErr set.
func (b *ErrorBuilder) HTML(spec domain.ErrorSpec, templateName string) domain.ErrorResponse {
	return b.html(resolved{
		spec:     spec,
		label:    b.Label(spec.StatusCode),
		template: templateName,
		log:      b.LogEnabled(spec.StatusCode),
	}, "")
}

func (b *ErrorBuilder) html(r resolved, requestID string) domain.ErrorResponse {
	var (
		out []byte
		err error
	)
	if b.Renderer == nil {
		err = fmt.Errorf("no renderer configured")
	} else {
		out, err = b.Renderer.Render(r.template, r.spec)
	}
	if err != nil {
		resp := b.json(r, requestID)
		resp.RenderErr = fmt.Errorf("render %s: %w", r.template, err)
		return resp
	}
	return domain.ErrorResponse{
		StatusCode:  r.spec.StatusCode,
		ContentType: ContentTypeHTML,
		Body:        out,
		Message:     r.label,
		Details:     detailsOrPlaceholder(r.spec.Extra),
		Log:         r.log,
	}
}

func (b *ErrorBuilder) json(r resolved, requestID string) domain.ErrorResponse {
	return jsonResponse(Problem{
		Status:    r.spec.StatusCode,
		Error:     r.label,
		Message:   r.spec.Message,
		Details:   r.spec.Extra,
		RequestID: requestID,
	}, r.log)
}

func (b *ErrorBuilder) build(r resolved, f Format, requestID string) domain.ErrorResponse {
	if f == FormatHTML {
		return b.html(r, requestID)
	}
	return b.json(r, requestID)
}

// View builds the configured error view for status in format f.
func (b *ErrorBuilder) View(status int, f Format, requestID string) domain.ErrorResponse {
	return b.build(b.forStatus(status), f, requestID)
}

// BaseView builds the view of the base entry itself: its label, context,
// template and log flag, served with the base entry's status code.
func (b *ErrorBuilder) BaseView(f Format, requestID string) domain.ErrorResponse {
	status := b.Resolver.StatusCode(errorconf.BaseType)
	return b.build(b.resolve(errorconf.BaseType, status, true), f, requestID)
}

// takeString removes key from m and returns it when it is a string.
func takeString(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok {
		return ""
	}
	delete(m, key)
	s, _ := v.(string)
	return s
}

// detailsOrPlaceholder substitutes the placeholder for nil, empty strings
// and empty maps or slices.
func detailsOrPlaceholder(d any) any {
	if d == nil {
		return errorconf.DetailsPlaceholder
	}
	if s, ok := d.(string); ok {
		if s == "" {
			return errorconf.DetailsPlaceholder
		}
		return s
	}
	rv := reflect.ValueOf(d)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array:
		if rv.Len() == 0 {
			return errorconf.DetailsPlaceholder
		}
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return errorconf.DetailsPlaceholder
		}
	}
	return d
}

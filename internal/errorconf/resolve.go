package errorconf

import (
	"maps"
	"strconv"
)

// Resolver looks up error settings in three tiers: the override table, then
// the built-in table under the same error type, then the caller's fallback.
// A miss is never an error.
type Resolver struct {
	overrides Table
	builtin   Table
}

// NewResolver returns a Resolver over overrides and the Builtin table.
// A nil overrides table behaves like an empty one.
func NewResolver(overrides Table) *Resolver {
	return &Resolver{overrides: overrides, builtin: Builtin}
}

// Resolve returns the value of key for errorType, or fallback when neither
// table configures it.
func (r *Resolver) Resolve(errorType, key string, fallback any) any {
	if r != nil {
		if e, ok := r.overrides[errorType]; ok {
			if v, ok := e.value(key); ok {
				return v
			}
		}
		if e, ok := r.builtin[errorType]; ok {
			if v, ok := e.value(key); ok {
				return v
			}
		}
	}
	return fallback
}

// Lookup is the typed form of Resolve. A configured value of another type
// counts as absent.
func Lookup[T any](r *Resolver, errorType, key string, fallback T) T {
	if v, ok := r.Resolve(errorType, key, fallback).(T); ok {
		return v
	}
	return fallback
}

// TypeOf returns the error type key for a status code.
func TypeOf(status int) string { return strconv.Itoa(status) }

// Has reports whether either table has an entry for errorType.
func (r *Resolver) Has(errorType string) bool {
	if r == nil {
		return false
	}
	if _, ok := r.overrides[errorType]; ok {
		return true
	}
	_, ok := r.builtin[errorType]
	return ok
}

// StatusCode resolves the status code of errorType (fallback 500).
func (r *Resolver) StatusCode(errorType string) int {
	return Lookup(r, errorType, KeyStatusCode, 500)
}

// DefaultMessage resolves the short error label of errorType.
func (r *Resolver) DefaultMessage(errorType string) string {
	return Lookup(r, errorType, KeyDefaultMessage, "An error occurred")
}

// DefaultDetails resolves the template context of errorType. The returned
// map is a copy and may be modified by the caller.
func (r *Resolver) DefaultDetails(errorType string) map[string]any {
	return maps.Clone(Lookup(r, errorType, KeyDefaultDetails, DefaultContext()))
}

// TemplateName resolves the HTML template of errorType.
func (r *Resolver) TemplateName(errorType string) string {
	return Lookup(r, errorType, KeyTemplateName, DefaultTemplate)
}

// LogErrors reports whether error events of errorType are logged.
func (r *Resolver) LogErrors(errorType string) bool {
	return Lookup(r, errorType, KeyLogErrors, true)
}

// TemplateNames lists every template named by the override table, so the
// caller can check they exist before serving traffic.
func (r *Resolver) TemplateNames() []string {
	if r == nil {
		return nil
	}
	seen := map[string]struct{}{DefaultTemplate: {}}
	out := []string{DefaultTemplate}
	for _, t := range []Table{r.overrides, r.builtin} {
		for _, e := range t {
			if e.TemplateName == nil {
				continue
			}
			if _, ok := seen[*e.TemplateName]; ok {
				continue
			}
			seen[*e.TemplateName] = struct{}{}
			out = append(out, *e.TemplateName)
		}
	}
	return out
}

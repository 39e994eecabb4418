// Package errorconf holds the error view configuration: the built-in table
// of per-status defaults, the optional override table loaded from a YAML
// file at startup, and the resolver that looks values up across both.
//
// Configuration is loaded once and is read-only afterwards, so a Resolver is
// safe for concurrent use without locking.
//
// Override file format (keys are status codes or "base"):
//
//	"404":
//	  default_message: Not Found
//	  template_name: errors/404.html
//	  default_details:
//	    title: Not Found
//	    message: Nothing here.
//	base:
//	  log_errors: false
package errorconf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Keys accepted by Resolve.
const (
	KeyStatusCode     = "status_code"
	KeyDefaultMessage = "default_message"
	KeyDefaultDetails = "default_details"
	KeyTemplateName   = "template_name"
	KeyLogErrors      = "log_errors"
)

// ErrInvalidKey is returned when a table key is neither "base" nor a status
// code in the 400–599 range.
var ErrInvalidKey = errors.New("error type must be \"base\" or a status code in 400-599")

// ErrStatusMismatch is returned when a status-keyed entry configures a
// different status code than its key.
var ErrStatusMismatch = errors.New("status_code must match the entry key")

// Entry is one error type's settings. Nil fields are "not configured" and
// fall through to the next tier of the lookup.
type Entry struct {
	StatusCode     *int           `yaml:"status_code"     validate:"omitempty,min=400,max=599"`
	DefaultMessage *string        `yaml:"default_message" validate:"omitempty,max=512"`
	DefaultDetails map[string]any `yaml:"default_details"`
	TemplateName   *string        `yaml:"template_name"   validate:"omitempty,endswith=.html"`
	LogErrors      *bool          `yaml:"log_errors"`
}

// Table maps an error type ("base", "404", …) to its settings.
type Table map[string]Entry

// value returns the configured value for key and whether it is set.
func (e Entry) value(key string) (any, bool) {
	switch key {
	case KeyStatusCode:
		if e.StatusCode != nil {
			return *e.StatusCode, true
		}
	case KeyDefaultMessage:
		if e.DefaultMessage != nil {
			return *e.DefaultMessage, true
		}
	case KeyDefaultDetails:
		if e.DefaultDetails != nil {
			return e.DefaultDetails, true
		}
	case KeyTemplateName:
		if e.TemplateName != nil {
			return *e.TemplateName, true
		}
	case KeyLogErrors:
		if e.LogErrors != nil {
			return *e.LogErrors, true
		}
	}
	return nil, false
}

// LoadFile reads and validates an override table from a YAML (or JSON) file.
// An empty path yields an empty table.
func LoadFile(path string) (Table, error) {
	if strings.TrimSpace(path) == "" {
		return Table{}, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("errorconf: read %s: %w", path, err)
	}
	return Parse(b)
}

// Parse decodes and validates an override table. Unknown entry fields are
// rejected so that typos surface at startup.
func Parse(b []byte) (Table, error) {
	t := Table{}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil {
		if errors.Is(err, io.EOF) {
			return Table{}, nil
		}
		return nil, fmt.Errorf("errorconf: decode: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks every key and entry of the table.
func (t Table) Validate() error {
	v := validator.New()
	for key, e := range t {
		status, err := parseType(key)
		if err != nil {
			return fmt.Errorf("errorconf: entry %q: %w", key, err)
		}
		if err := v.Struct(e); err != nil {
			return fmt.Errorf("errorconf: entry %q: %w", key, err)
		}
		if status != 0 && e.StatusCode != nil && *e.StatusCode != status {
			return fmt.Errorf("errorconf: entry %q: %w (got %d)", key, ErrStatusMismatch, *e.StatusCode)
		}
	}
	return nil
}

// parseType returns the status code for a numeric key, 0 for "base".
func parseType(key string) (int, error) {
	if key == BaseType {
		return 0, nil
	}
	n, err := strconv.Atoi(key)
	if err != nil || n < 400 || n > 599 {
		return 0, ErrInvalidKey
	}
	return n, nil
}

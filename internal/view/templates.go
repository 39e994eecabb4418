// Package view renders the HTML error pages.
//
// Templates are addressed by their path relative to the template root, e.g.
// "errors/default.html", which is the form used by the error configuration's
// template_name setting.
package view

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/tbourn/go-error-views/web"
)

// Engine renders HTML templates.
type Engine struct {
	templates *template.Template
}

// NewEngine parses every *.html file below the root of fsys.
func NewEngine(fsys fs.FS) (*Engine, error) {
	funcMap := template.FuncMap{
		"statusText": http.StatusText,
	}
	root := template.New("root").Funcs(funcMap)
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path.Ext(p) != ".html" {
			return nil
		}
		b, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		if _, err := root.New(p).Parse(string(b)); err != nil {
			return fmt.Errorf("parse %s: %w", p, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Engine{templates: root}, nil
}

// NewDefaultEngine parses the embedded templates, or the templates under dir
// when dir is non-empty.
func NewDefaultEngine(dir string) (*Engine, error) {
	if strings.TrimSpace(dir) != "" {
		return NewEngine(os.DirFS(dir))
	}
	sub, err := fs.Sub(web.Templates, "templates")
	if err != nil {
		return nil, err
	}
	return NewEngine(sub)
}

// Has reports whether a template called name was parsed.
func (e *Engine) Has(name string) bool {
	return e != nil && e.templates.Lookup(name) != nil
}

// Check returns an error naming the first template in names that is missing.
func (e *Engine) Check(names []string) error {
	for _, n := range names {
		if !e.Has(n) {
			return fmt.Errorf("template %q not found", n)
		}
	}
	return nil
}

// Render executes the named template into a byte slice.
func (e *Engine) Render(name string, data any) ([]byte, error) {
	if e == nil {
		return nil, fmt.Errorf("template engine not initialised")
	}
	var buf bytes.Buffer
	if err := e.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

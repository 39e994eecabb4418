package view

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/tbourn/go-error-views/internal/domain"
)

func TestNewDefaultEngine_EmbeddedDefaultTemplate(t *testing.T) {
	e, err := NewDefaultEngine("")
	if err != nil {
		t.Fatalf("NewDefaultEngine: %v", err)
	}
	if !e.Has("errors/default.html") {
		t.Fatalf("embedded errors/default.html missing")
	}

	out, err := e.Render("errors/default.html", domain.ErrorSpec{
		StatusCode: 404,
		Title:      "404 Error",
		Header:     "Page Not Found",
		Message:    "Sorry, <nothing> here.",
		Redirect:   "Return to the homepage.",
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	html := string(out)
	for _, want := range []string{"<title>404 Error</title>", "404 Not Found", "Page Not Found", "Sorry, &lt;nothing&gt; here.", "Return to the homepage."} {
		if !strings.Contains(html, want) {
			t.Fatalf("rendered page missing %q:\n%s", want, html)
		}
	}
}

func TestNewDefaultEngine_Directory(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "errors"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "errors", "404.html"), []byte(`gone: {{.Message}}`), 0o600); err != nil {
		t.Fatal(err)
	}

	e, err := NewDefaultEngine(dir)
	if err != nil {
		t.Fatalf("NewDefaultEngine(dir): %v", err)
	}
	out, err := e.Render("errors/404.html", domain.ErrorSpec{Message: "bye"})
	if err != nil || string(out) != "gone: bye" {
		t.Fatalf("Render = %q, %v", out, err)
	}
	if e.Has("errors/default.html") {
		t.Fatalf("directory engine should not include embedded templates")
	}
}

func TestNewEngine_ParseError(t *testing.T) {
	fsys := fstest.MapFS{"errors/bad.html": {Data: []byte("{{.Title")}}
	if _, err := NewEngine(fsys); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestEngine_CheckAndNil(t *testing.T) {
	fsys := fstest.MapFS{
		"errors/a.html":   {Data: []byte("a")},
		"errors/b.txt":    {Data: []byte("ignored")},
		"errors/c/d.html": {Data: []byte("d")},
	}
	e, err := NewEngine(fsys)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if err := e.Check([]string{"errors/a.html", "errors/c/d.html"}); err != nil {
		t.Fatalf("Check: %v", err)
	}
	if err := e.Check([]string{"errors/b.txt"}); err == nil {
		t.Fatalf("expected missing template error")
	}

	var nilEngine *Engine
	if nilEngine.Has("errors/a.html") {
		t.Fatalf("nil engine has no templates")
	}
	if _, err := nilEngine.Render("errors/a.html", nil); err == nil {
		t.Fatalf("nil engine Render should fail")
	}
}

// Package web holds the embedded HTML templates and static assets, and the
// renderer that executes them.
//
// Every page template defines "title" and "content"; layout.html wraps them
// and blocks.html holds the partials shared by pages (profile blocks, post
// lists, forms). Each page is parsed into its own template set so the
// "content" definitions do not collide.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/sakif/minispace/internal/model"
	"github.com/sakif/minispace/internal/profile"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// shared are parsed into every page set.
var shared = []string{"templates/layout.html", "templates/blocks.html"}

// Page is the data every template receives. Viewer is nil for anonymous
// visitors; Data is the page-specific payload.
type Page struct {
	Title  string
	Viewer *model.UserData
	Data   any
}

type Renderer struct {
	pages map[string]*template.Template
}

// NewRenderer parses every embedded page template.
func NewRenderer() (*Renderer, error) {
	names, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("web: listing templates: %w", err)
	}

	base, err := template.New("").Funcs(FuncMap()).ParseFS(templateFS, shared...)
	if err != nil {
		return nil, fmt.Errorf("web: parsing shared templates: %w", err)
	}

	r := &Renderer{pages: make(map[string]*template.Template)}
	for _, name := range names {
		if isShared(name) {
			continue
		}
		set, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("web: cloning templates: %w", err)
		}
		if _, err := set.ParseFS(templateFS, name); err != nil {
			return nil, fmt.Errorf("web: parsing %s: %w", name, err)
		}
		r.pages[strings.TrimSuffix(path.Base(name), ".html")] = set
	}
	return r, nil
}

func isShared(name string) bool {
	for _, s := range shared {
		if s == name {
			return true
		}
	}
	return false
}

// Render executes page into w. The page is rendered into a buffer first so
// a template error never leaves a half-written response.
func (r *Renderer) Render(w io.Writer, page string, data Page) error {
	set, ok := r.pages[page]
	if !ok {
		return fmt.Errorf("web: unknown page %q", page)
	}
	var buf bytes.Buffer
	if err := set.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("web: rendering %s: %w", page, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// Has reports whether page exists.
func (r *Renderer) Has(page string) bool {
	_, ok := r.pages[page]
	return ok
}

// Static serves the embedded assets; mount it under /static/.
func Static() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err) // the directory is embedded at build time
	}
	return http.FileServer(http.FS(sub))
}

// FuncMap returns the helpers available to every template.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"formatDate": profile.FormatDate,
		"monthYear":  profile.FormatMonthYear,
		"join":       strings.Join,
		"urlencode":  url.QueryEscape,
		"add":        func(a, b int) int { return a + b },
		"sub":        func(a, b int) int { return a - b },
		"themes":     func() []model.Theme { return model.Themes },
		"layouts":    func() []model.Layout { return model.Layouts },
		"presets":    func() []string { return model.BannerPresets },
		"plural": func(n int, one, many string) string {
			if n == 1 {
				return one
			}
			return many
		},
	}
}

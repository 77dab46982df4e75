// Package web holds the embedded page templates and static assets served by
// the api package.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Pages renders the HTML pages.
type Pages struct {
	t *template.Template
}

// Page names.
const (
	PageIndex = "index.html"
	PageCard  = "card.html"
)

// ParsePages parses every embedded template.
func ParsePages() (*Pages, error) {
	t, err := template.New("").ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("web: parse templates: %w", err)
	}
	return &Pages{t: t}, nil
}

// Render executes the named page with data.
func (p *Pages) Render(w io.Writer, name string, data any) error {
	if err := p.t.ExecuteTemplate(w, name, data); err != nil {
		return fmt.Errorf("web: render %s: %w", name, err)
	}
	return nil
}

// Static returns the static asset tree, rooted so "card.js" is at the top.
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err) // the directory is embedded at compile time
	}
	return sub
}

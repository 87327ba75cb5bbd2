// Package render implements echo.Renderer over the embedded page templates.
package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

//go:embed templates
var templateFS embed.FS

const baseTemplate = "templates/base.html"

// Renderer holds one template set per page, each page layered over base.html
type Renderer struct {
	pages map[string]*template.Template
}

// New parses every page template
func New() (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template)}

	err := fs.WalkDir(templateFS, "templates", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path == baseTemplate || !strings.HasSuffix(path, ".html") {
			return nil
		}

		tmpl, err := template.New("").Funcs(funcs).ParseFS(templateFS, baseTemplate, path)
		if err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		r.pages[strings.TrimPrefix(path, "templates/")] = tmpl
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Render executes page name, e.g. "users/show.html"
func (r *Renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	tmpl, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("template %s not found", name)
	}
	return tmpl.ExecuteTemplate(w, "base", data)
}

// Has reports whether page name exists
func (r *Renderer) Has(name string) bool {
	_, ok := r.pages[name]
	return ok
}

var funcs = template.FuncMap{
	"date": func(t time.Time) string {
		return t.Format("02 January 2006")
	},
	"isLiked": func(liked map[uint]bool, id uint) bool {
		return liked[id]
	},
	"isFollowing": func(following map[uint]bool, id uint) bool {
		return following[id]
	},
}

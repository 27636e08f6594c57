// Package web holds the embedded page templates and static assets.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin/render"
)

//go:embed templates static
var files embed.FS

// Page names accepted by Renderer.Instance.
const (
	PageCatalog      = "catalog"
	PageDetail       = "detail"
	PageLogin        = "login"
	PageDashboard    = "dashboard"
	PageCreateCourse = "create_course"
	PageManage       = "manage"
)

// layoutName is the entry template every page set executes.
const layoutName = "layout"

// Static returns the embedded assets served under /static.
func Static() http.FileSystem {
	sub, err := fs.Sub(files, "static")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}

// Renderer is a gin HTMLRender holding one template set per page. Each set
// is the layout, the partials and a single page defining "content".
type Renderer struct {
	sets map[string]*template.Template
}

// NewRenderer parses every page under templates/pages.
func NewRenderer() (*Renderer, error) {
	pages, err := fs.Glob(files, "templates/pages/*.html")
	if err != nil {
		return nil, err
	}

	r := &Renderer{sets: make(map[string]*template.Template, len(pages))}
	for _, page := range pages {
		name := strings.TrimSuffix(path.Base(page), ".html")
		set, err := template.New(name).Funcs(Funcs()).ParseFS(files,
			"templates/layout.html",
			"templates/partials/*.html",
			page,
		)
		if err != nil {
			return nil, fmt.Errorf("parse page %s: %w", name, err)
		}
		r.sets[name] = set
	}
	return r, nil
}

// Instance implements render.HTMLRender.
func (r *Renderer) Instance(name string, data interface{}) render.Render {
	set, ok := r.sets[name]
	if !ok {
		set = missingPage
		data = name
	}
	return render.HTML{Template: set, Name: layoutName, Data: data}
}

// Has reports whether a page set exists.
func (r *Renderer) Has(name string) bool {
	_, ok := r.sets[name]
	return ok
}

var missingPage = template.Must(template.New(layoutName).Parse(`unknown page {{.}}`))

// Funcs are the helpers available to every template.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"inc": func(i int) int { return i + 1 },
		"date": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("1/2/2006")
		},
	}
}

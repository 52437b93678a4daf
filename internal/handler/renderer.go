package handler

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"sync"
)

// Renderer manages template parsing and rendering with isolated template sets.
// It supports two layouts:
//   - "auth" layout for unauthenticated pages (login)
//   - "app" layout for authenticated pages (the quote editor)
//
// Templates are organized as:
//   - layouts/auth.html, layouts/app.html - base layouts
//   - partials/*.html - fragments shared by both layouts
//   - pages/auth/*.html - auth pages (use auth layout)
//   - pages/*.html - app pages (use app layout)
type Renderer struct {
	templates map[string]*template.Template
	fsys      fs.FS
	logger    *slog.Logger
	isDev     bool
	mu        sync.RWMutex
}

// RendererConfig holds configuration for the renderer.
type RendererConfig struct {
	// FS is the template tree. Production uses the embedded web.Templates();
	// development passes os.DirFS("web/templates") so edits show on reload.
	FS     fs.FS
	Logger *slog.Logger
	IsDev  bool
}

// NewRenderer creates a new template renderer.
func NewRenderer(cfg RendererConfig) (*Renderer, error) {
	r := &Renderer{
		templates: make(map[string]*template.Template),
		fsys:      cfg.FS,
		logger:    cfg.Logger,
		isDev:     cfg.IsDev,
	}

	templates, err := loadTemplates(r.fsys)
	if err != nil {
		return nil, err
	}
	r.templates = templates

	return r, nil
}

func loadTemplates(fsys fs.FS) (map[string]*template.Template, error) {
	templates := make(map[string]*template.Template)

	partialFiles, err := fs.Glob(fsys, "partials/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to glob partials: %w", err)
	}

	layouts := []struct {
		name   string // layout template name, also the key prefix
		prefix string
		pages  string
	}{
		{name: "auth", prefix: "auth/", pages: "pages/auth/*.html"},
		{name: "app", prefix: "", pages: "pages/*.html"},
	}

	for _, layout := range layouts {
		base, err := template.New(layout.name).Funcs(TemplateFuncs()).ParseFS(fsys, "layouts/"+layout.name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s layout: %w", layout.name, err)
		}

		if len(partialFiles) > 0 {
			base, err = base.ParseFS(fsys, partialFiles...)
			if err != nil {
				return nil, fmt.Errorf("failed to parse partials into %s layout: %w", layout.name, err)
			}
		}

		pages, err := fs.Glob(fsys, layout.pages)
		if err != nil {
			return nil, fmt.Errorf("failed to glob %s pages: %w", layout.name, err)
		}

		for _, page := range pages {
			pageTmpl, err := base.Clone()
			if err != nil {
				return nil, fmt.Errorf("failed to clone %s template for %s: %w", layout.name, page, err)
			}

			pageTmpl, err = pageTmpl.ParseFS(fsys, page)
			if err != nil {
				return nil, fmt.Errorf("failed to parse page %s: %w", page, err)
			}

			// Store as "auth/login", "quote", etc.
			pageName := strings.TrimSuffix(path.Base(page), path.Ext(page))
			templates[layout.prefix+pageName] = pageTmpl
		}
	}

	return templates, nil
}

// Reload re-parses all templates. Useful for development.
func (r *Renderer) Reload() error {
	templates, err := loadTemplates(r.fsys)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.templates = templates
	r.mu.Unlock()
	return nil
}

// Render renders a template to an io.Writer.
func (r *Renderer) Render(w io.Writer, name string, data interface{}) error {
	if r.isDev {
		if err := r.Reload(); err != nil {
			return fmt.Errorf("template reload failed: %w", err)
		}
	}

	r.mu.RLock()
	tmpl, ok := r.templates[name]
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("template %q not found", name)
	}

	return tmpl.ExecuteTemplate(w, baseTemplateName(name), data)
}

// RenderHTTP renders a template with status 200.
func (r *Renderer) RenderHTTP(w http.ResponseWriter, name string, data interface{}) {
	r.RenderHTTPStatus(w, http.StatusOK, name, data)
}

// RenderHTTPStatus renders a template directly to an http.ResponseWriter
// with the given status code.
func (r *Renderer) RenderHTTPStatus(w http.ResponseWriter, status int, name string, data interface{}) {
	// Render to buffer first to catch errors before writing headers
	var buf bytes.Buffer
	if err := r.Render(&buf, name, data); err != nil {
		r.logger.Error("template execution failed", "name", name, "error", err)
		http.Error(w, "Template execution failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// baseTemplateName determines which layout template to execute.
func baseTemplateName(name string) string {
	if strings.HasPrefix(name, "auth/") {
		return "auth"
	}
	return "app"
}

// ListTemplates returns a list of all loaded template names.
// Useful for debugging.
func (r *Renderer) ListTemplates() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.templates))
	for name := range r.templates {
		names = append(names, name)
	}
	return names
}

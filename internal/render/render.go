// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package render executes the embedded html/template pages.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/eduportal/internal/dal"
	"github.com/olegiv/eduportal/internal/i18n"
	"github.com/olegiv/eduportal/internal/nav"
	"github.com/olegiv/eduportal/internal/session"
	"github.com/olegiv/eduportal/internal/uikit"
)

// Template sections. Each page directory is parsed with the base layout and
// all partials; admin pages add the admin layout.
var sections = []string{"pages", "auth", "admin"}

const (
	baseLayout  = "layouts/base.html"
	adminLayout = "layouts/admin.html"
)

// Renderer handles template rendering with caching.
type Renderer struct {
	fsys           fs.FS
	sessionManager *scs.SessionManager
	nav            *nav.Builder
	logger         *slog.Logger
	isDev          bool

	mu        sync.RWMutex
	templates map[string]*template.Template
}

// Config holds renderer configuration.
type Config struct {
	TemplatesFS    fs.FS
	SessionManager *scs.SessionManager
	Nav            *nav.Builder // optional
	Logger         *slog.Logger
	IsDev          bool // re-parse templates on every render
}

// New creates a new Renderer with parsed templates.
func New(cfg Config) (*Renderer, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := &Renderer{
		fsys:           cfg.TemplatesFS,
		sessionManager: cfg.SessionManager,
		nav:            cfg.Nav,
		logger:         logger,
		isDev:          cfg.IsDev,
	}
	templates, err := r.parseTemplates()
	if err != nil {
		return nil, err
	}
	r.templates = templates
	return r, nil
}

// parseTemplates parses every page template with its layouts and partials.
func (r *Renderer) parseTemplates() (map[string]*template.Template, error) {
	partials, err := templateFiles(r.fsys, "partials")
	if err != nil {
		return nil, fmt.Errorf("getting partials: %w", err)
	}

	templates := make(map[string]*template.Template)
	for _, section := range sections {
		pages, err := templateFiles(r.fsys, section)
		if err != nil {
			return nil, fmt.Errorf("getting %s templates: %w", section, err)
		}

		for _, page := range pages {
			name := section + "/" + strings.TrimSuffix(path.Base(page), ".html")

			files := []string{baseLayout}
			if section == "admin" {
				files = append(files, adminLayout)
			}
			files = append(files, partials...)
			files = append(files, page)

			tmpl, err := template.New("").Funcs(templateFuncs()).ParseFS(r.fsys, files...)
			if err != nil {
				return nil, fmt.Errorf("parsing template %s: %w", name, err)
			}
			templates[name] = tmpl
		}
	}
	return templates, nil
}

// templateFiles returns all .html files in a directory. A missing directory
// yields no files.
func templateFiles(fsys fs.FS, dir string) ([]string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, nil
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".html") {
			files = append(files, path.Join(dir, entry.Name()))
		}
	}
	return files, nil
}

// templateFuncs returns the shared helpers plus translation.
func templateFuncs() template.FuncMap {
	funcs := uikit.TemplateFuncs()
	funcs["T"] = i18n.T
	funcs["roleLabel"] = func(lang, role string) string {
		return i18n.T(lang, "role."+role)
	}
	return funcs
}

// Has reports whether a template named name exists.
func (r *Renderer) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.templates[name]
	return ok
}

// Form carries submitted values and validation messages back to a form.
type Form struct {
	Values map[string]string
	Errors map[string]string
	Error  string
}

// Value returns the submitted value of field.
func (f Form) Value(field string) string {
	return f.Values[field]
}

// FieldError returns the message attached to field.
func (f Form) FieldError(field string) string {
	return f.Errors[field]
}

// TemplateData holds data passed to templates.
type TemplateData struct {
	Title       string
	Lang        string
	Path        string
	User        *dal.User
	Nav         nav.Menu
	Breadcrumbs []uikit.Breadcrumb
	Flash       *session.Flash
	Form        Form
	Data        any
	CurrentYear int
}

// Render writes the template with status 200.
func (r *Renderer) Render(w http.ResponseWriter, req *http.Request, name string, data TemplateData) error {
	return r.RenderStatus(w, req, http.StatusOK, name, data)
}

// RenderStatus fills the request-derived fields of data, executes the
// template into a buffer and writes it with status.
func (r *Renderer) RenderStatus(w http.ResponseWriter, req *http.Request, status int, name string, data TemplateData) error {
	tmpl, err := r.lookup(name)
	if err != nil {
		return err
	}

	ctx := req.Context()
	data.CurrentYear = time.Now().Year()
	data.Path = req.URL.Path
	if data.Lang == "" {
		data.Lang = i18n.FromContext(ctx)
	}
	if data.Form.Values == nil {
		data.Form.Values = map[string]string{}
	}
	if r.nav != nil {
		data.Nav = r.nav.Menu(ctx, data.User, data.Lang, req.URL.Path)
		if data.Breadcrumbs == nil {
			data.Breadcrumbs = r.nav.Breadcrumbs(data.Lang, req.URL.Path)
		}
	}
	if r.sessionManager != nil && data.Flash == nil {
		if f, ok := session.PopFlash(ctx, r.sessionManager); ok {
			data.Flash = &f
		}
	}

	buf := new(bytes.Buffer)
	if err := tmpl.ExecuteTemplate(buf, "base", data); err != nil {
		return fmt.Errorf("executing template %s: %w", name, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
	return nil
}

func (r *Renderer) lookup(name string) (*template.Template, error) {
	if r.isDev {
		templates, err := r.parseTemplates()
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.templates = templates
		r.mu.Unlock()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	tmpl, ok := r.templates[name]
	if !ok {
		return nil, fmt.Errorf("template %s not found", name)
	}
	return tmpl, nil
}

// SetFlash sets a flash message in the session.
func (r *Renderer) SetFlash(req *http.Request, message, flashType string) {
	if r.sessionManager != nil {
		session.PutFlash(req.Context(), r.sessionManager, session.Flash{Type: flashType, Message: message})
	}
}

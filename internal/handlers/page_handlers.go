// File: internal/handlers/page_handlers.go
package handlers

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/yuin/goldmark"

	"github.com/iyunix/go-chatstream/internal/logging"
)

var pages = []string{"index.html", "login.html", "register.html", "chat.html", "error.html"}

// Renderer holds one parsed template set per page, each layered on layout.html.
type Renderer struct {
	templates map[string]*template.Template
	markdown  goldmark.Markdown
	logger    logging.Logger
}

func NewRenderer(files fs.FS, logger logging.Logger) (*Renderer, error) {
	r := &Renderer{
		templates: make(map[string]*template.Template, len(pages)),
		markdown:  goldmark.New(),
		logger:    logger,
	}
	funcs := template.FuncMap{"markdown": r.renderMarkdown}

	for _, page := range pages {
		ts, err := template.New(page).Funcs(funcs).ParseFS(files, "layout.html", page)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", page, err)
		}
		r.templates[page] = ts
	}
	return r, nil
}

// renderMarkdown converts message text to HTML. goldmark drops raw HTML
// unless configured otherwise, so the output is safe to embed.
func (r *Renderer) renderMarkdown(source string) template.HTML {
	var buf bytes.Buffer
	if err := r.markdown.Convert([]byte(source), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(source))
	}
	return template.HTML(buf.String())
}

// Render executes page into a buffer first so a template error never leaves
// a half-written page behind.
func (r *Renderer) Render(w http.ResponseWriter, status int, page string, data map[string]any) {
	t, ok := r.templates[page]
	if !ok {
		r.logger.Error("template not found", "template", page)
		http.Error(w, "Template not found", http.StatusInternalServerError)
		return
	}
	if data == nil {
		data = map[string]any{}
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		r.logger.Error("template render failed", "template", page, "error", err)
		http.Error(w, "Error rendering page", http.StatusInternalServerError)
		return
	}

	addSecurityHeaders(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// RenderError shows the error page with status.
func (r *Renderer) RenderError(w http.ResponseWriter, status int, message string) {
	r.Render(w, status, "error.html", map[string]any{
		"Code":    status,
		"Message": message,
	})
}

func addSecurityHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Security-Policy", "default-src 'self'")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
}

type PageHandler struct {
	renderer *Renderer
}

func NewPageHandler(renderer *Renderer) *PageHandler {
	return &PageHandler{renderer: renderer}
}

func (h *PageHandler) ShowLoginPage(w http.ResponseWriter, r *http.Request) {
	h.renderer.Render(w, http.StatusOK, "login.html", nil)
}

func (h *PageHandler) ShowRegisterPage(w http.ResponseWriter, r *http.Request) {
	h.renderer.Render(w, http.StatusOK, "register.html", nil)
}

// NotFound renders the error page for unknown routes.
func (h *PageHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	if wantsJSON(r) {
		writeError(w, "Not found", http.StatusNotFound)
		return
	}
	h.renderer.RenderError(w, http.StatusNotFound, "Page not found.")
}

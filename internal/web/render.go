package web

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"github.com/promptforge/promptforge/internal/db"
	"github.com/promptforge/promptforge/internal/errors"
	"github.com/promptforge/promptforge/internal/prompt"
)

// PageData contains common fields used across all page templates.
type PageData struct {
	Title   string
	Version string
	Nav     string // active nav item: "templates", "stats"
}

// ListPageData is the template data for the template list page.
type ListPageData struct {
	PageData
	Items      []prompt.Template
	Category   string
	Categories []string
}

// DetailPageData is the template data for the template detail page.
type DetailPageData struct {
	PageData
	Template     *prompt.Template
	RenderedHTML template.HTML
}

// StatsPageData is the template data for the stats page.
type StatsPageData struct {
	PageData
	Stats *db.LibraryStats
}

// ErrorPageData is the template data for the error page.
type ErrorPageData struct {
	PageData
	StatusCode int
	Message    string
}

// Renderer manages template parsing and rendering.
type Renderer struct {
	templates map[string]*template.Template
	version   string
}

// NewRenderer creates a Renderer by parsing templates from the given FS.
func NewRenderer(templateFS fs.FS, version string) *Renderer {
	funcMap := template.FuncMap{
		"formatTime":   formatTime,
		"formatRating": formatRating,
	}

	// Parse layout as the base template
	layoutTmpl := template.Must(template.New("layout").Funcs(funcMap).ParseFS(templateFS, "layout.html"))

	pages := map[string]string{
		"list":   "list.html",
		"detail": "detail.html",
		"stats":  "stats.html",
		"error":  "error.html",
	}

	templates := make(map[string]*template.Template, len(pages))
	for name, file := range pages {
		t := template.Must(layoutTmpl.Clone())
		template.Must(t.ParseFS(templateFS, file))
		templates[name] = t
	}

	return &Renderer{
		templates: templates,
		version:   version,
	}
}

// renderPage renders a named page template with the given data and HTTP 200 status.
func (r *Renderer) renderPage(w http.ResponseWriter, name string, data any) {
	r.renderPageStatus(w, http.StatusOK, name, data)
}

// renderPageStatus renders a named page template with the given data and HTTP status code.
func (r *Renderer) renderPageStatus(w http.ResponseWriter, status int, name string, data any) {
	t, ok := r.templates[name]
	if !ok {
		log.Printf("template %q not found", name)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		log.Printf("template execution error: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// renderError renders an error response with content negotiation.
func (r *Renderer) renderError(w http.ResponseWriter, req *http.Request, err error) {
	var fErr *errors.ForgeError
	if !stderrors.As(err, &fErr) {
		fErr = errors.NewInternal(err)
	}

	status := fErr.Status
	message := fErr.Message

	// JSON request
	if strings.Contains(req.Header.Get("Accept"), "application/json") ||
		strings.HasPrefix(req.URL.Path, "/api/") {
		renderErrorJSON(w, fErr)
		return
	}

	// Full error page
	r.renderPageStatus(w, status, "error", ErrorPageData{
		PageData: PageData{
			Title:   fmt.Sprintf("Error %d", status),
			Version: r.version,
		},
		StatusCode: status,
		Message:    message,
	})
}

// renderErrorJSON writes a structured error as JSON.
func renderErrorJSON(w http.ResponseWriter, fErr *errors.ForgeError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(fErr.Status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"code":    string(fErr.Code),
			"message": fErr.Message,
			"status":  fErr.Status,
		},
	})
}

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// renderMarkdown converts markdown text to HTML using goldmark.
func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

// formatTime formats a Unix timestamp as "2006-01-02 15:04" UTC.
func formatTime(unix int64) string {
	return time.Unix(unix, 0).UTC().Format("2006-01-02 15:04")
}

// formatRating formats a rating as a two-decimal string.
func formatRating(rating float64) string {
	return fmt.Sprintf("%.2f", rating)
}

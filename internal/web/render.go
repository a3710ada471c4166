package web

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/yuin/goldmark"

	"github.com/micasa/marketer/internal/db"
	"github.com/micasa/marketer/internal/errors"
	"github.com/micasa/marketer/internal/holiday"
	"github.com/micasa/marketer/internal/logging"
	"github.com/micasa/marketer/internal/ops"
)

// PageData contains common fields used across all page templates.
type PageData struct {
	Title   string
	Version string
	Nav     string // active nav item: "dates", "login"
	User    string // empty when logged out
	CSRF    string
}

// DateRow is a dashboard row: the summary plus its rendered caption.
type DateRow struct {
	holiday.DateSummary
	CaptionHTML template.HTML
}

// DashboardPageData is the template data for the dashboard.
type DashboardPageData struct {
	PageData
	Rows        []DateRow
	Pagination  ops.Pagination
	Filter      string
	From        string
	To          string
	RecentPosts []db.Post
}

// DetailPageData is the template data for the date detail page.
type DetailPageData struct {
	PageData
	Record      *holiday.DateRecord
	CaptionHTML template.HTML
	Posts       []db.Post
}

// LoginPageData is the template data for the login page.
type LoginPageData struct {
	PageData
	Username string
	Failed   bool
}

// PostResultData is the fragment shown after a publish button is pressed.
type PostResultData struct {
	Success bool
	Message string
	Posts   []ops.PostAttempt
}

// ErrorPageData is the template data for the error page.
type ErrorPageData struct {
	PageData
	StatusCode int
	Code       string
	Message    string
}

// Renderer manages template parsing and rendering.
type Renderer struct {
	templates map[string]*template.Template
	version   string
	logger    logging.Logger
}

// NewRenderer creates a Renderer by parsing templates from the given FS.
func NewRenderer(templateFS fs.FS, version string, logger logging.Logger) (*Renderer, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	funcMap := template.FuncMap{
		"add":        func(a, b int) int { return a + b },
		"sub":        func(a, b int) int { return a - b },
		"formatTime": formatTime,
		"deref":      deref,
		"join":       strings.Join,
	}

	layoutTmpl, err := template.New("layout").Funcs(funcMap).ParseFS(templateFS, "layout.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	pages := map[string]string{
		"login":     "login.html",
		"dashboard": "dashboard.html",
		"detail":    "detail.html",
		"error":     "error.html",
	}

	templates := make(map[string]*template.Template, len(pages))
	for name, file := range pages {
		t, err := layoutTmpl.Clone()
		if err != nil {
			return nil, fmt.Errorf("clone layout for %s: %w", name, err)
		}
		if _, err := t.ParseFS(templateFS, file); err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
		templates[name] = t
	}

	return &Renderer{
		templates: templates,
		version:   version,
		logger:    logger,
	}, nil
}

// renderPage renders a named page template with the given data and HTTP 200 status.
func (r *Renderer) renderPage(w http.ResponseWriter, req *http.Request, name string, data any) {
	r.renderPageStatus(w, req, http.StatusOK, name, data)
}

// renderPageStatus renders a named page template with the given data and HTTP status code.
// For HTMX requests, only the "content" block is rendered to avoid duplicating the layout.
func (r *Renderer) renderPageStatus(w http.ResponseWriter, req *http.Request, status int, name string, data any) {
	block := "layout"
	if req != nil && isHTMX(req) {
		block = "content"
	}
	r.renderBlock(w, status, name, block, data)
}

// renderBlock renders a specific named block from a page template.
func (r *Renderer) renderBlock(w http.ResponseWriter, status int, page, block string, data any) {
	t, ok := r.templates[page]
	if !ok {
		r.logger.Errorf(logging.TypeWeb, "template %q not found", page)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, block, data); err != nil {
		r.logger.Errorf(logging.TypeWeb, "template %s/%s execution error: %v", page, block, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// renderError renders an error response with content negotiation.
func (r *Renderer) renderError(w http.ResponseWriter, req *http.Request, err error) {
	mErr, message := r.describe(req, err)
	status := mErr.Status

	if isHTMX(req) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		fmt.Fprintf(w, `<div class="error-message">%s</div>`, template.HTMLEscapeString(message))
		return
	}

	if wantsJSON(req) {
		renderJSON(w, status, errorBody(mErr, message))
		return
	}

	r.renderPageStatus(w, req, status, "error", ErrorPageData{
		PageData: PageData{
			Title:   fmt.Sprintf("Error %d", status),
			Version: r.version,
		},
		StatusCode: status,
		Code:       string(mErr.Code),
		Message:    message,
	})
}

// renderJSONError always answers with the JSON error object.
func (r *Renderer) renderJSONError(w http.ResponseWriter, req *http.Request, err error) {
	mErr, message := r.describe(req, err)
	renderJSON(w, mErr.Status, errorBody(mErr, message))
}

// describe maps err to a coded error and the message safe to show.
// Internal errors are logged and shown without their cause.
func (r *Renderer) describe(req *http.Request, err error) (*errors.MarketerError, string) {
	mErr := errors.As(err)
	if mErr == nil {
		mErr = errors.NewInternal(err)
	}
	if mErr.Code == errors.ErrInternal {
		r.logger.Errorf(logging.TypeWeb, "%s %s: %v", req.Method, req.URL.Path, err)
		return mErr, "an internal error occurred"
	}
	return mErr, mErr.Message
}

func errorBody(mErr *errors.MarketerError, message string) map[string]any {
	return map[string]any{
		"error": map[string]any{
			"code":    string(mErr.Code),
			"message": message,
			"status":  mErr.Status,
		},
	}
}

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// renderMarkdown converts a caption to HTML using goldmark. Raw HTML in the
// source is dropped by goldmark's default renderer.
func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func wantsHTML(r *http.Request) bool {
	return !isHTMX(r) && !wantsJSON(r)
}

// formatTime formats a Unix timestamp as "2006-01-02 15:04" UTC.
func formatTime(unix int64) string {
	return time.Unix(unix, 0).UTC().Format("2006-01-02 15:04")
}

// deref returns the string behind p, or "" for nil.
func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

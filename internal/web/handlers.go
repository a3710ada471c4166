package web

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/micasa/marketer/internal/config"
	"github.com/micasa/marketer/internal/db"
	"github.com/micasa/marketer/internal/errors"
	"github.com/micasa/marketer/internal/logging"
	"github.com/micasa/marketer/internal/ops"
)

const recentPostsLimit = 10

// Services are the upstream clients the publish buttons use. Any may be nil;
// the publish operations then answer with a setup error.
type Services struct {
	Scraper   ops.EventScraper
	Writer    ops.EventCopyWriter
	Facts     ops.FactSource
	Publisher ops.Publisher
}

// Handlers holds dependencies for web UI handlers.
type Handlers struct {
	db       *sql.DB
	cfg      *config.Config
	rt       *ops.Runtime
	services Services
	renderer *Renderer
	sessions *sessions
	// loginDelay slows down failed logins.
	loginDelay time.Duration
}

func (h *Handlers) page(r *http.Request, title, nav string) PageData {
	pd := PageData{Title: title, Version: h.renderer.version, Nav: nav}
	if c := sessionFrom(r.Context()); c != nil {
		pd.User = c.Username
		pd.CSRF = c.CSRF
	}
	return pd
}

// HandleLoginForm handles GET /login.
func (h *Handlers) HandleLoginForm(w http.ResponseWriter, r *http.Request) {
	h.renderer.renderPage(w, r, "login", LoginPageData{PageData: h.page(r, "Login", "login")})
}

// HandleLogin handles POST /login: checks the credentials and sets the session cookie.
func (h *Handlers) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}
	username := r.FormValue("username")
	password := r.FormValue("password")

	if !h.sessions.checkPassword(username, password) {
		h.rt.Logger.Warnf(logging.TypeWeb, "failed login for %q from %s", username, clientIP(r))
		if h.loginDelay > 0 {
			select {
			case <-r.Context().Done():
			case <-time.After(h.loginDelay):
			}
		}
		if wantsJSON(r) {
			h.renderer.renderError(w, r, errors.NewUnauthorized("invalid credentials"))
			return
		}
		h.renderer.renderPageStatus(w, r, http.StatusUnauthorized, "login", LoginPageData{
			PageData: h.page(r, "Login", "login"),
			Username: username,
			Failed:   true,
		})
		return
	}

	token, claims, err := h.sessions.issue(username)
	if err != nil {
		h.renderer.renderError(w, r, errors.NewInternal(err))
		return
	}
	h.sessions.setCookie(w, token, claims.ExpiresAt.Time)
	h.rt.Logger.Infof(logging.TypeWeb, "%s logged in from %s", username, clientIP(r))

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, map[string]any{"success": true, "csrf_token": claims.CSRF})
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleLogout handles POST /logout.
func (h *Handlers) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.sessions.clearCookie(w)
	if isHTMX(r) {
		w.Header().Set("HX-Redirect", "/login")
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// HandleDashboard handles GET /: stored dates with a ready/pending filter and recent posts.
func (h *Handlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := q.Get("filter")
	if filter == "" {
		filter = ops.FilterAll
	}
	input := ops.ListDatesInput{
		StorePath: h.cfg.StorePath,
		Filter:    filter,
		From:      q.Get("from"),
		To:        q.Get("to"),
		Limit:     parseIntParam(r, "limit", ops.DefaultListLimit),
		Offset:    parseIntParam(r, "offset", 0),
	}

	result, err := ops.ListDates(input)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	rows := make([]DateRow, len(result.Items))
	for i, item := range result.Items {
		rows[i] = DateRow{DateSummary: item, CaptionHTML: renderMarkdown(item.Caption)}
	}

	h.renderer.renderPage(w, r, "dashboard", DashboardPageData{
		PageData:    h.page(r, "Dates", "dates"),
		Rows:        rows,
		Pagination:  result.Pagination,
		Filter:      filter,
		From:        input.From,
		To:          input.To,
		RecentPosts: h.recentPosts(ops.PostHistoryInput{Limit: recentPostsLimit}),
	})
}

// HandleDetail handles GET /dates/{date}: one full record and its post history.
func (h *Handlers) HandleDetail(w http.ResponseWriter, r *http.Request) {
	date := r.PathValue("date")
	if date == "" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("date is required"))
		return
	}

	record, err := ops.GetDate(ops.GetDateInput{StorePath: h.cfg.StorePath, Date: date})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, record)
		return
	}

	title := record.SelectedLabel
	if title == "" {
		title = record.Date
	}
	h.renderer.renderPage(w, r, "detail", DetailPageData{
		PageData:    h.page(r, title, "dates"),
		Record:      record,
		CaptionHTML: renderMarkdown(record.Caption),
		Posts:       h.recentPosts(ops.PostHistoryInput{Date: date, Limit: recentPostsLimit}),
	})
}

// HandlePostEvents handles POST /post_events: scrape today's events and publish them.
func (h *Handlers) HandlePostEvents(w http.ResponseWriter, r *http.Request) {
	out, err := ops.PostEvents(r.Context(), h.rt, ops.PostEventsInput{
		Scraper:        h.services.Scraper,
		Writer:         h.services.Writer,
		Publisher:      h.services.Publisher,
		PublishOptions: h.publishOptions(r),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.renderPostResult(w, r, out.Posts, "Daily events posted", out)
}

// HandlePostFacts handles POST /post_facts: publish one local fact.
func (h *Handlers) HandlePostFacts(w http.ResponseWriter, r *http.Request) {
	out, err := ops.PostFact(r.Context(), h.rt, ops.PostFactInput{
		Facts:          h.services.Facts,
		Publisher:      h.services.Publisher,
		PublishOptions: h.publishOptions(r),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.renderPostResult(w, r, []ops.PostAttempt{out.Post}, "Daily fact posted", out)
}

// HandleStatus handles GET /status: key presence, store counts and recent runs.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	out, err := ops.Status(h.rt, ops.StatusInput{
		StorePath: h.cfg.StorePath,
		Keys:      h.cfg.KeyStatus(),
	})
	if err != nil {
		h.renderer.renderJSONError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{
		"status": out,
		"time":   h.rt.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handlers) publishOptions(r *http.Request) ops.PublishOptions {
	return ops.PublishOptions{
		Platforms:       h.cfg.Publer.Platforms,
		AutoDeleteAfter: h.cfg.Publer.AutoDeleteAfter,
		DryRun:          r.PostFormValue("dry_run") == "true",
	}
}

// renderPostResult reports a publish run. Partial failures still answer 200;
// success is false when any post failed.
func (h *Handlers) renderPostResult(w http.ResponseWriter, r *http.Request, attempts []ops.PostAttempt, message string, details any) {
	success := true
	for _, a := range attempts {
		if !a.Result.Success {
			success = false
		}
	}
	if !success {
		message += " with failures"
	}

	if isHTMX(r) {
		h.renderer.renderBlock(w, http.StatusOK, "dashboard", "post-result", PostResultData{
			Success: success,
			Message: message,
			Posts:   attempts,
		})
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{
		"success": success,
		"message": message,
		"details": details,
	})
}

// recentPosts is best effort: a history failure leaves the list empty.
func (h *Handlers) recentPosts(input ops.PostHistoryInput) []db.Post {
	if h.db == nil {
		return nil
	}
	out, err := ops.PostHistory(h.db, input)
	if err != nil {
		h.rt.Logger.Warnf(logging.TypeWeb, "post history: %v", err)
		return nil
	}
	return out.Posts
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

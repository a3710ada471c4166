package web

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/micasa/marketer/internal/config"
	"github.com/micasa/marketer/internal/logging"
	"github.com/micasa/marketer/internal/metrics"
	"github.com/micasa/marketer/internal/ops"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// Request limits per client IP.
const (
	loginLimit   = 20  // per minute
	postLimit    = 10  // per minute
	overallLimit = 100 // per hour
)

// Options configure the admin server.
type Options struct {
	Config   *config.Config
	Runtime  *ops.Runtime
	Services Services
	Version  string
}

// newHandlers checks admin credentials and prepares handlers. The runtime is
// copied so the server can fill in a logger and clock without touching the caller's.
func newHandlers(opts Options) (*Handlers, error) {
	if err := opts.Config.Require(config.ServiceAdmin); err != nil {
		return nil, err
	}

	rt := &ops.Runtime{}
	if opts.Runtime != nil {
		*rt = *opts.Runtime
	}
	if rt.Logger == nil {
		rt.Logger = logging.Nop()
	}
	if rt.Metrics == nil {
		rt.Metrics = metrics.Nop()
	}
	if rt.Now == nil {
		rt.Now = time.Now
	}

	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("template sub-FS: %w", err)
	}
	renderer, err := NewRenderer(templateSub, opts.Version, rt.Logger)
	if err != nil {
		return nil, err
	}

	sess, err := newSessions(opts.Config.Web, rt.Now)
	if err != nil {
		return nil, err
	}

	return &Handlers{
		db:         rt.DB,
		cfg:        opts.Config,
		rt:         rt,
		services:   opts.Services,
		renderer:   renderer,
		sessions:   sess,
		loginDelay: time.Second,
	}, nil
}

// routes builds the mux with auth, CSRF and rate limits applied per route.
func (h *Handlers) routes() http.Handler {
	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(fmt.Sprintf("static sub-FS: %v", err))
	}

	logins := newIPLimiter(loginLimit, time.Minute, h.rt.Now)
	posts := newIPLimiter(postLimit, time.Minute, h.rt.Now)
	overall := newIPLimiter(overallLimit, time.Hour, h.rt.Now)

	authed := h.requireSession
	post := func(next http.HandlerFunc) http.HandlerFunc {
		return authed(h.requireCSRF(posts.wrap(h.renderer, next)))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /login", h.HandleLoginForm)
	mux.HandleFunc("POST /login", logins.wrap(h.renderer, h.HandleLogin))
	mux.HandleFunc("POST /logout", authed(h.requireCSRF(h.HandleLogout)))
	mux.HandleFunc("GET /{$}", authed(h.HandleDashboard))
	mux.HandleFunc("GET /dates/{date}", authed(h.HandleDetail))
	mux.HandleFunc("POST /post_events", post(h.HandlePostEvents))
	mux.HandleFunc("POST /post_facts", post(h.HandlePostFacts))
	mux.HandleFunc("GET /status", authed(h.HandleStatus))

	if mh := h.rt.Metrics.Handler(); mh != nil {
		mux.Handle("GET /metrics", mh)
	}

	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticSub)))

	limited := overall.wrap(h.renderer, mux.ServeHTTP)
	return securityHeaders(countRequests(h.rt.Metrics, limited))
}

// NewServer creates and configures the HTTP server for the admin UI.
func NewServer(opts Options) (*http.Server, error) {
	h, err := newHandlers(opts)
	if err != nil {
		return nil, err
	}
	web := opts.Config.Web
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", web.Bind, web.Port),
		Handler:           h.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}, nil
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "same-origin")
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// countRequests records every request by matched route pattern and status class.
func countRequests(m metrics.Recorder, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		endpoint := r.Pattern
		if endpoint == "" {
			endpoint = "unmatched"
		}
		m.IncRequestsTotal(endpoint, rec.status)
	})
}

// Run starts the HTTP server and handles graceful shutdown on SIGINT/SIGTERM.
func Run(srv *http.Server, logger logging.Logger) error {
	if logger == nil {
		logger = logging.Nop()
	}
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Infof(logging.TypeWeb, "admin UI running at http://%s", srv.Addr)

	if strings.HasPrefix(srv.Addr, "0.0.0.0:") || strings.HasPrefix(srv.Addr, "[::]:") || strings.HasPrefix(srv.Addr, ":") {
		logger.Warnf(logging.TypeWeb, "server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		logger.Infof(logging.TypeWeb, "shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}

package web

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/micasa/marketer/internal/errors"
)

// ipLimiter is a token bucket per client IP. Idle buckets are dropped once
// they have been unused for a full window.
type ipLimiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	window    time.Duration
	visitors  map[string]*visitor
	lastSweep time.Time
	now       func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// newIPLimiter allows events requests per window, all of which may arrive at once.
func newIPLimiter(events int, window time.Duration, now func() time.Time) *ipLimiter {
	if now == nil {
		now = time.Now
	}
	return &ipLimiter{
		limit:    rate.Every(window / time.Duration(events)),
		burst:    events,
		window:   window,
		visitors: make(map[string]*visitor),
		now:      now,
	}
}

func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > l.window {
		for key, v := range l.visitors {
			if now.Sub(v.lastSeen) > l.window {
				delete(l.visitors, key)
			}
		}
		l.lastSweep = now
	}

	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// wrap answers RATE_LIMITED once the caller's bucket is empty.
func (l *ipLimiter) wrap(renderer *Renderer, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !l.allow(clientIP(r)) {
			w.Header().Set("Retry-After", "60")
			renderer.renderError(w, r, errors.NewRateLimited())
			return
		}
		next(w, r)
	}
}

// clientIP is the remote host without the port. Forwarding headers are ignored;
// the server binds to loopback unless configured otherwise.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

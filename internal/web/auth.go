package web

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/micasa/marketer/internal/config"
	"github.com/micasa/marketer/internal/errors"
)

const (
	sessionCookie = "marketer_session"
	sessionIssuer = "marketer"
	csrfField     = "csrf_token"
	csrfHeader    = "X-CSRF-Token"
)

// sessionClaims are carried in the signed session cookie.
type sessionClaims struct {
	Username string `json:"username"`
	CSRF     string `json:"csrf"`
	jwt.RegisteredClaims
}

// sessions signs and checks admin sessions. The admin password is only kept
// as a bcrypt hash computed at startup.
type sessions struct {
	secret       []byte
	ttl          time.Duration
	username     string
	passwordHash []byte
	now          func() time.Time
}

func newSessions(conf config.WebConfig, now func() time.Time) (*sessions, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(conf.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.NewSetup(fmt.Sprintf("cannot hash admin password: %v", err))
	}
	ttl := conf.SessionTTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	if now == nil {
		now = time.Now
	}
	return &sessions{
		secret:       []byte(conf.SecretKey),
		ttl:          ttl,
		username:     conf.AdminUsername,
		passwordHash: hash,
		now:          now,
	}, nil
}

// checkPassword compares both fields without short-circuiting on the username.
func (s *sessions) checkPassword(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.username)) == 1
	passOK := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)) == nil
	return userOK && passOK
}

// issue signs a new session with a fresh CSRF token.
func (s *sessions) issue(username string) (string, *sessionClaims, error) {
	now := s.now()
	claims := &sessionClaims{
		Username: username,
		CSRF:     uuid.NewString(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sessionIssuer,
			Subject:   username,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign session: %w", err)
	}
	return signed, claims, nil
}

func (s *sessions) parse(token string) (*sessionClaims, error) {
	tok, err := jwt.ParseWithClaims(token, &sessionClaims{}, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("parse session: %w", err)
	}
	claims, ok := tok.Claims.(*sessionClaims)
	if !ok || !tok.Valid {
		return nil, fmt.Errorf("invalid session claims")
	}
	if subtle.ConstantTimeCompare([]byte(claims.Username), []byte(s.username)) != 1 {
		return nil, fmt.Errorf("session for unknown user %q", claims.Username)
	}
	return claims, nil
}

func (s *sessions) setCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func (s *sessions) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

type claimsKey struct{}

// sessionFrom returns the claims attached by requireSession.
func sessionFrom(ctx context.Context) *sessionClaims {
	c, _ := ctx.Value(claimsKey{}).(*sessionClaims)
	return c
}

// requireSession rejects requests without a valid session cookie. Browsers
// asking for a page are sent to /login; everything else gets UNAUTHORIZED.
func (h *Handlers) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookie)
		var claims *sessionClaims
		if err == nil {
			claims, err = h.sessions.parse(cookie.Value)
		}
		if err != nil {
			if r.Method == http.MethodGet && wantsHTML(r) {
				http.Redirect(w, r, "/login", http.StatusFound)
				return
			}
			h.renderer.renderError(w, r, errors.NewUnauthorized("login required"))
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
	}
}

// requireCSRF checks the form field or header against the session token.
// It must run inside requireSession.
func (h *Handlers) requireCSRF(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := sessionFrom(r.Context())
		token := r.Header.Get(csrfHeader)
		if token == "" {
			token = r.PostFormValue(csrfField)
		}
		if claims == nil || token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(claims.CSRF)) != 1 {
			h.renderer.renderError(w, r, errors.NewUnauthorized("invalid CSRF token"))
			return
		}
		next(w, r)
	}
}

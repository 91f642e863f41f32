package session

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/platinummonkey/usercenter/pkg/contextkeys"
)

// DefaultCookieName is the cookie carrying the session id
const DefaultCookieName = "USERCENTER_SESSION"

// Config controls the session cookie
type Config struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
}

// DefaultConfig returns the default session configuration
func DefaultConfig() Config {
	return Config{
		CookieName: DefaultCookieName,
		TTL:        30 * time.Minute,
	}
}

// Manager attaches a session to every request
type Manager struct {
	store  Store
	config Config
}

// NewManager creates a session manager over store
func NewManager(store Store, config Config) *Manager {
	if config.CookieName == "" {
		config.CookieName = DefaultCookieName
	}
	if config.TTL <= 0 {
		config.TTL = DefaultConfig().TTL
	}
	return &Manager{store: store, config: config}
}

// Store returns the backing store
func (m *Manager) Store() Store {
	return m.store
}

// Middleware resolves the session from the cookie and stores it in the
// request context. A cookie id is adopted only when the store knows it;
// anything else gets a fresh id. The cookie is written when the response
// starts, so a handler that regenerates the session sends the new id.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ""
		if cookie, err := r.Cookie(m.config.CookieName); err == nil {
			if _, err := uuid.Parse(cookie.Value); err == nil {
				if ok, err := m.store.Exists(r.Context(), cookie.Value); err == nil && ok {
					id = cookie.Value
				}
			}
		}
		if id == "" {
			id = uuid.New().String()
		}

		sess := New(id, m.store)
		cw := &cookieWriter{ResponseWriter: w, manager: m, sess: sess}
		next.ServeHTTP(cw, r.WithContext(contextkeys.WithSession(r.Context(), sess)))
		cw.writeCookie()
	})
}

// cookieWriter sets the session cookie just before the response header goes out
type cookieWriter struct {
	http.ResponseWriter
	manager *Manager
	sess    *Session
	written bool
}

func (w *cookieWriter) writeCookie() {
	if w.written {
		return
	}
	w.written = true
	// Refresh the cookie so its lifetime tracks the server-side expiry
	http.SetCookie(w.ResponseWriter, &http.Cookie{
		Name:     w.manager.config.CookieName,
		Value:    w.sess.ID(),
		Path:     "/",
		MaxAge:   int(w.manager.config.TTL.Seconds()),
		HttpOnly: true,
		Secure:   w.manager.config.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (w *cookieWriter) WriteHeader(status int) {
	w.writeCookie()
	w.ResponseWriter.WriteHeader(status)
}

func (w *cookieWriter) Write(b []byte) (int, error) {
	w.writeCookie()
	return w.ResponseWriter.Write(b)
}

// Unwrap exposes the underlying writer to http.ResponseController
func (w *cookieWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// FromContext returns the session attached by Middleware, or nil
func FromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(contextkeys.SessionKey).(*Session)
	return sess
}

package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/platinummonkey/usercenter/pkg/accounts"
	"github.com/platinummonkey/usercenter/pkg/auth"
	"github.com/platinummonkey/usercenter/pkg/contextkeys"
	"github.com/platinummonkey/usercenter/pkg/httputil"
	"github.com/platinummonkey/usercenter/pkg/session"
)

// CallerResolver resolves the account bound to a session
type CallerResolver interface {
	CurrentUserOrNil(ctx context.Context, sess accounts.Session) *auth.Account
}

// AuthMiddleware attaches the logged-in account to the request.
// Anonymous requests pass through without a caller.
type AuthMiddleware struct {
	resolver CallerResolver
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(resolver CallerResolver) *AuthMiddleware {
	return &AuthMiddleware{resolver: resolver}
}

// Handler wraps an HTTP handler with caller resolution. It must run inside
// session.Manager.Middleware.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sess := session.FromContext(ctx)
		if sess == nil {
			next.ServeHTTP(w, r)
			return
		}

		if caller := m.resolver.CurrentUserOrNil(ctx, sess); caller != nil {
			ctx = contextkeys.WithCaller(ctx, caller)
			ctx = contextkeys.WithUserID(ctx, strconv.FormatInt(caller.ID, 10))
			r = r.WithContext(ctx)
		}
		next.ServeHTTP(w, r)
	})
}

// GetCaller extracts the logged-in account from the request, or nil
func GetCaller(r *http.Request) *auth.Account {
	caller, _ := r.Context().Value(contextkeys.CallerKey).(*auth.Account)
	return caller
}

// RequireRole creates middleware that admits only callers holding role.
// Anonymous callers get 401; callers with another role get 403.
func RequireRole(role auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller := GetCaller(r)
			if caller == nil {
				httputil.WriteUnauthorized(w, "not logged in")
				return
			}

			if err := auth.CheckRole(caller, role); err != nil {
				httputil.WriteNoAuth(w, auth.MessageOf(err))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

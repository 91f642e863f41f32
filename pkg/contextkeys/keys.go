// Package contextkeys defines the request-scoped values shared between the
// session, auth and logging middleware. Keeping every key in one package lets
// packages that cannot import each other agree on them.
//
//	ctx = contextkeys.WithCaller(ctx, account)
//	account, _ := ctx.Value(contextkeys.CallerKey).(*auth.Account)
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// CallerKey contains *auth.Account
	// Set by: middleware.AuthMiddleware (pkg/middleware/auth.go)
	// Required by: RequireRole, handlers that need the logged-in account
	// Type: *auth.Account
	CallerKey Key = "caller"

	// SessionKey contains *session.Session
	// Set by: session.Manager.Middleware (pkg/session/manager.go)
	// Required by: every handler that logs in, logs out or resolves the caller
	// Type: *session.Session
	SessionKey Key = "session"

	// RequestIDKey contains request ID string (UUID)
	// Set by: httputil.RequestIDMiddleware
	// Used by: Logger, audit trail
	// Type: string
	RequestIDKey Key = "request_id"

	// UserIDKey contains user ID string
	// Set by: Auth middleware after resolving the caller
	// Used by: Logger, audit trail
	// Type: string
	UserIDKey Key = "user_id"

	// ClientIPKey contains the client address string
	// Set by: httputil.RequestIDMiddleware
	// Used by: audit trail, rate limiting
	// Type: string
	ClientIPKey Key = "client_ip"

	// LoggerKey contains *observability.Logger
	// Set by: httputil.LoggingMiddleware
	// Used by: observability.GetLogger
	// Type: *observability.Logger
	LoggerKey Key = "logger"
)

// WithCaller adds the resolved caller to the context
func WithCaller(ctx context.Context, caller interface{}) context.Context {
	return context.WithValue(ctx, CallerKey, caller)
}

// WithSession adds the request session to the context
func WithSession(ctx context.Context, sess interface{}) context.Context {
	return context.WithValue(ctx, SessionKey, sess)
}

// WithRequestID adds request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithUserID adds user ID to the context
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// WithLogger adds logger to the context
func WithLogger(ctx context.Context, logger interface{}) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// GetRequestID returns the request ID, or "" outside a request
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// GetUserID returns the caller id set by the auth middleware, or ""
func GetUserID(ctx context.Context) string {
	if userID, ok := ctx.Value(UserIDKey).(string); ok {
		return userID
	}
	return ""
}

// WithClientIP adds the client address to the context
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ClientIPKey, ip)
}

// GetClientIP retrieves the client address from context
func GetClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(ClientIPKey).(string); ok {
		return ip
	}
	return ""
}

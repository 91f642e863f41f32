// Package middleware provides HTTP middleware for caller resolution, role gates and rate limiting.
//
// # Overview
//
// AuthMiddleware resolves the account bound to the request session and stores it
// in the context. RequireRole gates administrative routes on that caller. The
// rate limiters protect the anonymous credential endpoints.
//
// # Middleware Components
//
// AuthMiddleware: Session-based caller resolution
//
//	router.Use(sessions.Middleware, middleware.NewAuthMiddleware(service).Handler)
//
// RequireRole: 401 without a caller, 403 with the wrong role
//
//	admin := router.NewRoute().Subrouter()
//	admin.Use(middleware.RequireRole(auth.RoleAdmin))
//
// RateLimitMiddleware: per-client-address limits over any Limiter
//
//	limiter := middleware.NewDistributedRateLimiter(redisClient, middleware.CredentialRateLimitConfig(), "ratelimit:login")
//	login := middleware.NewRateLimitMiddleware("login", limiter, metrics, logger)
//
// # Rate Limiting
//
// RateLimiter is an in-process token bucket; DistributedRateLimiter is a fixed
// window counter in Redis shared by all instances. Limiter errors admit the
// request unless SetFailOpen(false) is called.
//
// # Related Packages
//
//   - pkg/accounts: Caller resolution
//   - pkg/session: Session attached to each request
package middleware

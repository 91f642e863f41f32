// Package httputil provides the response envelope and HTTP helpers shared by the API.
//
// # Response Envelope
//
// Every response is a Response value:
//
//	{"code": 0, "data": {...}, "message": "ok"}
//
// Code is 0 on success and one of the Code* constants otherwise.
// WriteAccountError maps an auth.Error kind to its HTTP status and code and
// writes only the caller-safe message.
//
// # Request Parsing
//
//	var req accounts.LoginRequest
//	if !httputil.ParseJSONOrError(w, r, &req) {
//		return // Error response already written
//	}
//
//	id, ok := httputil.ParseQueryInt64OrError(w, r, "id", 0)
//
// # Middleware
//
//	httputil.Chain(
//		httputil.RecoveryMiddleware(logger),
//		httputil.RequestIDMiddleware,
//		httputil.LoggingMiddleware(logger),
//		httputil.CORSMiddleware(origins),
//		httputil.MaxBytesMiddleware(1<<20),
//	)
//
// # Related Packages
//
//   - pkg/middleware: Caller resolution, role gates and rate limiting
package httputil

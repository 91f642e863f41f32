// Package api provides the HTTP API of the user center.
//
// # Routes
//
// All routes live under /api/user and answer with the httputil.Response envelope:
//
//	POST /register           register an account (rate limited)
//	POST /login              credential login (rate limited)
//	GET  /login/wx_open      third-party login with ?code=
//	GET  /link/wx_open       link a third-party identity to the logged-in account
//	POST /logout             clear the session binding
//	GET  /get/login          the logged-in account
//	POST /session/refresh    re-read the logged-in account into the session
//	POST /update/my          update the caller's profile
//	GET  /get/vo             public view by ?id=
//	POST /list/page/vo       page of public views, at most 20 per page
//
// Administrator routes are wrapped in middleware.RequireRole(auth.RoleAdmin):
//
//	POST /add                create an account with the default password
//	POST /delete             delete by id
//	POST /update             update any field, including the role
//	GET  /get                full record by ?id=
//	POST /list/page          page of full records
//
// # Middleware
//
// NewServer installs, outermost first: request id and client address, request
// logging, panic recovery, Prometheus metrics, CORS, body size and content type
// checks, the session cookie, and caller resolution.
//
// # Usage
//
//	srv := api.NewServer(api.ServerConfig{
//		Service:  service,
//		Sessions: session.NewManager(store, session.DefaultConfig()),
//		Logger:   logger,
//	})
//	http.ListenAndServe(":8080", srv)
package api

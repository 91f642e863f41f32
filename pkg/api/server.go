package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/usercenter/pkg/accounts"
	"github.com/platinummonkey/usercenter/pkg/httputil"
	"github.com/platinummonkey/usercenter/pkg/middleware"
	"github.com/platinummonkey/usercenter/pkg/observability"
	"github.com/platinummonkey/usercenter/pkg/session"
	"github.com/platinummonkey/usercenter/pkg/swagger"
)

// DefaultMaxBodyBytes bounds request bodies
const DefaultMaxBodyBytes = 1 << 20

// ServerConfig wires the API server
type ServerConfig struct {
	Service  *accounts.Service
	Sessions *session.Manager
	Logger   *observability.Logger
	// Metrics may be nil
	Metrics *observability.Metrics
	// CredentialLimit rate limits register and login; nil disables it
	CredentialLimit *middleware.RateLimitMiddleware
	// CORSOrigins enables CORS for the listed origins when non-empty
	CORSOrigins  []string
	MaxBodyBytes int64
	// Docs serves the OpenAPI document and Swagger UI
	Docs bool
}

// Server represents our API server
type Server struct {
	router  *mux.Router
	handler http.Handler
}

// NewServer creates the API server with account routes and the request middleware chain
func NewServer(cfg ServerConfig) *Server {
	if cfg.Logger == nil {
		cfg.Logger = observability.NewNopLogger()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}

	s := &Server{router: mux.NewRouter()}
	s.router.NotFoundHandler = http.HandlerFunc(notFound)
	s.RegisterRoutes(NewAccountHandlers(cfg.Service, cfg.CredentialLimit))
	if cfg.Docs {
		s.RegisterRoutes(swagger.NewSwaggerHandlers())
	}

	// Outermost first
	chain := []func(http.Handler) http.Handler{
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(cfg.Logger),
		httputil.RecoveryMiddleware(cfg.Logger),
	}
	if cfg.Metrics != nil {
		chain = append(chain, observability.HTTPMetricsMiddleware(cfg.Metrics))
	}
	if len(cfg.CORSOrigins) > 0 {
		chain = append(chain, httputil.CORSMiddleware(cfg.CORSOrigins))
	}
	chain = append(chain,
		httputil.MaxBytesMiddleware(cfg.MaxBodyBytes),
		httputil.ContentTypeMiddleware,
		cfg.Sessions.Middleware,
		middleware.NewAuthMiddleware(cfg.Service).Handler,
	)
	s.handler = httputil.Chain(chain...)(s.router)
	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Router returns the underlying router
func (s *Server) Router() *mux.Router {
	return s.router
}

// RouteRegistrar is an interface for types that can register routes
type RouteRegistrar interface {
	RegisterRoutes(router *mux.Router)
}

// RegisterRoutes registers routes from a RouteRegistrar
func (s *Server) RegisterRoutes(registrar RouteRegistrar) {
	registrar.RegisterRoutes(s.router)
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteErrorCode(w, http.StatusNotFound, httputil.CodeNotFound, "not found")
}

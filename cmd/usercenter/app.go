package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/usercenter/pkg/accounts"
	"github.com/platinummonkey/usercenter/pkg/api"
	"github.com/platinummonkey/usercenter/pkg/config"
	"github.com/platinummonkey/usercenter/pkg/middleware"
	"github.com/platinummonkey/usercenter/pkg/observability"
	"github.com/platinummonkey/usercenter/pkg/session"
	"github.com/platinummonkey/usercenter/pkg/sso"
	"github.com/platinummonkey/usercenter/pkg/storage/backend"
	"github.com/platinummonkey/usercenter/pkg/storage/redisclient"
)

const (
	limiterCleanupSchedule = "@every 1m"
	poolStatsSchedule      = "@every 15s"
)

// application holds every long-lived component of the server
type application struct {
	cfg     *config.Config
	logger  *observability.Logger
	metrics *observability.Metrics

	registry *prometheus.Registry
	backend  *backend.Backend
	redis    *redisclient.Client

	sessions       *session.Manager
	memorySessions *session.MemoryStore
	localLimiter   *middleware.RateLimiter
	credentialRate *middleware.RateLimitMiddleware

	service *accounts.Service
	health  *observability.HealthChecker
	cron    *cron.Cron

	apiHandler    http.Handler
	healthHandler http.Handler
	shutdown      *observability.ShutdownManager
}

// newApplication opens every backend and wires the handlers. Anything opened
// is registered with the shutdown manager, which the caller must run.
func newApplication(ctx context.Context, cfg *config.Config, logger *observability.Logger) (app *application, err error) {
	app = &application{
		cfg:      cfg,
		logger:   logger,
		health:   observability.NewHealthChecker(),
		cron:     cron.New(),
		shutdown: observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout),
	}
	defer func() {
		if err != nil {
			_ = app.shutdown.Shutdown(context.Background())
		}
	}()

	if cfg.Observability.MetricsEnabled {
		app.registry = prometheus.NewRegistry()
		app.metrics = observability.NewMetrics(app.registry)
	}

	app.backend, err = backend.Open(ctx, cfg.Storage, logger)
	if err != nil {
		return app, fmt.Errorf("failed to open storage: %w", err)
	}
	app.shutdown.RegisterCloser("storage", app.backend)
	app.backend.RegisterHealth(app.health)

	if app.needsRedis() {
		app.redis, err = redisclient.New(cfg.Storage)
		if err != nil {
			return app, err
		}
		app.shutdown.RegisterCloser("redis", app.redis)
		app.health.AddRedis("redis", app.redis.Redis(), cfg.Session.Store == config.BackendRedis)
	}

	app.sessions = session.NewManager(app.sessionStore(), session.Config{
		CookieName: cfg.Session.CookieName,
		TTL:        cfg.Session.TTL,
		Secure:     cfg.Session.Secure,
	})

	if cfg.RateLimit.Enabled {
		app.credentialRate = middleware.NewRateLimitMiddleware("credentials", app.limiter(), app.metrics, logger)
		app.credentialRate.SetFailOpen(cfg.RateLimit.FailOpen)
	}

	var provider accounts.ProfileProvider
	if cfg.SSO.Enabled {
		p, err := sso.NewProvider(ctx, &cfg.SSO)
		if err != nil {
			return app, fmt.Errorf("failed to initialize %s provider: %w", cfg.SSO.Name, err)
		}
		logger.Infof("third-party login enabled with %s", p.Name())
		provider = p
	}

	app.service = accounts.NewService(app.backend.Store, provider, accounts.Config{
		Salt:              cfg.Accounts.Salt,
		MaxPublicPageSize: cfg.Accounts.MaxPublicPageSize,
		PublicCacheSize:   cfg.Accounts.PublicCacheSize,
		PublicCacheTTL:    cfg.Accounts.PublicCacheTTL,
	}, logger, app.metrics)

	server := api.NewServer(api.ServerConfig{
		Service:         app.service,
		Sessions:        app.sessions,
		Logger:          logger,
		Metrics:         app.metrics,
		CredentialLimit: app.credentialRate,
		CORSOrigins:     cfg.Server.CORSOrigins,
		MaxBodyBytes:    cfg.Server.MaxBodyBytes,
		Docs:            cfg.Server.APIDocs,
	})
	app.apiHandler = observability.InstrumentHandler(server, cfg.Observability.OTelServiceName)

	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, app.health)
	if app.registry != nil {
		observability.RegisterMetricsEndpoint(healthMux, app.registry)
	}
	app.healthHandler = healthMux

	if err := app.scheduleJobs(); err != nil {
		return app, err
	}
	return app, nil
}

func (a *application) needsRedis() bool {
	return a.cfg.Session.Store == config.BackendRedis ||
		(a.cfg.RateLimit.Enabled && a.cfg.RateLimit.Backend == config.BackendRedis)
}

func (a *application) sessionStore() session.Store {
	if a.cfg.Session.Store == config.BackendRedis {
		return session.NewRedisStore(a.redis.Redis(), a.cfg.Session.TTL)
	}
	a.memorySessions = session.NewMemoryStore(a.cfg.Session.TTL)
	return a.memorySessions
}

func (a *application) limiter() middleware.Limiter {
	rl := &middleware.RateLimitConfig{
		RequestsPerWindow: a.cfg.RateLimit.RequestsPerWindow,
		WindowDuration:    a.cfg.RateLimit.WindowDuration,
		BurstSize:         a.cfg.RateLimit.BurstSize,
	}
	if a.cfg.RateLimit.Backend == config.BackendRedis {
		return middleware.NewDistributedRateLimiter(a.redis.Redis(), rl, "usercenter:ratelimit")
	}
	a.localLimiter = middleware.NewRateLimiter(rl)
	return a.localLimiter
}

// scheduleJobs registers the housekeeping jobs; the scheduler starts in serve
func (a *application) scheduleJobs() error {
	if a.memorySessions != nil {
		if err := a.addJob("session sweep", a.cfg.Session.SweepSchedule, func() {
			if n := a.memorySessions.Sweep(); n > 0 {
				a.logger.Debugf("evicted %d expired sessions", n)
			}
		}); err != nil {
			return err
		}
	}
	if a.localLimiter != nil {
		if err := a.addJob("rate limit cleanup", limiterCleanupSchedule, func() {
			if n := a.localLimiter.Cleanup(); n > 0 {
				a.logger.Debugf("dropped %d idle rate limit buckets", n)
			}
		}); err != nil {
			return err
		}
	}
	if a.metrics != nil && a.backend.DB != nil {
		if err := a.addJob("pool stats", poolStatsSchedule, func() {
			a.backend.RecordPoolStats(a.metrics)
		}); err != nil {
			return err
		}
	}
	return nil
}

func (a *application) addJob(name, spec string, fn func()) error {
	_, err := a.cron.AddFunc(spec, func() {
		defer observability.RecoverPanic(a.logger, name)
		fn()
	})
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", name, err)
	}
	return nil
}

// serve runs the API and health servers until ctx is cancelled or a server
// fails, then shuts everything down
func (a *application) serve(ctx context.Context, apiListener, healthListener net.Listener) error {
	apiServer := &http.Server{
		Handler:      a.apiHandler,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
		IdleTimeout:  a.cfg.Server.IdleTimeout,
	}
	healthServer := &http.Server{
		Handler:     a.healthHandler,
		ReadTimeout: a.cfg.Server.ReadTimeout,
	}

	a.cron.Start()
	a.shutdown.Register("scheduler", func(ctx context.Context) error {
		select {
		case <-a.cron.Stop().Done():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	a.shutdown.RegisterServer("health server", healthServer)
	a.shutdown.RegisterServer("api server", apiServer)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Infof("api listening on %s", apiListener.Addr())
		return serveHTTP(apiServer, apiListener)
	})
	g.Go(func() error {
		a.logger.Infof("health and metrics listening on %s", healthListener.Addr())
		return serveHTTP(healthServer, healthListener)
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutting down")
		return a.shutdown.Shutdown(context.Background())
	})
	return g.Wait()
}

func serveHTTP(server *http.Server, listener net.Listener) error {
	if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

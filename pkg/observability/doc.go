// Package observability provides structured logging, Prometheus metrics,
// health checks, OpenTelemetry tracing and graceful shutdown for the user center.
//
// # Structured Logging
//
// Logger writes JSON lines through log/slog. The level is shared by every
// derived logger and can change at runtime:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("account", "alice").Info("registered")
//	logger.SetLevel(observability.DebugLevel)
//
// FromContext returns the request logger with request_id and user_id attached.
//
// # Prometheus Metrics
//
//	metrics := observability.NewMetrics(registry)
//	handler = observability.HTTPMetricsMiddleware(metrics)(handler)
//	observability.RegisterMetricsEndpoint(mux, registry)
//
// # Health Checks
//
//	checker := observability.NewHealthChecker()
//	checker.AddDatabase("postgres", db)
//	checker.AddRedis("sessions", redisClient, true)
//	observability.RegisterHealthRoutes(mux, checker)
//
// # OpenTelemetry
//
//	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
//		Enabled:     true,
//		Endpoint:    "otel-collector:4317",
//		ServiceName: "usercenter",
//	}, logger)
//	handler = observability.InstrumentHandler(handler, "usercenter")
//
// # Shutdown
//
//	shutdown := observability.NewShutdownManager(logger, 30*time.Second)
//	shutdown.RegisterCloser("store", store)
//	shutdown.RegisterServer("http", server)
//	err := shutdown.Shutdown(context.Background())
package observability

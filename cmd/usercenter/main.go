package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/platinummonkey/usercenter/pkg/async"
	"github.com/platinummonkey/usercenter/pkg/config"
	"github.com/platinummonkey/usercenter/pkg/observability"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "usercenter: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.Level(), os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Getenv(config.EnvConfigFile), logger); err != nil {
		logger.WithError(err).Error("usercenter stopped with error")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, configPath string, logger *observability.Logger) error {
	providers, err := observability.InitOTel(ctx, cfg.Observability.OTel(), logger)
	if err != nil {
		return err
	}

	app, err := newApplication(ctx, cfg, logger)
	if err != nil {
		_ = providers.Shutdown(context.Background())
		return err
	}
	// Registered before the servers so spans from drained requests are still exported.
	app.shutdown.Register("opentelemetry", providers.Shutdown)

	if configPath != "" {
		async.SafeGo(ctx, logger, 0, "config watch", func(ctx context.Context) error {
			return config.Watch(ctx, configPath, logger, func(updated *config.Config) {
				logger.SetLevel(updated.Observability.Level())
				logger.Infof("log level set to %s", updated.Observability.Level())
			})
		})
	}

	apiListener, err := net.Listen("tcp", net.JoinHostPort(cfg.Server.Host, cfg.Server.Port))
	if err != nil {
		_ = app.shutdown.Shutdown(context.Background())
		return fmt.Errorf("failed to listen on api port: %w", err)
	}
	healthListener, err := net.Listen("tcp", net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort))
	if err != nil {
		apiListener.Close()
		_ = app.shutdown.Shutdown(context.Background())
		return fmt.Errorf("failed to listen on health port: %w", err)
	}

	return app.serve(ctx, apiListener, healthListener)
}

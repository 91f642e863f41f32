// Package backend opens the account store selected by storage.Config.
package backend

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/platinummonkey/usercenter/pkg/observability"
	"github.com/platinummonkey/usercenter/pkg/storage"
	"github.com/platinummonkey/usercenter/pkg/storage/memory"
	"github.com/platinummonkey/usercenter/pkg/storage/postgres"
	"github.com/platinummonkey/usercenter/pkg/storage/sqlite"
)

// Storage types
const (
	TypeMemory   = "memory"
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
)

// Backend is an open account store and the handles behind it
type Backend struct {
	Store storage.AccountStore
	// DB is the primary handle for SQL backends, nil for memory
	DB *sql.DB
	// Connections is set for postgres
	Connections *postgres.ConnectionManager

	closeFn func() error
}

// Open connects to the configured backend and applies the schema
func Open(ctx context.Context, cfg storage.Config, logger *observability.Logger) (*Backend, error) {
	if logger == nil {
		logger = observability.NewNopLogger()
	}

	switch cfg.Type {
	case "", TypeMemory:
		logger.Warn("using in-memory account storage; accounts are lost on restart")
		return &Backend{Store: memory.New()}, nil

	case TypeSQLite:
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Infof("using sqlite account storage at %s", cfg.SQLitePath)
		return &Backend{
			Store:   sqlite.NewAccountStore(db),
			DB:      db,
			closeFn: db.Close,
		}, nil

	case TypePostgres:
		cm, err := postgres.NewConnectionManager(postgres.ConnectionConfig{
			PrimaryURL:  cfg.PostgresURL,
			ReplicaURLs: postgres.ParseReplicaURLs(cfg.PostgresReplicaURLs),
			MaxConns:    cfg.PostgresMaxConns,
			MinConns:    cfg.PostgresMinConns,
			Timeout:     cfg.PostgresTimeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, cm.Primary()); err != nil {
			cm.Close()
			return nil, err
		}
		return &Backend{
			Store:       postgres.NewAccountStore(cm),
			DB:          cm.Primary(),
			Connections: cm,
			closeFn:     cm.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

// RegisterHealth adds the backend to checker
func (b *Backend) RegisterHealth(checker *observability.HealthChecker) {
	if b.DB != nil {
		checker.AddDatabase("database", b.DB)
		return
	}
	checker.AddCheck("database", true, b.Store.HealthCheck)
}

// RecordPoolStats copies primary pool gauges into metrics
func (b *Backend) RecordPoolStats(metrics *observability.Metrics) {
	if b.DB == nil {
		return
	}
	stats := b.DB.Stats()
	metrics.UpdateDBStats(stats.InUse, stats.Idle)
}

// Close releases the backend's connections
func (b *Backend) Close() error {
	if b.closeFn == nil {
		return nil
	}
	return b.closeFn()
}

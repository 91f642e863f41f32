// Package sqlite provides a single-node account store backed by SQLite.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/platinummonkey/usercenter/pkg/storage/sqlstore"
)

//go:embed schema.sql
var schema string

// Dialect is the SQLite SQL dialect
type Dialect struct{}

// Name returns the backend name
func (Dialect) Name() string { return "sqlite" }

// Placeholder returns ?
func (Dialect) Placeholder(int) string { return "?" }

// IsUniqueViolation reports whether err is a SQLite unique constraint failure
func (Dialect) IsUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// Open opens the database at path and applies the schema.
// SQLite serialises writers, so the pool is limited to one connection.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	db, err := sql.Open("sqlite3", path+sep+"_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate creates the accounts schema if it does not exist
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// NewAccountStore creates an account store on db
func NewAccountStore(db *sql.DB) *sqlstore.Store {
	return sqlstore.New(db, Dialect{})
}

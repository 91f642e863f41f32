package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strconv"

	"github.com/lib/pq"

	"github.com/platinummonkey/usercenter/pkg/storage/sqlstore"
)

//go:embed schema.sql
var schema string

// uniqueViolation is the SQLSTATE for unique_violation
const uniqueViolation = "23505"

// Dialect is the PostgreSQL SQL dialect
type Dialect struct{}

// Name returns the backend name
func (Dialect) Name() string { return "postgres" }

// Placeholder returns $n
func (Dialect) Placeholder(n int) string { return "$" + strconv.Itoa(n) }

// IsUniqueViolation reports whether err is a PostgreSQL unique violation
func (Dialect) IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolation
	}
	return false
}

// NewAccountStore creates an account store on the primary, listing from replicas
func NewAccountStore(cm *ConnectionManager) *sqlstore.Store {
	return sqlstore.New(cm.Primary(), Dialect{}).WithReadDB(cm.Replica)
}

// Migrate creates the accounts schema if it does not exist
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

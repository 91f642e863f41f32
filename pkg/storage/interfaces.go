package storage

import (
	"context"
	"errors"
	"time"

	"github.com/platinummonkey/usercenter/pkg/auth"
)

var (
	// ErrDuplicate is returned when an insert or update violates a unique index
	ErrDuplicate = errors.New("duplicate key")
	// ErrNotFound is returned when a row addressed by id does not exist
	ErrNotFound = errors.New("not found")
)

// AccountStore is the persistence gateway for accounts.
// Implementations must enforce uniqueness of non-empty UserAccount and UnionID
// values with a store-level constraint and report violations as ErrDuplicate.
type AccountStore interface {
	// FindOne returns the first account matching the filter, or nil when none does
	FindOne(ctx context.Context, filter AccountFilter) (*auth.Account, error)
	// Count returns the number of accounts matching the filter
	Count(ctx context.Context, filter AccountFilter) (int64, error)
	// Insert stores a new account and returns its id
	Insert(ctx context.Context, account *auth.Account) (int64, error)
	// UpdateByID applies the non-nil fields of patch; returns ErrNotFound for unknown ids
	UpdateByID(ctx context.Context, id int64, patch AccountPatch) error
	// DeleteByID removes an account; returns ErrNotFound for unknown ids
	DeleteByID(ctx context.Context, id int64) error
	// Page returns one page of matching accounts and the total match count
	Page(ctx context.Context, query PageQuery) ([]*auth.Account, int64, error)
	// HealthCheck verifies the backend is reachable
	HealthCheck(ctx context.Context) error
}

// AccountFilter selects accounts. Zero values are ignored.
// UserName and UserProfile match as substrings; everything else matches exactly.
type AccountFilter struct {
	ID           int64
	UserAccount  string
	UserPassword string
	UnionID      string
	MpOpenID     string
	UserRole     auth.Role
	UserSex      *int
	UserName     string
	UserProfile  string
}

// AccountPatch holds the fields to change; nil fields are left untouched
type AccountPatch struct {
	UnionID     *string
	MpOpenID    *string
	UserName    *string
	UserAvatar  *string
	UserProfile *string
	UserSex     *int
	UserRole    *auth.Role
}

// Empty reports whether the patch changes nothing
func (p AccountPatch) Empty() bool {
	return p.UnionID == nil && p.MpOpenID == nil && p.UserName == nil && p.UserAvatar == nil &&
		p.UserProfile == nil && p.UserSex == nil && p.UserRole == nil
}

// SortOrderAscend selects ascending order; any other value sorts descending
const SortOrderAscend = "ascend"

// PageQuery is a filtered, sorted page request
type PageQuery struct {
	Filter    AccountFilter
	Current   int64
	PageSize  int64
	SortField string
	SortOrder string
}

// Offset returns the row offset of the page
func (q PageQuery) Offset() int64 {
	if q.Current < 1 {
		return 0
	}
	return (q.Current - 1) * q.PageSize
}

// sortColumns maps sortable field names to column names
var sortColumns = map[string]string{
	"id":          "id",
	"userAccount": "user_account",
	"userName":    "user_name",
	"userRole":    "user_role",
	"userSex":     "user_sex",
	"createTime":  "create_time",
	"updateTime":  "update_time",
}

// SortColumn returns the column for a sortable field, or false for unknown fields
func SortColumn(field string) (string, bool) {
	col, ok := sortColumns[field]
	return col, ok
}

// Config for storage backend
type Config struct {
	Type string `yaml:"type"` // "postgres", "sqlite", "memory"

	// PostgreSQL config
	PostgresURL         string        `yaml:"postgres_url"`
	PostgresReplicaURLs string        `yaml:"postgres_replica_urls"`
	PostgresMaxConns    int           `yaml:"postgres_max_conns"`
	PostgresMinConns    int           `yaml:"postgres_min_conns"`
	PostgresTimeout     time.Duration `yaml:"postgres_timeout"`

	// SQLite config
	SQLitePath string `yaml:"sqlite_path"`

	// Redis config
	RedisURL        string `yaml:"redis_url"`
	RedisPassword   string `yaml:"redis_password"`
	RedisDB         int    `yaml:"redis_db"`
	RedisMaxRetries int    `yaml:"redis_max_retries"`
	RedisPoolSize   int    `yaml:"redis_pool_size"`
}

// DefaultConfig returns the default storage configuration
func DefaultConfig() Config {
	return Config{
		Type:             "memory",
		PostgresMaxConns: 20,
		PostgresMinConns: 5,
		PostgresTimeout:  10 * time.Second,
		SQLitePath:       "usercenter.db",
		RedisDB:          -1,
	}
}

// Package storage defines the persistence gateway for user accounts.
//
// # Overview
//
// AccountStore is the only contract the account service depends on. It offers
// filtered lookup, counting, insertion, partial update by id, deletion by id and
// paged listing. Backends live in sub-packages:
//
//   - sqlstore: shared SQL implementation over database/sql
//   - postgres: PostgreSQL dialect, schema and a primary/replica connection manager
//   - sqlite: single-node SQLite dialect and schema
//   - memory: in-process store for tests and local development
//   - redisclient: Redis connection used by sessions and rate limiting
//
// # Uniqueness
//
// Every backend enforces uniqueness of non-empty UserAccount and UnionID values.
// The account service serialises registration per identifier inside one process,
// but only the store constraint holds across processes. A violation is reported as
// ErrDuplicate so callers can tell a lost race from a failure:
//
//	_, err := store.Insert(ctx, account)
//	if errors.Is(err, storage.ErrDuplicate) {
//		// someone else registered the identifier first
//	}
//
// Empty identifiers are stored as NULL and never collide.
//
// # Filters
//
// AccountFilter fields are ignored when zero. UserName and UserProfile match as
// substrings with LIKE wildcards escaped; every other field matches exactly.
//
// # Paging
//
// PageQuery.Current is 1-based. SortField must name one of the sortable fields
// (id, userAccount, userName, userRole, userSex, createTime, updateTime); unknown
// fields fall back to id order so client input never reaches the SQL text.
// SortOrder "ascend" sorts ascending and anything else sorts descending.
//
// # Configuration
//
//	config := storage.DefaultConfig()
//	config.Type = "postgres"
//	config.PostgresURL = "postgres://localhost/usercenter"
//	config.PostgresReplicaURLs = "postgres://replica1/usercenter,postgres://replica2/usercenter"
//	config.RedisURL = "redis://localhost:6379"
//
// Replicas only serve paged listings. Lookups that decide identity, such as the
// duplicate check during registration, always read the primary.
package storage

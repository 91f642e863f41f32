// Package sqlstore implements storage.AccountStore on database/sql.
//
// The SQL is shared between backends; a Dialect supplies placeholder syntax and
// recognises unique-constraint violations so they surface as storage.ErrDuplicate.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/platinummonkey/usercenter/pkg/auth"
	"github.com/platinummonkey/usercenter/pkg/storage"
)

// Dialect captures the differences between SQL backends
type Dialect interface {
	// Name identifies the backend in metrics and errors
	Name() string
	// Placeholder returns the bind parameter for the n-th (1-based) argument
	Placeholder(n int) string
	// IsUniqueViolation reports whether err is a unique constraint violation
	IsUniqueViolation(err error) bool
}

const accountColumns = `id, user_account, user_password, union_id, mp_open_id, user_name, user_avatar,
		user_profile, user_sex, user_role, create_time, update_time`

var _ storage.AccountStore = (*Store)(nil)

// Store is a SQL-backed account store
type Store struct {
	db      *sql.DB
	readDB  func() *sql.DB
	dialect Dialect
	now     func() time.Time
}

// New creates a store over an open database handle
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{
		db:      db,
		dialect: dialect,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithReadDB routes page listings to the handle returned by read.
// Lookups used for identity checks always stay on the primary handle.
func (s *Store) WithReadDB(read func() *sql.DB) *Store {
	s.readDB = read
	return s
}

func (s *Store) reader() *sql.DB {
	if s.readDB != nil {
		if db := s.readDB(); db != nil {
			return db
		}
	}
	return s.db
}

// DB returns the underlying database handle
func (s *Store) DB() *sql.DB {
	return s.db
}

// FindOne returns the first account matching the filter, or nil when none does
func (s *Store) FindOne(ctx context.Context, filter storage.AccountFilter) (*auth.Account, error) {
	w := s.where(filter)
	query := fmt.Sprintf("SELECT %s FROM users%s ORDER BY id ASC LIMIT 1", accountColumns, w.sql())

	row := s.db.QueryRowContext(ctx, query, w.args...)
	account, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	return account, nil
}

// Count returns the number of accounts matching the filter
func (s *Store) Count(ctx context.Context, filter storage.AccountFilter) (int64, error) {
	return s.count(ctx, s.db, filter)
}

func (s *Store) count(ctx context.Context, db *sql.DB, filter storage.AccountFilter) (int64, error) {
	w := s.where(filter)
	var count int64
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users"+w.sql(), w.args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count accounts: %w", err)
	}
	return count, nil
}

// Insert stores a new account and returns its id
func (s *Store) Insert(ctx context.Context, account *auth.Account) (int64, error) {
	if account.UserRole == "" {
		account.UserRole = auth.DefaultRole
	}
	now := s.now()

	args := []interface{}{
		nullString(account.UserAccount),
		nullString(account.UserPassword),
		nullString(account.UnionID),
		nullString(account.MpOpenID),
		nullString(account.UserName),
		nullString(account.UserAvatar),
		nullString(account.UserProfile),
		nullInt(account.UserSex),
		string(account.UserRole),
		now,
		now,
	}
	placeholders := make([]string, len(args))
	for i := range args {
		placeholders[i] = s.dialect.Placeholder(i + 1)
	}

	query := fmt.Sprintf(`INSERT INTO users (user_account, user_password, union_id, mp_open_id, user_name,
		user_avatar, user_profile, user_sex, user_role, create_time, update_time)
		VALUES (%s) RETURNING id`, strings.Join(placeholders, ", "))

	var id int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		if s.dialect.IsUniqueViolation(err) {
			return 0, fmt.Errorf("%w: %v", storage.ErrDuplicate, err)
		}
		return 0, fmt.Errorf("failed to insert account: %w", err)
	}

	account.ID = id
	account.CreateTime = now
	account.UpdateTime = now
	return id, nil
}

// UpdateByID applies the non-nil fields of patch
func (s *Store) UpdateByID(ctx context.Context, id int64, patch storage.AccountPatch) error {
	var sets []string
	var args []interface{}
	set := func(col string, v interface{}) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = %s", col, s.dialect.Placeholder(len(args))))
	}

	if patch.UnionID != nil {
		set("union_id", nullString(*patch.UnionID))
	}
	if patch.MpOpenID != nil {
		set("mp_open_id", nullString(*patch.MpOpenID))
	}
	if patch.UserName != nil {
		set("user_name", *patch.UserName)
	}
	if patch.UserAvatar != nil {
		set("user_avatar", *patch.UserAvatar)
	}
	if patch.UserProfile != nil {
		set("user_profile", *patch.UserProfile)
	}
	if patch.UserSex != nil {
		set("user_sex", *patch.UserSex)
	}
	if patch.UserRole != nil {
		set("user_role", string(*patch.UserRole))
	}
	set("update_time", s.now())

	args = append(args, id)
	query := fmt.Sprintf("UPDATE users SET %s WHERE id = %s", strings.Join(sets, ", "), s.dialect.Placeholder(len(args)))

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		if s.dialect.IsUniqueViolation(err) {
			return fmt.Errorf("%w: %v", storage.ErrDuplicate, err)
		}
		return fmt.Errorf("failed to update account %d: %w", id, err)
	}
	return requireAffected(result, id)
}

// DeleteByID removes an account
func (s *Store) DeleteByID(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE id = "+s.dialect.Placeholder(1), id)
	if err != nil {
		return fmt.Errorf("failed to delete account %d: %w", id, err)
	}
	return requireAffected(result, id)
}

// Page returns one page of matching accounts and the total match count
func (s *Store) Page(ctx context.Context, q storage.PageQuery) ([]*auth.Account, int64, error) {
	db := s.reader()
	total, err := s.count(ctx, db, q.Filter)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 || q.PageSize <= 0 {
		return []*auth.Account{}, total, nil
	}

	w := s.where(q.Filter)
	order := "id ASC"
	if col, ok := storage.SortColumn(q.SortField); ok {
		if q.SortOrder == storage.SortOrderAscend {
			order = col + " ASC"
		} else {
			order = col + " DESC"
		}
	}

	args := append(w.args, q.PageSize, q.Offset())
	query := fmt.Sprintf("SELECT %s FROM users%s ORDER BY %s LIMIT %s OFFSET %s",
		accountColumns, w.sql(), order,
		s.dialect.Placeholder(len(args)-1), s.dialect.Placeholder(len(args)))

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]*auth.Account, 0)
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate accounts: %w", err)
	}

	return accounts, total, nil
}

// HealthCheck verifies the database is reachable
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type whereBuilder struct {
	dialect Dialect
	clauses []string
	args    []interface{}
}

func (w *whereBuilder) eq(col string, v interface{}) {
	w.args = append(w.args, v)
	w.clauses = append(w.clauses, fmt.Sprintf("%s = %s", col, w.dialect.Placeholder(len(w.args))))
}

func (w *whereBuilder) like(col, v string) {
	w.args = append(w.args, "%"+escapeLike(v)+"%")
	w.clauses = append(w.clauses, fmt.Sprintf(`%s LIKE %s ESCAPE '\'`, col, w.dialect.Placeholder(len(w.args))))
}

func (w *whereBuilder) sql() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

func (s *Store) where(f storage.AccountFilter) *whereBuilder {
	w := &whereBuilder{dialect: s.dialect}
	if f.ID != 0 {
		w.eq("id", f.ID)
	}
	if f.UserAccount != "" {
		w.eq("user_account", f.UserAccount)
	}
	if f.UserPassword != "" {
		w.eq("user_password", f.UserPassword)
	}
	if f.UnionID != "" {
		w.eq("union_id", f.UnionID)
	}
	if f.MpOpenID != "" {
		w.eq("mp_open_id", f.MpOpenID)
	}
	if f.UserRole != "" {
		w.eq("user_role", string(f.UserRole))
	}
	if f.UserSex != nil {
		w.eq("user_sex", *f.UserSex)
	}
	if f.UserName != "" {
		w.like("user_name", f.UserName)
	}
	if f.UserProfile != "" {
		w.like("user_profile", f.UserProfile)
	}
	return w
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanAccount(row scanner) (*auth.Account, error) {
	var (
		a                                          auth.Account
		userAccount, userPassword, unionID, openID sql.NullString
		userName, userAvatar, userProfile          sql.NullString
		userSex                                    sql.NullInt64
		userRole                                   string
	)
	err := row.Scan(&a.ID, &userAccount, &userPassword, &unionID, &openID, &userName, &userAvatar,
		&userProfile, &userSex, &userRole, &a.CreateTime, &a.UpdateTime)
	if err != nil {
		return nil, err
	}

	a.UserAccount = userAccount.String
	a.UserPassword = userPassword.String
	a.UnionID = unionID.String
	a.MpOpenID = openID.String
	a.UserName = userName.String
	a.UserAvatar = userAvatar.String
	a.UserProfile = userProfile.String
	if userSex.Valid {
		sex := int(userSex.Int64)
		a.UserSex = &sex
	}
	a.UserRole = auth.Role(userRole)
	return &a, nil
}

func requireAffected(result sql.Result, id int64) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("account %d: %w", id, storage.ErrNotFound)
	}
	return nil
}

// Empty identifiers are stored as NULL so the unique indexes ignore them
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

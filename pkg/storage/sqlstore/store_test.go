package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strconv"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/usercenter/pkg/auth"
	"github.com/platinummonkey/usercenter/pkg/storage"
)

var errUnique = errors.New("unique violation")

type testDialect struct{}

func (testDialect) Name() string                     { return "test" }
func (testDialect) Placeholder(n int) string         { return "$" + strconv.Itoa(n) }
func (testDialect) IsUniqueViolation(err error) bool { return errors.Is(err, errUnique) }

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock, *sql.DB) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return New(db, testDialect{}), mock, db
}

var columns = []string{"id", "user_account", "user_password", "union_id", "mp_open_id", "user_name",
	"user_avatar", "user_profile", "user_sex", "user_role", "create_time", "update_time"}

func TestFindOne(t *testing.T) {
	store, mock, db := newMockStore(t)
	defer db.Close()
	ctx := context.Background()
	now := time.Now()

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE user_account = $1 AND user_password = $2 ORDER BY id ASC LIMIT 1")).
			WithArgs("alice01", "digest").
			WillReturnRows(sqlmock.NewRows(columns).
				AddRow(7, "alice01", "digest", nil, nil, "user_123456", nil, nil, 1, "user", now, now))

		account, err := store.FindOne(ctx, storage.AccountFilter{UserAccount: "alice01", UserPassword: "digest"})
		require.NoError(t, err)
		require.NotNil(t, account)
		assert.Equal(t, int64(7), account.ID)
		assert.Equal(t, "alice01", account.UserAccount)
		assert.Equal(t, "", account.UnionID)
		require.NotNil(t, account.UserSex)
		assert.Equal(t, 1, *account.UserSex)
		assert.Equal(t, auth.RoleUser, account.UserRole)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing returns nil", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE union_id = $1")).
			WithArgs("u-1").
			WillReturnRows(sqlmock.NewRows(columns))

		account, err := store.FindOne(ctx, storage.AccountFilter{UnionID: "u-1"})
		require.NoError(t, err)
		assert.Nil(t, account)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("like filters escape wildcards", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE user_name LIKE $1 ESCAPE '\'`)).
			WithArgs(`%a\_b\%%`).
			WillReturnRows(sqlmock.NewRows(columns))

		_, err := store.FindOne(ctx, storage.AccountFilter{UserName: "a_b%"})
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query error", func(t *testing.T) {
		mock.ExpectQuery("SELECT").WillReturnError(errors.New("connection refused"))

		_, err := store.FindOne(ctx, storage.AccountFilter{ID: 1})
		assert.Error(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCount(t *testing.T) {
	store, mock, db := newMockStore(t)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users WHERE user_account = $1")).
		WithArgs("alice01").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	count, err := store.Count(context.Background(), storage.AccountFilter{UserAccount: "alice01"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsert(t *testing.T) {
	store, mock, db := newMockStore(t)
	defer db.Close()
	ctx := context.Background()

	t.Run("assigns id and default role", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
			WithArgs("alice01", "digest", nil, nil, "user_000001", nil, nil, nil, "user", sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

		account := &auth.Account{UserAccount: "alice01", UserPassword: "digest", UserName: "user_000001"}
		id, err := store.Insert(ctx, account)
		require.NoError(t, err)
		assert.Equal(t, int64(42), id)
		assert.Equal(t, int64(42), account.ID)
		assert.Equal(t, auth.RoleUser, account.UserRole)
		assert.False(t, account.CreateTime.IsZero())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unique violation maps to ErrDuplicate", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).WillReturnError(errUnique)

		_, err := store.Insert(ctx, &auth.Account{UserAccount: "alice01"})
		assert.ErrorIs(t, err, storage.ErrDuplicate)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("other errors are wrapped", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).WillReturnError(sql.ErrConnDone)

		_, err := store.Insert(ctx, &auth.Account{UserAccount: "alice01"})
		assert.ErrorIs(t, err, sql.ErrConnDone)
		assert.NotErrorIs(t, err, storage.ErrDuplicate)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUpdateByID(t *testing.T) {
	store, mock, db := newMockStore(t)
	defer db.Close()
	ctx := context.Background()
	name := "Alice"
	role := auth.RoleAdmin

	t.Run("updates provided fields", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET user_name = $1, user_role = $2, update_time = $3 WHERE id = $4")).
			WithArgs("Alice", "admin", sqlmock.AnyArg(), int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := store.UpdateByID(ctx, 7, storage.AccountPatch{UserName: &name, UserRole: &role})
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing row", func(t *testing.T) {
		mock.ExpectExec("UPDATE users").WillReturnResult(sqlmock.NewResult(0, 0))

		err := store.UpdateByID(ctx, 99, storage.AccountPatch{UserName: &name})
		assert.ErrorIs(t, err, storage.ErrNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate union id", func(t *testing.T) {
		union := "u-1"
		mock.ExpectExec("UPDATE users").WillReturnError(errUnique)

		err := store.UpdateByID(ctx, 7, storage.AccountPatch{UnionID: &union})
		assert.ErrorIs(t, err, storage.ErrDuplicate)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDeleteByID(t *testing.T) {
	store, mock, db := newMockStore(t)
	defer db.Close()
	ctx := context.Background()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM users WHERE id = $1")).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, store.DeleteByID(ctx, 7))

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM users WHERE id = $1")).
		WithArgs(int64(8)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, store.DeleteByID(ctx, 8), storage.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPage(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	t.Run("sorted page with filter", func(t *testing.T) {
		store, mock, db := newMockStore(t)
		defer db.Close()

		mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users WHERE user_role = $1")).
			WithArgs("user").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
		mock.ExpectQuery(regexp.QuoteMeta("WHERE user_role = $1 ORDER BY user_name ASC LIMIT $2 OFFSET $3")).
			WithArgs("user", int64(2), int64(2)).
			WillReturnRows(sqlmock.NewRows(columns).
				AddRow(3, "carol01", "d", nil, nil, "carol", nil, nil, nil, "user", now, now))

		accounts, total, err := store.Page(ctx, storage.PageQuery{
			Filter:    storage.AccountFilter{UserRole: auth.RoleUser},
			Current:   2,
			PageSize:  2,
			SortField: "userName",
			SortOrder: storage.SortOrderAscend,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		require.Len(t, accounts, 1)
		assert.Equal(t, "carol01", accounts[0].UserAccount)
		assert.Nil(t, accounts[0].UserSex)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown sort field falls back to id", func(t *testing.T) {
		store, mock, db := newMockStore(t)
		defer db.Close()

		mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users")).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectQuery(regexp.QuoteMeta("ORDER BY id ASC LIMIT $1 OFFSET $2")).
			WithArgs(int64(10), int64(0)).
			WillReturnRows(sqlmock.NewRows(columns).
				AddRow(1, "alice01", "d", nil, nil, "alice", nil, nil, nil, "user", now, now))

		accounts, _, err := store.Page(ctx, storage.PageQuery{Current: 1, PageSize: 10, SortField: "user_password; DROP"})
		require.NoError(t, err)
		assert.Len(t, accounts, 1)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty result skips listing", func(t *testing.T) {
		store, mock, db := newMockStore(t)
		defer db.Close()

		mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users")).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		accounts, total, err := store.Page(ctx, storage.PageQuery{Current: 1, PageSize: 10})
		require.NoError(t, err)
		assert.Zero(t, total)
		assert.NotNil(t, accounts)
		assert.Empty(t, accounts)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("listing uses the read handle", func(t *testing.T) {
		primary, primaryMock, err := sqlmock.New()
		require.NoError(t, err)
		defer primary.Close()
		replica, replicaMock, err := sqlmock.New()
		require.NoError(t, err)
		defer replica.Close()

		store := New(primary, testDialect{}).WithReadDB(func() *sql.DB { return replica })
		replicaMock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users")).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		_, _, err = store.Page(ctx, storage.PageQuery{Current: 1, PageSize: 10})
		require.NoError(t, err)
		require.NoError(t, replicaMock.ExpectationsWereMet())
		require.NoError(t, primaryMock.ExpectationsWereMet())
	})
}

func TestHealthCheck(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing()
	require.NoError(t, New(db, testDialect{}).HealthCheck(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

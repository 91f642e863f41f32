package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/usercenter/pkg/auth"
	"github.com/platinummonkey/usercenter/pkg/storage"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(context.Background(), fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestAccountStore_UniqueIdentifiers(t *testing.T) {
	store := NewAccountStore(setupTestDB(t))
	ctx := context.Background()

	_, err := store.Insert(ctx, &auth.Account{UserAccount: "alice01", UserPassword: "d"})
	require.NoError(t, err)

	_, err = store.Insert(ctx, &auth.Account{UserAccount: "alice01", UserPassword: "d"})
	assert.ErrorIs(t, err, storage.ErrDuplicate)

	// Accounts without a union id store NULL, which the unique index ignores.
	_, err = store.Insert(ctx, &auth.Account{UserAccount: "bobby01", UserPassword: "d"})
	require.NoError(t, err)

	_, err = store.Insert(ctx, &auth.Account{UnionID: "u-1", MpOpenID: "o-1"})
	require.NoError(t, err)
	_, err = store.Insert(ctx, &auth.Account{UnionID: "u-1", MpOpenID: "o-2"})
	assert.ErrorIs(t, err, storage.ErrDuplicate)

	count, err := store.Count(ctx, storage.AccountFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestAccountStore_RoundTrip(t *testing.T) {
	store := NewAccountStore(setupTestDB(t))
	ctx := context.Background()
	sex := 1

	id, err := store.Insert(ctx, &auth.Account{
		UserAccount:  "alice01",
		UserPassword: "digest",
		UserName:     "user_123456",
		UserSex:      &sex,
	})
	require.NoError(t, err)

	found, err := store.FindOne(ctx, storage.AccountFilter{ID: id})
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "alice01", found.UserAccount)
	assert.Equal(t, auth.RoleUser, found.UserRole)
	require.NotNil(t, found.UserSex)
	assert.Equal(t, 1, *found.UserSex)
	assert.False(t, found.CreateTime.IsZero())

	profile := "hello"
	require.NoError(t, store.UpdateByID(ctx, id, storage.AccountPatch{UserProfile: &profile}))

	found, err = store.FindOne(ctx, storage.AccountFilter{UserProfile: "ell"})
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "hello", found.UserProfile)

	require.NoError(t, store.DeleteByID(ctx, id))
	assert.ErrorIs(t, store.DeleteByID(ctx, id), storage.ErrNotFound)
	assert.ErrorIs(t, store.UpdateByID(ctx, id, storage.AccountPatch{UserProfile: &profile}), storage.ErrNotFound)

	found, err = store.FindOne(ctx, storage.AccountFilter{ID: id})
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestAccountStore_Page(t *testing.T) {
	store := NewAccountStore(setupTestDB(t))
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		_, err := store.Insert(ctx, &auth.Account{
			UserAccount: fmt.Sprintf("member%02d", i),
			UserName:    fmt.Sprintf("name_%d", i),
		})
		require.NoError(t, err)
	}
	_, err := store.Insert(ctx, &auth.Account{UserAccount: "nomatch", UserName: "other"})
	require.NoError(t, err)

	accounts, total, err := store.Page(ctx, storage.PageQuery{
		Filter:    storage.AccountFilter{UserName: "name_"},
		Current:   1,
		PageSize:  2,
		SortField: "userAccount",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, accounts, 2)
	assert.Equal(t, "member05", accounts[0].UserAccount)
	assert.Equal(t, "member04", accounts[1].UserAccount)

	accounts, _, err = store.Page(ctx, storage.PageQuery{
		Filter:    storage.AccountFilter{UserName: "name_"},
		Current:   3,
		PageSize:  2,
		SortField: "userAccount",
		SortOrder: storage.SortOrderAscend,
	})
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "member05", accounts[0].UserAccount)
}

func TestDialect_IsUniqueViolation(t *testing.T) {
	assert.False(t, Dialect{}.IsUniqueViolation(nil))
	assert.False(t, Dialect{}.IsUniqueViolation(sql.ErrNoRows))
}

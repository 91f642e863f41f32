package accounts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/usercenter/pkg/auth"
	"github.com/platinummonkey/usercenter/pkg/session"
	"github.com/platinummonkey/usercenter/pkg/storage"
	"github.com/platinummonkey/usercenter/pkg/storage/memory"
)

type fakeProvider struct {
	mu       sync.Mutex
	profiles map[string]*auth.ExternalProfile
	err      error
	calls    int
}

func (p *fakeProvider) ExchangeCode(_ context.Context, code string) (*auth.ExternalProfile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	profile, ok := p.profiles[code]
	if !ok {
		return nil, errors.New("invalid code")
	}
	c := *profile
	return &c, nil
}

type testEnv struct {
	service  *Service
	store    *memory.Store
	provider *fakeProvider
	sessions *session.MemoryStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.New()
	provider := &fakeProvider{profiles: map[string]*auth.ExternalProfile{
		"code-1":   {UnionID: "union-1", OpenID: "open-1", Nickname: "wx user", AvatarURL: "https://img/1.png"},
		"code-2":   {UnionID: "union-2", OpenID: "open-2", Nickname: "other"},
		"code-bad": {UnionID: "", OpenID: "open-x"},
	}}
	return &testEnv{
		service:  NewService(store, provider, DefaultConfig(), nil, nil),
		store:    store,
		provider: provider,
		sessions: session.NewMemoryStore(time.Hour),
	}
}

func (e *testEnv) newSession(id string) *session.Session {
	return session.New(id, e.sessions)
}

func (e *testEnv) register(t *testing.T, account, password string) int64 {
	t.Helper()
	id, err := e.service.Register(context.Background(), RegisterRequest{
		UserAccount: account, UserPassword: password, CheckPassword: password,
	})
	require.NoError(t, err)
	return id
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name     string
		req      RegisterRequest
		wantKind auth.ErrorKind
	}{
		{"blank account", RegisterRequest{"", "password1", "password1"}, auth.KindInvalidArgument},
		{"whitespace password", RegisterRequest{"alice01", "        ", "        "}, auth.KindInvalidArgument},
		{"blank confirmation", RegisterRequest{"alice01", "password1", ""}, auth.KindInvalidArgument},
		{"account of length 5", RegisterRequest{"alice", "password1", "password1"}, auth.KindInvalidArgument},
		{"account of length 6", RegisterRequest{"alice0", "password1", "password1"}, ""},
		{"password of length 7", RegisterRequest{"bobby01", "passwor", "passwor"}, auth.KindInvalidArgument},
		{"confirmation of length 7", RegisterRequest{"bobby01", "password", "passwor"}, auth.KindInvalidArgument},
		{"password of length 8", RegisterRequest{"carol01", "password", "password"}, ""},
		{"mismatched passwords", RegisterRequest{"dave001", "password1", "password2"}, auth.KindInvalidArgument},
		{"multibyte account of 3 characters", RegisterRequest{"ééé", "password1", "password1"}, auth.KindInvalidArgument},
		{"multibyte password of 7 characters", RegisterRequest{"erin001", "ñññññññ", "ñññññññ"}, auth.KindInvalidArgument},
		{"multibyte account and password at the minimum", RegisterRequest{"用户名称账号", "密码密码密码密码", "密码密码密码密码"}, ""},
	}

	env := newTestEnv(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := env.service.Register(context.Background(), tt.req)
			if tt.wantKind == "" {
				require.NoError(t, err)
				assert.Positive(t, id)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, auth.KindOf(err))
		})
	}
}

func TestRegister_Duplicate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	req := RegisterRequest{UserAccount: "alice01", UserPassword: "password1", CheckPassword: "password1"}

	id, err := env.service.Register(ctx, req)
	require.NoError(t, err)
	assert.Positive(t, id)

	_, err = env.service.Register(ctx, req)
	assert.ErrorIs(t, err, auth.ErrConflict)

	stored, err := env.store.FindOne(ctx, storage.AccountFilter{ID: id})
	require.NoError(t, err)
	assert.Equal(t, auth.NewCodec("").Encode("password1"), stored.UserPassword)
	assert.Regexp(t, `^user_\d{6}$`, stored.UserName)
	assert.Equal(t, auth.RoleUser, stored.UserRole)
}

func TestRegister_Concurrent(t *testing.T) {
	env := newTestEnv(t)
	const n = 32

	var mu sync.Mutex
	var successes, conflicts int
	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			_, err := env.service.Register(context.Background(), RegisterRequest{
				UserAccount: "racer01", UserPassword: "password1", CheckPassword: "password1",
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, auth.ErrConflict):
				conflicts++
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, conflicts)
	assert.Equal(t, 1, env.store.Len())
	assert.Zero(t, env.service.accountLocks.Len(), "lock table must be empty once all callers are done")
}

// racingStore hides existing rows from Count, as a second instance would see before its insert
type racingStore struct {
	*memory.Store
}

func (s racingStore) Count(context.Context, storage.AccountFilter) (int64, error) {
	return 0, nil
}

func TestRegister_StoreConstraintIsAuthoritative(t *testing.T) {
	store := memory.New()
	service := NewService(racingStore{store}, nil, DefaultConfig(), nil, nil)
	ctx := context.Background()
	req := RegisterRequest{UserAccount: "alice01", UserPassword: "password1", CheckPassword: "password1"}

	_, err := service.Register(ctx, req)
	require.NoError(t, err)
	_, err = service.Register(ctx, req)
	assert.ErrorIs(t, err, auth.ErrConflict)
	assert.Equal(t, 1, store.Len())
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.register(t, "alice01", "password1")

	t.Run("success binds the session", func(t *testing.T) {
		sess := env.newSession("s-login")
		view, err := env.service.Login(ctx, sess, LoginRequest{UserAccount: "alice01", UserPassword: "password1"})
		require.NoError(t, err)
		assert.Equal(t, id, view.ID)
		assert.Equal(t, auth.RoleUser, view.UserRole)

		data, err := json.Marshal(view)
		require.NoError(t, err)
		assert.NotContains(t, string(data), "userPassword")

		raw, ok, err := sess.Get(ctx, auth.SessionKey)
		require.NoError(t, err)
		require.True(t, ok)
		assert.NotContains(t, string(raw), env.service.codec.Encode("password1"))

		self, err := env.service.GetSelf(ctx, sess)
		require.NoError(t, err)
		assert.Equal(t, id, self.ID)
	})

	t.Run("login moves to a new session id", func(t *testing.T) {
		sess := env.newSession("s-preset")
		require.NoError(t, sess.Set(ctx, "marker", []byte("x")))

		_, err := env.service.Login(ctx, sess, LoginRequest{UserAccount: "alice01", UserPassword: "password1"})
		require.NoError(t, err)
		assert.NotEqual(t, "s-preset", sess.ID())

		exists, err := env.sessions.Exists(ctx, "s-preset")
		require.NoError(t, err)
		assert.False(t, exists, "the pre-login session is dropped")
		assert.Nil(t, env.service.CurrentUserOrNil(ctx, env.newSession("s-preset")))
		assert.NotNil(t, env.service.CurrentUserOrNil(ctx, sess))
	})

	t.Run("wrong password", func(t *testing.T) {
		sess := env.newSession("s-wrong")
		_, err := env.service.Login(ctx, sess, LoginRequest{UserAccount: "alice01", UserPassword: "password2"})
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
		assert.Nil(t, env.service.CurrentUserOrNil(ctx, sess))
	})

	t.Run("unknown account", func(t *testing.T) {
		_, err := env.service.Login(ctx, env.newSession("s-unknown"), LoginRequest{UserAccount: "nobody01", UserPassword: "password1"})
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("validation", func(t *testing.T) {
		for _, req := range []LoginRequest{
			{UserAccount: "", UserPassword: "password1"},
			{UserAccount: "alice", UserPassword: "password1"},
			{UserAccount: "alice01", UserPassword: "passwor"},
			{UserAccount: "ééé", UserPassword: "password1"},
			{UserAccount: "alice01", UserPassword: "ñññññññ"},
		} {
			_, err := env.service.Login(ctx, env.newSession("s-invalid"), req)
			assert.ErrorIs(t, err, auth.ErrInvalidArgument)
		}
	})
}

func TestCodecRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "alice01", "password1")

	codec := auth.NewCodec(auth.DefaultSalt)
	assert.Equal(t, codec.Encode("password1"), codec.Encode("password1"))

	for _, tt := range []struct {
		password string
		ok       bool
	}{
		{"password1", true},
		{"Password1", false},
		{"password1 ", false},
	} {
		_, err := env.service.Login(ctx, env.newSession("s"), LoginRequest{UserAccount: "alice01", UserPassword: tt.password})
		assert.Equal(t, tt.ok, err == nil, tt.password)
	}
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "alice01", "password1")
	sess := env.newSession("s-logout")

	err := env.service.Logout(ctx, sess)
	assert.ErrorIs(t, err, auth.ErrOperationNotPermitted, "logout while anonymous")

	_, err = env.service.Login(ctx, sess, LoginRequest{UserAccount: "alice01", UserPassword: "password1"})
	require.NoError(t, err)

	require.NoError(t, env.service.Logout(ctx, sess))
	_, err = env.service.GetSelf(ctx, sess)
	assert.ErrorIs(t, err, auth.ErrNotAuthenticated)

	err = env.service.Logout(ctx, sess)
	assert.ErrorIs(t, err, auth.ErrOperationNotPermitted)
}

func TestCurrentUser_Anonymous(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.service.CurrentUser(ctx, nil)
	assert.ErrorIs(t, err, auth.ErrNotAuthenticated)

	sess := env.newSession("s-anon")
	_, err = env.service.CurrentUser(ctx, sess)
	assert.ErrorIs(t, err, auth.ErrNotAuthenticated)
	assert.Nil(t, env.service.CurrentUserOrNil(ctx, sess))
	assert.False(t, env.service.IsAdmin(ctx, sess))

	// A snapshot without an id is not a login
	require.NoError(t, sess.Set(ctx, auth.SessionKey, []byte(`{"userAccount":"ghost01"}`)))
	_, err = env.service.CurrentUser(ctx, sess)
	assert.ErrorIs(t, err, auth.ErrNotAuthenticated)

	require.NoError(t, sess.Set(ctx, auth.SessionKey, []byte(`not json`)))
	assert.Nil(t, env.service.CurrentUserOrNil(ctx, sess))
}

func TestLoginByExternalCode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("first login creates the account", func(t *testing.T) {
		view, err := env.service.LoginByExternalCode(ctx, env.newSession("w1"), "code-1")
		require.NoError(t, err)
		assert.Equal(t, "union-1", view.UnionID)
		assert.Equal(t, "open-1", view.MpOpenID)
		assert.Equal(t, "wx user", view.UserName)
		assert.Equal(t, "https://img/1.png", view.UserAvatar)
		assert.Equal(t, auth.RoleUser, view.UserRole)

		again, err := env.service.LoginByExternalCode(ctx, env.newSession("w2"), "code-1")
		require.NoError(t, err)
		assert.Equal(t, view.ID, again.ID)
		assert.Equal(t, 1, env.store.Len())
	})

	t.Run("blank code", func(t *testing.T) {
		_, err := env.service.LoginByExternalCode(ctx, env.newSession("w3"), " ")
		assert.ErrorIs(t, err, auth.ErrInvalidArgument)
	})

	t.Run("provider failures are opaque", func(t *testing.T) {
		for _, code := range []string{"code-unknown", "code-bad"} {
			_, err := env.service.LoginByExternalCode(ctx, env.newSession("w4"), code)
			require.Error(t, err)
			assert.Equal(t, auth.KindSystem, auth.KindOf(err))
			assert.Equal(t, "login failed, system error", auth.MessageOf(err))
		}
	})

	t.Run("no provider configured", func(t *testing.T) {
		service := NewService(memory.New(), nil, DefaultConfig(), nil, nil)
		_, err := service.LoginByExternalCode(ctx, env.newSession("w5"), "code-1")
		assert.ErrorIs(t, err, auth.ErrSystem)
	})
}

func TestLoginByExternalCode_Concurrent(t *testing.T) {
	env := newTestEnv(t)
	const n = 32

	ids := make([]int64, n)
	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			sess := env.newSession(fmt.Sprintf("wx-%d", i))
			view, err := env.service.LoginByExternalCode(context.Background(), sess, "code-1")
			if err != nil {
				return err
			}
			bound, err := env.service.CurrentUser(context.Background(), sess)
			if err != nil {
				return err
			}
			if bound.ID != view.ID {
				return fmt.Errorf("session bound to %d, view has %d", bound.ID, view.ID)
			}
			ids[i] = view.ID
			return nil
		})
	}
	require.NoError(t, g.Wait())

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	assert.Equal(t, 1, env.store.Len())
	assert.Zero(t, env.service.unionLocks.Len())
}

func TestBanAsymmetry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	view, err := env.service.LoginByExternalCode(ctx, env.newSession("b1"), "code-1")
	require.NoError(t, err)

	// A credential account banned the same way
	id := env.register(t, "banned01", "password1")
	ban := auth.RoleBan
	require.NoError(t, env.service.AdminUpdate(ctx, UpdateRequest{ID: view.ID, UserRole: &ban}))
	require.NoError(t, env.service.AdminUpdate(ctx, UpdateRequest{ID: id, UserRole: &ban}))

	_, err = env.service.LoginByExternalCode(ctx, env.newSession("b2"), "code-1")
	assert.ErrorIs(t, err, auth.ErrForbidden)

	// Credential login does not check the ban
	sess := env.newSession("b3")
	self, err := env.service.Login(ctx, sess, LoginRequest{UserAccount: "banned01", UserPassword: "password1"})
	require.NoError(t, err)
	assert.Equal(t, auth.RoleBan, self.UserRole)
}

func TestLinkExternalIdentity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "alice01", "password1")
	env.register(t, "bobby01", "password1")

	alice := env.newSession("link-alice")
	_, err := env.service.Login(ctx, alice, LoginRequest{UserAccount: "alice01", UserPassword: "password1"})
	require.NoError(t, err)
	bob := env.newSession("link-bob")
	_, err = env.service.Login(ctx, bob, LoginRequest{UserAccount: "bobby01", UserPassword: "password1"})
	require.NoError(t, err)

	_, err = env.service.LinkExternalIdentity(ctx, env.newSession("link-anon"), "code-1")
	assert.ErrorIs(t, err, auth.ErrNotAuthenticated)

	beforeLink := alice.ID()
	view, err := env.service.LinkExternalIdentity(ctx, alice, "code-1")
	require.NoError(t, err)
	assert.Equal(t, "union-1", view.UnionID)
	assert.NotEqual(t, beforeLink, alice.ID(), "linking starts a new session")

	// Relinking the same identity is allowed
	_, err = env.service.LinkExternalIdentity(ctx, alice, "code-1")
	require.NoError(t, err)

	_, err = env.service.LinkExternalIdentity(ctx, bob, "code-1")
	assert.ErrorIs(t, err, auth.ErrConflict)

	_, err = env.service.LinkExternalIdentity(ctx, alice, "code-2")
	assert.ErrorIs(t, err, auth.ErrConflict)

	// The linked identity now logs in to alice's account
	external, err := env.service.LoginByExternalCode(ctx, env.newSession("link-wx"), "code-1")
	require.NoError(t, err)
	assert.Equal(t, view.ID, external.ID)
	assert.Equal(t, "alice01", external.UserAccount)
}

func TestRefreshSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.register(t, "alice01", "password1")
	sess := env.newSession("refresh")

	_, err := env.service.RefreshSession(ctx, sess)
	assert.ErrorIs(t, err, auth.ErrNotAuthenticated)

	_, err = env.service.Login(ctx, sess, LoginRequest{UserAccount: "alice01", UserPassword: "password1"})
	require.NoError(t, err)

	admin := auth.RoleAdmin
	require.NoError(t, env.service.AdminUpdate(ctx, UpdateRequest{ID: id, UserRole: &admin}))

	// The snapshot is stale until refreshed
	assert.False(t, env.service.IsAdmin(ctx, sess))
	view, err := env.service.RefreshSession(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, auth.RoleAdmin, view.UserRole)
	assert.True(t, env.service.IsAdmin(ctx, sess))

	require.NoError(t, env.service.AdminDelete(ctx, id))
	_, err = env.service.RefreshSession(ctx, sess)
	assert.ErrorIs(t, err, auth.ErrNotAuthenticated)
	assert.Nil(t, env.service.CurrentUserOrNil(ctx, sess), "session of a deleted account is cleared")
}

func TestAdminCreate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	id, err := env.service.AdminCreate(ctx, CreateRequest{UserAccount: "staff01", UserName: "Staff"})
	require.NoError(t, err)

	created, err := env.service.AdminGetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, auth.RoleUser, created.UserRole)
	assert.Empty(t, created.UserPassword)

	_, err = env.service.Login(ctx, env.newSession("staff"), LoginRequest{UserAccount: "staff01", UserPassword: auth.DefaultPassword})
	require.NoError(t, err, "administrator-created accounts use the default password")

	_, err = env.service.AdminCreate(ctx, CreateRequest{UserAccount: "staff01"})
	assert.ErrorIs(t, err, auth.ErrConflict)

	_, err = env.service.AdminCreate(ctx, CreateRequest{UserAccount: "staff02", UserRole: "superuser"})
	assert.ErrorIs(t, err, auth.ErrInvalidArgument)

	adminID, err := env.service.AdminCreate(ctx, CreateRequest{UserAccount: "staff03", UserRole: auth.RoleAdmin})
	require.NoError(t, err)
	admin, err := env.service.AdminGetByID(ctx, adminID)
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin())
}

func TestAdminDeleteUpdateGet(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.register(t, "alice01", "password1")

	assert.ErrorIs(t, env.service.AdminDelete(ctx, 0), auth.ErrInvalidArgument)
	assert.ErrorIs(t, env.service.AdminDelete(ctx, -1), auth.ErrInvalidArgument)
	assert.ErrorIs(t, env.service.AdminDelete(ctx, 999), auth.ErrNotFound)

	assert.ErrorIs(t, env.service.AdminUpdate(ctx, UpdateRequest{}), auth.ErrInvalidArgument)
	name := "Alice"
	assert.ErrorIs(t, env.service.AdminUpdate(ctx, UpdateRequest{ID: 999, UserName: &name}), auth.ErrNotFound)
	bad := auth.Role("root")
	assert.ErrorIs(t, env.service.AdminUpdate(ctx, UpdateRequest{ID: id, UserRole: &bad}), auth.ErrInvalidArgument)
	require.NoError(t, env.service.AdminUpdate(ctx, UpdateRequest{ID: id, UserName: &name}))

	before, err := env.service.AdminGetByID(ctx, id)
	require.NoError(t, err)
	require.NoError(t, env.service.AdminUpdate(ctx, UpdateRequest{ID: id}), "an update with no fields is accepted")
	after, err := env.service.AdminGetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, before.UpdateTime, after.UpdateTime, "an update with no fields leaves the row untouched")
	assert.ErrorIs(t, env.service.AdminUpdate(ctx, UpdateRequest{ID: 999}), auth.ErrNotFound)

	_, err = env.service.AdminGetByID(ctx, 0)
	assert.ErrorIs(t, err, auth.ErrInvalidArgument)
	_, err = env.service.AdminGetByID(ctx, 999)
	assert.ErrorIs(t, err, auth.ErrNotFound)

	account, err := env.service.AdminGetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Alice", account.UserName)
	assert.Equal(t, "alice01", account.UserAccount)
	assert.Empty(t, account.UserPassword)

	require.NoError(t, env.service.AdminDelete(ctx, id))
	_, err = env.service.AdminGetByID(ctx, id)
	assert.ErrorIs(t, err, auth.ErrNotFound)
}

func TestGetPublicByID(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	view, err := env.service.LoginByExternalCode(ctx, env.newSession("p"), "code-1")
	require.NoError(t, err)

	public, err := env.service.GetPublicByID(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, "wx user", public.UserName)

	data, err := json.Marshal(public)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "union-1")
	assert.NotContains(t, string(data), "userPassword")

	// Updates invalidate the cached view
	name := "renamed"
	require.NoError(t, env.service.AdminUpdate(ctx, UpdateRequest{ID: view.ID, UserName: &name}))
	public, err = env.service.GetPublicByID(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", public.UserName)

	_, err = env.service.GetPublicByID(ctx, 0)
	assert.ErrorIs(t, err, auth.ErrInvalidArgument)
	_, err = env.service.GetPublicByID(ctx, 12345)
	assert.ErrorIs(t, err, auth.ErrNotFound)
}

func TestListPages(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for i := 0; i < 25; i++ {
		env.register(t, fmt.Sprintf("member%02d", i), "password1")
	}

	t.Run("public page size cap", func(t *testing.T) {
		_, err := env.service.ListPublicPage(ctx, QueryRequest{Current: 1, PageSize: 21})
		assert.ErrorIs(t, err, auth.ErrInvalidArgument)

		page, err := env.service.ListPublicPage(ctx, QueryRequest{Current: 1, PageSize: 20})
		require.NoError(t, err)
		assert.Len(t, page.Records, 20)
		assert.Equal(t, int64(25), page.Total)
		assert.Equal(t, int64(2), page.Pages)
	})

	t.Run("defaults", func(t *testing.T) {
		page, err := env.service.ListPublicPage(ctx, QueryRequest{})
		require.NoError(t, err)
		assert.Equal(t, int64(1), page.Current)
		assert.Equal(t, int64(10), page.Size)
		assert.Len(t, page.Records, 10)
	})

	t.Run("admin page has no size cap and no verifiers", func(t *testing.T) {
		page, err := env.service.AdminListPage(ctx, QueryRequest{Current: 1, PageSize: 50, SortField: "userAccount", SortOrder: "ascend"})
		require.NoError(t, err)
		require.Len(t, page.Records, 25)
		assert.Equal(t, "member00", page.Records[0].UserAccount)
		for _, a := range page.Records {
			assert.Empty(t, a.UserPassword)
		}
	})

	t.Run("empty page", func(t *testing.T) {
		page, err := env.service.ListPublicPage(ctx, QueryRequest{UserName: "no such name"})
		require.NoError(t, err)
		assert.NotNil(t, page.Records)
		assert.Empty(t, page.Records)
		assert.Zero(t, page.Pages)
	})

	t.Run("admin page filters by account", func(t *testing.T) {
		page, err := env.service.AdminListPage(ctx, QueryRequest{UserAccount: "member07"})
		require.NoError(t, err)
		require.Len(t, page.Records, 1)
		assert.Equal(t, "member07", page.Records[0].UserAccount)
	})

	t.Run("public page ignores private filters", func(t *testing.T) {
		_, err := env.service.LoginByExternalCode(ctx, env.newSession("wx"), "code-1")
		require.NoError(t, err)

		admin, err := env.service.AdminListPage(ctx, QueryRequest{UnionID: "union-1"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), admin.Total)

		for _, req := range []QueryRequest{
			{UnionID: "union-1"},
			{MpOpenID: "open-1"},
			{UserAccount: "member07"},
		} {
			page, err := env.service.ListPublicPage(ctx, req)
			require.NoError(t, err)
			assert.Equal(t, int64(26), page.Total, "%+v", req)
		}
	})
}

func TestUpdateSelf(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.register(t, "alice01", "password1")
	sess := env.newSession("self")

	profile := "hello"
	err := env.service.UpdateSelf(ctx, sess, UpdateSelfRequest{UserProfile: &profile})
	assert.ErrorIs(t, err, auth.ErrNotAuthenticated)

	_, err = env.service.Login(ctx, sess, LoginRequest{UserAccount: "alice01", UserPassword: "password1"})
	require.NoError(t, err)

	sex := 1
	require.NoError(t, env.service.UpdateSelf(ctx, sess, UpdateSelfRequest{UserProfile: &profile, UserSex: &sex}))

	account, err := env.service.AdminGetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "hello", account.UserProfile)
	require.NotNil(t, account.UserSex)
	assert.Equal(t, 1, *account.UserSex)
	assert.Regexp(t, `^user_\d{6}$`, account.UserName, "unset fields are left untouched")

	self, err := env.service.GetSelf(ctx, sess)
	require.NoError(t, err)
	assert.Empty(t, self.UserProfile, "the session snapshot is not refreshed implicitly")

	before, err := env.service.AdminGetByID(ctx, id)
	require.NoError(t, err)
	require.NoError(t, env.service.UpdateSelf(ctx, sess, UpdateSelfRequest{}))
	after, err := env.service.AdminGetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, before.UpdateTime, after.UpdateTime)

	require.NoError(t, env.service.AdminDelete(ctx, id))
	assert.ErrorIs(t, env.service.UpdateSelf(ctx, sess, UpdateSelfRequest{}), auth.ErrNotFound)
}

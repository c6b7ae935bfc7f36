package auth

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"expense-client/internal/kvstore"
	"expense-client/internal/mockauth"
	"expense-client/internal/models"
	"expense-client/internal/token"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type recordingNavigator struct {
	targets  []string
	hard     []string
	failPush bool
}

func (n *recordingNavigator) Navigate(_ context.Context, target string) error {
	n.targets = append(n.targets, target)
	if n.failPush {
		return errors.New("navigation aborted")
	}
	return nil
}

func (n *recordingNavigator) HardRedirect(target string) {
	n.hard = append(n.hard, target)
}

type countingAuthenticator struct {
	inner Authenticator
	calls int
}

func (c *countingAuthenticator) Login(ctx context.Context, creds mockauth.Credentials) (*mockauth.Response, error) {
	c.calls++
	return c.inner.Login(ctx, creds)
}

func (c *countingAuthenticator) Register(ctx context.Context, reg mockauth.Registration) (*mockauth.Response, error) {
	c.calls++
	return c.inner.Register(ctx, reg)
}

type stubAuthenticator struct {
	resp   *mockauth.Response
	err    error
	during func()
}

func (s stubAuthenticator) Login(context.Context, mockauth.Credentials) (*mockauth.Response, error) {
	if s.during != nil {
		s.during()
	}
	return s.resp, s.err
}

func (s stubAuthenticator) Register(context.Context, mockauth.Registration) (*mockauth.Response, error) {
	return s.resp, s.err
}

type fixture struct {
	store   *Store
	kv      *kvstore.Store
	backend *kvstore.Memory
	api     *countingAuthenticator
	nav     *recordingNavigator
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	svc, err := mockauth.NewService(mockauth.WithLatency(0), mockauth.WithHashCost(bcrypt.MinCost))
	require.NoError(t, err)

	backend := kvstore.NewMemory()
	kv := kvstore.New(backend, nil)
	api := &countingAuthenticator{inner: svc}
	nav := &recordingNavigator{}

	opts = append([]Option{WithNavigator(nav)}, opts...)
	return &fixture{
		store:   NewStore(context.Background(), api, kv, opts...),
		kv:      kv,
		backend: backend,
		api:     api,
		nav:     nav,
	}
}

func expiredToken(t *testing.T) string {
	t.Helper()
	tok, err := token.Encode(token.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "1"}}, time.Now().Add(-2*time.Hour))
	require.NoError(t, err)
	return tok
}

func TestRegister_Scenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res := f.store.Register(ctx, mockauth.Registration{Name: "Ann", Email: "ann@x.com", Password: "abcdef"})
	require.True(t, res.Success)
	require.NotNil(t, res.User)
	assert.NotZero(t, res.User.ID)
	assert.Equal(t, "ann@x.com", res.User.Email)

	snap := f.store.Snapshot()
	assert.NotNil(t, snap.User)
	assert.NotEmpty(t, snap.Token)
	assert.False(t, snap.IsLoading)
	assert.Nil(t, snap.Error)

	assert.True(t, f.store.IsAuthenticated(ctx))

	tok, ok := f.kv.Get(ctx, kvstore.KeyToken)
	require.True(t, ok)
	assert.Equal(t, snap.Token, tok)

	raw, ok := f.kv.Get(ctx, kvstore.KeyUser)
	require.True(t, ok)
	var persisted models.User
	require.NoError(t, json.Unmarshal([]byte(raw), &persisted))
	assert.Equal(t, *res.User, persisted)
}

func TestLoginAndRegister_InvalidEmailSkipsBackend(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, email := range []string{"", "   ", "plain", "a@b", "a b@c.d", "@x.com"} {
		res := f.store.Login(ctx, mockauth.Credentials{Email: email, Password: "12345678"})
		assert.False(t, res.Success, email)
		requireMessageContaining(t, f.store.Snapshot(), "email")

		res = f.store.Register(ctx, mockauth.Registration{Name: "Ann", Email: email, Password: "abcdef"})
		assert.False(t, res.Success, email)
		requireMessageContaining(t, f.store.Snapshot(), "email")
	}
	assert.Zero(t, f.api.calls)
}

func TestRegister_ShortPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res := f.store.Register(ctx, mockauth.Registration{Name: "Ann", Email: "ann@x.com", Password: "abc"})
	assert.False(t, res.Success)
	requireMessageContaining(t, f.store.Snapshot(), "password must be at least 6 characters")
	assert.Zero(t, f.api.calls)
}

func TestLogin_ShortPasswordReachesBackend(t *testing.T) {
	f := newFixture(t)

	res := f.store.Login(context.Background(), mockauth.Credentials{Email: "admin@test.ru", Password: "abc"})
	assert.False(t, res.Success)
	assert.Equal(t, 1, f.api.calls)
	requireMessageContaining(t, f.store.Snapshot(), "wrong password")
}

func TestRegister_AggregatesMessages(t *testing.T) {
	f := newFixture(t)

	res := f.store.Register(context.Background(), mockauth.Registration{Name: "A", Email: "bad", Password: ""})
	assert.False(t, res.Success)

	snap := f.store.Snapshot()
	require.NotNil(t, snap.Error)
	assert.Equal(t, []string{
		"email format is invalid",
		"password is required",
		"name must be at least 2 characters",
	}, snap.Error.Messages)
}

func TestLogin_DistinguishesFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res := f.store.Login(ctx, mockauth.Credentials{Email: "admin@test.ru", Password: "wrongpass"})
	assert.False(t, res.Success)
	wrong := f.store.Snapshot().Error.Messages

	res = f.store.Login(ctx, mockauth.Credentials{Email: "ghost@test.ru", Password: "whatever"})
	assert.False(t, res.Success)
	missing := f.store.Snapshot().Error.Messages

	assert.NotEqual(t, wrong, missing)
	assert.Nil(t, f.store.Snapshot().User)
}

func TestLogin_ClearsPreviousError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.store.Login(ctx, mockauth.Credentials{Email: "bad"})
	require.NotNil(t, f.store.Snapshot().Error)

	res := f.store.Login(ctx, mockauth.Credentials{Email: "admin@test.ru", Password: "12345678"})
	require.True(t, res.Success)
	assert.Nil(t, f.store.Snapshot().Error)
}

func TestLogin_IncompleteResponse(t *testing.T) {
	kv := kvstore.New(kvstore.NewMemory(), nil)
	s := NewStore(context.Background(), stubAuthenticator{resp: &mockauth.Response{Token: "x"}}, kv)

	res := s.Login(context.Background(), mockauth.Credentials{Email: "a@b.cd", Password: "secret"})
	assert.False(t, res.Success)
	assert.Equal(t, []string{ErrAuthenticationFailed.Error()}, s.Snapshot().Error.Messages)
}

func TestLogin_LoadingFlag(t *testing.T) {
	kv := kvstore.New(kvstore.NewMemory(), nil)
	var during models.Session
	var s *Store
	stub := stubAuthenticator{err: errors.New("line one\nline two")}
	stub.during = func() { during = s.Snapshot() }
	s = NewStore(context.Background(), stub, kv)

	res := s.Login(context.Background(), mockauth.Credentials{Email: "a@b.cd", Password: "secret"})
	assert.False(t, res.Success)
	assert.True(t, during.IsLoading)
	assert.Nil(t, during.Error)

	snap := s.Snapshot()
	assert.False(t, snap.IsLoading)
	assert.Equal(t, []string{"line one", "line two"}, snap.Error.Messages)
}

func TestOnChangeReceivesSnapshots(t *testing.T) {
	var loading []bool
	f := newFixture(t, OnChange(func(s models.Session) { loading = append(loading, s.IsLoading) }))

	f.store.Login(context.Background(), mockauth.Credentials{Email: "admin@test.ru", Password: "12345678"})
	require.NotEmpty(t, loading)
	assert.True(t, loading[0])
	assert.False(t, loading[len(loading)-1])
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.True(t, f.store.Login(ctx, mockauth.Credentials{Email: "admin@test.ru", Password: "12345678"}).Success)

	require.NoError(t, f.store.Logout(ctx))

	snap := f.store.Snapshot()
	assert.Nil(t, snap.User)
	assert.Empty(t, snap.Token)
	_, ok := f.kv.Get(ctx, kvstore.KeyToken)
	assert.False(t, ok)
	_, ok = f.kv.Get(ctx, kvstore.KeyUser)
	assert.False(t, ok)
	assert.Equal(t, []string{"/signin?logout=true"}, f.nav.targets)
	assert.Empty(t, f.nav.hard)
}

func TestLogout_NavigationFailureHardRedirects(t *testing.T) {
	f := newFixture(t)
	f.nav.failPush = true

	require.NoError(t, f.store.Logout(context.Background()))
	assert.Equal(t, []string{SignInPath}, f.nav.hard)
}

func TestLogout_WithoutNavigator(t *testing.T) {
	kv := kvstore.New(kvstore.NewMemory(), nil)
	s := NewStore(context.Background(), stubAuthenticator{}, kv)

	err := s.Logout(context.Background())
	assert.ErrorIs(t, err, ErrNoNavigator)
	assert.Nil(t, s.Snapshot().User)
}

func TestExpiredTokenForcesLogout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.backend.Set(ctx, kvstore.KeyToken, expiredToken(t)))
	require.NoError(t, f.backend.Set(ctx, kvstore.KeyUser, `{"id":1,"name":"admin","email":"admin@test.ru"}`))

	s := NewStore(ctx, f.api, f.kv, WithNavigator(f.nav))
	require.NotNil(t, s.Snapshot().User)
	assert.False(t, s.SessionValid())

	assert.False(t, s.IsTokenValid(ctx))
	assert.Nil(t, s.Snapshot().User)
	assert.False(t, s.IsAuthenticated(ctx))
	assert.Equal(t, []string{"/signin?logout=true"}, f.nav.targets)
}

func TestEnforceSessionValidity(t *testing.T) {
	tests := []struct {
		name       string
		token      string
		wantValid  bool
		wantLogout bool
	}{
		{name: "missing", token: "", wantValid: false, wantLogout: false},
		{name: "two segments", token: "a.b", wantValid: false, wantLogout: true},
		{name: "undecodable payload", token: "a.%%%.c", wantValid: false, wantLogout: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			if tt.token != "" {
				require.NoError(t, f.backend.Set(ctx, kvstore.KeyToken, tt.token))
			}
			s := NewStore(ctx, f.api, f.kv, WithNavigator(f.nav))

			valid, err := s.EnforceSessionValidity(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.wantValid, valid)
			assert.Equal(t, tt.wantLogout, len(f.nav.targets) == 1)
		})
	}
}

func TestSessionValidIsPure(t *testing.T) {
	now := time.Now()
	f := newFixture(t, WithClock(func() time.Time { return now }))
	ctx := context.Background()
	require.True(t, f.store.Login(ctx, mockauth.Credentials{Email: "admin@test.ru", Password: "12345678"}).Success)
	assert.True(t, f.store.SessionValid())

	now = now.Add(2 * time.Hour)
	assert.False(t, f.store.SessionValid())
	assert.NotNil(t, f.store.Snapshot().User, "pure check must not log out")
	assert.Empty(t, f.nav.targets)

	assert.False(t, f.store.IsAuthenticated(ctx))
	assert.Nil(t, f.store.Snapshot().User)
}

func TestInit(t *testing.T) {
	ctx := context.Background()

	t.Run("hydrates valid session", func(t *testing.T) {
		f := newFixture(t)
		require.True(t, f.store.Login(ctx, mockauth.Credentials{Email: "admin@test.ru", Password: "12345678"}).Success)

		fresh := NewStore(ctx, f.api, f.kv, WithNavigator(f.nav))
		for range 3 {
			require.NoError(t, fresh.Init(ctx))
		}
		snap := fresh.Snapshot()
		require.NotNil(t, snap.User)
		assert.Equal(t, int64(1), snap.User.ID)
		assert.Empty(t, f.nav.targets)
	})

	t.Run("expired persisted token logs out once", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.backend.Set(ctx, kvstore.KeyToken, expiredToken(t)))

		require.NoError(t, f.store.Init(ctx))
		require.NoError(t, f.store.Init(ctx))
		assert.Len(t, f.nav.targets, 1)
		assert.Nil(t, f.store.Snapshot().User)
	})

	t.Run("unreadable persisted user logs out", func(t *testing.T) {
		f := newFixture(t)
		require.True(t, f.store.Login(ctx, mockauth.Credentials{Email: "admin@test.ru", Password: "12345678"}).Success)
		require.NoError(t, f.backend.Set(ctx, kvstore.KeyUser, "{broken"))

		require.NoError(t, f.store.Init(ctx))
		assert.Nil(t, f.store.Snapshot().User)
		assert.Len(t, f.nav.targets, 1)
	})

	t.Run("no persisted token is a no-op", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.store.Init(ctx))
		assert.Nil(t, f.store.Snapshot().User)
		assert.Empty(t, f.nav.targets)
	})
}

func TestCurrentUserID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.store.CurrentUserID(ctx)
	assert.ErrorIs(t, err, ErrNoAuthenticatedUser)

	require.True(t, f.store.Login(ctx, mockauth.Credentials{Email: "admin@test.ru", Password: "12345678"}).Success)
	id, err := f.store.CurrentUserID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
}

func TestPersistedUserWithoutToken(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.backend.Set(ctx, kvstore.KeyUser, `{"id":7,"name":"ghost","email":"ghost@test.ru"}`))

	s := NewStore(ctx, f.api, f.kv, WithNavigator(f.nav))
	assert.Nil(t, s.Snapshot().User)
	assert.False(t, s.IsAuthenticated(ctx))

	_, err := s.CurrentUserID(ctx)
	assert.ErrorIs(t, err, ErrNoAuthenticatedUser)
}

func TestCurrentUserID_AfterTokenLoss(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.True(t, f.store.Login(ctx, mockauth.Credentials{Email: "admin@test.ru", Password: "12345678"}).Success)

	require.NoError(t, f.backend.Remove(ctx, kvstore.KeyToken))
	f.store.update(func(st *models.Session) { st.Token = "" })
	require.NotNil(t, f.store.Snapshot().User)

	_, err := f.store.CurrentUserID(ctx)
	assert.ErrorIs(t, err, ErrNoAuthenticatedUser)
}

func requireMessageContaining(t *testing.T, s models.Session, substr string) {
	t.Helper()
	require.NotNil(t, s.Error)
	for _, m := range s.Error.Messages {
		if strings.Contains(m, substr) {
			return
		}
	}
	t.Fatalf("no message contains %q: %v", substr, s.Error.Messages)
}

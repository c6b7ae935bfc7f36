// Package auth owns the client session: login, registration, logout and
// token expiry enforcement.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"expense-client/internal/kvstore"
	"expense-client/internal/logger"
	"expense-client/internal/mockauth"
	"expense-client/internal/models"
	"expense-client/internal/token"

	"go.uber.org/zap"
)

// SignInPath is where logout sends the user.
const SignInPath = "/signin"

var (
	// ErrAuthenticationFailed is reported when the backend answers without a user or token.
	ErrAuthenticationFailed = errors.New("authentication failed")
	// ErrNoNavigator is returned by Logout when no navigator is attached.
	ErrNoNavigator = errors.New("auth store has no navigator")
	// ErrNoAuthenticatedUser is returned when a user id is required but nobody is signed in.
	ErrNoAuthenticatedUser = errors.New("no authenticated user")
)

// Authenticator is the backend that checks credentials and issues tokens.
type Authenticator interface {
	Login(ctx context.Context, creds mockauth.Credentials) (*mockauth.Response, error)
	Register(ctx context.Context, reg mockauth.Registration) (*mockauth.Response, error)
}

// Navigator moves the client to another route.
type Navigator interface {
	Navigate(ctx context.Context, target string) error
	HardRedirect(target string)
}

// Result is the outcome of Login and Register.
type Result struct {
	Success bool
	User    *models.User
}

type action string

const (
	actionLogin    action = "login"
	actionRegister action = "register"
)

// Store holds the single client session.
type Store struct {
	mu       sync.Mutex
	state    models.Session
	nav      Navigator
	onChange func(models.Session)

	api Authenticator
	kv  *kvstore.Store
	log *logger.Logger
	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the diagnostics logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithClock replaces the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithNavigator attaches the navigator used by Logout.
func WithNavigator(nav Navigator) Option {
	return func(s *Store) { s.nav = nav }
}

// OnChange registers fn to receive a snapshot after every state change.
func OnChange(fn func(models.Session)) Option {
	return func(s *Store) { s.onChange = fn }
}

// NewStore builds a store whose initial session is read from kv.
func NewStore(ctx context.Context, api Authenticator, kv *kvstore.Store, opts ...Option) *Store {
	s := &Store{api: api, kv: kv, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.NewNop()
	}
	s.log = s.log.With(zap.String("component", "auth"))

	// A persisted user without a token is not a session.
	if tok, ok := kv.Get(ctx, kvstore.KeyToken); ok && tok != "" {
		s.state.Token = tok
		if user, ok := s.persistedUser(ctx); ok {
			s.state.User = user
		}
	}
	return s
}

// SetNavigator attaches nav after construction, for navigators that need
// the store themselves.
func (s *Store) SetNavigator(nav Navigator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nav = nav
}

// Snapshot returns a copy of the current session.
func (s *Store) Snapshot() models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Token returns the current session token, empty when signed out.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Token
}

// Login signs in with existing credentials.
func (s *Store) Login(ctx context.Context, creds mockauth.Credentials) Result {
	return s.authAction(ctx, actionLogin, mockauth.Registration{Email: creds.Email, Password: creds.Password})
}

// Register creates an account and signs in with it.
func (s *Store) Register(ctx context.Context, reg mockauth.Registration) Result {
	return s.authAction(ctx, actionRegister, reg)
}

func (s *Store) authAction(ctx context.Context, kind action, form mockauth.Registration) Result {
	s.update(func(st *models.Session) {
		st.IsLoading = true
		st.Error = nil
	})
	defer s.update(func(st *models.Session) { st.IsLoading = false })

	resp, err := s.perform(ctx, kind, form)
	if err != nil {
		s.log.Warn(ctx, "auth action failed", zap.String("action", string(kind)), zap.Error(err))
		s.update(func(st *models.Session) {
			st.Error = &models.AuthError{Messages: strings.Split(err.Error(), "\n")}
		})
		return Result{}
	}

	user := *resp.User
	s.update(func(st *models.Session) {
		st.User = &user
		st.Token = resp.Token
	})
	s.persist(ctx, user, resp.Token)
	s.log.Info(ctx, "signed in", zap.String("action", string(kind)), zap.Int64("user_id", user.ID))

	out := user
	return Result{Success: true, User: &out}
}

func (s *Store) perform(ctx context.Context, kind action, form mockauth.Registration) (*mockauth.Response, error) {
	if errs := ValidateCredentials(form, kind == actionRegister); len(errs) > 0 {
		return nil, &ValidationError{Messages: errs}
	}

	var (
		resp *mockauth.Response
		err  error
	)
	switch kind {
	case actionRegister:
		resp, err = s.api.Register(ctx, form)
	default:
		resp, err = s.api.Login(ctx, mockauth.Credentials{Email: form.Email, Password: form.Password})
	}
	if err != nil {
		return nil, err
	}
	if resp == nil || resp.User == nil || resp.Token == "" {
		return nil, ErrAuthenticationFailed
	}
	return resp, nil
}

func (s *Store) persist(ctx context.Context, user models.User, tok string) {
	raw, err := json.Marshal(user)
	if err != nil {
		s.log.Error(ctx, "encode user", zap.Error(err))
		return
	}
	s.kv.Set(ctx, kvstore.KeyUser, string(raw))
	s.kv.Set(ctx, kvstore.KeyToken, tok)
}

func (s *Store) persistedUser(ctx context.Context) (*models.User, bool) {
	raw, ok := s.kv.Get(ctx, kvstore.KeyUser)
	if !ok {
		return nil, false
	}
	var user models.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		s.log.Warn(ctx, "persisted user is unreadable", zap.Error(err))
		return nil, false
	}
	return &user, true
}

// Logout clears the session, removes its persisted copy and sends the user
// to the sign-in page. A failed navigation falls back to a hard redirect.
func (s *Store) Logout(ctx context.Context) error {
	var nav Navigator
	s.update(func(st *models.Session) {
		st.User = nil
		st.Token = ""
		st.Error = nil
		nav = s.nav
	})
	s.kv.Remove(ctx, kvstore.KeyUser)
	s.kv.Remove(ctx, kvstore.KeyToken)
	s.log.Info(ctx, "signed out")

	if nav == nil {
		s.log.Error(ctx, "logout without navigator")
		return ErrNoNavigator
	}
	if err := nav.Navigate(ctx, SignInPath+"?logout=true"); err != nil {
		s.log.Warn(ctx, "navigation to sign-in failed, forcing redirect", zap.Error(err))
		nav.HardRedirect(SignInPath)
	}
	return nil
}

// SessionValid reports whether the current token is well formed and
// unexpired. It never changes the session.
func (s *Store) SessionValid() bool {
	tok := s.Token()
	if tok == "" {
		return false
	}
	_, err := token.Check(tok, s.now())
	return err == nil
}

// EnforceSessionValidity logs out when the current token is malformed or
// expired. A missing token is reported as invalid without logging out.
func (s *Store) EnforceSessionValidity(ctx context.Context) (bool, error) {
	tok := s.Token()
	if tok == "" {
		s.log.Debug(ctx, "no session token")
		return false, nil
	}
	if _, err := token.Check(tok, s.now()); err != nil {
		s.log.Warn(ctx, "session token rejected", zap.Error(err))
		return false, s.Logout(ctx)
	}
	return true, nil
}

// IsTokenValid is EnforceSessionValidity without the logout error.
func (s *Store) IsTokenValid(ctx context.Context) bool {
	ok, err := s.EnforceSessionValidity(ctx)
	if err != nil {
		s.log.Error(ctx, "forced logout failed", zap.Error(err))
	}
	return ok
}

// IsAuthenticated reports whether a valid session exists, logging out an
// invalid one.
func (s *Store) IsAuthenticated(ctx context.Context) bool {
	return s.IsTokenValid(ctx)
}

// Init restores the session from storage. A valid persisted token hydrates
// the session, an invalid one forces logout, and no persisted token leaves
// the in-memory session as it is. Repeated calls converge on the same state.
func (s *Store) Init(ctx context.Context) error {
	tok, ok := s.kv.Get(ctx, kvstore.KeyToken)
	if !ok || tok == "" {
		return nil
	}
	if _, err := token.Check(tok, s.now()); err != nil {
		s.log.Info(ctx, "persisted session is no longer valid", zap.Error(err))
		return s.Logout(ctx)
	}
	user, ok := s.persistedUser(ctx)
	if !ok {
		return s.Logout(ctx)
	}
	s.update(func(st *models.Session) {
		st.User = user
		st.Token = tok
	})
	return nil
}

// CurrentUserID bootstraps the session and returns the signed-in user id.
func (s *Store) CurrentUserID(ctx context.Context) (int64, error) {
	if err := s.Init(ctx); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.User == nil || s.state.Token == "" {
		return 0, ErrNoAuthenticatedUser
	}
	return s.state.User.ID, nil
}

func (s *Store) update(fn func(*models.Session)) {
	s.mu.Lock()
	fn(&s.state)
	snapshot := s.state.Clone()
	notify := s.onChange
	s.mu.Unlock()

	if notify != nil {
		notify(snapshot)
	}
}

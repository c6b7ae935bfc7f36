// Package mockauth is an in-memory stand-in for an authentication backend.
package mockauth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"expense-client/internal/models"
	"expense-client/internal/token"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 6

// DefaultLatency is the artificial delay applied to every call.
const DefaultLatency = 500 * time.Millisecond

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = fmt.Errorf("%w: user not found", ErrInvalidCredentials)
	ErrWrongPassword      = fmt.Errorf("%w: wrong password", ErrInvalidCredentials)
	ErrDuplicateEmail     = errors.New("email is already registered")
	ErrWeakPassword       = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
)

// Credentials identify an existing account.
type Credentials struct {
	Email    string
	Password string
}

// Registration describes a new account.
type Registration struct {
	Name     string
	Email    string
	Password string
}

// Response is returned by successful login and registration.
type Response struct {
	User  *models.User
	Token string
}

type account struct {
	user         models.User
	passwordHash []byte
}

// Service keeps accounts in memory and issues mock tokens.
type Service struct {
	mu       sync.Mutex
	accounts []account
	lastID   int64

	latency  time.Duration
	hashCost int
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLatency sets the artificial delay. Zero disables it.
func WithLatency(d time.Duration) Option {
	return func(s *Service) { s.latency = d }
}

// WithHashCost sets the bcrypt cost used for password hashes.
func WithHashCost(cost int) Option {
	return func(s *Service) { s.hashCost = cost }
}

// WithClock replaces the time source used for ids and token expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService returns a service seeded with the admin account.
func NewService(opts ...Option) (*Service, error) {
	s := &Service{
		latency:  DefaultLatency,
		hashCost: bcrypt.DefaultCost,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.add(models.User{ID: 1, Name: "admin", Email: "admin@test.ru"}, "12345678"); err != nil {
		return nil, err
	}
	s.lastID = 1
	return s, nil
}

// Login checks credentials and issues a token.
func (s *Service) Login(ctx context.Context, creds Credentials) (*Response, error) {
	if err := s.delay(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	acc, ok := s.find(creds.Email)
	s.mu.Unlock()
	if !ok {
		return nil, ErrUserNotFound
	}
	if err := bcrypt.CompareHashAndPassword(acc.passwordHash, digest(creds.Password)); err != nil {
		return nil, ErrWrongPassword
	}
	return s.issue(acc.user)
}

// Register creates an account and issues a token for it.
func (s *Service) Register(ctx context.Context, reg Registration) (*Response, error) {
	if err := s.delay(ctx); err != nil {
		return nil, err
	}
	if len(reg.Password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.find(reg.Email); exists {
		return nil, ErrDuplicateEmail
	}

	user := models.User{ID: s.nextID(), Name: reg.Name, Email: reg.Email}
	if err := s.add(user, reg.Password); err != nil {
		return nil, err
	}
	return s.issue(user)
}

func (s *Service) add(user models.User, password string) error {
	hash, err := bcrypt.GenerateFromPassword(digest(password), s.hashCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	s.accounts = append(s.accounts, account{user: user, passwordHash: hash})
	return nil
}

// digest maps a password of any length to a fixed 64-byte input, since
// bcrypt ignores everything past 72 bytes.
func digest(password string) []byte {
	sum := sha256.Sum256([]byte(password))
	return []byte(hex.EncodeToString(sum[:]))
}

func (s *Service) find(email string) (account, bool) {
	for _, acc := range s.accounts {
		if acc.user.Email == email {
			return acc, true
		}
	}
	return account{}, false
}

// nextID derives ids from the clock, bumping past the last one on collision.
func (s *Service) nextID() int64 {
	id := s.now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return id
}

func (s *Service) issue(user models.User) (*Response, error) {
	tok, err := token.Encode(token.Claims{
		Name:             user.Name,
		Email:            user.Email,
		RegisteredClaims: jwt.RegisteredClaims{Subject: strconv.FormatInt(user.ID, 10)},
	}, s.now())
	if err != nil {
		return nil, err
	}
	return &Response{User: &user, Token: tok}, nil
}

func (s *Service) delay(ctx context.Context) error {
	if s.latency <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(s.latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

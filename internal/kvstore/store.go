// Package kvstore persists client state in a key-value backend.
//
// Store never returns backend failures to its callers: they are logged and
// replaced by a safe default, so persistence is best effort.
package kvstore

import (
	"context"
	"errors"

	"expense-client/internal/logger"
	"expense-client/internal/storage"

	"go.uber.org/zap"
)

// Persisted keys.
const (
	KeyToken    = "token"
	KeyUser     = "user"
	KeyExpenses = "expenses"
)

// ErrNotFound is returned by backends for missing keys.
var ErrNotFound = storage.ErrNotFound

// Backend is a key-value storage implementation.
type Backend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Store is a failure-tolerant view of a Backend.
type Store struct {
	backend Backend
	log     *logger.Logger
}

// New wraps backend. A nil log discards diagnostics.
func New(backend Backend, log *logger.Logger) *Store {
	if log == nil {
		log = logger.NewNop()
	}
	return &Store{backend: backend, log: log.With(zap.String("component", "kvstore"))}
}

// Get returns the value under key and whether it was present and readable.
func (s *Store) Get(ctx context.Context, key string) (string, bool) {
	value, err := s.backend.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.log.Error(ctx, "storage read failed", zap.String("key", key), zap.Error(err))
		}
		return "", false
	}
	return value, true
}

// Set stores value under key.
func (s *Store) Set(ctx context.Context, key, value string) {
	if err := s.backend.Set(ctx, key, value); err != nil {
		s.log.Error(ctx, "storage write failed", zap.String("key", key), zap.Error(err))
	}
}

// Remove deletes key.
func (s *Store) Remove(ctx context.Context, key string) {
	if err := s.backend.Remove(ctx, key); err != nil {
		s.log.Error(ctx, "storage remove failed", zap.String("key", key), zap.Error(err))
	}
}

package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/joltcab/console/internal/store"
)

// TokenKey is the fixed durable storage key of the bearer token.
const TokenKey = "joltcab_token"

// Store owns the bearer token. It is the single source of truth for the
// authentication state: an empty token means unauthenticated. The
// durable backend is injected so that tests get an isolated session.
type Store struct {
	mu      sync.RWMutex
	token   string
	durable store.Store
}

// New creates a session backed by durable. A nil durable keeps the token
// in memory only.
func New(durable store.Store) *Store {
	if durable == nil {
		durable = store.NewMemoryStore()
	}
	return &Store{durable: durable}
}

// Load restores a previously persisted token, if any.
func (s *Store) Load(ctx context.Context) error {
	token, err := s.durable.Get(ctx, TokenKey)
	if err != nil {
		return fmt.Errorf("loading session token: %w", err)
	}

	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return nil
}

// Token returns the current bearer token, or "" when unauthenticated.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Authenticated reports whether a token is held.
func (s *Store) Authenticated() bool {
	return s.Token() != ""
}

// SetToken persists the token and then makes it current. If persisting
// fails the previous token stays in effect.
func (s *Store) SetToken(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.durable.Set(ctx, TokenKey, token); err != nil {
		return fmt.Errorf("persisting session token: %w", err)
	}
	s.token = token
	return nil
}

// ClearToken removes the token from memory and durable storage.
func (s *Store) ClearToken(ctx context.Context) error {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()

	if err := s.durable.Delete(ctx, TokenKey); err != nil {
		return fmt.Errorf("removing session token: %w", err)
	}
	return nil
}

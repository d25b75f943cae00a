package memory

import (
	"context"
	"sync"
	"time"

	identity "github.com/opencourse/identity"
)

// TokenStore is an in-memory one-time token store. It implements both
// identity.OneTimeTokenStore and identity.PasswordResetTokenStore, so one
// type serves verification and reset tokens (use separate instances).
type TokenStore struct {
	mu     sync.Mutex
	byID   map[string]*identity.OneTimeToken
	byHash map[string]string // secret hash -> id
}

// NewTokenStore creates an empty TokenStore.
func NewTokenStore() *TokenStore {
	return &TokenStore{
		byID:   make(map[string]*identity.OneTimeToken),
		byHash: make(map[string]string),
	}
}

func (s *TokenStore) Create(_ context.Context, token *identity.OneTimeToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *token
	s.byID[token.ID] = &cp
	s.byHash[token.SecretHash] = token.ID
	return nil
}

func (s *TokenStore) GetByHash(_ context.Context, hash string) (*identity.OneTimeToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byHash[hash]
	if !ok {
		return nil, identity.ErrNotFound
	}
	cp := *s.byID[id]
	return &cp, nil
}

func (s *TokenStore) MarkUsed(_ context.Context, id string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, ok := s.byID[id]
	if !ok || token.UsedAt != nil {
		return false, nil
	}
	usedAt := at
	token.UsedAt = &usedAt
	return true, nil
}

func (s *TokenStore) InvalidateForUser(_ context.Context, userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, token := range s.byID {
		if token.UserID == userID && token.UsedAt == nil {
			usedAt := at
			token.UsedAt = &usedAt
		}
	}
	return nil
}

func (s *TokenStore) CountRecentForUser(_ context.Context, userID string, since time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	for _, token := range s.byID {
		if token.UserID == userID && !token.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

package memory

import (
	"context"
	"sync"
	"time"

	"github.com/opencourse/identity/session"
)

// RefreshTokenStore is an in-memory session.Store. Revoke is a genuine
// compare-and-set under the mutex, so concurrent rotations of one token
// produce exactly one winner, same as the persistent backends.
type RefreshTokenStore struct {
	mu     sync.Mutex
	byID   map[string]*session.Token
	byHash map[string]string // secret hash -> id
}

// NewRefreshTokenStore creates an empty RefreshTokenStore.
func NewRefreshTokenStore() *RefreshTokenStore {
	return &RefreshTokenStore{
		byID:   make(map[string]*session.Token),
		byHash: make(map[string]string),
	}
}

func (s *RefreshTokenStore) Create(_ context.Context, token *session.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *token
	s.byID[token.ID] = &cp
	s.byHash[token.SecretHash] = token.ID
	return nil
}

func (s *RefreshTokenStore) GetByHash(_ context.Context, hash string) (*session.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byHash[hash]
	if !ok {
		return nil, session.ErrNotFound
	}
	cp := *s.byID[id]
	return &cp, nil
}

func (s *RefreshTokenStore) Revoke(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, ok := s.byID[id]
	if !ok || token.IsRevoked {
		return false, nil
	}
	token.IsRevoked = true
	return true, nil
}

func (s *RefreshTokenStore) RevokeFamily(_ context.Context, familyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, token := range s.byID {
		if token.FamilyID == familyID {
			token.IsRevoked = true
		}
	}
	return nil
}

func (s *RefreshTokenStore) RevokeAllForUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, token := range s.byID {
		if token.UserID == userID {
			token.IsRevoked = true
		}
	}
	return nil
}

func (s *RefreshTokenStore) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, token := range s.byID {
		if token.ExpiresAt.Before(before) {
			delete(s.byHash, token.SecretHash)
			delete(s.byID, id)
			n++
		}
	}
	return n, nil
}

// CountLive reports how many non-revoked tokens exist in the given family.
// Test helper; the rotation invariant keeps this at most 1.
func (s *RefreshTokenStore) CountLive(familyID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	for _, token := range s.byID {
		if token.FamilyID == familyID && !token.IsRevoked {
			n++
		}
	}
	return n
}

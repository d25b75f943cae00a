package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	identity "github.com/opencourse/identity"
)

// AccountStore is an in-memory identity.AccountStore.
type AccountStore struct {
	mu      sync.RWMutex
	byID    map[string]*identity.UserAccount
	byEmail map[string]string // lowercased email -> id
}

// NewAccountStore creates an empty AccountStore.
func NewAccountStore() *AccountStore {
	return &AccountStore{
		byID:    make(map[string]*identity.UserAccount),
		byEmail: make(map[string]string),
	}
}

func (s *AccountStore) Create(_ context.Context, account *identity.UserAccount) error {
	key := strings.ToLower(account.Email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[key]; exists {
		return identity.ErrConflict
	}
	cp := *account
	s.byID[account.ID] = &cp
	s.byEmail[key] = account.ID
	return nil
}

func (s *AccountStore) GetByEmail(_ context.Context, email string) (*identity.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, identity.ErrNotFound
	}
	cp := *s.byID[id]
	return &cp, nil
}

func (s *AccountStore) GetByID(_ context.Context, id string) (*identity.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.byID[id]
	if !ok {
		return nil, identity.ErrNotFound
	}
	cp := *account
	return &cp, nil
}

func (s *AccountStore) ListUnverifiedTeachers(_ context.Context, limit, offset int) ([]*identity.UserAccount, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var pending []*identity.UserAccount
	for _, account := range s.byID {
		if account.Role == identity.RoleTeacher && !account.IsVerified {
			cp := *account
			pending = append(pending, &cp)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		if pending[i].CreatedAt.Equal(pending[j].CreatedAt) {
			return pending[i].ID < pending[j].ID
		}
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})

	total := len(pending)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return pending[offset:end], total, nil
}

func (s *AccountStore) SetVerified(_ context.Context, id string, verified bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.byID[id]
	if !ok {
		return identity.ErrNotFound
	}
	account.IsVerified = verified
	return nil
}

func (s *AccountStore) SetEmailVerified(_ context.Context, id string, verified bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.byID[id]
	if !ok {
		return identity.ErrNotFound
	}
	account.EmailVerified = verified
	return nil
}

func (s *AccountStore) UpdatePasswordHash(_ context.Context, id, newHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.byID[id]
	if !ok {
		return identity.ErrNotFound
	}
	account.PasswordHash = newHash
	return nil
}

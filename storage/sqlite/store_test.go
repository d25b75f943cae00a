package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	identity "github.com/opencourse/identity"
	"github.com/opencourse/identity/session"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "identity.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testAccount(id, email string) *identity.UserAccount {
	return &identity.UserAccount{
		ID:           id,
		Email:        email,
		PasswordHash: "$argon2id$stub",
		Name:         "Test User",
		Role:         identity.RoleStudent,
		CreatedAt:    time.Now().UTC().Truncate(time.Millisecond),
	}
}

func TestOpenAppliesPragmas(t *testing.T) {
	store := openTestStore(t)

	var mode string
	if err := store.DB().QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("journal_mode: %v", err)
	}
	if !strings.EqualFold(mode, "wal") {
		t.Fatalf("journal_mode = %q, want wal", mode)
	}

	var timeout int
	if err := store.DB().QueryRow("PRAGMA busy_timeout").Scan(&timeout); err != nil {
		t.Fatalf("busy_timeout: %v", err)
	}
	if timeout != 5000 {
		t.Fatalf("busy_timeout = %d, want 5000", timeout)
	}
}

func TestAccountStoreCreateAndGet(t *testing.T) {
	ctx := context.Background()
	accounts := openTestStore(t).Accounts()

	account := testAccount("acc-1", "alice@example.com")
	if err := accounts.Create(ctx, account); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := accounts.GetByEmail(ctx, "ALICE@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if got.ID != account.ID || got.Email != account.Email {
		t.Fatalf("got %+v, want %+v", got, account)
	}
	if !got.CreatedAt.Equal(account.CreatedAt) {
		t.Fatalf("created at %v, want %v", got.CreatedAt, account.CreatedAt)
	}

	if _, err := accounts.GetByID(ctx, "acc-1"); err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if _, err := accounts.GetByID(ctx, "missing"); !errors.Is(err, identity.ErrNotFound) {
		t.Fatalf("missing id: got %v, want ErrNotFound", err)
	}
}

func TestAccountStoreDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	accounts := openTestStore(t).Accounts()

	if err := accounts.Create(ctx, testAccount("acc-1", "alice@example.com")); err != nil {
		t.Fatalf("create: %v", err)
	}
	err := accounts.Create(ctx, testAccount("acc-2", "Alice@Example.com"))
	if !errors.Is(err, identity.ErrConflict) {
		t.Fatalf("duplicate email: got %v, want ErrConflict", err)
	}
}

func TestAccountStoreFlagsAndPasswordHash(t *testing.T) {
	ctx := context.Background()
	accounts := openTestStore(t).Accounts()

	if err := accounts.Create(ctx, testAccount("acc-1", "alice@example.com")); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := accounts.SetEmailVerified(ctx, "acc-1", true); err != nil {
		t.Fatalf("set email verified: %v", err)
	}
	if err := accounts.SetVerified(ctx, "acc-1", true); err != nil {
		t.Fatalf("set verified: %v", err)
	}
	if err := accounts.UpdatePasswordHash(ctx, "acc-1", "$argon2id$new"); err != nil {
		t.Fatalf("update hash: %v", err)
	}

	got, err := accounts.GetByID(ctx, "acc-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.EmailVerified || !got.IsVerified {
		t.Fatalf("flags not persisted: %+v", got)
	}
	if got.PasswordHash != "$argon2id$new" {
		t.Fatalf("hash = %q", got.PasswordHash)
	}

	if err := accounts.SetVerified(ctx, "missing", true); !errors.Is(err, identity.ErrNotFound) {
		t.Fatalf("missing account: got %v, want ErrNotFound", err)
	}
}

func TestAccountStoreListUnverifiedTeachers(t *testing.T) {
	ctx := context.Background()
	accounts := openTestStore(t).Accounts()

	base := time.Now().UTC().Truncate(time.Millisecond)
	for i, id := range []string{"t-1", "t-2", "t-3"} {
		account := testAccount(id, id+"@example.com")
		account.Role = identity.RoleTeacher
		account.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if err := accounts.Create(ctx, account); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}
	verified := testAccount("t-4", "t-4@example.com")
	verified.Role = identity.RoleTeacher
	verified.IsVerified = true
	if err := accounts.Create(ctx, verified); err != nil {
		t.Fatalf("create verified: %v", err)
	}
	if err := accounts.Create(ctx, testAccount("s-1", "s-1@example.com")); err != nil {
		t.Fatalf("create student: %v", err)
	}

	teachers, total, err := accounts.ListUnverifiedTeachers(ctx, 2, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 {
		t.Fatalf("total = %d, want 3", total)
	}
	if len(teachers) != 2 || teachers[0].ID != "t-1" || teachers[1].ID != "t-2" {
		t.Fatalf("page = %+v", teachers)
	}

	teachers, _, err = accounts.ListUnverifiedTeachers(ctx, 2, 2)
	if err != nil {
		t.Fatalf("list offset: %v", err)
	}
	if len(teachers) != 1 || teachers[0].ID != "t-3" {
		t.Fatalf("second page = %+v", teachers)
	}
}

func testRefreshToken(id, userID, familyID, hash string) *session.Token {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &session.Token{
		ID:         id,
		UserID:     userID,
		FamilyID:   familyID,
		SecretHash: hash,
		CreatedAt:  now,
		ExpiresAt:  now.Add(time.Hour),
	}
}

func TestRefreshTokenStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	tokens := openTestStore(t).RefreshTokens()

	token := testRefreshToken("rt-1", "user-1", "fam-1", "hash-1")
	if err := tokens.Create(ctx, token); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := tokens.GetByHash(ctx, "hash-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != "rt-1" || got.FamilyID != "fam-1" || got.IsRevoked {
		t.Fatalf("got %+v", got)
	}

	if _, err := tokens.GetByHash(ctx, "missing"); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("missing hash: got %v, want session.ErrNotFound", err)
	}
}

func TestRefreshTokenStoreRevokeOnce(t *testing.T) {
	ctx := context.Background()
	tokens := openTestStore(t).RefreshTokens()

	if err := tokens.Create(ctx, testRefreshToken("rt-1", "user-1", "fam-1", "hash-1")); err != nil {
		t.Fatalf("create: %v", err)
	}

	ok, err := tokens.Revoke(ctx, "rt-1")
	if err != nil || !ok {
		t.Fatalf("first revoke = (%v, %v), want (true, nil)", ok, err)
	}
	ok, err = tokens.Revoke(ctx, "rt-1")
	if err != nil || ok {
		t.Fatalf("second revoke = (%v, %v), want (false, nil)", ok, err)
	}

	got, err := tokens.GetByHash(ctx, "hash-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.IsRevoked {
		t.Fatal("token not revoked")
	}
}

func TestRefreshTokenStoreConcurrentRevoke(t *testing.T) {
	ctx := context.Background()
	tokens := openTestStore(t).RefreshTokens()

	if err := tokens.Create(ctx, testRefreshToken("rt-1", "user-1", "fam-1", "hash-1")); err != nil {
		t.Fatalf("create: %v", err)
	}

	const workers = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := tokens.Revoke(ctx, "rt-1")
			if err != nil {
				t.Errorf("revoke: %v", err)
				return
			}
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("winners = %d, want exactly 1", wins)
	}
}

func TestRefreshTokenStoreFamilyAndUserRevocation(t *testing.T) {
	ctx := context.Background()
	tokens := openTestStore(t).RefreshTokens()

	for _, tok := range []*session.Token{
		testRefreshToken("rt-1", "user-1", "fam-1", "hash-1"),
		testRefreshToken("rt-2", "user-1", "fam-1", "hash-2"),
		testRefreshToken("rt-3", "user-1", "fam-2", "hash-3"),
		testRefreshToken("rt-4", "user-2", "fam-3", "hash-4"),
	} {
		if err := tokens.Create(ctx, tok); err != nil {
			t.Fatalf("create %s: %v", tok.ID, err)
		}
	}

	if err := tokens.RevokeFamily(ctx, "fam-1"); err != nil {
		t.Fatalf("revoke family: %v", err)
	}
	for hash, want := range map[string]bool{"hash-1": true, "hash-2": true, "hash-3": false, "hash-4": false} {
		got, err := tokens.GetByHash(ctx, hash)
		if err != nil {
			t.Fatalf("get %s: %v", hash, err)
		}
		if got.IsRevoked != want {
			t.Fatalf("%s revoked = %v, want %v", hash, got.IsRevoked, want)
		}
	}

	if err := tokens.RevokeAllForUser(ctx, "user-1"); err != nil {
		t.Fatalf("revoke user: %v", err)
	}
	got, err := tokens.GetByHash(ctx, "hash-3")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.IsRevoked {
		t.Fatal("user revocation missed fam-2 token")
	}
	got, err = tokens.GetByHash(ctx, "hash-4")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.IsRevoked {
		t.Fatal("user revocation leaked to another user")
	}
}

func TestRefreshTokenStoreDeleteExpired(t *testing.T) {
	ctx := context.Background()
	tokens := openTestStore(t).RefreshTokens()

	now := time.Now().UTC()
	stale := testRefreshToken("rt-old", "user-1", "fam-1", "hash-old")
	stale.ExpiresAt = now.Add(-time.Hour)
	live := testRefreshToken("rt-new", "user-1", "fam-1", "hash-new")

	for _, tok := range []*session.Token{stale, live} {
		if err := tokens.Create(ctx, tok); err != nil {
			t.Fatalf("create %s: %v", tok.ID, err)
		}
	}

	n, err := tokens.DeleteExpired(ctx, now)
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if n != 1 {
		t.Fatalf("deleted %d, want 1", n)
	}
	if _, err := tokens.GetByHash(ctx, "hash-old"); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("stale token survived: %v", err)
	}
	if _, err := tokens.GetByHash(ctx, "hash-new"); err != nil {
		t.Fatalf("live token deleted: %v", err)
	}
}

func testOneTimeToken(id, userID, hash string, createdAt time.Time) *identity.OneTimeToken {
	return &identity.OneTimeToken{
		ID:         id,
		UserID:     userID,
		SecretHash: hash,
		CreatedAt:  createdAt,
		ExpiresAt:  createdAt.Add(time.Hour),
	}
}

func TestTokenStoreMarkUsedOnce(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	for name, tokens := range map[string]*TokenStore{
		"verification": store.VerificationTokens(),
		"reset":        store.PasswordResetTokens(),
	} {
		now := time.Now().UTC().Truncate(time.Millisecond)
		if err := tokens.Create(ctx, testOneTimeToken("ott-1", "user-1", "hash-1", now)); err != nil {
			t.Fatalf("%s create: %v", name, err)
		}

		got, err := tokens.GetByHash(ctx, "hash-1")
		if err != nil {
			t.Fatalf("%s get: %v", name, err)
		}
		if got.UsedAt != nil {
			t.Fatalf("%s fresh token already used", name)
		}

		usedAt := now.Add(time.Minute)
		ok, err := tokens.MarkUsed(ctx, "ott-1", usedAt)
		if err != nil || !ok {
			t.Fatalf("%s first mark = (%v, %v), want (true, nil)", name, ok, err)
		}
		ok, err = tokens.MarkUsed(ctx, "ott-1", usedAt.Add(time.Minute))
		if err != nil || ok {
			t.Fatalf("%s second mark = (%v, %v), want (false, nil)", name, ok, err)
		}

		got, err = tokens.GetByHash(ctx, "hash-1")
		if err != nil {
			t.Fatalf("%s reload: %v", name, err)
		}
		if got.UsedAt == nil || !got.UsedAt.Equal(usedAt) {
			t.Fatalf("%s used at = %v, want %v", name, got.UsedAt, usedAt)
		}
	}
}

func TestTokenStoreInvalidateForUser(t *testing.T) {
	ctx := context.Background()
	tokens := openTestStore(t).VerificationTokens()

	now := time.Now().UTC().Truncate(time.Millisecond)
	for _, tok := range []*identity.OneTimeToken{
		testOneTimeToken("ott-1", "user-1", "hash-1", now),
		testOneTimeToken("ott-2", "user-1", "hash-2", now),
		testOneTimeToken("ott-3", "user-2", "hash-3", now),
	} {
		if err := tokens.Create(ctx, tok); err != nil {
			t.Fatalf("create %s: %v", tok.ID, err)
		}
	}

	if err := tokens.InvalidateForUser(ctx, "user-1", now); err != nil {
		t.Fatalf("invalidate: %v", err)
	}

	// Superseded rows survive with used_at set; MarkUsed can no longer win.
	got, err := tokens.GetByHash(ctx, "hash-1")
	if err != nil {
		t.Fatalf("reload superseded token: %v", err)
	}
	if got.UsedAt == nil || !got.UsedAt.Equal(now) {
		t.Fatalf("used at = %v, want %v", got.UsedAt, now)
	}
	if used, err := tokens.MarkUsed(ctx, "ott-2", now); err != nil || used {
		t.Fatalf("mark superseded used: got (%v, %v), want (false, nil)", used, err)
	}

	other, err := tokens.GetByHash(ctx, "hash-3")
	if err != nil {
		t.Fatalf("user-2 token: %v", err)
	}
	if other.UsedAt != nil {
		t.Fatal("user-2 token invalidated")
	}
}

func TestTokenStoreCountRecentForUser(t *testing.T) {
	ctx := context.Background()
	tokens := openTestStore(t).PasswordResetTokens()

	now := time.Now().UTC().Truncate(time.Millisecond)
	for i, tok := range []*identity.OneTimeToken{
		testOneTimeToken("ott-1", "user-1", "hash-1", now.Add(-2*time.Hour)),
		testOneTimeToken("ott-2", "user-1", "hash-2", now.Add(-30*time.Minute)),
		testOneTimeToken("ott-3", "user-1", "hash-3", now.Add(-5*time.Minute)),
		testOneTimeToken("ott-4", "user-2", "hash-4", now),
	} {
		if err := tokens.Create(ctx, tok); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	count, err := tokens.CountRecentForUser(ctx, "user-1", now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}
}

// Package redisstore provides a Redis-backed refresh token store.
//
// Tokens live in hashes keyed by token ID, with secondary indexes from
// secret hash to ID and from family and user to their member IDs. Keys
// carry a TTL of the token lifetime plus a retention grace so revoked
// and freshly expired tokens stay visible long enough for reuse
// detection. Expired keys fall out of Redis on their own, so
// DeleteExpired is a no-op here.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/opencourse/identity/session"
)

// ErrRedisUnavailable wraps transport failures so callers can tell an
// unreachable backend apart from a missing token.
var ErrRedisUnavailable = errors.New("redis unavailable")

// retentionGrace keeps token records around past their expiry so a
// replay of a dead token is still recognized as reuse rather than
// reported as unknown.
const retentionGrace = 24 * time.Hour

const revokeScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return -1
end
if redis.call("HGET", KEYS[1], "is_revoked") == "1" then
  return 0
end
redis.call("HSET", KEYS[1], "is_revoked", "1")
return 1
`

var revokeLua = redis.NewScript(revokeScript)

// Store implements session.Store on a Redis client.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore creates a refresh token [Store] backed by the given Redis
// client. prefix namespaces every key; pass "" for the default "rt".
func NewStore(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "rt"
	}
	return &Store{redis: client, prefix: prefix}
}

func (s *Store) tokenKey(id string) string {
	return s.prefix + ":" + id
}

func (s *Store) hashKey(hash string) string {
	return s.prefix + "h:" + hash
}

func (s *Store) familyKey(familyID string) string {
	return s.prefix + "f:" + familyID
}

func (s *Store) userKey(userID string) string {
	return s.prefix + "u:" + userID
}

func (s *Store) Create(ctx context.Context, token *session.Token) error {
	ttl := time.Until(token.ExpiresAt) + retentionGrace
	if ttl <= 0 {
		ttl = retentionGrace
	}

	revoked := "0"
	if token.IsRevoked {
		revoked = "1"
	}

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.tokenKey(token.ID), map[string]interface{}{
			"user_id":    token.UserID,
			"family_id":  token.FamilyID,
			"token_hash": token.SecretHash,
			"is_revoked": revoked,
			"expires_at": token.ExpiresAt.UnixMilli(),
			"created_at": token.CreatedAt.UnixMilli(),
		})
		pipe.Expire(ctx, s.tokenKey(token.ID), ttl)
		pipe.Set(ctx, s.hashKey(token.SecretHash), token.ID, ttl)
		pipe.SAdd(ctx, s.familyKey(token.FamilyID), token.ID)
		pipe.Expire(ctx, s.familyKey(token.FamilyID), ttl)
		pipe.SAdd(ctx, s.userKey(token.UserID), token.ID)
		pipe.Expire(ctx, s.userKey(token.UserID), ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (s *Store) GetByHash(ctx context.Context, hash string) (*session.Token, error) {
	id, err := s.redis.Get(ctx, s.hashKey(hash)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, session.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	fields, err := s.redis.HGetAll(ctx, s.tokenKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(fields) == 0 {
		return nil, session.ErrNotFound
	}

	return decodeToken(id, fields)
}

// Revoke flips is_revoked from 0 to 1 atomically. Exactly one of any
// set of concurrent callers observes true.
func (s *Store) Revoke(ctx context.Context, id string) (bool, error) {
	res, err := revokeLua.Run(ctx, s.redis, []string{s.tokenKey(id)}).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return res == 1, nil
}

func (s *Store) RevokeFamily(ctx context.Context, familyID string) error {
	return s.revokeMembers(ctx, s.familyKey(familyID))
}

func (s *Store) RevokeAllForUser(ctx context.Context, userID string) error {
	return s.revokeMembers(ctx, s.userKey(userID))
}

func (s *Store) revokeMembers(ctx context.Context, setKey string) error {
	ids, err := s.redis.SMembers(ctx, setKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(ids) == 0 {
		return nil
	}

	pipe := s.redis.Pipeline()
	for _, id := range ids {
		pipe.HSet(ctx, s.tokenKey(id), "is_revoked", "1")
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// DeleteExpired is satisfied by key TTLs; there is nothing to sweep.
func (s *Store) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

// Ping reports Redis availability and round trip latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}

func decodeToken(id string, fields map[string]string) (*session.Token, error) {
	expiresAt, err := parseMillis(fields["expires_at"])
	if err != nil {
		return nil, fmt.Errorf("decode token %s: %w", id, err)
	}
	createdAt, err := parseMillis(fields["created_at"])
	if err != nil {
		return nil, fmt.Errorf("decode token %s: %w", id, err)
	}

	return &session.Token{
		ID:         id,
		UserID:     fields["user_id"],
		FamilyID:   fields["family_id"],
		SecretHash: fields["token_hash"],
		IsRevoked:  fields["is_revoked"] == "1",
		ExpiresAt:  expiresAt,
		CreatedAt:  createdAt,
	}, nil
}

func parseMillis(raw string) (time.Time, error) {
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q", raw)
	}
	return time.UnixMilli(ms).UTC(), nil
}

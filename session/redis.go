package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// revokeScript reads the token's owner, deletes the token key, and removes the
// set-index member in one atomic step, so a racing Register cannot observe a
// half-removed entry.
const revokeScript = `
local pid = redis.call("GET", KEYS[1])
if not pid then
  return 0
end
redis.call("DEL", KEYS[1])
redis.call("SREM", ARGV[1] .. pid, ARGV[2])
return 1
`

var revokeLua = redis.NewScript(revokeScript)

// RedisStore is a [Store] backed by Redis. Each token is a key with a TTL
// equal to its natural expiry; a per-principal set indexes the tokens for
// RevokeAll. SweepExpired prunes index members whose token keys the TTL has
// already reaped.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRedisStore wraps client with the given key namespace prefix. now
// defaults to time.Now.
func NewRedisStore(client redis.UniversalClient, prefix string, now func() time.Time) *RedisStore {
	if prefix == "" {
		prefix = "tg"
	}
	if now == nil {
		now = time.Now
	}
	return &RedisStore{redis: client, prefix: prefix, now: now}
}

func (s *RedisStore) tokenKey(tokenID string) string {
	return s.prefix + ":rt:" + tokenID
}

// principalPrefix is also what the revoke script concatenates with the owner
// it reads, so the two must stay in sync.
func (s *RedisStore) principalPrefix() string {
	return s.prefix + ":pr:"
}

func (s *RedisStore) principalKey(principalID string) string {
	return s.principalPrefix() + principalID
}

// Register implements [Store].
func (s *RedisStore) Register(ctx context.Context, rec Record) error {
	ttl := rec.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.tokenKey(rec.TokenID), rec.PrincipalID, ttl)
		pipe.SAdd(ctx, s.principalKey(rec.PrincipalID), rec.TokenID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Valid implements [Store].
func (s *RedisStore) Valid(ctx context.Context, principalID, tokenID string) (bool, error) {
	owner, err := s.redis.Get(ctx, s.tokenKey(tokenID)).Result()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return owner == principalID, nil
}

// Revoke implements [Store].
func (s *RedisStore) Revoke(ctx context.Context, tokenID string) error {
	err := revokeLua.Run(ctx, s.redis,
		[]string{s.tokenKey(tokenID)},
		s.principalPrefix(), tokenID,
	).Err()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// RevokeAll implements [Store]. Not fully atomic: a token registered between
// the index read and the deletes survives, which matches the memory backend's
// semantics for an insert that linearizes after the revoke.
func (s *RedisStore) RevokeAll(ctx context.Context, principalID string) error {
	key := s.principalKey(principalID)
	tokenIDs, err := s.redis.SMembers(ctx, key).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, tokenID := range tokenIDs {
			pipe.Del(ctx, s.tokenKey(tokenID))
		}
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// SweepExpired implements [Store]. Token keys expire on their own; this pass
// only unindexes the dead members from the per-principal sets.
func (s *RedisStore) SweepExpired(ctx context.Context) (int, error) {
	removed := 0

	iter := s.redis.Scan(ctx, 0, s.principalPrefix()+"*", 100).Iterator()
	for iter.Next(ctx) {
		setKey := iter.Val()
		tokenIDs, err := s.redis.SMembers(ctx, setKey).Result()
		if err != nil {
			return removed, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		for _, tokenID := range tokenIDs {
			exists, err := s.redis.Exists(ctx, s.tokenKey(tokenID)).Result()
			if err != nil {
				return removed, fmt.Errorf("%w: %v", ErrUnavailable, err)
			}
			if exists == 0 {
				if err := s.redis.SRem(ctx, setKey, tokenID).Err(); err != nil {
					return removed, fmt.Errorf("%w: %v", ErrUnavailable, err)
				}
				removed++
			}
		}
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return removed, nil
}

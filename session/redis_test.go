package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, "tg-test", nil), mr
}

func liveRecord(principalID, tokenID string, ttl time.Duration) Record {
	now := time.Now()
	return Record{
		PrincipalID: principalID,
		TokenID:     tokenID,
		IssuedAt:    now,
		ExpiresAt:   now.Add(ttl),
	}
}

func TestRedisStoreRegisterAndValid(t *testing.T) {
	ctx := context.Background()
	store, _ := newRedisStore(t)

	if err := store.Register(ctx, liveRecord("u1", "t1", time.Hour)); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if ok, err := store.Valid(ctx, "u1", "t1"); err != nil || !ok {
		t.Fatalf("Valid = (%v, %v), want (true, nil)", ok, err)
	}
	if ok, _ := store.Valid(ctx, "u2", "t1"); ok {
		t.Fatalf("token valid for wrong principal")
	}
	if ok, _ := store.Valid(ctx, "u1", "missing"); ok {
		t.Fatalf("unregistered token reported valid")
	}
}

func TestRedisStoreNaturalExpiry(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t)

	if err := store.Register(ctx, liveRecord("u1", "t1", time.Minute)); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	mr.FastForward(2 * time.Minute)
	if ok, _ := store.Valid(ctx, "u1", "t1"); ok {
		t.Fatalf("TTL-expired token reported valid")
	}
}

func TestRedisStoreRevoke(t *testing.T) {
	ctx := context.Background()
	store, _ := newRedisStore(t)

	store.Register(ctx, liveRecord("u1", "device-a", time.Hour))
	store.Register(ctx, liveRecord("u1", "device-b", time.Hour))

	if err := store.Revoke(ctx, "device-a"); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	if ok, _ := store.Valid(ctx, "u1", "device-a"); ok {
		t.Fatalf("revoked token reported valid")
	}
	if ok, _ := store.Valid(ctx, "u1", "device-b"); !ok {
		t.Fatalf("unrelated device lost its session")
	}
	if err := store.Revoke(ctx, "device-a"); err != nil {
		t.Fatalf("double revoke errored: %v", err)
	}
}

func TestRedisStoreRevokeAll(t *testing.T) {
	ctx := context.Background()
	store, _ := newRedisStore(t)

	store.Register(ctx, liveRecord("u1", "a1", time.Hour))
	store.Register(ctx, liveRecord("u1", "a2", time.Hour))
	store.Register(ctx, liveRecord("u2", "b1", time.Hour))

	if err := store.RevokeAll(ctx, "u1"); err != nil {
		t.Fatalf("RevokeAll failed: %v", err)
	}
	if ok, _ := store.Valid(ctx, "u1", "a1"); ok {
		t.Fatalf("a1 survived RevokeAll")
	}
	if ok, _ := store.Valid(ctx, "u1", "a2"); ok {
		t.Fatalf("a2 survived RevokeAll")
	}
	if ok, _ := store.Valid(ctx, "u2", "b1"); !ok {
		t.Fatalf("RevokeAll leaked into another principal")
	}
}

func TestRedisStoreSweepPrunesIndex(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t)

	store.Register(ctx, liveRecord("u1", "short", time.Minute))
	store.Register(ctx, liveRecord("u1", "long", time.Hour))

	mr.FastForward(2 * time.Minute)

	removed, err := store.SweepExpired(ctx)
	if err != nil {
		t.Fatalf("SweepExpired failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if ok, _ := store.Valid(ctx, "u1", "long"); !ok {
		t.Fatalf("sweep removed a live entry")
	}
}

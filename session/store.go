package session

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable wraps backend transport failures. Callers treat it as a
// verification failure, not a crash: the default posture is reject-closed.
var ErrUnavailable = errors.New("session store unavailable")

// Record is one registered refresh token: which principal it belongs to and
// when it expires on its own. The store never sees the token itself, only its
// identifier.
type Record struct {
	PrincipalID string
	TokenID     string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// Store is the revocation/session-record contract consumed by the Engine.
// Implementations must tolerate concurrent reads, inserts, and revocations
// without losing entries.
type Store interface {
	// Register adds rec to its principal's session record. Idempotent: a
	// duplicate token ID refreshes the stored expiry and nothing else.
	Register(ctx context.Context, rec Record) error

	// Valid reports whether tokenID is registered to principalID, unrevoked,
	// and unexpired.
	Valid(ctx context.Context, principalID, tokenID string) (bool, error)

	// Revoke removes exactly one token (single-device logout). Revoking an
	// unknown token is not an error.
	Revoke(ctx context.Context, tokenID string) error

	// RevokeAll clears every entry for principalID (logout-all, account
	// deactivation).
	RevokeAll(ctx context.Context, principalID string) error

	// SweepExpired drops entries past their own expiry and returns how many
	// were removed. Safe to call concurrently and repeatedly; it must never
	// remove an entry that is still valid.
	SweepExpired(ctx context.Context) (int, error)
}

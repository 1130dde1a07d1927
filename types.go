package tokengate

import (
	"context"
	"io"
	"time"

	internalaudit "tokengate/internal/audit"
	"tokengate/token"
)

// Principal is the authenticated identity a token represents: opaque ID,
// display/email attribute, role tag. Immutable once signed into a token.
type Principal struct {
	ID    string
	Email string
	Role  string
}

func (p Principal) subject() token.Subject {
	return token.Subject{PrincipalID: p.ID, Email: p.Email, Role: p.Role}
}

func principalFromSubject(sub token.Subject) Principal {
	return Principal{ID: sub.PrincipalID, Email: sub.Email, Role: sub.Role}
}

// PrincipalProvider is the interface the host implements to integrate
// tokengate with its user database. Credential verification happens outside
// this module; the provider only answers existence and status.
type PrincipalProvider interface {
	// GetPrincipal returns the current record for id, or an error matching
	// [ErrPrincipalNotFound] when no such principal exists.
	GetPrincipal(ctx context.Context, id string) (PrincipalRecord, error)
}

// PrincipalRecord is the provider's view of an account.
type PrincipalRecord struct {
	Principal Principal
	Active    bool
}

// TokenPair is the result of issuance at login/registration.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// AccessGrant is the result of a refresh exchange: a fresh access token only.
// The refresh token is reused until its own expiry or explicit revocation.
type AccessGrant struct {
	AccessToken     string
	AccessExpiresAt time.Time
}

// AuthResult is returned by [Engine.VerifyAccess]: the verified principal
// claims plus the token identity, for handlers that log or bind to it.
type AuthResult struct {
	Principal Principal
	TokenID   string
	ExpiresAt time.Time
}

// AuditEvent is a structured audit record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer].
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

package tokengate

import (
	"bytes"
	"errors"
	"strings"
	"time"
)

// Config defines the engine's immutable configuration tree. Configure before
// [Builder.Build]; the engine clones what it keeps.
type Config struct {
	Token   TokenConfig
	Session SessionConfig
	Audit   AuditConfig
	Metrics MetricsConfig
}

// TokenConfig holds codec material and lifetimes. Access tokens live minutes,
// refresh tokens days; the two kinds sign with different secrets so leaking
// one does not compromise the other.
type TokenConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Audience      string
}

// SessionConfig controls the session-record store lifecycle.
type SessionConfig struct {
	// SweepInterval is the period of the background expired-entry sweep.
	// Zero disables the owned sweeper (the host may call Engine.Sweep
	// itself).
	SweepInterval time.Duration
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process metrics counters.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns the baseline configuration: 15 minute access tokens,
// 7 day refresh tokens, audit and metrics on. Secrets must still be supplied.
func DefaultConfig() Config {
	return Config{
		Token: TokenConfig{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
			Issuer:     "tokengate",
			Audience:   "dashboard",
		},
		Session: SessionConfig{
			SweepInterval: time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate rejects configurations the engine cannot run safely.
func (c Config) Validate() error {
	if len(c.Token.AccessSecret) == 0 || len(c.Token.RefreshSecret) == 0 {
		return errors.New("token secrets are required")
	}
	if bytes.Equal(c.Token.AccessSecret, c.Token.RefreshSecret) {
		return errors.New("access and refresh secrets must differ")
	}
	if c.Token.AccessTTL <= 0 || c.Token.RefreshTTL <= 0 {
		return errors.New("token TTLs must be positive")
	}
	if c.Token.AccessTTL >= c.Token.RefreshTTL {
		return errors.New("access TTL must be shorter than refresh TTL")
	}
	if strings.TrimSpace(c.Token.Issuer) == "" {
		return errors.New("issuer is required")
	}
	if strings.TrimSpace(c.Token.Audience) == "" {
		return errors.New("audience is required")
	}
	if c.Session.SweepInterval < 0 {
		return errors.New("sweep interval must not be negative")
	}
	if c.Audit.Enabled && c.Audit.BufferSize < 0 {
		return errors.New("audit buffer size must not be negative")
	}
	return nil
}

func cloneConfig(c Config) Config {
	out := c
	out.Token.AccessSecret = cloneBytes(c.Token.AccessSecret)
	out.Token.RefreshSecret = cloneBytes(c.Token.RefreshSecret)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

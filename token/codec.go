package token

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Kind discriminates access tokens from refresh tokens. Tokens of one kind
// must never validate as the other.
type Kind uint8

const (
	// KindAccess is the short-lived credential attached to individual API calls.
	KindAccess Kind = iota
	// KindRefresh is the long-lived credential exchanged for new access tokens.
	KindRefresh
)

func (k Kind) String() string {
	if k == KindRefresh {
		return "refresh"
	}
	return "access"
}

// Subject is the principal identity signed into a token. Immutable once
// issued; a token always presents the claims as they were at issuance time.
type Subject struct {
	PrincipalID string
	Email       string
	Role        string
}

// Claims is the verified content of a decoded token.
type Claims struct {
	Subject   Subject
	Kind      Kind
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// wireClaims is the JWT payload layout. The kind discriminator travels in the
// "tkn" claim alongside the registered claim set.
type wireClaims struct {
	Email string `json:"eml,omitempty"`
	Role  string `json:"rol,omitempty"`
	Token string `json:"tkn"`
	jwt.RegisteredClaims
}

// Config holds the codec's signing material and validation constants.
// Access and refresh secrets must differ so that leaking one does not
// compromise the other.
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	Issuer        string
	Audience      string

	// Now supplies verification time. Defaults to time.Now; tests inject a
	// simulated clock.
	Now func() time.Time
}

// Codec signs and verifies tokens. Safe for concurrent use after construction.
type Codec struct {
	config Config
}

// NewCodec validates the configuration and returns a ready codec.
func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.AccessSecret) == 0 || len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("token: both access and refresh secrets are required")
	}
	if bytes.Equal(cfg.AccessSecret, cfg.RefreshSecret) {
		return nil, errors.New("token: access and refresh secrets must differ")
	}
	if cfg.Issuer == "" || cfg.Audience == "" {
		return nil, errors.New("token: issuer and audience are required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Codec{config: cfg}, nil
}

// Encode signs a token of the given kind for sub, valid for ttl from the
// codec clock. It returns the compact token string and the claims as issued,
// including the generated token ID the caller registers server-side.
func (c *Codec) Encode(kind Kind, sub Subject, ttl time.Duration) (string, *Claims, error) {
	if ttl <= 0 {
		return "", nil, fmt.Errorf("token: non-positive ttl %v", ttl)
	}

	now := c.config.Now()
	claims := &Claims{
		Subject:   sub,
		Kind:      kind,
		TokenID:   uuid.NewString(),
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}

	wc := wireClaims{
		Email: sub.Email,
		Role:  sub.Role,
		Token: kind.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        claims.TokenID,
			Subject:   sub.PrincipalID,
			Issuer:    c.config.Issuer,
			Audience:  jwt.ClaimStrings{c.config.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, wc).SignedString(c.secretFor(kind))
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// Decode verifies tokenStr against the key for expected and returns its
// claims. The returned error carries the failure cause; see the package
// documentation for the taxonomy.
func (c *Codec) Decode(tokenStr string, expected Kind) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.config.Issuer),
		jwt.WithAudience(c.config.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.config.Now),
	)

	wc := &wireClaims{}
	_, err := parser.ParseWithClaims(tokenStr, wc, func(*jwt.Token) (interface{}, error) {
		return c.secretFor(expected), nil
	})
	if err != nil {
		return nil, classify(err, wc)
	}

	if wc.Token != expected.String() {
		return nil, ErrKindMismatch
	}

	claims := &Claims{
		Subject: Subject{
			PrincipalID: wc.Subject,
			Email:       wc.Email,
			Role:        wc.Role,
		},
		Kind:    expected,
		TokenID: wc.ID,
	}
	if wc.IssuedAt != nil {
		claims.IssuedAt = wc.IssuedAt.Time
	}
	if wc.ExpiresAt != nil {
		claims.ExpiresAt = wc.ExpiresAt.Time
	}
	return claims, nil
}

func (c *Codec) secretFor(kind Kind) []byte {
	if kind == KindRefresh {
		return c.config.RefreshSecret
	}
	return c.config.AccessSecret
}

// classify maps golang-jwt parse errors onto the package taxonomy. Signature
// failures win over claim failures: a tampered token is never reported as
// merely expired.
func classify(err error, wc *wireClaims) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrSignatureInvalid
	case errors.Is(err, jwt.ErrTokenExpired):
		expired := &ExpiredError{}
		if wc != nil && wc.ExpiresAt != nil {
			expired.ExpiredAt = wc.ExpiresAt.Time
		}
		return expired
	case errors.Is(err, jwt.ErrTokenInvalidIssuer),
		errors.Is(err, jwt.ErrTokenInvalidAudience):
		return ErrIssuerAudience
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}

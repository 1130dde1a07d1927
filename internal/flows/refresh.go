package flows

import (
	"context"
	"errors"
	"time"

	"tokengate/token"
)

// RefreshFailureKind classifies refresh-exchange failures for root-level
// mapping. Every kind except None is terminal for that attempt: the Engine
// never retries a refresh on behalf of the caller.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	// RefreshFailureDecode: the presented refresh token failed codec
	// verification (expired, tampered, wrong kind, wrong issuer).
	RefreshFailureDecode
	// RefreshFailureSessionRevoked: structurally valid, but the token is not
	// in its principal's session record. This is what makes logout stick.
	RefreshFailureSessionRevoked
	RefreshFailureStoreUnavailable
	RefreshFailurePrincipalNotFound
	RefreshFailurePrincipalInactive
	RefreshFailureProvider
	RefreshFailureIssueAccess
)

// RefreshResult carries the freshly issued access token or failure metadata.
type RefreshResult struct {
	Failure RefreshFailureKind
	Err     error

	PrincipalID     string
	TokenID         string
	AccessToken     string
	AccessExpiresAt time.Time
}

// RefreshDeps captures refresh-exchange dependencies.
type RefreshDeps struct {
	DecodeRefresh     func(string) (*token.Claims, error)
	SessionValid      func(ctx context.Context, principalID, tokenID string) (bool, error)
	PrincipalActive   func(ctx context.Context, principalID string) (bool, error)
	PrincipalNotFound error
	IssueAccess       func(sub token.Subject) (string, *token.Claims, error)
}

// RunRefresh exchanges a refresh token for a fresh access token. The refresh
// token is not rotated: it stays valid until its own expiry or explicit
// revocation.
func RunRefresh(ctx context.Context, refreshToken string, deps RefreshDeps) RefreshResult {
	claims, err := deps.DecodeRefresh(refreshToken)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureDecode, Err: err}
	}

	principalID := claims.Subject.PrincipalID

	ok, err := deps.SessionValid(ctx, principalID, claims.TokenID)
	if err != nil {
		return RefreshResult{
			Failure:     RefreshFailureStoreUnavailable,
			Err:         err,
			PrincipalID: principalID,
			TokenID:     claims.TokenID,
		}
	}
	if !ok {
		return RefreshResult{
			Failure:     RefreshFailureSessionRevoked,
			PrincipalID: principalID,
			TokenID:     claims.TokenID,
		}
	}

	active, err := deps.PrincipalActive(ctx, principalID)
	if err != nil {
		kind := RefreshFailureProvider
		if deps.PrincipalNotFound != nil && errors.Is(err, deps.PrincipalNotFound) {
			kind = RefreshFailurePrincipalNotFound
		}
		return RefreshResult{Failure: kind, Err: err, PrincipalID: principalID, TokenID: claims.TokenID}
	}
	if !active {
		return RefreshResult{
			Failure:     RefreshFailurePrincipalInactive,
			PrincipalID: principalID,
			TokenID:     claims.TokenID,
		}
	}

	access, issued, err := deps.IssueAccess(claims.Subject)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureIssueAccess, Err: err, PrincipalID: principalID, TokenID: claims.TokenID}
	}

	return RefreshResult{
		PrincipalID:     principalID,
		TokenID:         claims.TokenID,
		AccessToken:     access,
		AccessExpiresAt: issued.ExpiresAt,
	}
}

package flows

import (
	"context"

	"tokengate/token"
)

// LogoutFailureKind classifies logout failures for root-level mapping.
type LogoutFailureKind int

const (
	LogoutFailureNone LogoutFailureKind = iota
	LogoutFailureDecode
	LogoutFailureStore
)

// LogoutResult reports which session record was targeted.
type LogoutResult struct {
	Failure LogoutFailureKind
	Err     error

	PrincipalID string
	TokenID     string
}

// LogoutDeps captures logout dependencies.
type LogoutDeps struct {
	DecodeRefresh func(string) (*token.Claims, error)
	Revoke        func(ctx context.Context, tokenID string) error
	RevokeAll     func(ctx context.Context, principalID string) error
}

// RunLogout revokes exactly the presented refresh token (single-device
// logout). An expired or malformed token fails decode; there is nothing left
// to revoke for it.
func RunLogout(ctx context.Context, refreshToken string, deps LogoutDeps) LogoutResult {
	claims, err := deps.DecodeRefresh(refreshToken)
	if err != nil {
		return LogoutResult{Failure: LogoutFailureDecode, Err: err}
	}

	if err := deps.Revoke(ctx, claims.TokenID); err != nil {
		return LogoutResult{
			Failure:     LogoutFailureStore,
			Err:         err,
			PrincipalID: claims.Subject.PrincipalID,
			TokenID:     claims.TokenID,
		}
	}
	return LogoutResult{
		PrincipalID: claims.Subject.PrincipalID,
		TokenID:     claims.TokenID,
	}
}

// RunLogoutAll clears every session record for the principal.
func RunLogoutAll(ctx context.Context, principalID string, deps LogoutDeps) LogoutResult {
	if err := deps.RevokeAll(ctx, principalID); err != nil {
		return LogoutResult{Failure: LogoutFailureStore, Err: err, PrincipalID: principalID}
	}
	return LogoutResult{PrincipalID: principalID}
}

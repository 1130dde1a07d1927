package flows

import (
	"context"
	"errors"

	"tokengate/token"
)

// VerifyFailureKind classifies access-token verification failures for
// root-level mapping.
type VerifyFailureKind int

const (
	VerifyFailureNone VerifyFailureKind = iota
	// VerifyFailureExpired is the one cause deliberately observable by
	// clients: it tells the refresh coordinator that refreshing can help.
	VerifyFailureExpired
	// VerifyFailureMalformed covers every other codec failure. The
	// distinctions exist in the error value for diagnostics but are never
	// surfaced to the wire.
	VerifyFailureMalformed
	VerifyFailurePrincipalNotFound
	VerifyFailurePrincipalInactive
	VerifyFailureProvider
)

// VerifyResult carries the verified claims or failure metadata.
type VerifyResult struct {
	Failure VerifyFailureKind
	Err     error
	Claims  *token.Claims
}

// VerifyDeps captures the access-token verification dependencies. The flow is
// the stateless fast path: it never consults the session store.
type VerifyDeps struct {
	DecodeAccess    func(string) (*token.Claims, error)
	PrincipalActive func(ctx context.Context, principalID string) (bool, error)
	// PrincipalNotFound is the provider's sentinel for an unknown principal,
	// compared with errors.Is.
	PrincipalNotFound error
}

// RunVerify decodes and validates an access token and confirms the principal
// still exists and is active.
func RunVerify(ctx context.Context, accessToken string, deps VerifyDeps) VerifyResult {
	claims, err := deps.DecodeAccess(accessToken)
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			return VerifyResult{Failure: VerifyFailureExpired, Err: err}
		}
		return VerifyResult{Failure: VerifyFailureMalformed, Err: err}
	}

	active, err := deps.PrincipalActive(ctx, claims.Subject.PrincipalID)
	if err != nil {
		if deps.PrincipalNotFound != nil && errors.Is(err, deps.PrincipalNotFound) {
			return VerifyResult{Failure: VerifyFailurePrincipalNotFound, Err: err, Claims: claims}
		}
		// Provider trouble rejects closed.
		return VerifyResult{Failure: VerifyFailureProvider, Err: err, Claims: claims}
	}
	if !active {
		return VerifyResult{Failure: VerifyFailurePrincipalInactive, Claims: claims}
	}

	return VerifyResult{Claims: claims}
}

package tokengate

import "errors"

var (
	// ErrTokenInvalid covers every access or refresh token failure the Gate
	// deliberately leaves indistinguishable: malformed, bad signature,
	// issuer/audience mismatch, kind mismatch. Collapsing them avoids
	// handing an oracle to whoever forged the token.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenExpired is the one cause clients may observe separately,
	// because it is the signal that refreshing can help.
	ErrTokenExpired = errors.New("token expired")
	// ErrSessionRevoked marks a refresh token that verifies structurally but
	// is no longer in its principal's session record.
	ErrSessionRevoked = errors.New("session revoked")
	// ErrPrincipalInactive marks a token whose principal is missing or
	// deactivated.
	ErrPrincipalInactive = errors.New("principal inactive")
	// ErrPrincipalNotFound is the sentinel a PrincipalProvider returns for an
	// unknown principal ID.
	ErrPrincipalNotFound = errors.New("principal not found")
	// ErrStoreUnavailable wraps session-store transport failures. Verification
	// rejects closed on it.
	ErrStoreUnavailable = errors.New("session store unavailable")
	// ErrEngineNotReady is returned when an Engine method runs before Build.
	ErrEngineNotReady = errors.New("engine not initialized")
)

package token

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrSignatureInvalid is returned when a token does not verify under the
	// key for the expected kind.
	ErrSignatureInvalid = errors.New("token signature invalid")
	// ErrExpired is the match target for expired tokens; the concrete value
	// is always an [*ExpiredError].
	ErrExpired = errors.New("token expired")
	// ErrIssuerAudience is returned when the issuer or audience claim does
	// not match the configured constants, regardless of signature validity.
	ErrIssuerAudience = errors.New("token issuer or audience mismatch")
	// ErrKindMismatch is returned when a structurally valid token embeds a
	// different kind than the caller expected.
	ErrKindMismatch = errors.New("token kind mismatch")
	// ErrMalformed covers every other decode failure.
	ErrMalformed = errors.New("token malformed")
)

// ExpiredError reports an expired token and carries the original expiry for
// diagnostics.
type ExpiredError struct {
	ExpiredAt time.Time
}

func (e *ExpiredError) Error() string {
	if e.ExpiredAt.IsZero() {
		return ErrExpired.Error()
	}
	return fmt.Sprintf("token expired at %s", e.ExpiredAt.UTC().Format(time.RFC3339))
}

// Is makes [errors.Is](err, ErrExpired) match.
func (e *ExpiredError) Is(target error) bool {
	return target == ErrExpired
}

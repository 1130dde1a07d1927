// Package token encodes, signs, and verifies the access and refresh tokens that
// carry principal claims between the dashboard server and its clients.
//
// # Kind separation
//
// Access and refresh tokens are signed with different secrets and carry an
// embedded kind discriminator. A token of one kind never verifies where the
// other is expected: the wrong secret fails the signature check, and a shared
// secret still trips the kind check.
//
// # Error taxonomy
//
// Decode failures are tagged values matched with [errors.Is]:
// [ErrSignatureInvalid], [ErrExpired] (via [*ExpiredError], which carries the
// original expiry), [ErrIssuerAudience], [ErrKindMismatch], and [ErrMalformed]
// for everything else. Callers branch on cause without string matching.
//
// # Architecture boundaries
//
// This package owns the wire format and its validation. Session-record checks,
// revocation, and issuance policy belong to the Engine.
//
// # What this package must NOT do
//
//   - Perform I/O or consult the revocation store.
//   - Read the wall clock implicitly — verification time comes from the
//     injected [Config.Now].
package token

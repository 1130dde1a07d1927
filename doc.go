// Package tokengate implements the authentication token lifecycle behind a
// session-authenticated dashboard: issuance of short-lived access tokens and
// long-lived refresh tokens, server-side verification and revocation, and
// coordinated renewal of an expired access token across many concurrent
// in-flight requests (the client sub-package).
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// tokengate is the public surface. It exposes [Engine], [Builder], [Config],
// the error taxonomy, and value types. Flow orchestration and audit dispatch
// live under internal/ and are never exported. The token codec, the session
// store backends, the HTTP gate, the wire handlers, and the client refresh
// coordinator live in their own sub-packages.
//
// # Performance contract
//
// VerifyAccess is the hot path: stateless, one codec decode plus one
// principal lookup, never a session-store round-trip. Only the refresh
// exchange and logout touch the store.
package tokengate

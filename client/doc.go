// Package client implements the consumer side of the token lifecycle: it
// holds the current access/refresh pair and keeps at most one refresh
// exchange in flight no matter how many requests hit token expiry at once.
//
// # Coordinator
//
// [Coordinator] is the single-flight core. A request that observes
// TOKEN_EXPIRED calls Renew with the token it used; the first such caller
// performs the refresh exchange while every concurrent caller parks on a
// waiter queue and is resolved with the same new token. A terminal refresh
// failure (the refresh token itself expired, invalid, or revoked) rejects
// the leader and every waiter together, clears the credential store, and
// fires the sign-out hook exactly once. There is no automatic retry after
// that: the session is over until the next login.
//
// # Transport
//
// [Transport] is an http.RoundTripper that attaches the access token,
// watches responses for the TOKEN_EXPIRED signature, renews through the
// Coordinator, and replays the request at most once. A request that comes
// back TOKEN_EXPIRED a second time is surfaced as a failure rather than
// queued again.
//
// # What this package must NOT do
//
//   - Decode or validate tokens (they are opaque strings here).
//   - Refresh preemptively; renewal is driven only by the server's
//     TOKEN_EXPIRED signal.
package client

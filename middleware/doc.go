// Package middleware exposes net/http adapters that enforce access-token
// authentication on protected routes.
//
// # Guards
//
//   - [Guard] — reads the Authorization bearer token, verifies it through
//     Engine.VerifyAccess, and injects the authenticated principal into the
//     request context.
//
// Rejections are JSON 401 responses with a message field. Expired tokens get
// the distinct message "TOKEN_EXPIRED"; clients key on it to decide whether a
// refresh exchange can help. Every other cause collapses to a generic code so
// the response does not leak why a token was rejected.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement authentication logic itself — all decisions are delegated to
// Engine.VerifyAccess.
//
// # What this package must NOT do
//
//   - Parse or create tokens directly (delegates to Engine).
//   - Touch the session store (access verification is stateless).
//   - Distinguish rejection causes on the wire beyond expired vs not.
package middleware

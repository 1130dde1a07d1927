// Package internal contains helpers that are intentionally private to
// tokengate.
//
// # Sub-packages
//
//   - audit — async event dispatch (Dispatcher + Sink implementations)
//   - flows — pure-function flow orchestrators for every Engine operation
//
// # What this package must NOT do
//
//   - Export types that appear in the public tokengate API.
//   - Be imported by any package outside the tokengate module.
package internal

// Package flows contains the pure-function orchestrators behind every Engine
// operation: verify, refresh, logout, logout-all.
//
// Each flow takes a Deps struct of injected functions and classifies failures
// with a FailureKind enum plus the underlying error. The root package maps
// kinds onto its sentinel errors, so no caller ever string-matches an error
// message.
//
// # What this package must NOT do
//
//   - Import the root tokengate package (kinds exist to avoid that cycle).
//   - Perform I/O of its own; every side effect arrives through Deps.
//   - Emit audit events or metrics (root responsibility).
package flows

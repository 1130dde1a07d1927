// Package audit implements asynchronous structured event dispatch for the
// token lifecycle: pair issuance, refresh, logout, revocation, sweep.
//
// Events flow through a buffered [Dispatcher] goroutine into a caller-supplied
// [Sink]. With DropIfFull set, a slow sink costs dropped events (counted),
// never a blocked Engine operation.
//
// # What this package must NOT do
//
//   - Block token verification or issuance on sink latency.
//   - Be imported from outside the module (root re-exports the public types).
package audit

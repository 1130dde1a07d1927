// Package session tracks which refresh tokens are currently valid for each
// principal, and which have been revoked.
//
// Tokens themselves are stateless and self-contained; this store is what makes
// logout effective. A refresh token absent from its principal's session record
// is rejected even when its signature and expiry would otherwise pass.
//
// # Backends
//
//   - [MemoryStore] — mutex-guarded maps for a single-process deployment, the
//     baseline the rest of the module is designed around. Inserts and sweeps
//     are linearizable per entry: both run under the same lock and the sweep
//     re-validates expiry before deleting.
//   - [RedisStore] — go-redis backed, for hosts that already run Redis. Token
//     entries expire naturally via key TTLs; revocation by token ID runs as a
//     Lua script so the read-delete-unindex step cannot race a concurrent
//     insert.
//
// Expired entries are garbage only: they would fail expiry checks anyway, so
// [Store.SweepExpired] may drop them at any time, concurrently and repeatedly.
//
// # What this package must NOT do
//
//   - Parse or verify tokens (the codec owns the wire format).
//   - Decide authentication outcomes — it answers membership, nothing more.
package session

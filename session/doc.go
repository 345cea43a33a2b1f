// Package session issues opaque session tokens and keeps session records in
// Redis with sliding expiration.
//
// # Storage layout
//
// Every session is two keys sharing one TTL:
//
//	<prefix>.<token>.user_id  -> decimal user id
//	<prefix>.<token>.lts      -> "1" for long-term ("keep me logged in"), "0" otherwise
//
// Every mutation (create, renew, destroy) and the read path run as a single
// MULTI/EXEC transaction, so no reader observes one key without the other.
//
// # TTL convention
//
// The stored TTL is always nominal duration plus [Store] safety buffer, on
// create and on renew. Readers always get ExpiresAt = now + (remaining - buffer),
// so ExpiresAt reflects the nominal lifetime. A session whose remaining TTL
// is at or below the buffer is reported as [ErrSessionInvalid].
//
// # What this package must NOT do
//
//   - Import goSession, password, or credentials (no upward imports).
//   - Log or return raw tokens in errors. Use [Fingerprint] for diagnostics.
//   - Decide authorization. It only answers "which user, until when".
package session

// Package goSession provides a Redis-backed session engine for username and
// password logins.
//
// Sessions are identified by opaque random tokens. Each session is two
// expiring Redis keys sharing one TTL: the owning user id and the long-term
// flag. Short-term sessions last a fixed window.
// Long-term sessions ("keep me logged in") are renewed transparently once
// they pass their breakpoint, so an active user is never logged out.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// goSession is the public surface. It exposes [Engine], [Builder], [Config]
// and value types such as [MetricsSnapshot] and [AuditEvent]. Redis key
// layout and token handling live in the session package; Argon2id hashing
// lives in password; the Postgres credential repository lives in
// credentials.
//
// # Errors
//
// Every Engine operation returns errors that classify into a [Kind] through
// [KindOf]. [HTTPStatus] and [PublicMessage] turn a Kind into a response that
// never says which half of a credential pair was wrong.
//
// # Hot path
//
// Resolve costs one MULTI/EXEC round trip per call, and one more when a
// long-term session is due for renewal. Renewal failures are logged and
// counted but never fail the read.
package goSession

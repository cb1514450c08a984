// Package verdictcache stores serialized verdict records keyed by content
// fingerprint.
//
// Store implementations cover an in-process map with lazy expiry and a
// periodic sweep, Redis (SET EX / GET), and SQLite with an expires_at column.
// Open selects one from configuration; "auto" prefers Redis and falls back to
// memory when the server does not answer a ping.
//
// Cache layers the request-facing behaviour on top of a Store: a per-key
// single-flight so concurrent identical requests share one computation, and
// degradation of every store error into a logged pass-through so a broken
// cache never fails a request.
package verdictcache

// Package warden provides the login and token-issuance core of an admin
// authorization platform: credential verification with atomic failure-counter
// tracking, JWT bearer tokens cached in Redis, transient single-use tokens,
// permission resolution, and a login-log aggregator with cache-aside visit
// statistics.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// warden is the public surface. It exposes [Engine], [Builder], [Config],
// [LoginLogService], and value types (AuthToken, LoginEvent, Identity). All
// internal coordination — event dispatch, admission limiting, user-agent
// normalization — lives under internal/ and is never exported. Persistence
// lives in store/ (GORM) and cache/ (Redis); both are injectable through the
// Builder so tests can swap in miniredis and in-memory sqlite.
//
// # What this package must NOT do
//
//   - Expose Redis clients, GORM handles, or cache key layouts in its public API.
//   - Perform I/O during construction (Builder is allocation-only until Build).
//   - Import any sub-package that re-imports warden (no import cycles).
//
// # Failure contract
//
// Authentication failures are sentinel errors terminal for the request.
// Infrastructure failures wrap [ErrStoreUnavailable]. Login-event emission is
// fire-and-forget and can never abort a login.
package warden

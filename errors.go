package warden

import "errors"

var (
	// ErrAccountNotFound is returned when the login account is empty or no user
	// record exists for it.
	ErrAccountNotFound = errors.New("account not found")
	// ErrPasswordIncorrect is returned when the supplied password does not match
	// the stored hash.
	ErrPasswordIncorrect = errors.New("password incorrect")
	// ErrAccountDisabled is returned when the account exists but its status
	// forbids login.
	ErrAccountDisabled = errors.New("account disabled")
	// ErrLoginRateLimited is returned when the admission limiter rejects the
	// attempt before credentials are checked.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrTokenInvalid is returned when a bearer token has no live cache entry.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrStoreUnavailable wraps transient credential-store or cache failures.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrEngineNotReady is returned when a required dependency was not wired
	// through the Builder.
	ErrEngineNotReady = errors.New("engine not initialized")
)

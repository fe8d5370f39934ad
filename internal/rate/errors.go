package rate

import "errors"

var (
	// ErrRateLimited signals the login attempt budget for a window is spent.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable signals the counter backend could not be reached.
	ErrRedisUnavailable = errors.New("redis unavailable")
)

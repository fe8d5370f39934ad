package warden

import (
	"errors"
	"time"
)

// Config defines tuning parameters for an [Engine]. Instances are intended to
// be configured during initialization and then treated as immutable.
type Config struct {
	Token    TokenConfig
	Cache    CacheConfig
	Login    LoginConfig
	Events   EventsConfig
	LoginLog LoginLogConfig
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig controls bearer-token issuance.
type TokenConfig struct {
	// Expiration is the fixed lifetime of every issued bearer token and of its
	// cached user snapshot.
	Expiration time.Duration
	// SigningKey is the HS256 secret used by the token issuer.
	SigningKey []byte
	Issuer     string
	// TransientTTL bounds single-use verification tokens.
	TransientTTL time.Duration
}

/*
====================================
CACHE CONFIG
====================================
*/

// CacheConfig controls the Redis session cache namespace.
type CacheConfig struct {
	// Prefix namespaces every key written by the engine. Defaults to "warden".
	Prefix string
}

// LoginConfig controls admission limiting ahead of credential checks.
// The limiter is the flow-control layer: it never inspects credentials and is
// disabled by default.
type LoginConfig struct {
	ThrottleEnabled  bool
	MaxAttempts      int
	CooldownDuration time.Duration
}

// EventsConfig controls the asynchronous login-event dispatcher.
type EventsConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// LoginLogConfig controls login-log retention defaults.
type LoginLogConfig struct {
	// KeepCount is the minimum number of most-recent rows Clear retains.
	KeepCount int
}

func defaultConfig() Config {
	return Config{
		Token: TokenConfig{
			Expiration:   time.Hour,
			Issuer:       "warden",
			TransientTTL: time.Hour,
		},
		Cache: CacheConfig{
			Prefix: "warden",
		},
		Login: LoginConfig{
			ThrottleEnabled:  false,
			MaxAttempts:      10,
			CooldownDuration: 15 * time.Minute,
		},
		Events: EventsConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		LoginLog: LoginLogConfig{
			KeepCount: 100,
		},
	}
}

// Validate checks config invariants that cannot be expressed in types.
func (c Config) Validate() error {
	if c.Token.Expiration <= 0 {
		return errors.New("Token.Expiration must be positive")
	}
	if len(c.Token.SigningKey) == 0 {
		return errors.New("Token.SigningKey required")
	}
	if c.Token.TransientTTL <= 0 {
		return errors.New("Token.TransientTTL must be positive")
	}
	if c.Login.ThrottleEnabled {
		if c.Login.MaxAttempts <= 0 {
			return errors.New("Login.MaxAttempts must be positive when throttling is enabled")
		}
		if c.Login.CooldownDuration <= 0 {
			return errors.New("Login.CooldownDuration must be positive when throttling is enabled")
		}
	}
	if c.Events.Enabled && c.Events.BufferSize <= 0 {
		return errors.New("Events.BufferSize must be positive when events are enabled")
	}
	if c.LoginLog.KeepCount < 0 {
		return errors.New("LoginLog.KeepCount must not be negative")
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.SigningKey = cloneBytes(cfg.Token.SigningKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

package warden

import (
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/wardenio/warden/cache"
	"github.com/wardenio/warden/internal/rate"
	"github.com/wardenio/warden/token"
)

// Builder assembles an [Engine] and its companion [LoginLogService] from a
// config and the required external dependencies. Builders are single-use.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	userProvider UserProvider
	loginLogs    LoginLogStore
	eventSink    EventSink

	built bool
}

// New creates a Builder with the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the builder's configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the Redis client backing the session cache, transient
// tokens, aggregate cache, and admission limiter.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithUserProvider sets the credential store.
func (b *Builder) WithUserProvider(up UserProvider) *Builder {
	b.userProvider = up
	return b
}

// WithLoginLogStore sets the persistence layer for the login-log service.
// Optional: without it Build returns a nil LoginLogService.
func (b *Builder) WithLoginLogStore(store LoginLogStore) *Builder {
	b.loginLogs = store
	return b
}

// WithEventSink sets the consumer for asynchronous login events.
func (b *Builder) WithEventSink(sink EventSink) *Builder {
	b.eventSink = sink
	return b
}

// Build validates the configuration, wires the cache provider, token issuer,
// admission limiter, and event dispatcher, and returns the engine plus the
// login-log service (nil when no log store was supplied).
func (b *Builder) Build() (*Engine, *LoginLogService, error) {
	if b.built {
		return nil, nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, nil, errors.New("redis client required")
	}
	if b.userProvider == nil {
		return nil, nil, errors.New("user provider required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	cacheProvider := cache.NewProvider(b.redis, cfg.Cache.Prefix)

	issuer, err := token.NewIssuer(token.Config{
		SigningKey:   cfg.Token.SigningKey,
		Issuer:       cfg.Token.Issuer,
		Expiration:   cfg.Token.Expiration,
		TransientTTL: cfg.Token.TransientTTL,
	}, cacheProvider)
	if err != nil {
		return nil, nil, err
	}

	engine := &Engine{
		config: cfg,
		users:  b.userProvider,
		cache:  cacheProvider,
		issuer: issuer,
	}

	if cfg.Login.ThrottleEnabled {
		engine.rateLimiter = rate.New(b.redis, rate.Config{
			EnableIPThrottle:      true,
			MaxLoginAttempts:      cfg.Login.MaxAttempts,
			LoginCooldownDuration: cfg.Login.CooldownDuration,
		})
	}

	engine.events = newEventDispatcher(cfg.Events, b.eventSink)

	var logService *LoginLogService
	if b.loginLogs != nil {
		logService, err = NewLoginLogService(b.loginLogs, b.userProvider, cacheProvider, cfg.LoginLog)
		if err != nil {
			engine.Close()
			return nil, nil, err
		}
	}

	b.built = true
	return engine, logService, nil
}

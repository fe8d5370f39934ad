package main

import (
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/wardenio/warden"
)

// serverConfig is the process-level configuration, loaded once from
// environment variables with development defaults.
type serverConfig struct {
	Port          string
	DatabasePath  string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SigningKey      string
	TokenExpiration time.Duration
	EventBuffer     int

	ThrottleEnabled bool
	MaxAttempts     int
	Cooldown        time.Duration
}

const (
	defaultPort         = "8080"
	defaultDatabasePath = "warden.db"
	defaultRedisAddr    = "localhost:6379"
	defaultSigningKey   = "warden-dev-secret"
	defaultExpiration   = time.Hour
	defaultEventBuffer  = 256
)

var (
	loadedConfig serverConfig
	loadOnce     sync.Once
)

// loadConfig reads configuration from the environment. Called once at
// startup.
func loadConfig() serverConfig {
	loadOnce.Do(func() {
		loadedConfig = serverConfig{
			Port:            envString("WARDEN_PORT", defaultPort),
			DatabasePath:    envString("WARDEN_DB_PATH", defaultDatabasePath),
			RedisAddr:       envString("WARDEN_REDIS_ADDR", defaultRedisAddr),
			RedisPassword:   os.Getenv("WARDEN_REDIS_PASSWORD"),
			RedisDB:         envInt("WARDEN_REDIS_DB", 0),
			SigningKey:      envString("WARDEN_SIGNING_KEY", ""),
			TokenExpiration: envDuration("WARDEN_TOKEN_EXPIRATION", defaultExpiration),
			EventBuffer:     envInt("WARDEN_EVENT_BUFFER", defaultEventBuffer),
			ThrottleEnabled: envBool("WARDEN_LOGIN_THROTTLE", false),
			MaxAttempts:     envInt("WARDEN_LOGIN_MAX_ATTEMPTS", 10),
			Cooldown:        envDuration("WARDEN_LOGIN_COOLDOWN", 15*time.Minute),
		}
		if loadedConfig.SigningKey == "" {
			loadedConfig.SigningKey = defaultSigningKey
			log.Printf("WARDEN_SIGNING_KEY not set; using the development default. Set it in production.")
		}
	})
	return loadedConfig
}

// applyDefaults translates the process config into an engine config.
func applyDefaults(cfg warden.Config, sc serverConfig) warden.Config {
	cfg.Token.SigningKey = []byte(sc.SigningKey)
	cfg.Token.Issuer = "wardend"
	cfg.Token.Expiration = sc.TokenExpiration
	cfg.Token.TransientTTL = time.Hour
	cfg.Cache.Prefix = "warden"
	cfg.Login.ThrottleEnabled = sc.ThrottleEnabled
	cfg.Login.MaxAttempts = sc.MaxAttempts
	cfg.Login.CooldownDuration = sc.Cooldown
	cfg.Events.Enabled = true
	cfg.Events.BufferSize = sc.EventBuffer
	cfg.Events.DropIfFull = true
	cfg.LoginLog.KeepCount = 100
	return cfg
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("%s=%q is not an integer; using %d", key, v, fallback)
		return fallback
	}
	return n
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("%s=%q is not a boolean; using %t", key, v, fallback)
		return fallback
	}
	return b
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("%s=%q is not a duration; using %s", key, v, fallback)
		return fallback
	}
	return d
}

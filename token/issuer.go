// Package token mints the platform's bearer and transient tokens. Bearer
// tokens are HS256 JWTs bound to an account with a fixed expiry; transient
// tokens are single-use opaque identifiers backed by the session cache for
// one-shot verification handshakes.
package token

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/wardenio/warden/cache"
)

// transientTag is the fixed literal prefix on every transient token.
const transientTag = "token"

var (
	// ErrTokenMalformed is returned by Parse for tokens that fail signature or
	// claim validation.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrTokenExpired is returned by Parse for well-formed but expired tokens.
	ErrTokenExpired = errors.New("token expired")
)

// Config controls issuance.
type Config struct {
	SigningKey []byte
	Issuer     string
	// Expiration is the bearer-token lifetime.
	Expiration time.Duration
	// TransientTTL is the transient-token lifetime.
	TransientTTL time.Duration
}

// Issuer mints bearer and transient tokens. Safe for concurrent use.
type Issuer struct {
	config Config
	cache  *cache.Provider
}

// NewIssuer creates an [Issuer]. The cache provider backs transient tokens
// only; bearer tokens are self-contained.
func NewIssuer(cfg Config, cacheProvider *cache.Provider) (*Issuer, error) {
	if len(cfg.SigningKey) == 0 {
		return nil, errors.New("signing key required")
	}
	if cfg.Expiration <= 0 {
		return nil, errors.New("invalid expiration configuration")
	}
	if cfg.TransientTTL <= 0 {
		cfg.TransientTTL = time.Hour
	}
	return &Issuer{config: cfg, cache: cacheProvider}, nil
}

// Mint issues a signed bearer token bound to account, expiring after the
// configured lifetime.
func (i *Issuer) Mint(account string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   account,
		Issuer:    i.config.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(i.config.Expiration)),
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.config.SigningKey)
}

// Parse validates a bearer token's signature and expiry and returns the bound
// account.
func (i *Issuer) Parse(tokenStr string) (string, error) {
	parsed, err := jwt.ParseWithClaims(
		tokenStr,
		&jwt.RegisteredClaims{},
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, ErrTokenMalformed
			}
			return i.config.SigningKey, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrTokenMalformed
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", ErrTokenMalformed
	}
	return claims.Subject, nil
}

// IssueTransient mints a single-use token, stores token -> token in the
// session cache with the transient TTL, and returns it.
func (i *Issuer) IssueTransient(ctx context.Context) (string, error) {
	if i.cache == nil {
		return "", errors.New("transient tokens require a cache provider")
	}

	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	transient := transientTag + id
	if err := i.cache.Set(ctx, transient, transient, i.config.TransientTTL); err != nil {
		return "", err
	}
	return transient, nil
}

// Consume checks whether the transient token is live, deletes it if so, and
// reports whether it existed. At most one concurrent caller observes true.
func (i *Issuer) Consume(ctx context.Context, transient string) (bool, error) {
	if i.cache == nil {
		return false, errors.New("transient tokens require a cache provider")
	}
	if transient == "" || !strings.HasPrefix(transient, transientTag) {
		return false, nil
	}

	return i.cache.TakeOne(ctx, transient)
}

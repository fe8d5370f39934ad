package warden

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/wardenio/warden/cache"
	"github.com/wardenio/warden/internal/rate"
	"github.com/wardenio/warden/token"
)

// authUserKeyPrefix namespaces the cached user snapshot under its bearer
// token. The full Redis key is "<cache prefix>:AUTH_USER:<token>".
const authUserKeyPrefix = "AUTH_USER:"

// Engine orchestrates authentication: credential verification, failure
// counting, bearer-token issuance, and the cached session snapshot.
//
// Engine instances are intended to be configured through [Builder] during
// initialization and then treated as immutable.
type Engine struct {
	config      Config
	users       UserProvider
	cache       *cache.Provider
	issuer      *token.Issuer
	rateLimiter *rate.Limiter
	events      *eventDispatcher
}

// Login authenticates account+password and issues a bearer token.
//
// The outcome contract:
//   - empty or unknown account: [ErrAccountNotFound], no state written;
//   - password mismatch (disabled accounts included): the store failure
//     counter is incremented atomically, exactly one password-error event is
//     published, and [ErrPasswordIncorrect] is returned;
//   - correct password on a disabled account: [ErrAccountDisabled], no state
//     written;
//   - match: permissions are resolved, a token is minted, the
//     password-stripped snapshot is cached under the token for the token
//     lifetime, the failure counter is reset, and one success event is
//     published.
func (e *Engine) Login(ctx context.Context, account, password string) (*AuthToken, error) {
	if e == nil || e.users == nil || e.cache == nil || e.issuer == nil {
		return nil, ErrEngineNotReady
	}
	if account == "" {
		return nil, ErrAccountNotFound
	}

	ip := clientIPFromContext(ctx)

	if e.config.Login.ThrottleEnabled && e.rateLimiter != nil {
		if err := e.rateLimiter.CheckLogin(ctx, account, ip); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				return nil, ErrLoginRateLimited
			}
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}

	user, err := e.users.GetByAccount(ctx, account)
	if err != nil {
		return nil, err
	}

	// Password verification precedes the status check: a mismatch on a
	// disabled account still increments the counter and emits a failure event.
	if !verifyPassword(user.PasswordHash, password) {
		return nil, e.failLogin(ctx, user, ip)
	}
	if user.Status != StatusEnabled {
		return nil, ErrAccountDisabled
	}

	return e.completeLogin(ctx, user, ip)
}

// failLogin records one password mismatch: bump the persistent counter, feed
// the admission limiter, publish exactly one failure event.
func (e *Engine) failLogin(ctx context.Context, user UserRecord, ip string) error {
	if err := e.users.IncrPasswordErrorNum(ctx, user.ID); err != nil {
		return err
	}

	if e.config.Login.ThrottleEnabled && e.rateLimiter != nil {
		if err := e.rateLimiter.IncrementLogin(ctx, user.Account, ip); err != nil &&
			!errors.Is(err, rate.ErrRateLimited) {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}

	e.events.Emit(ctx, LoginEvent{
		Status:  LoginPasswordError,
		UserID:  user.ID,
		Account: user.Account,
		IP:      ip,
		UA:      userAgentFromContext(ctx),
		Message: "password mismatch",
	})

	return ErrPasswordIncorrect
}

func (e *Engine) completeLogin(ctx context.Context, user UserRecord, ip string) (*AuthToken, error) {
	permissions, err := e.users.GetPermissions(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	tokenStr, err := e.issuer.Mint(user.Account)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	snapshot := &AuthUser{
		ID:          user.ID,
		Account:     user.Account,
		Name:        user.Name,
		Status:      int(user.Status),
		Sex:         user.Sex,
		Permissions: permissions,
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := e.cache.Set(ctx, authUserKeyPrefix+tokenStr, string(payload), e.config.Token.Expiration); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	// Counter resets are best-effort: the session is already established.
	_ = e.users.ResetPasswordErrorNum(ctx, user.ID)
	if e.config.Login.ThrottleEnabled && e.rateLimiter != nil {
		_ = e.rateLimiter.ResetLogin(ctx, user.Account, ip)
	}

	e.events.Emit(ctx, LoginEvent{
		Status:  LoginSuccess,
		UserID:  user.ID,
		Account: user.Account,
		IP:      ip,
		UA:      userAgentFromContext(ctx),
		Message: "login succeeded",
	})

	return &AuthToken{
		Token:      tokenStr,
		Expiration: int64(e.config.Token.Expiration.Seconds()),
		AuthUser:   snapshot,
	}, nil
}

// Authenticate validates a bearer token and returns the cached user snapshot.
// A well-signed token whose cache entry has expired or been removed fails
// with [ErrTokenInvalid].
func (e *Engine) Authenticate(ctx context.Context, tokenStr string) (*AuthUser, error) {
	if e == nil || e.cache == nil || e.issuer == nil {
		return nil, ErrEngineNotReady
	}
	if tokenStr == "" {
		return nil, ErrTokenInvalid
	}

	if _, err := e.issuer.Parse(tokenStr); err != nil {
		return nil, ErrTokenInvalid
	}

	payload, err := e.cache.Get(ctx, authUserKeyPrefix+tokenStr)
	if err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return nil, ErrTokenInvalid
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	var snapshot AuthUser
	if err := json.Unmarshal([]byte(payload), &snapshot); err != nil {
		return nil, ErrTokenInvalid
	}
	if snapshot.Permissions == nil {
		snapshot.Permissions = []string{}
	}
	return &snapshot, nil
}

// Logout discards the cached snapshot for a bearer token. The JWT itself
// stays verifiable until expiry; without the cache entry it no longer
// authenticates.
func (e *Engine) Logout(ctx context.Context, tokenStr string) error {
	if e == nil || e.cache == nil {
		return ErrEngineNotReady
	}
	if tokenStr == "" {
		return nil
	}
	return e.cache.Remove(ctx, authUserKeyPrefix+tokenStr)
}

// GetPermissions returns the flattened permission set for a user. The result
// is deduplicated and never nil.
func (e *Engine) GetPermissions(ctx context.Context, userID int64) ([]string, error) {
	if e == nil || e.users == nil {
		return nil, ErrEngineNotReady
	}
	return e.users.GetPermissions(ctx, userID)
}

// GetUser fetches the store record for a user by ID.
func (e *Engine) GetUser(ctx context.Context, userID int64) (UserRecord, error) {
	if e == nil || e.users == nil {
		return UserRecord{}, ErrEngineNotReady
	}
	return e.users.GetByID(ctx, userID)
}

// IssueTransientToken mints a single-use token for one-shot verification
// handshakes.
func (e *Engine) IssueTransientToken(ctx context.Context) (string, error) {
	if e == nil || e.issuer == nil {
		return "", ErrEngineNotReady
	}
	return e.issuer.IssueTransient(ctx)
}

// ConsumeTransientToken atomically consumes a single-use token, reporting
// whether it was live. At most one concurrent caller observes true.
func (e *Engine) ConsumeTransientToken(ctx context.Context, transient string) (bool, error) {
	if e == nil || e.issuer == nil {
		return false, ErrEngineNotReady
	}
	return e.issuer.Consume(ctx, transient)
}

// LoginAttempts reports the current admission-limiter counter for an account.
// Returns zero when throttling is disabled.
func (e *Engine) LoginAttempts(ctx context.Context, account string) (int, error) {
	if e == nil {
		return 0, ErrEngineNotReady
	}
	if !e.config.Login.ThrottleEnabled || e.rateLimiter == nil {
		return 0, nil
	}
	n, err := e.rateLimiter.GetLoginAttempts(ctx, account)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return n, nil
}

// EventsDropped reports how many login events were discarded because the
// dispatcher buffer was full.
func (e *Engine) EventsDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.events.Dropped()
}

// Close drains buffered login events and stops the dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.events.Close()
}

// HashPassword hashes a plaintext password for storage.
func HashPassword(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func verifyPassword(hash, plaintext string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

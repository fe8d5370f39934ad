package warden

import (
	"context"
	"time"
)

// AccountStatus represents the lifecycle state of an admin account.
type AccountStatus uint8

const (
	// StatusEnabled is the normal state: the account may log in.
	StatusEnabled AccountStatus = iota
	// StatusDisabled forbids login; toggled by admin action only.
	StatusDisabled
)

// UserRecord is the credential-store view of an account. PasswordHash never
// leaves the login flow; error-counter fields are mutated only through
// [UserProvider.IncrPasswordErrorNum] and [UserProvider.ResetPasswordErrorNum].
type UserRecord struct {
	ID                    int64
	Account               string
	Name                  string
	PasswordHash          string
	Status                AccountStatus
	Sex                   int
	PasswordErrorNum      int
	PasswordErrorLastTime *time.Time
	CreateUser            int64
	UpdateUser            int64
}

// AuthUser is the user snapshot embedded in an [AuthToken] and cached under
// the bearer token. Password is always cleared before the snapshot leaves the
// engine.
type AuthUser struct {
	ID          int64    `json:"id"`
	Account     string   `json:"account"`
	Name        string   `json:"name"`
	Password    string   `json:"password,omitempty"`
	Status      int      `json:"status"`
	Sex         int      `json:"sex"`
	Permissions []string `json:"permissions"`
}

// AuthToken is the login result: an opaque bearer token, its fixed lifetime in
// seconds, and the password-stripped user snapshot. Immutable after issuance;
// it expires through the cache TTL, never by explicit deletion.
type AuthToken struct {
	Token      string    `json:"token"`
	Expiration int64     `json:"expiration"`
	AuthUser   *AuthUser `json:"authUser"`
}

// UserProvider is the credential-store interface the engine authenticates
// against. Implementations signal a missing record with an error satisfying
// errors.Is(err, ErrAccountNotFound); any other error is treated as a store
// failure.
//
// IncrPasswordErrorNum must be an atomic increment executed inside the store
// (one UPDATE, not read-modify-write): concurrent failed logins for the same
// account must not lose updates.
type UserProvider interface {
	GetByID(ctx context.Context, id int64) (UserRecord, error)
	GetByAccount(ctx context.Context, account string) (UserRecord, error)
	IncrPasswordErrorNum(ctx context.Context, id int64) error
	ResetPasswordErrorNum(ctx context.Context, id int64) error
	// GetPermissions returns the flattened permission strings for a user.
	// The result is a set: deduplicated, order-insignificant, never nil.
	GetPermissions(ctx context.Context, id int64) ([]string, error)
}

// LoginLogEntry is one append-only login-log row as seen by the aggregator.
type LoginLogEntry struct {
	Account         string
	UserID          int64
	UserName        string
	RequestIP       string
	UA              string
	Browser         string
	BrowserVersion  string
	OperatingSystem string
	Location        string
	Description     string
	LoginDate       time.Time
}

// LoginLogCount is a single name/count aggregate bucket (browser or OS
// breakdown).
type LoginLogCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// VisitCount is a per-day visit aggregate bucket.
type VisitCount struct {
	LoginDate string `json:"loginDate"`
	Count     int64  `json:"count"`
}

// LoginLogStore is the persistence interface behind [LoginLogService].
// Aggregate queries are the lazy recompute path of the cache-aside reads.
type LoginLogStore interface {
	Save(ctx context.Context, entry *LoginLogEntry) error
	TotalCount(ctx context.Context) (int64, error)
	CountByDate(ctx context.Context, day time.Time) (int64, error)
	CountDistinctIPByDate(ctx context.Context, day time.Time) (int64, error)
	CountByBrowser(ctx context.Context) ([]LoginLogCount, error)
	CountByOperatingSystem(ctx context.Context) ([]LoginLogCount, error)
	CountByDaySince(ctx context.Context, since time.Time, account string) ([]VisitCount, error)
	// Clear removes rows with login_date older than before while keeping at
	// least keepCount most recent rows. Reports whether any row was removed.
	Clear(ctx context.Context, before time.Time, keepCount int) (bool, error)
}

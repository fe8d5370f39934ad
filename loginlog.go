package warden

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/wardenio/warden/cache"
	"github.com/wardenio/warden/internal/useragent"
)

const (
	dayLayout = "2006-01-02"

	// Aggregate cache keys. Delete-on-write keeps them honest; the TTL only
	// bounds how long a dated key can linger after its day has passed.
	keyLogTotal     = "login_log:total"
	keyLogToday     = "login_log:today:"    // + yyyy-mm-dd
	keyLogTodayIP   = "login_log:today_ip:" // + yyyy-mm-dd
	keyLogBrowser   = "login_log:browser"
	keyLogSystem    = "login_log:system"
	keyLogTenDay    = "login_log:ten_day:" // + yyyy-mm-dd ":" account
	aggregateTTL    = 24 * time.Hour
	tenDayWindowLen = 10
)

// LoginLogService records login attempts and serves dashboard aggregates
// through cache-aside reads. Every write invalidates the aggregate keys it
// could have changed; every read lazily recomputes from the store on miss.
type LoginLogService struct {
	store     LoginLogStore
	users     UserProvider
	cache     *cache.Provider
	keepCount int
}

// NewLoginLogService wires the aggregator. users is optional: without it,
// records carry only the data present on the event.
func NewLoginLogService(store LoginLogStore, users UserProvider, cacheProvider *cache.Provider, cfg LoginLogConfig) (*LoginLogService, error) {
	if store == nil {
		return nil, errors.New("login-log store required")
	}
	if cacheProvider == nil {
		return nil, errors.New("cache provider required")
	}
	keep := cfg.KeepCount
	if keep < 0 {
		keep = 0
	}
	return &LoginLogService{
		store:     store,
		users:     users,
		cache:     cacheProvider,
		keepCount: keep,
	}, nil
}

// RecordEvent persists a login event as a log row. Used as the sink consumer
// behind the engine's event channel. The user is resolved by id when the
// event carries one, by account otherwise.
func (s *LoginLogService) RecordEvent(ctx context.Context, event LoginEvent) (*LoginLogEntry, error) {
	description := event.Message
	if description == "" {
		description = string(event.Status)
	}

	account := event.Account
	if account == "" && event.UserID != 0 && s.users != nil {
		if user, err := s.users.GetByID(ctx, event.UserID); err == nil {
			account = user.Account
		}
	}
	return s.Record(ctx, account, "", description)
}

// Record appends one login-log row for account, resolving the display name
// from the user store when available and parsing the User-Agent header from
// the context. location is the caller-supplied geographic origin and may be
// empty. Every aggregate key the row affects is invalidated afterwards.
func (s *LoginLogService) Record(ctx context.Context, account, location, description string) (*LoginLogEntry, error) {
	if account == "" {
		return nil, ErrAccountNotFound
	}

	entry := &LoginLogEntry{
		Account:     account,
		RequestIP:   clientIPFromContext(ctx),
		UA:          userAgentFromContext(ctx),
		Location:    location,
		Description: description,
		LoginDate:   time.Now(),
	}

	if s.users != nil {
		user, err := s.users.GetByAccount(ctx, account)
		if err == nil {
			entry.UserID = user.ID
			entry.UserName = user.Name
		} else if !errors.Is(err, ErrAccountNotFound) {
			return nil, err
		}
	}

	if entry.UA != "" {
		info := useragent.Parse(entry.UA)
		entry.Browser = info.Browser
		entry.BrowserVersion = info.BrowserVersion
		entry.OperatingSystem = info.OperatingSystem
	}

	if err := s.store.Save(ctx, entry); err != nil {
		return nil, err
	}

	s.invalidate(ctx, entry.LoginDate, account)

	return entry, nil
}

// invalidate drops the aggregate keys a write on day could have changed.
// Best-effort: a failed delete leaves a stale aggregate, not a wrong row.
func (s *LoginLogService) invalidate(ctx context.Context, day time.Time, account string) {
	date := day.Format(dayLayout)
	since := tenDaySince(day).Format(dayLayout)
	keys := []string{
		keyLogTotal,
		keyLogToday + date,
		keyLogTodayIP + date,
		keyLogBrowser,
		keyLogSystem,
		keyLogTenDay + since + ":",
	}
	if account != "" {
		keys = append(keys, keyLogTenDay+since+":"+account)
	}
	_ = s.cache.Remove(ctx, keys...)
}

// TotalVisitCount returns the all-time login count.
func (s *LoginLogService) TotalVisitCount(ctx context.Context) (int64, error) {
	return s.cachedCount(ctx, keyLogTotal, func(ctx context.Context) (int64, error) {
		return s.store.TotalCount(ctx)
	})
}

// TodayVisitCount returns the login count for the current calendar day.
func (s *LoginLogService) TodayVisitCount(ctx context.Context) (int64, error) {
	day := time.Now()
	return s.cachedCount(ctx, keyLogToday+day.Format(dayLayout), func(ctx context.Context) (int64, error) {
		return s.store.CountByDate(ctx, day)
	})
}

// TodayIPCount returns the number of distinct source addresses seen today.
func (s *LoginLogService) TodayIPCount(ctx context.Context) (int64, error) {
	day := time.Now()
	return s.cachedCount(ctx, keyLogTodayIP+day.Format(dayLayout), func(ctx context.Context) (int64, error) {
		return s.store.CountDistinctIPByDate(ctx, day)
	})
}

// BrowserCounts returns login counts grouped by normalized browser name.
func (s *LoginLogService) BrowserCounts(ctx context.Context) ([]LoginLogCount, error) {
	var out []LoginLogCount
	err := s.cachedJSON(ctx, keyLogBrowser, &out, func(ctx context.Context) (interface{}, error) {
		return s.store.CountByBrowser(ctx)
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []LoginLogCount{}
	}
	return out, nil
}

// OperatingSystemCounts returns login counts grouped by normalized OS name.
func (s *LoginLogService) OperatingSystemCounts(ctx context.Context) ([]LoginLogCount, error) {
	var out []LoginLogCount
	err := s.cachedJSON(ctx, keyLogSystem, &out, func(ctx context.Context) (interface{}, error) {
		return s.store.CountByOperatingSystem(ctx)
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []LoginLogCount{}
	}
	return out, nil
}

// LastTenDaysVisitCount returns per-day login counts over the trailing
// ten-day window, today included. An empty account covers all accounts.
func (s *LoginLogService) LastTenDaysVisitCount(ctx context.Context, account string) ([]VisitCount, error) {
	since := tenDaySince(time.Now())
	key := keyLogTenDay + since.Format(dayLayout) + ":" + account

	var out []VisitCount
	err := s.cachedJSON(ctx, key, &out, func(ctx context.Context) (interface{}, error) {
		return s.store.CountByDaySince(ctx, since, account)
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []VisitCount{}
	}
	return out, nil
}

// Clear deletes log rows created before the cutoff while retaining the
// configured number of most-recent rows, then drops the global aggregates.
func (s *LoginLogService) Clear(ctx context.Context, before time.Time) (bool, error) {
	removed, err := s.store.Clear(ctx, before, s.keepCount)
	if err != nil {
		return false, err
	}
	if removed {
		s.invalidate(ctx, time.Now(), "")
	}
	return removed, nil
}

func (s *LoginLogService) cachedCount(ctx context.Context, key string, loader func(ctx context.Context) (int64, error)) (int64, error) {
	value, err := s.cache.GetOrLoad(ctx, key, aggregateTTL, func(ctx context.Context) (string, error) {
		n, err := loader(ctx)
		if err != nil {
			return "", err
		}
		return strconv.FormatInt(n, 10), nil
	})
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: corrupt aggregate %q", ErrStoreUnavailable, key)
	}
	return n, nil
}

func (s *LoginLogService) cachedJSON(ctx context.Context, key string, out interface{}, loader func(ctx context.Context) (interface{}, error)) error {
	value, err := s.cache.GetOrLoad(ctx, key, aggregateTTL, func(ctx context.Context) (string, error) {
		result, err := loader(ctx)
		if err != nil {
			return "", err
		}
		payload, err := json.Marshal(result)
		if err != nil {
			return "", err
		}
		return string(payload), nil
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(value), out); err != nil {
		return fmt.Errorf("%w: corrupt aggregate %q", ErrStoreUnavailable, key)
	}
	return nil
}

// tenDaySince returns the first day of the trailing ten-day window ending on
// day.
func tenDaySince(day time.Time) time.Time {
	return day.AddDate(0, 0, -(tenDayWindowLen - 1))
}

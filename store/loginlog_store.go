package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/wardenio/warden"
)

// LoginLogStore implements warden.LoginLogStore on the login_log table.
type LoginLogStore struct {
	db *gorm.DB
}

// NewLoginLogStore wraps an open database handle.
func NewLoginLogStore(db *gorm.DB) *LoginLogStore {
	return &LoginLogStore{db: db}
}

// Save appends one login record.
func (s *LoginLogStore) Save(ctx context.Context, entry *warden.LoginLogEntry) error {
	row := LoginLog{
		Account:         entry.Account,
		UserID:          entry.UserID,
		UserName:        entry.UserName,
		RequestIP:       entry.RequestIP,
		UA:              entry.UA,
		Browser:         entry.Browser,
		BrowserVersion:  entry.BrowserVersion,
		OperatingSystem: entry.OperatingSystem,
		Location:        entry.Location,
		Description:     entry.Description,
		LoginDate:       entry.LoginDate.Format(DayFormat),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("%w: %v", warden.ErrStoreUnavailable, err)
	}
	return nil
}

// TotalCount returns the total number of login records.
func (s *LoginLogStore) TotalCount(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&LoginLog{}).Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("%w: %v", warden.ErrStoreUnavailable, err)
	}
	return n, nil
}

// CountByDate returns the number of logins on the given calendar day.
func (s *LoginLogStore) CountByDate(ctx context.Context, day time.Time) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&LoginLog{}).
		Where("login_date = ?", day.Format(DayFormat)).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("%w: %v", warden.ErrStoreUnavailable, err)
	}
	return n, nil
}

// CountDistinctIPByDate returns the number of distinct source addresses seen
// on the given calendar day.
func (s *LoginLogStore) CountDistinctIPByDate(ctx context.Context, day time.Time) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&LoginLog{}).
		Select("COUNT(DISTINCT request_ip)").
		Where("login_date = ?", day.Format(DayFormat)).
		Scan(&n).Error
	if err != nil {
		return 0, fmt.Errorf("%w: %v", warden.ErrStoreUnavailable, err)
	}
	return n, nil
}

// CountByBrowser returns login counts grouped by normalized browser name.
func (s *LoginLogStore) CountByBrowser(ctx context.Context) ([]warden.LoginLogCount, error) {
	return s.countGrouped(ctx, "browser")
}

// CountByOperatingSystem returns login counts grouped by normalized OS name.
func (s *LoginLogStore) CountByOperatingSystem(ctx context.Context) ([]warden.LoginLogCount, error) {
	return s.countGrouped(ctx, "operating_system")
}

func (s *LoginLogStore) countGrouped(ctx context.Context, column string) ([]warden.LoginLogCount, error) {
	var out []warden.LoginLogCount
	err := s.db.WithContext(ctx).Model(&LoginLog{}).
		Select(column + " AS name, COUNT(*) AS count").
		Group(column).
		Order("count DESC").
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", warden.ErrStoreUnavailable, err)
	}
	if out == nil {
		out = []warden.LoginLogCount{}
	}
	return out, nil
}

// CountByDaySince returns per-day login counts from since onward. A non-empty
// account narrows the series to that account's logins.
func (s *LoginLogStore) CountByDaySince(ctx context.Context, since time.Time, account string) ([]warden.VisitCount, error) {
	q := s.db.WithContext(ctx).Model(&LoginLog{}).
		Select("login_date, COUNT(*) AS count").
		Where("login_date >= ?", since.Format(DayFormat))
	if account != "" {
		q = q.Where("account = ?", account)
	}
	var out []warden.VisitCount
	err := q.Group("login_date").Order("login_date ASC").Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", warden.ErrStoreUnavailable, err)
	}
	if out == nil {
		out = []warden.VisitCount{}
	}
	return out, nil
}

// Clear deletes records created before the cutoff while always retaining the
// keepCount most recent rows overall. Reports whether anything was deleted.
func (s *LoginLogStore) Clear(ctx context.Context, before time.Time, keepCount int) (bool, error) {
	if keepCount < 0 {
		keepCount = 0
	}
	tx := s.db.WithContext(ctx).Exec(
		`DELETE FROM login_log
		 WHERE created_at < ?
		   AND id NOT IN (
		     SELECT id FROM login_log ORDER BY created_at DESC, id DESC LIMIT ?
		   )`,
		before, keepCount,
	)
	if tx.Error != nil {
		return false, fmt.Errorf("%w: %v", warden.ErrStoreUnavailable, tx.Error)
	}
	return tx.RowsAffected > 0, nil
}

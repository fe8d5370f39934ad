package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/wardenio/warden"
)

// UserStore implements warden.UserProvider on top of the auth_user table and
// the role/resource join graph.
type UserStore struct {
	db *gorm.DB
}

// NewUserStore wraps an open database handle.
func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

// GetByID fetches one account by primary key.
func (s *UserStore) GetByID(ctx context.Context, id int64) (warden.UserRecord, error) {
	var row AuthUser
	err := s.db.WithContext(ctx).First(&row, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return warden.UserRecord{}, warden.ErrAccountNotFound
		}
		return warden.UserRecord{}, fmt.Errorf("%w: %v", warden.ErrStoreUnavailable, err)
	}
	return toRecord(&row), nil
}

// GetByAccount fetches one account by its unique login name.
func (s *UserStore) GetByAccount(ctx context.Context, account string) (warden.UserRecord, error) {
	var row AuthUser
	err := s.db.WithContext(ctx).Where("account = ?", account).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return warden.UserRecord{}, warden.ErrAccountNotFound
		}
		return warden.UserRecord{}, fmt.Errorf("%w: %v", warden.ErrStoreUnavailable, err)
	}
	return toRecord(&row), nil
}

// IncrPasswordErrorNum bumps the consecutive-failure counter and stamps the
// failure time in a single UPDATE, so concurrent failed logins never lose an
// increment.
func (s *UserStore) IncrPasswordErrorNum(ctx context.Context, id int64) error {
	now := time.Now()
	err := s.db.WithContext(ctx).Model(&AuthUser{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"password_error_num":       gorm.Expr("password_error_num + ?", 1),
			"password_error_last_time": now,
		}).Error
	if err != nil {
		return fmt.Errorf("%w: %v", warden.ErrStoreUnavailable, err)
	}
	return nil
}

// ResetPasswordErrorNum zeroes the failure counter after a successful login.
func (s *UserStore) ResetPasswordErrorNum(ctx context.Context, id int64) error {
	err := s.db.WithContext(ctx).Model(&AuthUser{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"password_error_num":       0,
			"password_error_last_time": nil,
		}).Error
	if err != nil {
		return fmt.Errorf("%w: %v", warden.ErrStoreUnavailable, err)
	}
	return nil
}

// GetPermissions flattens the user's roles into the distinct set of resource
// codes. A user with no grants gets an empty, non-nil slice.
func (s *UserStore) GetPermissions(ctx context.Context, id int64) ([]string, error) {
	var codes []string
	err := s.db.WithContext(ctx).
		Table("auth_resource").
		Distinct().
		Joins("JOIN auth_role_resource ON auth_role_resource.resource_id = auth_resource.id").
		Joins("JOIN auth_user_role ON auth_user_role.role_id = auth_role_resource.role_id").
		Where("auth_user_role.user_id = ?", id).
		Pluck("auth_resource.code", &codes).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", warden.ErrStoreUnavailable, err)
	}
	if codes == nil {
		codes = []string{}
	}
	return codes, nil
}

// CreateUser inserts an account row and backfills its generated ID.
func (s *UserStore) CreateUser(ctx context.Context, user *AuthUser) error {
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("%w: %v", warden.ErrStoreUnavailable, err)
	}
	return nil
}

// GrantRole links a user to a role.
func (s *UserStore) GrantRole(ctx context.Context, userID, roleID int64) error {
	link := UserRole{UserID: userID, RoleID: roleID}
	if err := s.db.WithContext(ctx).Create(&link).Error; err != nil {
		return fmt.Errorf("%w: %v", warden.ErrStoreUnavailable, err)
	}
	return nil
}

// GrantResource links a role to a resource.
func (s *UserStore) GrantResource(ctx context.Context, roleID, resourceID int64) error {
	link := RoleResource{RoleID: roleID, ResourceID: resourceID}
	if err := s.db.WithContext(ctx).Create(&link).Error; err != nil {
		return fmt.Errorf("%w: %v", warden.ErrStoreUnavailable, err)
	}
	return nil
}

func toRecord(row *AuthUser) warden.UserRecord {
	return warden.UserRecord{
		ID:                    row.ID,
		Account:               row.Account,
		Name:                  row.Name,
		PasswordHash:          row.Password,
		Status:                warden.AccountStatus(row.Status),
		Sex:                   row.Sex,
		PasswordErrorNum:      row.PasswordErrorNum,
		PasswordErrorLastTime: row.PasswordErrorLastTime,
		CreateUser:            row.CreateUser,
		UpdateUser:            row.UpdateUser,
	}
}

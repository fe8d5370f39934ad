// Package store persists accounts, the role/resource permission graph, and
// the append-only login log on GORM. It implements the warden.UserProvider
// and warden.LoginLogStore interfaces.
package store

import (
	"time"
)

// AuthUser is the credential row. Password holds the hash and is never
// serialized; the error-counter columns are mutated only by the login flow.
type AuthUser struct {
	ID                    int64      `json:"id" gorm:"primaryKey;autoIncrement"`
	Account               string     `json:"account" gorm:"column:account;unique;not null;size:64"`
	Name                  string     `json:"name" gorm:"column:name;size:64"`
	Password              string     `json:"-" gorm:"column:password;not null;size:255"`
	Status                uint8      `json:"status" gorm:"column:status;not null;default:0"`
	Sex                   int        `json:"sex" gorm:"column:sex;default:0"`
	PasswordErrorNum      int        `json:"passwordErrorNum" gorm:"column:password_error_num;not null;default:0"`
	PasswordErrorLastTime *time.Time `json:"passwordErrorLastTime" gorm:"column:password_error_last_time"`
	CreateUser            int64      `json:"createUser" gorm:"column:create_user"`
	UpdateUser            int64      `json:"updateUser" gorm:"column:update_user"`
	CreatedAt             time.Time  `json:"createdAt" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time  `json:"updatedAt" gorm:"column:updated_at;autoUpdateTime"`
}

func (AuthUser) TableName() string {
	return "auth_user"
}

// AuthRole groups resources for assignment to users.
type AuthRole struct {
	ID        int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Code      string    `json:"code" gorm:"column:code;unique;not null;size:64"`
	Name      string    `json:"name" gorm:"column:name;size:64"`
	Status    uint8     `json:"status" gorm:"column:status;not null;default:0"`
	CreatedAt time.Time `json:"createdAt" gorm:"column:created_at;autoCreateTime"`
}

func (AuthRole) TableName() string {
	return "auth_role"
}

// AuthResource is one grantable permission string.
type AuthResource struct {
	ID        int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Code      string    `json:"code" gorm:"column:code;unique;not null;size:128"`
	Name      string    `json:"name" gorm:"column:name;size:64"`
	CreatedAt time.Time `json:"createdAt" gorm:"column:created_at;autoCreateTime"`
}

func (AuthResource) TableName() string {
	return "auth_resource"
}

// UserRole links a user to a role.
type UserRole struct {
	ID     int64 `gorm:"primaryKey;autoIncrement"`
	UserID int64 `gorm:"column:user_id;index;not null"`
	RoleID int64 `gorm:"column:role_id;index;not null"`
}

func (UserRole) TableName() string {
	return "auth_user_role"
}

// RoleResource links a role to a resource.
type RoleResource struct {
	ID         int64 `gorm:"primaryKey;autoIncrement"`
	RoleID     int64 `gorm:"column:role_id;index;not null"`
	ResourceID int64 `gorm:"column:resource_id;index;not null"`
}

func (RoleResource) TableName() string {
	return "auth_role_resource"
}

// LoginLog is one append-only login record. LoginDate is a calendar day kept
// as "YYYY-MM-DD" so day-bucket aggregates group without timezone arithmetic.
type LoginLog struct {
	ID              int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Account         string    `json:"account" gorm:"column:account;index;size:64"`
	UserID          int64     `json:"userId" gorm:"column:user_id;index"`
	UserName        string    `json:"userName" gorm:"column:user_name;size:64"`
	RequestIP       string    `json:"requestIp" gorm:"column:request_ip;size:64"`
	UA              string    `json:"ua" gorm:"column:ua;type:text"`
	Browser         string    `json:"browser" gorm:"column:browser;size:64"`
	BrowserVersion  string    `json:"browserVersion" gorm:"column:browser_version;size:64"`
	OperatingSystem string    `json:"operatingSystem" gorm:"column:operating_system;size:64"`
	Location        string    `json:"location" gorm:"column:location;size:128"`
	Description     string    `json:"description" gorm:"column:description;size:255"`
	LoginDate       string    `json:"loginDate" gorm:"column:login_date;index;size:10"`
	CreateUser      int64     `json:"createUser" gorm:"column:create_user"`
	CreatedAt       time.Time `json:"createdAt" gorm:"column:created_at;index;autoCreateTime"`
}

func (LoginLog) TableName() string {
	return "login_log"
}

// DayFormat is the LoginLog.LoginDate layout.
const DayFormat = "2006-01-02"

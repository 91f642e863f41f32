package auth

import "time"

// Account represents a user account record
type Account struct {
	ID           int64     `json:"id"`
	UserAccount  string    `json:"userAccount,omitempty"`
	UserPassword string    `json:"userPassword,omitempty"`
	UnionID      string    `json:"unionId,omitempty"`
	MpOpenID     string    `json:"mpOpenId,omitempty"`
	UserName     string    `json:"userName,omitempty"`
	UserAvatar   string    `json:"userAvatar,omitempty"`
	UserProfile  string    `json:"userProfile,omitempty"`
	UserSex      *int      `json:"userSex,omitempty"`
	UserRole     Role      `json:"userRole"`
	CreateTime   time.Time `json:"createTime"`
	UpdateTime   time.Time `json:"updateTime"`
}

// Role represents an account role
type Role string

const (
	RoleUser  Role = "user"  // Standard account
	RoleAdmin Role = "admin" // Administrator
	RoleBan   Role = "ban"   // Banned account
)

// DefaultRole is assigned to new accounts that do not specify one
const DefaultRole = RoleUser

// Valid reports whether the role belongs to the closed role set
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleBan:
		return true
	}
	return false
}

// IsBanned reports whether the account is banned
func (a *Account) IsBanned() bool {
	return a != nil && a.UserRole == RoleBan
}

// IsAdmin reports whether the account holds the administrator role
func (a *Account) IsAdmin() bool {
	return a != nil && a.UserRole == RoleAdmin
}

// ExternalProfile is the identity returned by a third-party login provider
type ExternalProfile struct {
	UnionID   string `json:"unionId"`
	OpenID    string `json:"openId"`
	Nickname  string `json:"nickname"`
	AvatarURL string `json:"avatarUrl"`
}

// SessionKey is the session attribute holding the logged-in account snapshot
const SessionKey = "user_login"

// DefaultPassword is the password given to accounts created by an administrator
const DefaultPassword = "12345678"

// Field length limits
const (
	MinAccountLength  = 6
	MinPasswordLength = 8
)

package accounts

import (
	"github.com/platinummonkey/usercenter/pkg/auth"
	"github.com/platinummonkey/usercenter/pkg/storage"
)

// RegisterRequest is a self-service registration
type RegisterRequest struct {
	UserAccount   string `json:"userAccount"`
	UserPassword  string `json:"userPassword"`
	CheckPassword string `json:"checkPassword"`
}

// LoginRequest is a credential login
type LoginRequest struct {
	UserAccount  string `json:"userAccount"`
	UserPassword string `json:"userPassword"`
}

// CreateRequest is an administrator-created account
type CreateRequest struct {
	UserAccount string    `json:"userAccount"`
	UserName    string    `json:"userName"`
	UserAvatar  string    `json:"userAvatar"`
	UserProfile string    `json:"userProfile"`
	UserSex     *int      `json:"userSex"`
	UserRole    auth.Role `json:"userRole"`
}

// UpdateRequest is an administrator update; nil fields are left untouched
type UpdateRequest struct {
	ID          int64      `json:"id"`
	UserName    *string    `json:"userName"`
	UserAvatar  *string    `json:"userAvatar"`
	UserProfile *string    `json:"userProfile"`
	UserSex     *int       `json:"userSex"`
	UserRole    *auth.Role `json:"userRole"`
}

// UpdateSelfRequest is a profile update by the logged-in account
type UpdateSelfRequest struct {
	UserName    *string `json:"userName"`
	UserAvatar  *string `json:"userAvatar"`
	UserProfile *string `json:"userProfile"`
	UserSex     *int    `json:"userSex"`
}

// DeleteRequest identifies an account to delete
type DeleteRequest struct {
	ID int64 `json:"id"`
}

// Page request defaults
const (
	DefaultCurrent  = 1
	DefaultPageSize = 10
)

// QueryRequest filters and pages account listings
type QueryRequest struct {
	ID          int64     `json:"id"`
	UserAccount string    `json:"userAccount"`
	UnionID     string    `json:"unionId"`
	MpOpenID    string    `json:"mpOpenId"`
	UserName    string    `json:"userName"`
	UserProfile string    `json:"userProfile"`
	UserSex     *int      `json:"userSex"`
	UserRole    auth.Role `json:"userRole"`
	Current     int64     `json:"current"`
	PageSize    int64     `json:"pageSize"`
	SortField   string    `json:"sortField"`
	SortOrder   string    `json:"sortOrder"`
}

// pageQuery converts the request into a store query with defaults applied
func (q QueryRequest) pageQuery() storage.PageQuery {
	current := q.Current
	if current <= 0 {
		current = DefaultCurrent
	}
	size := q.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	return storage.PageQuery{
		Filter: storage.AccountFilter{
			ID:          q.ID,
			UserAccount: q.UserAccount,
			UnionID:     q.UnionID,
			MpOpenID:    q.MpOpenID,
			UserName:    q.UserName,
			UserProfile: q.UserProfile,
			UserSex:     q.UserSex,
			UserRole:    q.UserRole,
		},
		Current:   current,
		PageSize:  size,
		SortField: q.SortField,
		SortOrder: q.SortOrder,
	}
}

// Page is one page of a listing
type Page[T any] struct {
	Records []T   `json:"records"`
	Total   int64 `json:"total"`
	Current int64 `json:"current"`
	Size    int64 `json:"size"`
	Pages   int64 `json:"pages"`
}

func newPage[T any](records []T, total int64, q storage.PageQuery) *Page[T] {
	pages := int64(0)
	if q.PageSize > 0 {
		pages = (total + q.PageSize - 1) / q.PageSize
	}
	return &Page[T]{
		Records: records,
		Total:   total,
		Current: q.Current,
		Size:    q.PageSize,
		Pages:   pages,
	}
}

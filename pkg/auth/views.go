package auth

import "time"

// SelfView is the projection of an account shown to its owner
type SelfView struct {
	ID          int64     `json:"id"`
	UserAccount string    `json:"userAccount,omitempty"`
	UnionID     string    `json:"unionId,omitempty"`
	MpOpenID    string    `json:"mpOpenId,omitempty"`
	UserName    string    `json:"userName,omitempty"`
	UserAvatar  string    `json:"userAvatar,omitempty"`
	UserProfile string    `json:"userProfile,omitempty"`
	UserSex     *int      `json:"userSex,omitempty"`
	UserRole    Role      `json:"userRole"`
	CreateTime  time.Time `json:"createTime"`
	UpdateTime  time.Time `json:"updateTime"`
}

// PublicView is the projection of an account shown to any caller.
// It omits the password verifier and the external identity.
type PublicView struct {
	ID          int64     `json:"id"`
	UserName    string    `json:"userName,omitempty"`
	UserAvatar  string    `json:"userAvatar,omitempty"`
	UserProfile string    `json:"userProfile,omitempty"`
	UserSex     *int      `json:"userSex,omitempty"`
	UserRole    Role      `json:"userRole"`
	CreateTime  time.Time `json:"createTime"`
}

// ToSelfView projects an account for its owner
func ToSelfView(a *Account) *SelfView {
	if a == nil {
		return nil
	}
	return &SelfView{
		ID:          a.ID,
		UserAccount: a.UserAccount,
		UnionID:     a.UnionID,
		MpOpenID:    a.MpOpenID,
		UserName:    a.UserName,
		UserAvatar:  a.UserAvatar,
		UserProfile: a.UserProfile,
		UserSex:     a.UserSex,
		UserRole:    a.UserRole,
		CreateTime:  a.CreateTime,
		UpdateTime:  a.UpdateTime,
	}
}

// ToPublicView projects an account for any caller
func ToPublicView(a *Account) *PublicView {
	if a == nil {
		return nil
	}
	return &PublicView{
		ID:          a.ID,
		UserName:    a.UserName,
		UserAvatar:  a.UserAvatar,
		UserProfile: a.UserProfile,
		UserSex:     a.UserSex,
		UserRole:    a.UserRole,
		CreateTime:  a.CreateTime,
	}
}

// ToPublicViews projects a list of accounts; the result is never nil
func ToPublicViews(accounts []*Account) []*PublicView {
	views := make([]*PublicView, 0, len(accounts))
	for _, a := range accounts {
		views = append(views, ToPublicView(a))
	}
	return views
}

// Redacted returns a copy of the account with the verifier cleared
func (a *Account) Redacted() *Account {
	if a == nil {
		return nil
	}
	c := *a
	c.UserPassword = ""
	return &c
}

package auth

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func testAccount() *Account {
	sex := 1
	return &Account{
		ID:           7,
		UserAccount:  "alice01",
		UserPassword: "532e7c0cd706f983e7b5b26d9d200d22",
		UnionID:      "union-1",
		MpOpenID:     "open-1",
		UserName:     "Alice",
		UserAvatar:   "https://img/a.png",
		UserProfile:  "hello",
		UserSex:      &sex,
		UserRole:     RoleUser,
		CreateTime:   time.Now(),
		UpdateTime:   time.Now(),
	}
}

func TestToSelfView(t *testing.T) {
	a := testAccount()
	view := ToSelfView(a)

	if view.ID != a.ID || view.UserAccount != a.UserAccount || view.UnionID != a.UnionID || view.MpOpenID != a.MpOpenID {
		t.Errorf("ToSelfView() lost identity fields: %+v", view)
	}
	data, _ := json.Marshal(view)
	if strings.Contains(string(data), a.UserPassword) || strings.Contains(string(data), "userPassword") {
		t.Errorf("self view leaks the verifier: %s", data)
	}
	if ToSelfView(nil) != nil {
		t.Error("ToSelfView(nil) must be nil")
	}
}

func TestToPublicView(t *testing.T) {
	a := testAccount()
	view := ToPublicView(a)

	if view.ID != a.ID || view.UserName != a.UserName || view.UserRole != a.UserRole {
		t.Errorf("ToPublicView() lost profile fields: %+v", view)
	}
	data, _ := json.Marshal(view)
	for _, secret := range []string{a.UserPassword, a.UnionID, a.MpOpenID, a.UserAccount} {
		if strings.Contains(string(data), secret) {
			t.Errorf("public view exposes %q: %s", secret, data)
		}
	}
}

func TestToPublicViews(t *testing.T) {
	if views := ToPublicViews(nil); views == nil || len(views) != 0 {
		t.Errorf("ToPublicViews(nil) = %v, want empty non-nil slice", views)
	}
	views := ToPublicViews([]*Account{testAccount(), testAccount()})
	if len(views) != 2 {
		t.Errorf("len = %d, want 2", len(views))
	}
}

func TestAccount_Redacted(t *testing.T) {
	a := testAccount()
	r := a.Redacted()
	if r.UserPassword != "" {
		t.Error("Redacted() kept the verifier")
	}
	if a.UserPassword == "" {
		t.Error("Redacted() modified the original")
	}
	if r.UserAccount != a.UserAccount || r.ID != a.ID {
		t.Error("Redacted() dropped other fields")
	}
	var nilAccount *Account
	if nilAccount.Redacted() != nil {
		t.Error("nil.Redacted() must be nil")
	}
}

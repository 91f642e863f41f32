// Package memory provides an in-process account store for tests and local development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/platinummonkey/usercenter/pkg/auth"
	"github.com/platinummonkey/usercenter/pkg/storage"
)

var _ storage.AccountStore = (*Store)(nil)

// Store keeps accounts in a map guarded by a mutex.
// Non-empty UserAccount and UnionID values are unique, mirroring the SQL indexes.
type Store struct {
	mu       sync.RWMutex
	accounts map[int64]*auth.Account
	nextID   int64
	now      func() time.Time
}

// New creates an empty store
func New() *Store {
	return &Store{
		accounts: make(map[int64]*auth.Account),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// FindOne returns the lowest-id account matching the filter, or nil
func (s *Store) FindOne(_ context.Context, filter storage.AccountFilter) (*auth.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := s.match(filter)
	if len(matches) == 0 {
		return nil, nil
	}
	return clone(matches[0]), nil
}

// Count returns the number of matching accounts
func (s *Store) Count(_ context.Context, filter storage.AccountFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.match(filter))), nil
}

// Insert stores a copy of account and assigns its id
func (s *Store) Insert(_ context.Context, account *auth.Account) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkUnique(0, account.UserAccount, account.UnionID); err != nil {
		return 0, err
	}
	if account.UserRole == "" {
		account.UserRole = auth.DefaultRole
	}

	s.nextID++
	now := s.now()
	account.ID = s.nextID
	account.CreateTime = now
	account.UpdateTime = now
	s.accounts[account.ID] = clone(account)
	return account.ID, nil
}

// UpdateByID applies the non-nil fields of patch
func (s *Store) UpdateByID(_ context.Context, id int64, patch storage.AccountPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.accounts[id]
	if !ok {
		return fmt.Errorf("account %d: %w", id, storage.ErrNotFound)
	}
	if patch.UnionID != nil {
		if err := s.checkUnique(id, "", *patch.UnionID); err != nil {
			return err
		}
	}

	updated := clone(existing)
	if patch.UnionID != nil {
		updated.UnionID = *patch.UnionID
	}
	if patch.MpOpenID != nil {
		updated.MpOpenID = *patch.MpOpenID
	}
	if patch.UserName != nil {
		updated.UserName = *patch.UserName
	}
	if patch.UserAvatar != nil {
		updated.UserAvatar = *patch.UserAvatar
	}
	if patch.UserProfile != nil {
		updated.UserProfile = *patch.UserProfile
	}
	if patch.UserSex != nil {
		sex := *patch.UserSex
		updated.UserSex = &sex
	}
	if patch.UserRole != nil {
		updated.UserRole = *patch.UserRole
	}
	updated.UpdateTime = s.now()
	s.accounts[id] = updated
	return nil
}

// DeleteByID removes an account
func (s *Store) DeleteByID(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[id]; !ok {
		return fmt.Errorf("account %d: %w", id, storage.ErrNotFound)
	}
	delete(s.accounts, id)
	return nil
}

// Page returns one page of matching accounts and the total match count
func (s *Store) Page(_ context.Context, q storage.PageQuery) ([]*auth.Account, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := s.match(q.Filter)
	total := int64(len(matches))

	if _, ok := storage.SortColumn(q.SortField); ok {
		ascend := q.SortOrder == storage.SortOrderAscend
		sort.SliceStable(matches, func(i, j int) bool {
			c := compareField(matches[i], matches[j], q.SortField)
			if ascend {
				return c < 0
			}
			return c > 0
		})
	}

	result := []*auth.Account{}
	if q.PageSize <= 0 {
		return result, total, nil
	}
	start := q.Offset()
	if start >= total {
		return result, total, nil
	}
	end := start + q.PageSize
	if end > total {
		end = total
	}
	for _, a := range matches[start:end] {
		result = append(result, clone(a))
	}
	return result, total, nil
}

// HealthCheck always succeeds
func (s *Store) HealthCheck(context.Context) error {
	return nil
}

// Len returns the number of stored accounts
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.accounts)
}

// match returns matching accounts ordered by id; callers hold the lock
func (s *Store) match(f storage.AccountFilter) []*auth.Account {
	var out []*auth.Account
	for _, a := range s.accounts {
		if matches(a, f) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) checkUnique(selfID int64, userAccount, unionID string) error {
	for id, a := range s.accounts {
		if id == selfID {
			continue
		}
		if userAccount != "" && a.UserAccount == userAccount {
			return fmt.Errorf("%w: user_account %q", storage.ErrDuplicate, userAccount)
		}
		if unionID != "" && a.UnionID == unionID {
			return fmt.Errorf("%w: union_id %q", storage.ErrDuplicate, unionID)
		}
	}
	return nil
}

func matches(a *auth.Account, f storage.AccountFilter) bool {
	switch {
	case f.ID != 0 && a.ID != f.ID:
		return false
	case f.UserAccount != "" && a.UserAccount != f.UserAccount:
		return false
	case f.UserPassword != "" && a.UserPassword != f.UserPassword:
		return false
	case f.UnionID != "" && a.UnionID != f.UnionID:
		return false
	case f.MpOpenID != "" && a.MpOpenID != f.MpOpenID:
		return false
	case f.UserRole != "" && a.UserRole != f.UserRole:
		return false
	case f.UserSex != nil && (a.UserSex == nil || *a.UserSex != *f.UserSex):
		return false
	case f.UserName != "" && !strings.Contains(a.UserName, f.UserName):
		return false
	case f.UserProfile != "" && !strings.Contains(a.UserProfile, f.UserProfile):
		return false
	}
	return true
}

func compareField(a, b *auth.Account, field string) int {
	switch field {
	case "userAccount":
		return strings.Compare(a.UserAccount, b.UserAccount)
	case "userName":
		return strings.Compare(a.UserName, b.UserName)
	case "userRole":
		return strings.Compare(string(a.UserRole), string(b.UserRole))
	case "userSex":
		return compareInt(sexOf(a), sexOf(b))
	case "createTime":
		return a.CreateTime.Compare(b.CreateTime)
	case "updateTime":
		return a.UpdateTime.Compare(b.UpdateTime)
	default:
		return compareInt(a.ID, b.ID)
	}
}

func sexOf(a *auth.Account) int64 {
	if a.UserSex == nil {
		return -1
	}
	return int64(*a.UserSex)
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func clone(a *auth.Account) *auth.Account {
	c := *a
	if a.UserSex != nil {
		sex := *a.UserSex
		c.UserSex = &sex
	}
	return &c
}

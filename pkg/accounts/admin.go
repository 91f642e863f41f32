package accounts

import (
	"context"
	"errors"

	"github.com/platinummonkey/usercenter/pkg/auth"
	"github.com/platinummonkey/usercenter/pkg/storage"
)

// AdminDelete removes an account
func (s *Service) AdminDelete(ctx context.Context, id int64) error {
	if id <= 0 {
		return auth.InvalidArgument("invalid id")
	}
	if err := s.store.DeleteByID(ctx, id); err != nil {
		return s.mapWriteError(err, id)
	}
	s.invalidatePublicView(id)
	s.logAudit(ctx, auth.ActionDelete, id, "", auth.StatusSuccess, "")
	return nil
}

// AdminUpdate changes the provided fields of an account
func (s *Service) AdminUpdate(ctx context.Context, req UpdateRequest) error {
	if req.ID <= 0 {
		return auth.InvalidArgument("id is required")
	}
	if req.UserRole != nil && !req.UserRole.Valid() {
		return auth.InvalidArgument("invalid role")
	}

	patch := storage.AccountPatch{
		UserName:    req.UserName,
		UserAvatar:  req.UserAvatar,
		UserProfile: req.UserProfile,
		UserSex:     req.UserSex,
		UserRole:    req.UserRole,
	}
	if patch.Empty() {
		return s.requireAccount(ctx, req.ID)
	}
	if err := s.store.UpdateByID(ctx, req.ID, patch); err != nil {
		return s.mapWriteError(err, req.ID)
	}
	s.invalidatePublicView(req.ID)
	s.logAudit(ctx, auth.ActionUpdate, req.ID, "", auth.StatusSuccess, "")
	return nil
}

// AdminGetByID returns the full account record without its password verifier
func (s *Service) AdminGetByID(ctx context.Context, id int64) (*auth.Account, error) {
	if id <= 0 {
		return nil, auth.InvalidArgument("invalid id")
	}
	account, err := s.store.FindOne(ctx, storage.AccountFilter{ID: id})
	if err != nil {
		s.logger.WithError(err).Error("failed to look up account")
		return nil, auth.SystemError("system error", err)
	}
	if account == nil {
		return nil, auth.NewError(auth.KindNotFound, "account not found")
	}
	return account.Redacted(), nil
}

// GetPublicByID returns the public view of an account
func (s *Service) GetPublicByID(ctx context.Context, id int64) (*auth.PublicView, error) {
	if id <= 0 {
		return nil, auth.InvalidArgument("invalid id")
	}
	if s.publicViews != nil {
		if view, ok := s.publicViews.Get(id); ok {
			s.metrics.RecordCacheHit(publicViewCache)
			return view, nil
		}
		s.metrics.RecordCacheMiss(publicViewCache)
	}

	account, err := s.AdminGetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	view := auth.ToPublicView(account)
	if s.publicViews != nil {
		s.publicViews.Add(id, view)
	}
	return view, nil
}

// AdminListPage returns a page of full account records without password verifiers
func (s *Service) AdminListPage(ctx context.Context, req QueryRequest) (*Page[*auth.Account], error) {
	q := req.pageQuery()
	accounts, total, err := s.store.Page(ctx, q)
	if err != nil {
		s.logger.WithError(err).Error("failed to list accounts")
		return nil, auth.SystemError("system error", err)
	}

	records := make([]*auth.Account, 0, len(accounts))
	for _, a := range accounts {
		records = append(records, a.Redacted())
	}
	return newPage(records, total, q), nil
}

// ListPublicPage returns a page of public views; pages larger than the configured cap are rejected.
// Filters on private columns are dropped so the listing cannot be used to resolve their owners.
func (s *Service) ListPublicPage(ctx context.Context, req QueryRequest) (*Page[*auth.PublicView], error) {
	req.UserAccount, req.UnionID, req.MpOpenID = "", "", ""
	q := req.pageQuery()
	if q.PageSize > s.config.MaxPublicPageSize {
		return nil, auth.InvalidArgument("page size is too large")
	}

	accounts, total, err := s.store.Page(ctx, q)
	if err != nil {
		s.logger.WithError(err).Error("failed to list accounts")
		return nil, auth.SystemError("system error", err)
	}
	return newPage(auth.ToPublicViews(accounts), total, q), nil
}

// UpdateSelf changes the profile fields of the logged-in account.
// The session snapshot keeps the old values until the next login or RefreshSession.
func (s *Service) UpdateSelf(ctx context.Context, sess Session, req UpdateSelfRequest) error {
	caller, err := s.CurrentUser(ctx, sess)
	if err != nil {
		return err
	}

	patch := storage.AccountPatch{
		UserName:    req.UserName,
		UserAvatar:  req.UserAvatar,
		UserProfile: req.UserProfile,
		UserSex:     req.UserSex,
	}
	if patch.Empty() {
		return s.requireAccount(ctx, caller.ID)
	}
	if err := s.store.UpdateByID(ctx, caller.ID, patch); err != nil {
		return s.mapWriteError(err, caller.ID)
	}
	s.invalidatePublicView(caller.ID)
	s.logAudit(ctx, auth.ActionUpdate, caller.ID, caller.UserAccount, auth.StatusSuccess, "self")
	return nil
}

// requireAccount answers an update that changes nothing: NotFound for a
// missing row, otherwise success without touching update_time
func (s *Service) requireAccount(ctx context.Context, id int64) error {
	n, err := s.store.Count(ctx, storage.AccountFilter{ID: id})
	if err != nil {
		s.logger.WithError(err).Error("failed to look up account")
		return auth.SystemError("system error", err)
	}
	if n == 0 {
		return auth.NewError(auth.KindNotFound, "account not found")
	}
	return nil
}

func (s *Service) mapWriteError(err error, id int64) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return auth.WrapError(auth.KindNotFound, "account not found", err)
	case errors.Is(err, storage.ErrDuplicate):
		return auth.WrapError(auth.KindConflict, "account already exists", err)
	default:
		s.logger.WithError(err).Errorf("failed to write account %d", id)
		return auth.SystemError("system error", err)
	}
}

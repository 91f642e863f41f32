package accounts

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/platinummonkey/usercenter/pkg/auth"
	"github.com/platinummonkey/usercenter/pkg/storage"
)

// Login methods used in metrics
const (
	loginMethodPassword = "password"
	loginMethodExternal = "external"
)

// Login verifies credentials, binds the account to the session and returns the self view.
// Banned accounts are not rejected here; only third-party login checks the ban.
func (s *Service) Login(ctx context.Context, sess Session, req LoginRequest) (view *auth.SelfView, err error) {
	defer func() { s.metrics.RecordLogin(loginMethodPassword, outcome(err)) }()

	if isBlank(req.UserAccount, req.UserPassword) {
		return nil, auth.InvalidArgument("parameters are empty")
	}
	if utf8.RuneCountInString(req.UserAccount) < auth.MinAccountLength {
		return nil, auth.InvalidArgument("invalid account")
	}
	if utf8.RuneCountInString(req.UserPassword) < auth.MinPasswordLength {
		return nil, auth.InvalidArgument("invalid password")
	}

	account, err := s.store.FindOne(ctx, storage.AccountFilter{
		UserAccount:  req.UserAccount,
		UserPassword: s.codec.Encode(req.UserPassword),
	})
	if err != nil {
		s.logger.WithError(err).Error("failed to look up account")
		return nil, auth.SystemError("system error", err)
	}
	if account == nil {
		s.logAudit(ctx, auth.ActionLogin, 0, req.UserAccount, auth.StatusFailure, "invalid credentials")
		return nil, auth.NewError(auth.KindInvalidCredentials, "account does not exist or password is incorrect")
	}

	if err := s.establish(ctx, sess, account); err != nil {
		return nil, err
	}
	s.logAudit(ctx, auth.ActionLogin, account.ID, req.UserAccount, auth.StatusSuccess, "")
	return auth.ToSelfView(account), nil
}

// exchange resolves a third-party code to a profile; every failure becomes one opaque SystemError
func (s *Service) exchange(ctx context.Context, code string) (*auth.ExternalProfile, error) {
	if strings.TrimSpace(code) == "" {
		return nil, auth.InvalidArgument("code is required")
	}
	if s.provider == nil {
		return nil, auth.SystemError("login failed, system error", errors.New("no external identity provider configured"))
	}

	profile, err := s.provider.ExchangeCode(ctx, code)
	if err != nil {
		s.logger.WithError(err).Error("external code exchange failed")
		return nil, auth.SystemError("login failed, system error", err)
	}
	if profile == nil || isBlank(profile.UnionID, profile.OpenID) {
		s.logger.Error("external profile is missing its identifiers")
		return nil, auth.SystemError("login failed, system error", errors.New("incomplete external profile"))
	}
	return profile, nil
}

// LoginByExternalCode logs in with a third-party authorization code, creating the account on first use.
// Concurrent first logins of one external identity create exactly one account.
func (s *Service) LoginByExternalCode(ctx context.Context, sess Session, code string) (view *auth.SelfView, err error) {
	defer func() { s.metrics.RecordLogin(loginMethodExternal, outcome(err)) }()

	profile, err := s.exchange(ctx, code)
	if err != nil {
		return nil, err
	}

	unlock, err := s.lock(ctx, lockDomainUnion, profile.UnionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	account, err := s.findOrCreateExternal(ctx, profile)
	if err != nil {
		return nil, err
	}
	if account.IsBanned() {
		s.logAudit(ctx, auth.ActionExternalLogin, account.ID, profile.UnionID, auth.StatusDenied, "banned")
		return nil, auth.NewError(auth.KindForbidden, "account is banned")
	}

	if err := s.establish(ctx, sess, account); err != nil {
		return nil, err
	}
	s.logAudit(ctx, auth.ActionExternalLogin, account.ID, profile.UnionID, auth.StatusSuccess, "")
	return auth.ToSelfView(account), nil
}

// findOrCreateExternal returns the account owning profile.UnionID, creating it if needed.
// Callers hold the union id lock; a duplicate insert means another instance won, so the winner is re-read.
func (s *Service) findOrCreateExternal(ctx context.Context, profile *auth.ExternalProfile) (*auth.Account, error) {
	filter := storage.AccountFilter{UnionID: profile.UnionID}
	account, err := s.store.FindOne(ctx, filter)
	if err != nil {
		s.logger.WithError(err).Error("failed to look up external account")
		return nil, auth.SystemError("login failed", err)
	}
	if account != nil {
		return account, nil
	}

	account = &auth.Account{
		UnionID:    profile.UnionID,
		MpOpenID:   profile.OpenID,
		UserAvatar: profile.AvatarURL,
		UserName:   profile.Nickname,
		UserRole:   auth.DefaultRole,
	}
	_, err = s.store.Insert(ctx, account)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, storage.ErrDuplicate) {
		s.logger.WithError(err).Error("failed to create external account")
		return nil, auth.SystemError("login failed", err)
	}

	winner, err := s.store.FindOne(ctx, filter)
	if err != nil || winner == nil {
		return nil, auth.SystemError("login failed", err)
	}
	return winner, nil
}

// LinkExternalIdentity attaches a third-party identity to the logged-in account
func (s *Service) LinkExternalIdentity(ctx context.Context, sess Session, code string) (*auth.SelfView, error) {
	caller, err := s.CurrentUser(ctx, sess)
	if err != nil {
		return nil, err
	}
	profile, err := s.exchange(ctx, code)
	if err != nil {
		return nil, err
	}

	unlock, err := s.lock(ctx, lockDomainUnion, profile.UnionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	owner, err := s.store.FindOne(ctx, storage.AccountFilter{UnionID: profile.UnionID})
	if err != nil {
		return nil, auth.SystemError("system error", err)
	}
	if owner != nil && owner.ID != caller.ID {
		s.logAudit(ctx, auth.ActionLink, caller.ID, profile.UnionID, auth.StatusFailure, "linked to another account")
		return nil, auth.NewError(auth.KindConflict, "external identity is linked to another account")
	}

	current, err := s.store.FindOne(ctx, storage.AccountFilter{ID: caller.ID})
	if err != nil {
		return nil, auth.SystemError("system error", err)
	}
	if current == nil {
		return nil, s.clearStale(ctx, sess)
	}
	if current.UnionID != "" && current.UnionID != profile.UnionID {
		return nil, auth.NewError(auth.KindConflict, "account is already linked to another external identity")
	}

	err = s.store.UpdateByID(ctx, current.ID, storage.AccountPatch{
		UnionID:  &profile.UnionID,
		MpOpenID: &profile.OpenID,
	})
	switch {
	case errors.Is(err, storage.ErrDuplicate):
		return nil, auth.WrapError(auth.KindConflict, "external identity is linked to another account", err)
	case errors.Is(err, storage.ErrNotFound):
		return nil, s.clearStale(ctx, sess)
	case err != nil:
		return nil, auth.SystemError("system error", err)
	}

	current.UnionID = profile.UnionID
	current.MpOpenID = profile.OpenID
	if err := s.establish(ctx, sess, current); err != nil {
		return nil, err
	}
	s.invalidatePublicView(current.ID)
	s.logAudit(ctx, auth.ActionLink, current.ID, profile.UnionID, auth.StatusSuccess, "")
	return auth.ToSelfView(current), nil
}

// Logout clears the session binding. Logging out without a binding is OperationNotPermitted.
func (s *Service) Logout(ctx context.Context, sess Session) (err error) {
	defer func() { s.metrics.RecordSessionOp("logout", outcome(err)) }()

	account, err := s.snapshot(ctx, sess)
	if err != nil {
		return err
	}
	if account == nil {
		return auth.NewError(auth.KindOperationNotPermitted, "not logged in")
	}
	if err := sess.Remove(ctx, auth.SessionKey); err != nil {
		return auth.SystemError("failed to clear login state", err)
	}
	s.logAudit(ctx, auth.ActionLogout, account.ID, account.UserAccount, auth.StatusSuccess, "")
	return nil
}

// CurrentUser returns the account snapshot bound to the session.
// The snapshot is not re-read from the store; see RefreshSession.
func (s *Service) CurrentUser(ctx context.Context, sess Session) (*auth.Account, error) {
	account, err := s.snapshot(ctx, sess)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, auth.NewError(auth.KindNotAuthenticated, "not logged in")
	}
	return account, nil
}

// CurrentUserOrNil returns the bound account, or nil for anonymous callers
func (s *Service) CurrentUserOrNil(ctx context.Context, sess Session) *auth.Account {
	account, err := s.snapshot(ctx, sess)
	if err != nil {
		s.logger.WithError(err).Warn("failed to resolve caller")
		return nil
	}
	return account
}

// IsAdmin reports whether the session belongs to an administrator
func (s *Service) IsAdmin(ctx context.Context, sess Session) bool {
	return s.CurrentUserOrNil(ctx, sess).IsAdmin()
}

// GetSelf returns the self view of the logged-in account
func (s *Service) GetSelf(ctx context.Context, sess Session) (*auth.SelfView, error) {
	account, err := s.CurrentUser(ctx, sess)
	if err != nil {
		return nil, err
	}
	return auth.ToSelfView(account), nil
}

// RefreshSession re-reads the logged-in account and rebinds the fresh snapshot.
// If the account no longer exists the session is cleared.
func (s *Service) RefreshSession(ctx context.Context, sess Session) (view *auth.SelfView, err error) {
	defer func() { s.metrics.RecordSessionOp("refresh", outcome(err)) }()

	caller, err := s.CurrentUser(ctx, sess)
	if err != nil {
		return nil, err
	}
	account, err := s.store.FindOne(ctx, storage.AccountFilter{ID: caller.ID})
	if err != nil {
		return nil, auth.SystemError("system error", err)
	}
	if account == nil {
		return nil, s.clearStale(ctx, sess)
	}
	if err := s.bind(ctx, sess, account); err != nil {
		return nil, err
	}
	return auth.ToSelfView(account), nil
}

// clearStale drops a session whose account is gone
func (s *Service) clearStale(ctx context.Context, sess Session) error {
	if err := sess.Remove(ctx, auth.SessionKey); err != nil {
		return auth.SystemError("failed to clear login state", err)
	}
	return auth.NewError(auth.KindNotAuthenticated, "account no longer exists")
}

package accounts

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/platinummonkey/usercenter/pkg/auth"
	"github.com/platinummonkey/usercenter/pkg/storage"
)

func isBlank(values ...string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return true
		}
	}
	return false
}

// Register creates an account from an identifier and a confirmed password and returns its id.
// Concurrent registrations of one identifier admit exactly one winner; the rest get Conflict.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (id int64, err error) {
	defer func() { s.metrics.RecordRegistration(outcome(err)) }()

	if isBlank(req.UserAccount, req.UserPassword, req.CheckPassword) {
		return 0, auth.InvalidArgument("parameters are empty")
	}
	if utf8.RuneCountInString(req.UserAccount) < auth.MinAccountLength {
		return 0, auth.InvalidArgument("account is too short")
	}
	if utf8.RuneCountInString(req.UserPassword) < auth.MinPasswordLength ||
		utf8.RuneCountInString(req.CheckPassword) < auth.MinPasswordLength {
		return 0, auth.InvalidArgument("password is too short")
	}
	if req.UserPassword != req.CheckPassword {
		return 0, auth.InvalidArgument("passwords do not match")
	}

	unlock, err := s.lock(ctx, lockDomainAccount, req.UserAccount)
	if err != nil {
		return 0, err
	}
	defer unlock()

	if err := s.ensureAccountAvailable(ctx, req.UserAccount); err != nil {
		s.logAudit(ctx, auth.ActionRegister, 0, req.UserAccount, auth.StatusFailure, string(auth.KindOf(err)))
		return 0, err
	}

	account := &auth.Account{
		UserAccount:  req.UserAccount,
		UserPassword: s.codec.Encode(req.UserPassword),
		UserName:     s.displayName(),
		UserRole:     auth.DefaultRole,
	}
	id, err = s.insertUnique(ctx, account, "registration failed")
	if err != nil {
		s.logAudit(ctx, auth.ActionRegister, 0, req.UserAccount, auth.StatusFailure, string(auth.KindOf(err)))
		return 0, err
	}

	s.logAudit(ctx, auth.ActionRegister, id, req.UserAccount, auth.StatusSuccess, "")
	return id, nil
}

// AdminCreate creates an account on behalf of an administrator with the default password
func (s *Service) AdminCreate(ctx context.Context, req CreateRequest) (int64, error) {
	role := req.UserRole
	if role == "" {
		role = auth.DefaultRole
	}
	if !role.Valid() {
		return 0, auth.InvalidArgument("invalid role")
	}

	if req.UserAccount != "" {
		unlock, err := s.lock(ctx, lockDomainAccount, req.UserAccount)
		if err != nil {
			return 0, err
		}
		defer unlock()

		if err := s.ensureAccountAvailable(ctx, req.UserAccount); err != nil {
			return 0, err
		}
	}

	account := &auth.Account{
		UserAccount:  req.UserAccount,
		UserPassword: s.codec.Encode(auth.DefaultPassword),
		UserName:     req.UserName,
		UserAvatar:   req.UserAvatar,
		UserProfile:  req.UserProfile,
		UserSex:      req.UserSex,
		UserRole:     role,
	}
	id, err := s.insertUnique(ctx, account, "failed to create account")
	if err != nil {
		return 0, err
	}

	s.logAudit(ctx, auth.ActionCreate, id, req.UserAccount, auth.StatusSuccess, "")
	return id, nil
}

// ensureAccountAvailable fails with Conflict when the identifier is taken; callers hold its lock
func (s *Service) ensureAccountAvailable(ctx context.Context, userAccount string) error {
	count, err := s.store.Count(ctx, storage.AccountFilter{UserAccount: userAccount})
	if err != nil {
		s.logger.WithError(err).Error("failed to count accounts")
		return auth.SystemError("system error", err)
	}
	if count > 0 {
		return auth.NewError(auth.KindConflict, "account already exists")
	}
	return nil
}

// insertUnique inserts an account, reporting a lost uniqueness race as Conflict
func (s *Service) insertUnique(ctx context.Context, account *auth.Account, failure string) (int64, error) {
	id, err := s.store.Insert(ctx, account)
	if errors.Is(err, storage.ErrDuplicate) {
		return 0, auth.WrapError(auth.KindConflict, "account already exists", err)
	}
	if err != nil {
		s.logger.WithError(err).Error("failed to insert account")
		return 0, auth.SystemError(failure, err)
	}
	return id, nil
}

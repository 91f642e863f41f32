package accounts

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/platinummonkey/usercenter/pkg/auth"
	"github.com/platinummonkey/usercenter/pkg/keylock"
	"github.com/platinummonkey/usercenter/pkg/observability"
	"github.com/platinummonkey/usercenter/pkg/storage"
)

// Session is the per-client attribute store an account is bound to on login
type Session interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
	// Regenerate discards the session and continues under a new id
	Regenerate(ctx context.Context) error
}

// ProfileProvider exchanges a third-party authorization code for the caller's profile
type ProfileProvider interface {
	ExchangeCode(ctx context.Context, code string) (*auth.ExternalProfile, error)
}

// Lock domains
const (
	lockDomainAccount = "user_account"
	lockDomainUnion   = "union_id"
)

const publicViewCache = "public_view"

// Config holds account service settings
type Config struct {
	// Salt is prepended to passwords before encoding
	Salt string
	// MaxPublicPageSize caps the page size of public listings
	MaxPublicPageSize int64
	// PublicCacheSize is the number of public views kept in memory; 0 disables the cache
	PublicCacheSize int
	// PublicCacheTTL bounds how long a cached public view is served
	PublicCacheTTL time.Duration
}

// DefaultConfig returns the default service configuration
func DefaultConfig() Config {
	return Config{
		Salt:              auth.DefaultSalt,
		MaxPublicPageSize: 20,
		PublicCacheSize:   1024,
		PublicCacheTTL:    30 * time.Second,
	}
}

// Service implements registration, login, session resolution and account administration
type Service struct {
	store        storage.AccountStore
	provider     ProfileProvider
	codec        *auth.Codec
	config       Config
	accountLocks *keylock.Table
	unionLocks   *keylock.Table
	publicViews  *expirable.LRU[int64, *auth.PublicView]
	audit        *auth.AuditLogger
	logger       *observability.Logger
	metrics      *observability.Metrics
	displayName  func() string
}

// NewService creates an account service. provider may be nil when third-party login is disabled.
func NewService(store storage.AccountStore, provider ProfileProvider, config Config, logger *observability.Logger, metrics *observability.Metrics) *Service {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	if config.Salt == "" {
		config.Salt = auth.DefaultSalt
	}
	if config.MaxPublicPageSize <= 0 {
		config.MaxPublicPageSize = DefaultConfig().MaxPublicPageSize
	}

	s := &Service{
		store:        store,
		provider:     provider,
		codec:        auth.NewCodec(config.Salt),
		config:       config,
		accountLocks: keylock.New(),
		unionLocks:   keylock.New(),
		audit:        auth.NewAuditLogger(logger),
		logger:       logger.WithField("component", "accounts"),
		metrics:      metrics,
		displayName:  randomDisplayName,
	}
	if config.PublicCacheSize > 0 {
		s.publicViews = expirable.NewLRU[int64, *auth.PublicView](config.PublicCacheSize, nil, config.PublicCacheTTL)
	}
	return s
}

// randomDisplayName returns user_ followed by six random digits
func randomDisplayName() string {
	return fmt.Sprintf("user_%06d", rand.IntN(1000000))
}

// lock waits for the per-identifier lock of a domain
func (s *Service) lock(ctx context.Context, domain, key string) (func(), error) {
	table := s.accountLocks
	if domain == lockDomainUnion {
		table = s.unionLocks
	}

	start := time.Now()
	unlock, err := table.LockContext(ctx, key)
	s.metrics.ObserveLockWait(domain, time.Since(start))
	if err != nil {
		return nil, auth.SystemError("request cancelled", err)
	}
	return unlock, nil
}

// bind stores the account snapshot in the session
func (s *Service) bind(ctx context.Context, sess Session, account *auth.Account) error {
	if sess == nil {
		return auth.SystemError("session unavailable", nil)
	}
	data, err := json.Marshal(account.Redacted())
	if err != nil {
		return auth.SystemError("failed to save login state", err)
	}
	if err := sess.Set(ctx, auth.SessionKey, data); err != nil {
		s.logger.WithError(err).Error("failed to write session")
		return auth.SystemError("failed to save login state", err)
	}
	return nil
}

// establish starts a fresh session for account, so an id issued before
// authentication is never the one that carries the login
func (s *Service) establish(ctx context.Context, sess Session, account *auth.Account) error {
	if sess == nil {
		return auth.SystemError("session unavailable", nil)
	}
	if err := sess.Regenerate(ctx); err != nil {
		s.logger.WithError(err).Error("failed to regenerate session")
		return auth.SystemError("failed to save login state", err)
	}
	return s.bind(ctx, sess, account)
}

// snapshot reads the account snapshot from the session; nil when absent
func (s *Service) snapshot(ctx context.Context, sess Session) (*auth.Account, error) {
	if sess == nil {
		return nil, nil
	}
	data, ok, err := sess.Get(ctx, auth.SessionKey)
	if err != nil {
		return nil, auth.SystemError("failed to read login state", err)
	}
	if !ok {
		return nil, nil
	}

	var account auth.Account
	if err := json.Unmarshal(data, &account); err != nil {
		s.logger.WithError(err).Warn("discarding unreadable session snapshot")
		return nil, nil
	}
	if account.ID <= 0 {
		return nil, nil
	}
	return &account, nil
}

func (s *Service) invalidatePublicView(id int64) {
	if s.publicViews != nil {
		s.publicViews.Remove(id)
	}
}

func (s *Service) logAudit(ctx context.Context, action string, accountID int64, identifier, status, reason string) {
	if err := s.audit.LogAction(ctx, &auth.AuditLog{
		Action:     action,
		AccountID:  accountID,
		Identifier: identifier,
		Status:     status,
		Reason:     reason,
	}); err != nil {
		s.logger.WithError(err).Warn("failed to write audit log")
	}
}

// outcome returns a metric label for err
func outcome(err error) string {
	if err == nil {
		return "success"
	}
	return string(auth.KindOf(err))
}

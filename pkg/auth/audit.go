package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/platinummonkey/usercenter/pkg/contextkeys"
	"github.com/platinummonkey/usercenter/pkg/observability"
)

// AuditLog is a security-relevant account event
type AuditLog struct {
	Action     string
	AccountID  int64
	Identifier string
	Status     string
	Reason     string
	IPAddress  string
	CreatedAt  time.Time
}

// AuditLogger writes security audit events to the structured log
type AuditLogger struct {
	logger *observability.Logger
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *observability.Logger) *AuditLogger {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &AuditLogger{logger: logger.WithField("component", "audit")}
}

// LogAction logs an audit event
func (al *AuditLogger) LogAction(ctx context.Context, log *AuditLog) error {
	if log.Action == "" {
		return fmt.Errorf("action is required")
	}
	if log.Status == "" {
		return fmt.Errorf("status is required")
	}

	log.CreatedAt = time.Now()
	if log.IPAddress == "" {
		log.IPAddress = contextkeys.GetClientIP(ctx)
	}

	fields := map[string]interface{}{
		"action": log.Action,
		"status": log.Status,
	}
	if log.AccountID > 0 {
		fields["account_id"] = log.AccountID
	}
	if log.Identifier != "" {
		fields["identifier"] = log.Identifier
	}
	if log.Reason != "" {
		fields["reason"] = log.Reason
	}
	if log.IPAddress != "" {
		fields["ip"] = log.IPAddress
	}

	entry := al.logger.WithFields(fields)
	if requestID := contextkeys.GetRequestID(ctx); requestID != "" {
		entry = entry.WithField("request_id", requestID)
	}

	if log.Status == StatusSuccess {
		entry.Info("audit")
	} else {
		entry.Warn("audit")
	}
	return nil
}

// ClientIP extracts the client address from a request
func ClientIP(r *http.Request) string {
	// Check X-Forwarded-For header (if behind proxy)
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}

	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	return r.RemoteAddr
}

// Common audit action constants
const (
	ActionRegister      = "account.register"
	ActionLogin         = "account.login"
	ActionExternalLogin = "account.login_external"
	ActionLink          = "account.link_external"
	ActionLogout        = "account.logout"
	ActionCreate        = "account.create"
	ActionUpdate        = "account.update"
	ActionDelete        = "account.delete"
)

// Status constants
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusDenied  = "denied"
)

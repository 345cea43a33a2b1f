package goSession

import (
	"context"
	"time"

	"github.com/MrEthical07/goSession/session"
	"github.com/google/uuid"
)

const (
	auditEventLoginSuccess    = "login_success"
	auditEventLoginFailure    = "login_failure"
	auditEventLoginIgnored    = "login_ignored"
	auditEventSessionRenewed  = "session_renewed"
	auditEventSessionRejected = "session_rejected"
	auditEventLogout          = "logout"
	auditEventHashUpgraded    = "password_hash_upgraded"
)

// AuditErrorCode is the stable error label written into AuditEvent.Error.
type AuditErrorCode string

const (
	auditErrNoSession          AuditErrorCode = "no_session"
	auditErrSessionInvalid     AuditErrorCode = "session_invalid"
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrInvalidInput       AuditErrorCode = "invalid_input"
	auditErrIgnored            AuditErrorCode = "ignored"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

// Login failure reasons. They go to audit metadata only; the caller always
// sees ErrInvalidCredentials.
const (
	loginReasonUserNotFound     = "user_not_found"
	loginReasonPasswordMismatch = "password_mismatch"
	loginReasonHashRejected     = "hash_rejected"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID int64,
	token string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		EventID:          uuid.NewString(),
		Timestamp:        time.Now().UTC(),
		EventType:        eventType,
		UserID:           userID,
		TokenFingerprint: session.Fingerprint(token),
		IP:               clientIPFromContext(ctx),
		Success:          success,
		Metadata:         metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch KindOf(err) {
	case KindNoSession:
		return auditErrNoSession
	case KindSessionInvalid:
		return auditErrSessionInvalid
	case KindInvalidCredentials:
		return auditErrInvalidCredentials
	case KindInvalidInput:
		return auditErrInvalidInput
	case KindIgnored:
		return auditErrIgnored
	case KindDbError:
		return auditErrUnavailable
	}
	return auditErrInternal
}

// auditDropped counts every lost event and logs the first and each
// power-of-two total so a stuck sink shows up without flooding the log.
func (e *Engine) auditDropped(total uint64) {
	e.metricInc(MetricAuditDropped)
	if total&(total-1) == 0 {
		e.log.Warn(context.Background(), "audit events dropped", "op", "audit", "dropped_total", total)
	}
}

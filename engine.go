package goSession

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goSession/credentials"
	"github.com/MrEthical07/goSession/internal/logging"
	"github.com/MrEthical07/goSession/password"
	"github.com/MrEthical07/goSession/session"
)

// CredentialStore is the relational collaborator consulted by Login.
// GetCredentialByUsername must return ErrUserNotFound for unknown names.
type CredentialStore interface {
	GetCredentialByUsername(ctx context.Context, username string) (credentials.Credential, error)
	UpdatePasswordHash(ctx context.Context, userID int64, passwordHash string) error
}

// Engine resolves tokens into sessions and runs login and logout. It holds no
// mutable session state of its own; every session mutation is a single
// Redis transaction inside session.Store.
type Engine struct {
	config      Config
	sessions    *session.Store
	hasher      *password.Argon2
	credentials CredentialStore
	audit       *auditDispatcher
	metrics     *Metrics
	log         logging.Logger
}

// Close drains pending audit events. The Redis client and credential store
// belong to the caller and stay open.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns how many audit events were dropped on a full buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return emptySnapshot()
	}
	return e.metrics.Snapshot()
}

// Logger returns the configured logger so HTTP adapters log alongside the
// engine.
func (e *Engine) Logger() logging.Logger {
	if e == nil || e.log == nil {
		return logging.Nop()
	}
	return e.log
}

// Sessions exposes the underlying store for operator tooling.
func (e *Engine) Sessions() *session.Store {
	if e == nil {
		return nil
	}
	return e.sessions
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) ready() bool {
	return e != nil && e.sessions != nil && e.hasher != nil && e.credentials != nil
}

func notReady(op string) error {
	return &AuthError{Op: op, Kind: KindUnknown, Err: ErrEngineNotReady}
}

// Resolve turns a presented token into its session.
//
// An empty token is ErrNoSession with no store access. A live session is
// renewed as a side effect when the policy asks for it (always when
// forceRenew); a failed renewal is logged and counted but the session is
// still returned.
func (e *Engine) Resolve(ctx context.Context, token string, forceRenew bool) (*session.Session, error) {
	const op = "resolve"
	if !e.ready() {
		return nil, notReady(op)
	}
	if token == "" {
		return nil, newAuthError(op, ErrNoSession)
	}

	sess, err := e.sessions.GetSessionData(ctx, token)
	if err != nil {
		e.recordReadFailure(ctx, "get_session_data", token, err)
		return nil, newAuthError(op, err)
	}

	e.renew(ctx, sess, forceRenew)
	return sess, nil
}

// Authenticate is Resolve with success/failure counters and the latency
// histogram. Request guards should call this one.
func (e *Engine) Authenticate(ctx context.Context, token string, forceRenew bool) (*session.Session, error) {
	start := time.Now()
	sess, err := e.Resolve(ctx, token, forceRenew)

	if e != nil && e.metrics != nil {
		e.metrics.Observe(MetricAuthenticateLatency, time.Since(start))
	}
	if err != nil {
		e.metricInc(MetricAuthenticateFailure)
		return nil, err
	}

	e.metricInc(MetricAuthenticateSuccess)
	return sess, nil
}

// Logout destroys the session behind token. The token must resolve first, so
// an unknown token reports ErrSessionInvalid rather than silently succeeding.
func (e *Engine) Logout(ctx context.Context, token string) error {
	const op = "logout"
	if !e.ready() {
		return notReady(op)
	}
	if token == "" {
		return newAuthError(op, ErrNoSession)
	}

	sess, err := e.sessions.GetSessionData(ctx, token)
	if err != nil {
		e.recordReadFailure(ctx, "get_session_data", token, err)
		return newAuthError(op, err)
	}

	if err := e.sessions.DestroySession(ctx, token); err != nil {
		e.metricInc(MetricStoreError)
		e.log.Error(ctx, "session destroy failed", "op", "destroy_session", "token", session.Fingerprint(token), "error", err)
		e.emitAudit(ctx, auditEventLogout, false, sess.UserID, token, err, nil)
		return newAuthError(op, err)
	}

	e.metricInc(MetricSessionDestroyed)
	e.emitAudit(ctx, auditEventLogout, true, sess.UserID, token, nil, nil)
	return nil
}

func (e *Engine) renew(ctx context.Context, sess *session.Session, force bool) {
	if !e.sessions.Policy().ShouldRenew(sess, time.Now(), force) {
		return
	}

	if _, err := e.sessions.RenewSession(ctx, sess, true); err != nil {
		e.metricInc(MetricSessionRenewFailed)
		if errors.Is(err, session.ErrRedisUnavailable) {
			e.metricInc(MetricStoreError)
		}
		e.log.Warn(ctx, "session renew failed", "op", "renew_session", "token", session.Fingerprint(sess.Token), "user_id", sess.UserID, "error", err)
		return
	}

	e.metricInc(MetricSessionRenewed)
	e.emitAudit(ctx, auditEventSessionRenewed, true, sess.UserID, sess.Token, nil, func() map[string]string {
		return map[string]string{
			"forced": boolString(force),
		}
	})
}

func (e *Engine) recordReadFailure(ctx context.Context, op, token string, err error) {
	if errors.Is(err, session.ErrRedisUnavailable) {
		e.metricInc(MetricStoreError)
		e.log.Error(ctx, "session read failed", "op", op, "token", session.Fingerprint(token), "error", err)
		return
	}
	e.metricInc(MetricSessionInvalid)
	e.emitAudit(ctx, auditEventSessionRejected, false, 0, token, err, nil)
}

func boolString(v bool) string {
	if v {
		return "true"
	}
	return "false"
}

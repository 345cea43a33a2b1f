package goSession

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/goSession/session"
)

const (
	// MaxUsernameLength bounds login usernames (ASCII letters and digits).
	MaxUsernameLength = 32
	// MaxLoginPasswordLength bounds login passwords (ASCII letters, digits
	// and punctuation).
	MaxLoginPasswordLength = 64
)

// LoginRequest is the input to Engine.Login. PresentedToken is whatever
// token the client already carries, possibly empty.
type LoginRequest struct {
	PresentedToken string
	Username       string
	Password       string
	KeepLoggedIn   bool
}

// ValidateUsername reports whether u satisfies the login input policy.
func ValidateUsername(u string) error {
	if u == "" || len(u) > MaxUsernameLength {
		return ErrInvalidInput
	}
	for i := 0; i < len(u); i++ {
		if !isASCIIAlnum(u[i]) {
			return ErrInvalidInput
		}
	}
	return nil
}

// ValidatePassword reports whether p satisfies the login input policy.
// Space is not punctuation.
func ValidatePassword(p string) error {
	if p == "" || len(p) > MaxLoginPasswordLength {
		return ErrInvalidInput
	}
	for i := 0; i < len(p); i++ {
		if !isASCIIAlnum(p[i]) && !isASCIIPunct(p[i]) {
			return ErrInvalidInput
		}
	}
	return nil
}

func isASCIIAlnum(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func isASCIIPunct(c byte) bool {
	return (c >= '!' && c <= '/') || (c >= ':' && c <= '@') || (c >= '[' && c <= '`') || (c >= '{' && c <= '~')
}

// Login verifies credentials and creates a session.
//
// A caller whose PresentedToken still resolves gets ErrLoginIgnored. Unknown
// users and wrong passwords both return ErrInvalidCredentials after the same
// amount of hashing work; only the audit trail records which one it was.
func (e *Engine) Login(ctx context.Context, req LoginRequest) (*session.Session, error) {
	const op = "login"
	if !e.ready() {
		return nil, notReady(op)
	}

	if req.PresentedToken != "" {
		if active, err := e.sessions.GetSessionData(ctx, req.PresentedToken); err == nil {
			e.metricInc(MetricLoginIgnored)
			e.emitAudit(ctx, auditEventLoginIgnored, false, active.UserID, req.PresentedToken, ErrLoginIgnored, nil)
			return nil, newAuthError(op, ErrLoginIgnored)
		}
	}

	if err := ValidateUsername(req.Username); err != nil {
		return nil, e.loginFailed(ctx, op, 0, err, "invalid_username")
	}
	if err := ValidatePassword(req.Password); err != nil {
		return nil, e.loginFailed(ctx, op, 0, err, "invalid_password")
	}

	cred, err := e.credentials.GetCredentialByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.hasher.VerifyDummy(req.Password)
			return nil, e.loginFailed(ctx, op, 0, ErrInvalidCredentials, loginReasonUserNotFound)
		}
		e.log.Error(ctx, "credential lookup failed", "op", "get_credential_by_username", "error", err)
		return nil, e.loginFailed(ctx, op, 0, fmt.Errorf("%w: %v", ErrCredentialStoreUnavailable, err), "credential_store")
	}

	ok, err := e.hasher.Verify(req.Password, cred.PasswordHash)
	if err != nil {
		e.log.Warn(ctx, "stored password hash rejected", "op", "verify", "user_id", cred.UserID, "error", err)
		return nil, e.loginFailed(ctx, op, cred.UserID, ErrInvalidCredentials, loginReasonHashRejected)
	}
	if !ok {
		return nil, e.loginFailed(ctx, op, cred.UserID, ErrInvalidCredentials, loginReasonPasswordMismatch)
	}

	if e.config.Password.UpgradeOnLogin {
		e.upgradeHash(ctx, cred.UserID, cred.PasswordHash, req.Password)
	}

	sess, err := e.sessions.CreateSession(ctx, cred.UserID, req.KeepLoggedIn)
	if err != nil {
		if errors.Is(err, session.ErrRedisUnavailable) {
			e.metricInc(MetricStoreError)
		} else {
			err = fmt.Errorf("%w: %w", ErrUnknown, err)
		}
		e.log.Error(ctx, "session create failed", "op", "create_session", "user_id", cred.UserID, "error", err)
		return nil, e.loginFailed(ctx, op, cred.UserID, err, "session_create")
	}

	e.metricInc(MetricLoginSuccess)
	e.metricInc(MetricSessionCreated)
	e.emitAudit(ctx, auditEventLoginSuccess, true, cred.UserID, sess.Token, nil, func() map[string]string {
		return map[string]string{
			"long_term": boolString(sess.IsLongTerm),
		}
	})

	return sess, nil
}

func (e *Engine) loginFailed(ctx context.Context, op string, userID int64, err error, reason string) error {
	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLoginFailure, false, userID, "", err, func() map[string]string {
		return map[string]string{
			"reason": reason,
		}
	})
	return newAuthError(op, err)
}

// upgradeHash is best effort: a failure never blocks a successful login.
func (e *Engine) upgradeHash(ctx context.Context, userID int64, stored, plain string) {
	needsUpgrade, err := e.hasher.NeedsUpgrade(stored)
	if err != nil || !needsUpgrade {
		return
	}

	upgraded, err := e.hasher.Hash(plain)
	if err != nil {
		e.log.Warn(ctx, "password hash upgrade generation failed", "user_id", userID, "error", err)
		return
	}
	if err := e.credentials.UpdatePasswordHash(ctx, userID, upgraded); err != nil {
		e.log.Warn(ctx, "password hash upgrade update failed", "user_id", userID, "error", err)
		return
	}

	e.emitAudit(ctx, auditEventHashUpgraded, true, userID, "", nil, nil)
}

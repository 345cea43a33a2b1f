package goSession

import (
	"errors"

	"github.com/MrEthical07/goSession/credentials"
	"github.com/MrEthical07/goSession/session"
)

var (
	// ErrNoSession is returned when the caller presented no token.
	ErrNoSession = errors.New("no session")
	// ErrSessionInvalid is returned for unknown, malformed, or expiring tokens.
	ErrSessionInvalid = session.ErrSessionInvalid
	// ErrStoreUnavailable is returned when Redis could not serve a command.
	ErrStoreUnavailable = session.ErrRedisUnavailable
	// ErrUnknown covers internal invariant violations such as token exhaustion.
	ErrUnknown = errors.New("unknown error")
	// ErrInvalidCredentials is returned for any failed username/password check.
	// Unknown users and wrong passwords are not distinguished.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidInput is returned when login input violates the input policy.
	ErrInvalidInput = errors.New("invalid input")
	// ErrLoginIgnored is returned by Login when the caller is already logged in.
	ErrLoginIgnored = errors.New("login ignored: session already active")
	// ErrCredentialStoreUnavailable is returned when the credential lookup failed.
	ErrCredentialStoreUnavailable = errors.New("credential store unavailable")
	// ErrEngineNotReady is returned by methods called on a nil or unbuilt Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrUserNotFound is what a CredentialStore returns for an unknown username.
	ErrUserNotFound = credentials.ErrNotFound
)

// AuthError is the error type every Engine operation returns. Kind drives the
// transport status; Err keeps the cause for logs and errors.Is.
type AuthError struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return e.Op + ": " + e.Kind.String()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

func newAuthError(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *AuthError
	if errors.As(err, &ae) {
		return err
	}
	return &AuthError{Op: op, Kind: classify(err), Err: err}
}

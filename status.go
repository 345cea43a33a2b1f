package goSession

import (
	"errors"
	"net/http"

	"github.com/MrEthical07/goSession/session"
)

// Kind classifies an Engine error for transport mapping.
type Kind uint8

const (
	KindNone Kind = iota
	KindNoSession
	KindSessionInvalid
	KindDbError
	KindUnknown
	KindInvalidCredentials
	KindInvalidInput
	KindIgnored
)

var kindNames = map[Kind]string{
	KindNone:               "none",
	KindNoSession:          "no_session",
	KindSessionInvalid:     "session_invalid",
	KindDbError:            "db_error",
	KindUnknown:            "unknown",
	KindInvalidCredentials: "invalid_credentials",
	KindInvalidInput:       "invalid_input",
	KindIgnored:            "ignored",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

/*
====================================
STATUS TABLE
====================================
*/

// statusTable maps each kind to the HTTP status outer handlers answer with.
var statusTable = map[Kind]int{
	KindNone:               http.StatusOK,
	KindNoSession:          http.StatusUnauthorized,
	KindSessionInvalid:     http.StatusForbidden,
	KindInvalidCredentials: http.StatusForbidden,
	KindInvalidInput:       http.StatusBadRequest,
	KindIgnored:            http.StatusBadRequest,
	KindDbError:            http.StatusServiceUnavailable,
	KindUnknown:            http.StatusInternalServerError,
}

// publicMessages never say which half of a credential pair was wrong.
var publicMessages = map[Kind]string{
	KindNone:               "ok",
	KindNoSession:          "not logged in",
	KindSessionInvalid:     "session expired, please log in again",
	KindInvalidCredentials: "invalid username or password",
	KindInvalidInput:       "invalid username or password format",
	KindIgnored:            "already logged in",
	KindDbError:            "service temporarily unavailable",
	KindUnknown:            "internal error",
}

// KindOf classifies err. A nil error is KindNone; anything unrecognised is
// KindUnknown.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return classify(err)
}

// HTTPStatus returns the status for err from the status table.
func HTTPStatus(err error) int {
	if status, ok := statusTable[KindOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// PublicMessage returns the client-safe message for kind.
func PublicMessage(kind Kind) string {
	if msg, ok := publicMessages[kind]; ok {
		return msg
	}
	return publicMessages[KindUnknown]
}

func classify(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrNoSession):
		return KindNoSession
	case errors.Is(err, session.ErrSessionInvalid):
		return KindSessionInvalid
	case errors.Is(err, session.ErrRedisUnavailable), errors.Is(err, ErrCredentialStoreUnavailable):
		return KindDbError
	case errors.Is(err, ErrInvalidCredentials):
		return KindInvalidCredentials
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, ErrLoginIgnored):
		return KindIgnored
	default:
		return KindUnknown
	}
}

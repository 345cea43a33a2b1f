package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/session"
)

type sessionContextKey struct{}

// SessionFromContext returns the session Guard stored for the request.
func SessionFromContext(ctx context.Context) (*session.Session, bool) {
	sess, ok := ctx.Value(sessionContextKey{}).(*session.Session)
	return sess, ok
}

// Guard resolves the session token of every request and rejects requests
// without a live session.
//
// The token comes from the signed cookie, or from an "Authorization: Bearer"
// header for non-browser clients. Rejections carry the engine status and
// public message. A live cookie session gets its cookie rewritten so the
// browser expiry follows a renewal.
func Guard(engine *goSession.Engine, codec *CookieCodec) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil || codec == nil {
				http.Error(w, goSession.PublicMessage(goSession.KindUnknown), http.StatusInternalServerError)
				return
			}

			fromCookie := true
			token := codec.TokenFromRequest(r)
			if token == "" {
				token, _ = bearerToken(r.Header.Get("Authorization"))
				fromCookie = false
			}

			ctx := ClientContext(r)
			sess, err := engine.Authenticate(ctx, token, false)
			if err != nil {
				if goSession.KindOf(err) == goSession.KindSessionInvalid {
					codec.ClearSessionCookie(w)
				}
				WriteError(w, err)
				return
			}

			if fromCookie {
				// The session stays valid; the browser keeps its older cookie.
				if err := codec.SetSessionCookie(w, sess); err != nil {
					engine.Logger().Error(ctx, "session cookie refresh failed",
						"op", "guard", "token", session.Fingerprint(sess.Token), "error", err)
				}
			}

			ctx = context.WithValue(ctx, sessionContextKey{}, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClientContext returns the request context carrying the peer address, which
// audit events record. Forwarded headers are not trusted; behind a proxy,
// rewrite RemoteAddr before Guard runs.
func ClientContext(r *http.Request) context.Context {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return goSession.WithClientIP(r.Context(), host)
}

// WriteError answers with the status and public message for err. Handlers
// outside Guard (login, logout) use it to stay consistent.
func WriteError(w http.ResponseWriter, err error) {
	http.Error(w, goSession.PublicMessage(goSession.KindOf(err)), goSession.HTTPStatus(err))
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}

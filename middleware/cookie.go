package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/MrEthical07/goSession/session"
	"github.com/gorilla/securecookie"
)

// DefaultCookieName is the cookie that carries the signed session token.
const DefaultCookieName = "session"

var ErrInvalidCookie = errors.New("invalid session cookie")

// CookieCodec signs (and, with a block key, encrypts) session tokens for the
// client-side cookie. The token itself stays opaque; the signature only stops
// clients from presenting values the server never issued.
type CookieCodec struct {
	name   string
	secure bool
	sc     *securecookie.SecureCookie
}

// NewCookieCodec returns a codec for cookie name. hashKey should be 32 or 64
// bytes; blockKey, when non-nil, must be 16, 24 or 32 bytes.
func NewCookieCodec(name string, hashKey, blockKey []byte) *CookieCodec {
	if name == "" {
		name = DefaultCookieName
	}
	sc := securecookie.New(hashKey, blockKey)
	// Expiry is the session store's job.
	sc.MaxAge(0)
	return &CookieCodec{name: name, secure: true, sc: sc}
}

// Insecure drops the Secure attribute, for plain-HTTP local development.
func (c *CookieCodec) Insecure() *CookieCodec {
	c.secure = false
	return c
}

func (c *CookieCodec) Name() string {
	return c.name
}

func (c *CookieCodec) Encode(token string) (string, error) {
	return c.sc.Encode(c.name, token)
}

// Decode verifies value and returns the token inside. Anything that fails
// verification or does not have the shape of an issued token is
// ErrInvalidCookie.
func (c *CookieCodec) Decode(value string) (string, error) {
	var token string
	if err := c.sc.Decode(c.name, value, &token); err != nil {
		return "", ErrInvalidCookie
	}
	if !session.ValidToken(token) {
		return "", ErrInvalidCookie
	}
	return token, nil
}

// TokenFromRequest returns the token from the session cookie, or "" when the
// request carries none or a forged one.
func (c *CookieCodec) TokenFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(c.name)
	if err != nil || cookie.Value == "" {
		return ""
	}
	token, err := c.Decode(cookie.Value)
	if err != nil {
		return ""
	}
	return token
}

// SetSessionCookie writes the cookie for sess, expiring with the session.
func (c *CookieCodec) SetSessionCookie(w http.ResponseWriter, sess *session.Session) error {
	value, err := c.Encode(sess.Token)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    value,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (c *CookieCodec) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

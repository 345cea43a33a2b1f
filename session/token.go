package session

import (
	"context"
	"crypto/rand"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"io"
)

const (
	// TokenLength is the number of characters in an issued token.
	TokenLength = 32
	// MaxTokenAttempts bounds the collision-check loop in TokenIssuer.Issue.
	MaxTokenAttempts = 5

	tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	// Largest multiple of len(tokenAlphabet) that fits in a byte; bytes at or
	// above it are rejected to keep the distribution uniform.
	tokenRejectAbove = 248
)

// ExistenceChecker answers whether a token is already in use.
type ExistenceChecker interface {
	CheckSessionExist(ctx context.Context, token string) (bool, error)
}

// TokenIssuer draws random tokens and checks each for collisions.
type TokenIssuer struct {
	checker     ExistenceChecker
	random      io.Reader
	maxAttempts int
	onCollision func()
}

// NewTokenIssuer returns an issuer backed by crypto/rand.
func NewTokenIssuer(checker ExistenceChecker) *TokenIssuer {
	return &TokenIssuer{
		checker:     checker,
		random:      rand.Reader,
		maxAttempts: MaxTokenAttempts,
	}
}

// Issue returns a token the checker reports as unused.
//
// A check error counts as a collision: the token is discarded and a new one
// drawn. After MaxTokenAttempts draws Issue gives up with ErrTokenExhausted.
// The last check error, if any, is appended as text only, so the result
// never matches ErrRedisUnavailable.
func (t *TokenIssuer) Issue(ctx context.Context) (string, error) {
	var checkErr error
	for attempt := 0; attempt < t.maxAttempts; attempt++ {
		token, err := randomToken(t.random)
		if err != nil {
			return "", err
		}

		exists, err := t.checker.CheckSessionExist(ctx, token)
		if err == nil && !exists {
			return token, nil
		}
		if err != nil {
			checkErr = err
		}
		if t.onCollision != nil {
			t.onCollision()
		}
	}

	if checkErr != nil {
		return "", fmt.Errorf("%w: last existence check failed: %v", ErrTokenExhausted, checkErr)
	}
	return "", ErrTokenExhausted
}

func randomToken(r io.Reader) (string, error) {
	out := make([]byte, 0, TokenLength)
	buf := make([]byte, TokenLength*2)

	for len(out) < TokenLength {
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if b >= tokenRejectAbove {
				continue
			}
			out = append(out, tokenAlphabet[int(b)%len(tokenAlphabet)])
			if len(out) == TokenLength {
				break
			}
		}
	}

	return string(out), nil
}

// ValidToken reports whether token has the shape of an issued token.
// Anything else cannot name a stored session and never reaches Redis.
func ValidToken(token string) bool {
	if len(token) != TokenLength {
		return false
	}
	for i := 0; i < len(token); i++ {
		c := token[i]
		switch {
		case c >= 'A' && c <= 'Z':
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		default:
			return false
		}
	}
	return true
}

// Fingerprint returns a short, non-reversible tag for a token, suitable for
// logs and audit events.
func Fingerprint(token string) string {
	if token == "" {
		return ""
	}
	sum := sha512.Sum512([]byte(token))
	return hex.EncodeToString(sum[:])[:12]
}

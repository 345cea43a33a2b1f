package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps every transport or command failure from Redis.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrSessionInvalid is returned for unknown, malformed, or expiring tokens.
var ErrSessionInvalid = errors.New("session invalid")

// ErrTokenExhausted is returned when no unused token was found within
// MaxTokenAttempts draws.
var ErrTokenExhausted = errors.New("session token generation exhausted")

// ErrInvalidUserID is returned by CreateSession for non-positive user ids.
var ErrInvalidUserID = errors.New("invalid user id")

// DefaultPrefix is the key namespace used when NewStore gets an empty prefix.
const DefaultPrefix = "sessions"

// Store keeps sessions in Redis. It holds no mutable state of its own and is
// safe for concurrent use; all coordination happens in Redis transactions.
type Store struct {
	redis  redis.UniversalClient
	prefix string
	policy Policy
	buffer time.Duration
	tokens *TokenIssuer
	now    func() time.Time
}

// NewStore returns a Store over client. A zero policy duration falls back
// to the default for that kind.
func NewStore(client redis.UniversalClient, prefix string, policy Policy, buffer time.Duration) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if policy.LongTerm <= 0 {
		policy.LongTerm = DefaultLongTerm
	}
	if policy.ShortTerm <= 0 {
		policy.ShortTerm = DefaultShortTerm
	}
	if buffer < 0 {
		buffer = 0
	}

	s := &Store{
		redis:  client,
		prefix: prefix,
		policy: policy,
		buffer: buffer,
		now:    time.Now,
	}
	s.tokens = NewTokenIssuer(s)
	return s
}

// OnTokenCollision registers fn to run whenever a drawn token is rejected.
// It must be called before the store is shared.
func (s *Store) OnTokenCollision(fn func()) {
	s.tokens.onCollision = fn
}

// Policy returns the renewal policy the store applies.
func (s *Store) Policy() Policy {
	return s.policy
}

func (s *Store) userKey(token string) string {
	return s.prefix + "." + token + ".user_id"
}

func (s *Store) ltsKey(token string) string {
	return s.prefix + "." + token + ".lts"
}

// CreateSession issues a fresh token and writes both session keys in one
// transaction with TTL = nominal duration + safety buffer.
//
//	Performance: 1 EXISTS per token draw, then 1 MULTI with 2 SETs.
func (s *Store) CreateSession(ctx context.Context, userID int64, longTerm bool) (*Session, error) {
	if userID <= 0 {
		return nil, ErrInvalidUserID
	}

	token, err := s.tokens.Issue(ctx)
	if err != nil {
		return nil, err
	}

	nominal := s.policy.Duration(longTerm)
	ttl := nominal + s.buffer
	now := s.now()

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.userKey(token), strconv.FormatInt(userID, 10), ttl)
		pipe.Set(ctx, s.ltsKey(token), formatFlag(longTerm), ttl)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return &Session{
		Token:      token,
		UserID:     userID,
		ExpiresAt:  now.Add(nominal),
		IsLongTerm: longTerm,
	}, nil
}

// GetSessionData reads both keys and the remaining TTL in one transaction.
// It never renews; see RenewSession.
//
//	Performance: 1 MULTI with GET, PTTL, GET.
func (s *Store) GetSessionData(ctx context.Context, token string) (*Session, error) {
	if !ValidToken(token) {
		return nil, ErrSessionInvalid
	}

	var (
		userCmd *redis.StringCmd
		ttlCmd  *redis.DurationCmd
		ltsCmd  *redis.StringCmd
	)

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		userCmd = pipe.Get(ctx, s.userKey(token))
		ttlCmd = pipe.PTTL(ctx, s.userKey(token))
		ltsCmd = pipe.Get(ctx, s.ltsKey(token))
		return nil
	})
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionInvalid
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	userID, err := strconv.ParseInt(userCmd.Val(), 10, 64)
	if err != nil || userID <= 0 {
		return nil, ErrSessionInvalid
	}

	longTerm, err := strconv.ParseBool(ltsCmd.Val())
	if err != nil {
		return nil, ErrSessionInvalid
	}

	remaining := ttlCmd.Val()
	if remaining <= s.buffer {
		return nil, ErrSessionInvalid
	}

	return &Session{
		Token:      token,
		UserID:     userID,
		ExpiresAt:  s.now().Add(remaining - s.buffer),
		IsLongTerm: longTerm,
	}, nil
}

// RenewSession extends sess when the policy asks for it.
//
// It returns true without touching Redis when no renewal is due. Otherwise
// both keys get TTL = nominal + buffer in one transaction and sess.ExpiresAt
// moves to now + nominal. A key that vanished in between yields
// ErrSessionInvalid.
//
//	Performance: 0 or 1 MULTI with 2 EXPIREs.
func (s *Store) RenewSession(ctx context.Context, sess *Session, force bool) (bool, error) {
	if sess == nil {
		return false, ErrSessionInvalid
	}

	now := s.now()
	if !s.policy.ShouldRenew(sess, now, force) {
		return true, nil
	}

	nominal := s.policy.Duration(sess.IsLongTerm)
	ttl := nominal + s.buffer

	var userCmd, ltsCmd *redis.BoolCmd
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		userCmd = pipe.Expire(ctx, s.userKey(sess.Token), ttl)
		ltsCmd = pipe.Expire(ctx, s.ltsKey(sess.Token), ttl)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if !userCmd.Val() || !ltsCmd.Val() {
		return false, ErrSessionInvalid
	}

	sess.ExpiresAt = now.Add(nominal)
	return true, nil
}

// DestroySession deletes both keys. Destroying an unknown token is not an
// error.
//
//	Performance: 1 MULTI with 1 DEL.
func (s *Store) DestroySession(ctx context.Context, token string) error {
	if !ValidToken(token) {
		return nil
	}

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.userKey(token), s.ltsKey(token))
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// CheckSessionExist reports whether either key of token is present. An
// absent session is false, not an error.
//
//	Performance: 1 EXISTS.
func (s *Store) CheckSessionExist(ctx context.Context, token string) (bool, error) {
	n, err := s.redis.Exists(ctx, s.userKey(token), s.ltsKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n > 0, nil
}

// Ping measures a round trip to Redis.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}

func formatFlag(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

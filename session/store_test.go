package session

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newSessionStoreTest(t *testing.T) (*Store, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return NewStore(rdb, "", DefaultPolicy(), DefaultSafetyBuffer), mr, rdb
}

func assertNear(t *testing.T, got, want time.Time, slack time.Duration) {
	t.Helper()
	diff := got.Sub(want)
	if diff < -slack || diff > slack {
		t.Fatalf("expected %v within %v of %v (diff %v)", got, slack, want, diff)
	}
}

func TestCreateSessionWritesBothKeysWithSameTTL(t *testing.T) {
	store, mr, _ := newSessionStoreTest(t)
	ctx := context.Background()

	sess, err := store.CreateSession(ctx, 42, true)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if !ValidToken(sess.Token) {
		t.Fatalf("unexpected token shape %q", sess.Token)
	}

	userKey := "sessions." + sess.Token + ".user_id"
	ltsKey := "sessions." + sess.Token + ".lts"

	if got, _ := mr.Get(userKey); got != "42" {
		t.Fatalf("user_id key = %q, want 42", got)
	}
	if got, _ := mr.Get(ltsKey); got != "1" {
		t.Fatalf("lts key = %q, want 1", got)
	}

	want := DefaultLongTerm + DefaultSafetyBuffer
	if mr.TTL(userKey) != want || mr.TTL(ltsKey) != want {
		t.Fatalf("ttl mismatch: user=%v lts=%v want=%v", mr.TTL(userKey), mr.TTL(ltsKey), want)
	}
}

func TestCreateSessionRejectsNonPositiveUserID(t *testing.T) {
	store, mr, _ := newSessionStoreTest(t)

	for _, id := range []int64{0, -3} {
		if _, err := store.CreateSession(context.Background(), id, false); !errors.Is(err, ErrInvalidUserID) {
			t.Fatalf("user %d: expected ErrInvalidUserID, got %v", id, err)
		}
	}
	if keys := mr.Keys(); len(keys) != 0 {
		t.Fatalf("expected no keys, got %v", keys)
	}
}

func TestSlidingExpiryReadBack(t *testing.T) {
	store, _, _ := newSessionStoreTest(t)
	ctx := context.Background()

	sess, err := store.CreateSession(ctx, 9, false)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	assertNear(t, sess.ExpiresAt, time.Now().Add(DefaultShortTerm), 3*time.Second)

	got, err := store.GetSessionData(ctx, sess.Token)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.UserID != 9 || got.IsLongTerm {
		t.Fatalf("unexpected session %+v", got)
	}
	assertNear(t, got.ExpiresAt, time.Now().Add(DefaultShortTerm), 3*time.Second)
}

func TestRenewalThreshold(t *testing.T) {
	tests := []struct {
		name      string
		advance   time.Duration
		wantRenew bool
	}{
		{name: "just above half", advance: 11*time.Hour + 59*time.Minute, wantRenew: false},
		{name: "just below half", advance: 12*time.Hour + time.Minute, wantRenew: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store, mr, _ := newSessionStoreTest(t)
			ctx := context.Background()

			sess, err := store.CreateSession(ctx, 5, false)
			if err != nil {
				t.Fatalf("create session: %v", err)
			}
			userKey := "sessions." + sess.Token + ".user_id"
			mr.FastForward(tc.advance)
			before := mr.TTL(userKey)

			got, err := store.GetSessionData(ctx, sess.Token)
			if err != nil {
				t.Fatalf("get session: %v", err)
			}
			ok, err := store.RenewSession(ctx, got, false)
			if err != nil || !ok {
				t.Fatalf("renew: ok=%v err=%v", ok, err)
			}

			after := mr.TTL(userKey)
			if tc.wantRenew {
				if after != DefaultShortTerm+DefaultSafetyBuffer {
					t.Fatalf("expected ttl reset to full duration, got %v", after)
				}
				assertNear(t, got.ExpiresAt, time.Now().Add(DefaultShortTerm), 3*time.Second)
			} else if after != before {
				t.Fatalf("expected ttl untouched, before=%v after=%v", before, after)
			}
		})
	}
}

func TestRenewSessionForced(t *testing.T) {
	store, mr, _ := newSessionStoreTest(t)
	ctx := context.Background()

	sess, err := store.CreateSession(ctx, 5, true)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	mr.FastForward(time.Hour)

	got, err := store.GetSessionData(ctx, sess.Token)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if ok, err := store.RenewSession(ctx, got, true); err != nil || !ok {
		t.Fatalf("forced renew: ok=%v err=%v", ok, err)
	}

	want := DefaultLongTerm + DefaultSafetyBuffer
	if ttl := mr.TTL("sessions." + sess.Token + ".lts"); ttl != want {
		t.Fatalf("lts ttl = %v, want %v", ttl, want)
	}
}

func TestRenewSessionVanishedKey(t *testing.T) {
	store, mr, _ := newSessionStoreTest(t)
	ctx := context.Background()

	sess, err := store.CreateSession(ctx, 5, false)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	mr.Del("sessions." + sess.Token + ".lts")

	ok, err := store.RenewSession(ctx, sess, true)
	if ok || !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("expected invalid on vanished key, ok=%v err=%v", ok, err)
	}
}

func TestBufferCutoff(t *testing.T) {
	store, mr, _ := newSessionStoreTest(t)
	ctx := context.Background()

	sess, err := store.CreateSession(ctx, 3, false)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	mr.FastForward(DefaultShortTerm - time.Second)
	got, err := store.GetSessionData(ctx, sess.Token)
	if err != nil {
		t.Fatalf("expected session one second above the buffer to be valid: %v", err)
	}
	assertNear(t, got.ExpiresAt, time.Now().Add(time.Second), time.Second)

	mr.FastForward(time.Second)
	if _, err := store.GetSessionData(ctx, sess.Token); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("expected ErrSessionInvalid at the buffer, got %v", err)
	}
}

func TestGetSessionDataRejectsBadRecords(t *testing.T) {
	store, mr, _ := newSessionStoreTest(t)
	ctx := context.Background()

	seed := func(token, userID, lts string) {
		mr.Set("sessions."+token+".user_id", userID)
		mr.SetTTL("sessions."+token+".user_id", time.Hour)
		if lts != "" {
			mr.Set("sessions."+token+".lts", lts)
			mr.SetTTL("sessions."+token+".lts", time.Hour)
		}
	}

	tests := []struct {
		name  string
		token string
		setup func(token string)
	}{
		{name: "malformed token", token: "short"},
		{name: "unknown token", token: strings.Repeat("U", TokenLength)},
		{name: "non numeric user", token: strings.Repeat("N", TokenLength), setup: func(tok string) { seed(tok, "abc", "0") }},
		{name: "zero user", token: strings.Repeat("Z", TokenLength), setup: func(tok string) { seed(tok, "0", "0") }},
		{name: "missing lts", token: strings.Repeat("L", TokenLength), setup: func(tok string) { seed(tok, "7", "") }},
		{name: "bad lts", token: strings.Repeat("F", TokenLength), setup: func(tok string) { seed(tok, "7", "maybe") }},
		{name: "no ttl", token: strings.Repeat("T", TokenLength), setup: func(tok string) {
			mr.Set("sessions."+tok+".user_id", "7")
			mr.Set("sessions."+tok+".lts", "0")
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.setup != nil {
				tc.setup(tc.token)
			}
			if _, err := store.GetSessionData(ctx, tc.token); !errors.Is(err, ErrSessionInvalid) {
				t.Fatalf("expected ErrSessionInvalid, got %v", err)
			}
		})
	}
}

func TestStoreErrorsAreDistinctFromInvalid(t *testing.T) {
	store, mr, _ := newSessionStoreTest(t)
	ctx := context.Background()

	sess, err := store.CreateSession(ctx, 1, false)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	mr.Close()

	if _, err := store.GetSessionData(ctx, sess.Token); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("get: expected ErrRedisUnavailable, got %v", err)
	}
	if err := store.DestroySession(ctx, sess.Token); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("destroy: expected ErrRedisUnavailable, got %v", err)
	}
	if _, err := store.CheckSessionExist(ctx, sess.Token); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("exists: expected ErrRedisUnavailable, got %v", err)
	}
	if _, err := store.Ping(ctx); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("ping: expected ErrRedisUnavailable, got %v", err)
	}
}

func TestDestroySessionIdempotent(t *testing.T) {
	store, mr, _ := newSessionStoreTest(t)
	ctx := context.Background()

	sess, err := store.CreateSession(ctx, 11, true)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if err := store.DestroySession(ctx, sess.Token); err != nil {
		t.Fatalf("first destroy: %v", err)
	}
	if err := store.DestroySession(ctx, sess.Token); err != nil {
		t.Fatalf("second destroy: %v", err)
	}
	if err := store.DestroySession(ctx, strings.Repeat("q", TokenLength)); err != nil {
		t.Fatalf("destroy unknown: %v", err)
	}

	if keys := mr.Keys(); len(keys) != 0 {
		t.Fatalf("expected no residual keys, got %v", keys)
	}
	if _, err := store.GetSessionData(ctx, sess.Token); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("expected ErrSessionInvalid after destroy, got %v", err)
	}
}

func TestCheckSessionExist(t *testing.T) {
	store, mr, _ := newSessionStoreTest(t)
	ctx := context.Background()

	token := strings.Repeat("e", TokenLength)
	exists, err := store.CheckSessionExist(ctx, token)
	if err != nil || exists {
		t.Fatalf("absent token: exists=%v err=%v", exists, err)
	}

	mr.Set("sessions."+token+".lts", "0")
	exists, err = store.CheckSessionExist(ctx, token)
	if err != nil || !exists {
		t.Fatalf("half-present token: exists=%v err=%v", exists, err)
	}
}

func TestCreateSessionRetriesOnCollision(t *testing.T) {
	store, mr, _ := newSessionStoreTest(t)

	taken := strings.Repeat("A", TokenLength)
	mr.Set("sessions."+taken+".user_id", "99")

	var collisions int
	store.OnTokenCollision(func() { collisions++ })
	store.tokens.random = io.MultiReader(
		bytes.NewReader(make([]byte, 2*TokenLength)),
		bytes.NewReader(make([]byte, 2*TokenLength)),
		bytes.NewReader(bytes.Repeat([]byte{1}, 2*TokenLength)),
	)

	sess, err := store.CreateSession(context.Background(), 4, false)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if want := strings.Repeat("B", TokenLength); sess.Token != want {
		t.Fatalf("token = %q, want %q", sess.Token, want)
	}
	if collisions != 2 {
		t.Fatalf("collisions = %d, want 2", collisions)
	}
	if got, _ := mr.Get("sessions." + taken + ".user_id"); got != "99" {
		t.Fatalf("existing session overwritten: %q", got)
	}
}

func TestCreateSessionTokensUnique(t *testing.T) {
	store, _, _ := newSessionStoreTest(t)
	ctx := context.Background()

	seen := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		sess, err := store.CreateSession(ctx, int64(i+1), i%2 == 0)
		if err != nil {
			t.Fatalf("create session %d: %v", i, err)
		}
		if _, dup := seen[sess.Token]; dup {
			t.Fatalf("duplicate token %q", sess.Token)
		}
		seen[sess.Token] = struct{}{}
	}
}

func TestConcurrentCreateDestroyAtomicVisibility(t *testing.T) {
	store, _, rdb := newSessionStoreTest(t)
	ctx := context.Background()

	tokens := make(chan string, 64)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(tokens)
		for i := 0; i < 50; i++ {
			sess, err := store.CreateSession(ctx, int64(i+1), false)
			if err != nil {
				t.Errorf("create: %v", err)
				return
			}
			tokens <- sess.Token
		}
	}()

	for token := range tokens {
		token := token
		wg.Add(2)
		go func() {
			defer wg.Done()
			if err := store.DestroySession(ctx, token); err != nil {
				t.Errorf("destroy: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				var userCmd, ltsCmd *redis.StringCmd
				_, _ = rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					userCmd = pipe.Get(ctx, "sessions."+token+".user_id")
					ltsCmd = pipe.Get(ctx, "sessions."+token+".lts")
					return nil
				})
				userMissing := errors.Is(userCmd.Err(), redis.Nil)
				ltsMissing := errors.Is(ltsCmd.Err(), redis.Nil)
				if userMissing != ltsMissing {
					t.Errorf("half-present session %s: user missing=%v lts missing=%v", token, userMissing, ltsMissing)
					return
				}
			}
		}()
	}

	wg.Wait()
}

func TestSessionLifecycleShortTerm(t *testing.T) {
	store, mr, _ := newSessionStoreTest(t)
	ctx := context.Background()

	sess, err := store.CreateSession(ctx, 7, false)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	assertNear(t, sess.ExpiresAt, time.Now().Add(24*time.Hour), 3*time.Second)

	userKey := "sessions." + sess.Token + ".user_id"
	fresh, err := store.GetSessionData(ctx, sess.Token)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if fresh.UserID != 7 || fresh.IsLongTerm {
		t.Fatalf("unexpected session %+v", fresh)
	}
	ttl := mr.TTL(userKey)
	if ok, err := store.RenewSession(ctx, fresh, false); err != nil || !ok {
		t.Fatalf("renew fresh: ok=%v err=%v", ok, err)
	}
	if mr.TTL(userKey) != ttl {
		t.Fatal("fresh session must not be renewed")
	}

	mr.FastForward(13 * time.Hour)
	aged, err := store.GetSessionData(ctx, sess.Token)
	if err != nil {
		t.Fatalf("get aged session: %v", err)
	}
	assertNear(t, aged.ExpiresAt, time.Now().Add(11*time.Hour), 3*time.Second)
	if ok, err := store.RenewSession(ctx, aged, false); err != nil || !ok {
		t.Fatalf("renew aged: ok=%v err=%v", ok, err)
	}
	assertNear(t, aged.ExpiresAt, time.Now().Add(24*time.Hour), 3*time.Second)

	again, err := store.GetSessionData(ctx, sess.Token)
	if err != nil {
		t.Fatalf("get renewed session: %v", err)
	}
	assertNear(t, again.ExpiresAt, time.Now().Add(24*time.Hour), 3*time.Second)

	if err := store.DestroySession(ctx, sess.Token); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if _, err := store.GetSessionData(ctx, sess.Token); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("expected ErrSessionInvalid after destroy, got %v", err)
	}
}

func TestStorePing(t *testing.T) {
	store, _, _ := newSessionStoreTest(t)
	if _, err := store.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestNewStoreDefaults(t *testing.T) {
	store := NewStore(nil, "", Policy{}, -time.Second)
	if store.prefix != DefaultPrefix {
		t.Fatalf("prefix = %q", store.prefix)
	}
	if store.Policy() != DefaultPolicy() {
		t.Fatalf("policy = %+v", store.Policy())
	}
	if store.buffer != 0 {
		t.Fatalf("buffer = %v", store.buffer)
	}
}

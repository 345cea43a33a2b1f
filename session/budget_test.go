package session

import (
	"context"
	"net"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// roundTripCounter counts Redis round trips: every single command and every
// pipeline (including MULTI/EXEC) counts once.
type roundTripCounter struct {
	n atomic.Int64
}

func (h *roundTripCounter) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

func (h *roundTripCounter) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		h.n.Add(1)
		return next(ctx, cmd)
	}
}

func (h *roundTripCounter) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		h.n.Add(1)
		return next(ctx, cmds)
	}
}

func (h *roundTripCounter) reset()      { h.n.Store(0) }
func (h *roundTripCounter) load() int64 { return h.n.Load() }

func newCountedStore(t *testing.T) (*Store, *roundTripCounter) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	counter := &roundTripCounter{}
	rdb.AddHook(counter)

	// Connection setup is not part of any budget.
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Fatalf("warmup ping: %v", err)
	}
	counter.reset()

	return NewStore(rdb, "", DefaultPolicy(), DefaultSafetyBuffer), counter
}

func TestStoreRoundTripBudgets(t *testing.T) {
	store, counter := newCountedStore(t)
	ctx := context.Background()

	sess, err := store.CreateSession(ctx, 9, true)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	// One EXISTS check plus one MULTI.
	if got := counter.load(); got != 2 {
		t.Fatalf("CreateSession: expected 2 round trips, got %d", got)
	}

	counter.reset()
	read, err := store.GetSessionData(ctx, sess.Token)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got := counter.load(); got != 1 {
		t.Fatalf("GetSessionData: expected 1 round trip, got %d", got)
	}

	counter.reset()
	if ok, err := store.RenewSession(ctx, read, false); err != nil || !ok {
		t.Fatalf("renew not due: ok=%v err=%v", ok, err)
	}
	if got := counter.load(); got != 0 {
		t.Fatalf("RenewSession not due: expected 0 round trips, got %d", got)
	}

	counter.reset()
	if ok, err := store.RenewSession(ctx, read, true); err != nil || !ok {
		t.Fatalf("renew forced: ok=%v err=%v", ok, err)
	}
	if got := counter.load(); got != 1 {
		t.Fatalf("RenewSession forced: expected 1 round trip, got %d", got)
	}

	counter.reset()
	if err := store.DestroySession(ctx, sess.Token); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if got := counter.load(); got != 1 {
		t.Fatalf("DestroySession: expected 1 round trip, got %d", got)
	}
}

func TestMalformedTokenSkipsRedis(t *testing.T) {
	store, counter := newCountedStore(t)
	ctx := context.Background()

	if _, err := store.GetSessionData(ctx, "short"); err != ErrSessionInvalid {
		t.Fatalf("expected ErrSessionInvalid, got %v", err)
	}
	if err := store.DestroySession(ctx, "short"); err != nil {
		t.Fatalf("destroy malformed: %v", err)
	}
	if got := counter.load(); got != 0 {
		t.Fatalf("expected no round trips for malformed tokens, got %d", got)
	}
}

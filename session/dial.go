package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultDialTimeout bounds connection establishment when DialOptions leaves
// it unset.
const DefaultDialTimeout = 5 * time.Second

// DialOptions describes how to reach Redis. An address starting with "/" is
// a unix socket path. More than one address selects a cluster client.
type DialOptions struct {
	Addrs        []string
	Username     string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
}

// Dial connects to Redis and verifies the connection with PING within
// DialTimeout. The client is closed if the ping fails.
func Dial(ctx context.Context, opts DialOptions) (redis.UniversalClient, error) {
	if len(opts.Addrs) == 0 {
		return nil, errors.New("redis address is required")
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = DefaultDialTimeout
	}

	var client redis.UniversalClient
	if len(opts.Addrs) == 1 && strings.HasPrefix(opts.Addrs[0], "/") {
		client = redis.NewClient(&redis.Options{
			Network:      "unix",
			Addr:         opts.Addrs[0],
			Username:     opts.Username,
			Password:     opts.Password,
			DB:           opts.DB,
			DialTimeout:  opts.DialTimeout,
			ReadTimeout:  opts.ReadTimeout,
			WriteTimeout: opts.WriteTimeout,
			PoolSize:     opts.PoolSize,
		})
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:        opts.Addrs,
			Username:     opts.Username,
			Password:     opts.Password,
			DB:           opts.DB,
			DialTimeout:  opts.DialTimeout,
			ReadTimeout:  opts.ReadTimeout,
			WriteTimeout: opts.WriteTimeout,
			PoolSize:     opts.PoolSize,
		})
	}

	pingCtx, cancel := context.WithTimeout(ctx, opts.DialTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return client, nil
}

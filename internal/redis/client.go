package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultPoolSize = 10
	defaultTimeout  = time.Second
)

// ClientOptions are the connection settings the service exposes through its
// environment. Zero values fall back to the defaults above.
type ClientOptions struct {
	Addr     string
	Username string
	Password string
	DB       int
	PoolSize int
	// Timeout bounds dialing and every command, including the lock SETNX.
	Timeout time.Duration
}

func (o ClientOptions) redisOptions() *redis.Options {
	poolSize := o.PoolSize
	if poolSize <= 0 {
		poolSize = defaultPoolSize
	}
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &redis.Options{
		Addr:         o.Addr,
		Username:     o.Username,
		Password:     o.Password,
		DB:           o.DB,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
		PoolTimeout:  timeout,
		PoolSize:     poolSize,
		MinIdleConns: 1,
	}
}

// NewRedisClient connects and pings once so a wrong address fails at startup
// instead of on the first booking.
func NewRedisClient(ctx context.Context, opts ClientOptions) (*redis.Client, error) {
	rdb := redis.NewClient(opts.redisOptions())

	pingCtx, cancel := context.WithTimeout(ctx, 2*opts.redisOptions().DialTimeout)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis at %s (db %d): %w", opts.Addr, opts.DB, err)
	}

	return rdb, nil
}

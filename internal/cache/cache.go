package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AngelCh415/mailmetrics/internal/utils"
)

// Cache stores rendered report bodies. A miss is (nil, false, nil).
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte) error
}

type Redis struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedis(rdb *redis.Client, ttl time.Duration) *Redis {
	return &Redis{rdb: rdb, ttl: ttl, prefix: "mailmetrics:"}
}

func (c *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := c.rdb.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (c *Redis) Set(ctx context.Context, key string, val []byte) error {
	return c.rdb.Set(ctx, c.prefix+key, val, c.ttl).Err()
}

func (c *Redis) Ping(ctx context.Context) error { return c.rdb.Ping(ctx).Err() }

// Noop never hits; used when REDIS_ADDR is empty.
type Noop struct{}

func (Noop) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (Noop) Set(context.Context, string, []byte) error         { return nil }

// Key scopes a result to one dataset version; a reload changes every key of
// the account. Query params are re-encoded so their order does not matter.
func Key(account string, version uint64, path string, q url.Values) string {
	return fmt.Sprintf("%s|%d|%s|%s", account, version, path, q.Encode())
}

// Memo serves key from c or computes, stores and returns it. Cache errors are
// logged and never fail the request.
type Memo struct {
	c   Cache
	log *slog.Logger
	m   *utils.Metrics
}

func NewMemo(c Cache, log *slog.Logger, m *utils.Metrics) *Memo {
	if c == nil {
		c = Noop{}
	}
	return &Memo{c: c, log: log, m: m}
}

func (m *Memo) Do(ctx context.Context, key string, compute func() ([]byte, error)) ([]byte, error) {
	b, ok, err := m.c.Get(ctx, key)
	if err != nil {
		m.log.Warn("cache get", slog.String("key", key), slog.String("err", err.Error()))
	}
	if ok {
		m.m.CacheHit()
		return b, nil
	}
	m.m.CacheMiss()

	b, err = compute()
	if err != nil {
		return nil, err
	}
	if err := m.c.Set(ctx, key, b); err != nil {
		m.log.Warn("cache set", slog.String("key", key), slog.String("err", err.Error()))
	}
	return b, nil
}

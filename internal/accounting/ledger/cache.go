package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const cacheVersionKey = "ledger:version"

// CacheRecorder observes cache effectiveness per report.
type CacheRecorder interface {
	CacheHit(report string)
	CacheMiss(report string)
}

// Cache stores report payloads in Redis under a global version that every
// posting bumps. A nil Cache or nil client computes every request.
type Cache struct {
	client  *redis.Client
	ttl     time.Duration
	group   singleflight.Group
	metrics CacheRecorder
	logger  *slog.Logger
	// staleUntil is a unix nano deadline set by a failed bump. Entries stored
	// before it may have missed that bump and are not served until one TTL
	// has passed.
	staleUntil atomic.Int64
	now        func() time.Time
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{client: client, ttl: ttl, logger: slog.Default(), now: time.Now}
}

// WithLogger sets the logger that reports cache outages.
func (c *Cache) WithLogger(logger *slog.Logger) *Cache {
	if c != nil && logger != nil {
		c.logger = logger
	}
	return c
}

// WithMetrics registers hit and miss counters.
func (c *Cache) WithMetrics(metrics CacheRecorder) *Cache {
	if c != nil {
		c.metrics = metrics
	}
	return c
}

// Version returns the current cache version, initialising when missing.
func (c *Cache) Version(ctx context.Context) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.SetNX(ctx, cacheVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return c.client.Get(ctx, cacheVersionKey).Int64()
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

// BuildKey composes the cache key with the current version.
func (c *Cache) BuildKey(ctx context.Context, parts ...string) (string, error) {
	joined := "ledger:" + strings.Join(parts, ":")
	if c == nil || c.client == nil {
		return joined, nil
	}
	ver, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%d", joined, ver), nil
}

// Bump invalidates cached reports by incrementing the version. Every
// instance reads the version from Redis, so the bump is seen everywhere.
func (c *Cache) Bump(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	if err := c.client.Incr(ctx, cacheVersionKey).Err(); err != nil {
		c.staleUntil.Store(c.now().Add(c.ttl).UnixNano())
		return err
	}
	return nil
}

func (c *Cache) stale() bool {
	return c.now().UnixNano() < c.staleUntil.Load()
}

// cacheError marks a failure of Redis itself, as opposed to the report.
type cacheError struct{ err error }

func (e *cacheError) Error() string { return "ledger cache: " + e.err.Error() }
func (e *cacheError) Unwrap() error { return e.err }

func (c *Cache) load(ctx context.Context, report, key string, dest any, loader func(context.Context) (any, error)) error {
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		if err := json.Unmarshal(payload, dest); err != nil {
			return &cacheError{err: err}
		}
		c.hit(report)
		return nil
	}
	if !errors.Is(err, redis.Nil) {
		return &cacheError{err: err}
	}
	c.miss(report)
	res := c.group.DoChan(key, func() (any, error) {
		value, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			c.logger.WarnContext(ctx, "ledger cache store failed", slog.String("report", report), slog.Any("error", err))
		}
		return raw, nil
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case out := <-res:
		if out.Err != nil {
			return out.Err
		}
		return json.Unmarshal(out.Val.([]byte), dest)
	}
}

func (c *Cache) hit(report string) {
	if c.metrics != nil {
		c.metrics.CacheHit(report)
	}
}

func (c *Cache) miss(report string) {
	if c.metrics != nil {
		c.metrics.CacheMiss(report)
	}
}

// cached serves report through the cache under a key built from parts. When
// Redis fails the report is computed from the ledger instead.
func cached[T any](ctx context.Context, c *Cache, report string, parts []string, compute func(context.Context) (T, error)) (T, error) {
	if c == nil || c.client == nil || c.stale() {
		return compute(ctx)
	}
	key, err := c.BuildKey(ctx, append([]string{report}, parts...)...)
	if err != nil {
		c.bypass(ctx, report, err)
		return compute(ctx)
	}
	var out T
	err = c.load(ctx, report, key, &out, func(ctx context.Context) (any, error) {
		return compute(ctx)
	})
	var cerr *cacheError
	if errors.As(err, &cerr) {
		c.bypass(ctx, report, cerr.err)
		return compute(ctx)
	}
	return out, err
}

func (c *Cache) bypass(ctx context.Context, report string, err error) {
	c.logger.WarnContext(ctx, "ledger cache unavailable, computing report", slog.String("report", report), slog.Any("error", err))
	if c.metrics != nil {
		c.metrics.CacheMiss(report)
	}
}

func dateToken(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02")
}

func idToken(id *int64) string {
	if id == nil {
		return "-"
	}
	return strconv.FormatInt(*id, 10)
}

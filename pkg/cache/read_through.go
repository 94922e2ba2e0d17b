package cache

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type FetchFunc[T any] func(ctx context.Context) (T, error)

const (
	defaultFetchTimeout = 15 * time.Second
	defaultSetTimeout   = 5 * time.Second
	defaultTTL          = 10 * time.Minute
)

// ReadThrough fronts an expensive computation with a Cacher. Concurrent misses
// for the same key share a single fetch; hits schedule a background refresh
// when refresh-ahead is enabled.
type ReadThrough struct {
	cache        Cacher
	sf           singleflight.Group
	ttl          time.Duration
	logger       *zap.Logger
	refreshAhead bool
}

type ReadThroughOption func(*ReadThrough)

func WithTTL(ttl time.Duration) ReadThroughOption {
	return func(r *ReadThrough) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

func WithLogger(logger *zap.Logger) ReadThroughOption {
	return func(r *ReadThrough) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func WithRefreshAhead(enabled bool) ReadThroughOption {
	return func(r *ReadThrough) {
		r.refreshAhead = enabled
	}
}

func NewReadThrough(c Cacher, opts ...ReadThroughOption) *ReadThrough {
	if c == nil {
		c = Nop{}
	}
	r := &ReadThrough{
		cache:        c,
		ttl:          defaultTTL,
		logger:       zap.NewNop(),
		refreshAhead: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// TTL returns the base expiration applied to cached values.
func (r *ReadThrough) TTL() time.Duration {
	return r.ttl
}

// addTTLJitter spreads expirations by up to ±15s so keys do not expire together.
func addTTLJitter(ttl time.Duration) time.Duration {
	if ttl <= 30*time.Second {
		return ttl
	}
	jitter := time.Duration(rand.Intn(30)-15) * time.Second
	return ttl + jitter
}

func (r *ReadThrough) store(key string, value any, source string) {
	setCtx, cancel := context.WithTimeout(context.Background(), defaultSetTimeout)
	defer cancel()

	ttl := addTTLJitter(r.ttl)
	if err := r.cache.Set(setCtx, key, value, ttl); err != nil {
		r.logger.Warn("failed to populate cache",
			zap.String("key", key),
			zap.String("source", source),
			zap.Error(err))
		return
	}
	r.logger.Debug("cache populated",
		zap.String("key", key),
		zap.String("source", source),
		zap.Duration("ttl", ttl))
}

func triggerBackgroundRefresh[T any](r *ReadThrough, key string, fn FetchFunc[T]) {
	go func() {
		time.Sleep(time.Duration(rand.Intn(1000)) * time.Millisecond)

		_, _, _ = r.sf.Do(key+":refresh", func() (any, error) {
			ctx, cancel := context.WithTimeout(context.Background(), defaultFetchTimeout)
			defer cancel()

			value, err := fn(ctx)
			if err != nil {
				r.logger.Warn("background refresh failed",
					zap.String("key", key),
					zap.Error(err))
				return nil, err
			}
			r.store(key, value, "refresh")
			return value, nil
		})
	}()
}

// Load returns the cached value for key, or computes it with fn and caches the
// result asynchronously. Cache errors are logged and treated as misses; fetch
// errors are returned unchanged and never cached.
func Load[T any](ctx context.Context, r *ReadThrough, key string, fn FetchFunc[T]) (T, error) {
	var zero T

	var cached T
	err := r.cache.Get(ctx, key, &cached)
	switch {
	case err == nil:
		r.logger.Debug("cache hit", zap.String("key", key))
		if r.refreshAhead {
			triggerBackgroundRefresh(r, key, fn)
		}
		return cached, nil

	case IsMiss(err):
		r.logger.Debug("cache miss", zap.String("key", key))

	default:
		r.logger.Warn("cache get error (treating as miss)", zap.String("key", key), zap.Error(err))
	}

	v, err, shared := r.sf.Do(key, func() (any, error) {
		value, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		go r.store(key, value, "miss")
		return value, nil
	})
	if err != nil {
		r.logger.Debug("fetch failed", zap.String("key", key), zap.Error(err))
		return zero, err
	}

	value, ok := v.(T)
	if !ok {
		r.logger.Error("singleflight type mismatch", zap.String("key", key))
		return zero, fmt.Errorf("type mismatch for key %q", key)
	}

	if shared {
		r.logger.Debug("singleflight shared result", zap.String("key", key))
	}

	return value, nil
}

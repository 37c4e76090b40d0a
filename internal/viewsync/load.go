package viewsync

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

type Loader struct {
	cache  Cache
	ttl    time.Duration
	logger *zap.Logger
}

func NewLoader(cache Cache, ttl time.Duration, logger *zap.Logger) *Loader {
	return &Loader{cache: cache, ttl: ttl, logger: logger}
}

// Load is a read-through lookup of a view. Cache failures fall back to
// fetch; the cache only ever saves work.
func Load[T any](ctx context.Context, l *Loader, scope Scope, key string, fetch func(ctx context.Context) (T, error)) (T, error) {
	version, err := l.cache.Version(ctx)
	if err != nil {
		l.logger.Warn("view cache unavailable", zap.String("scope", string(scope)), zap.Error(err))
		return fetch(ctx)
	}

	cacheKey := Key(version, scope, key)
	if raw, ok, err := l.cache.Get(ctx, cacheKey); err != nil {
		l.logger.Warn("view cache read failed", zap.String("key", cacheKey), zap.Error(err))
	} else if ok {
		var cached T
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
		l.logger.Warn("discarding undecodable cached view", zap.String("key", cacheKey))
	}

	value, err := fetch(ctx)
	if err != nil {
		return value, err
	}

	raw, err := json.Marshal(value)
	if err != nil {
		l.logger.Warn("view not cacheable", zap.String("key", cacheKey), zap.Error(err))
		return value, nil
	}
	if err := l.cache.Set(ctx, cacheKey, raw, l.ttl); err != nil {
		l.logger.Warn("view cache write failed", zap.String("key", cacheKey), zap.Error(err))
	}

	return value, nil
}

package pricestore

import (
	"context"
	"time"

	"github.com/wonny/fluxrx/internal/contracts"
	"github.com/wonny/fluxrx/pkg/logger"
	"github.com/wonny/fluxrx/pkg/redis"
)

// CachedLoader puts a Redis read-through cache in front of another loader.
// 캐시 오류는 경고만 남기고 원본 로더로 진행
type CachedLoader struct {
	inner  contracts.PriceLoader
	cache  *redis.Cache
	ttl    time.Duration
	logger *logger.Logger
}

// NewCachedLoader wraps inner with a per-asset cache
func NewCachedLoader(inner contracts.PriceLoader, cache *redis.Cache, ttl time.Duration, log *logger.Logger) *CachedLoader {
	if log == nil {
		log = logger.NewNop()
	}
	return &CachedLoader{
		inner:  inner,
		cache:  cache,
		ttl:    ttl,
		logger: log.WithComponent("price_cache"),
	}
}

// LoadSeries implements contracts.PriceLoader
func (c *CachedLoader) LoadSeries(ctx context.Context, assets []string, from, to time.Time) ([]contracts.PriceSeries, error) {
	if len(assets) == 0 {
		return c.inner.LoadSeries(ctx, assets, from, to)
	}

	out := make([]contracts.PriceSeries, len(assets))
	missing := make([]string, 0, len(assets))
	missingIdx := make([]int, 0, len(assets))
	for i, a := range assets {
		var s contracts.PriceSeries
		found, err := c.cache.Get(ctx, redis.PriceSeriesKey(a, from, to), &s)
		if err != nil {
			c.logger.WithError(err).WithField("asset", a).Warn("price cache read failed")
		}
		if found && err == nil {
			out[i] = s
			continue
		}
		missing = append(missing, a)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	loaded, err := c.inner.LoadSeries(ctx, missing, from, to)
	if err != nil {
		return nil, err
	}
	byAsset := make(map[string]contracts.PriceSeries, len(loaded))
	for _, s := range loaded {
		byAsset[s.Asset] = s
	}
	for k, a := range missing {
		s, ok := byAsset[a]
		if !ok {
			s = contracts.PriceSeries{Asset: a}
		}
		out[missingIdx[k]] = s
		if len(s.Points) == 0 {
			continue
		}
		if err := c.cache.Set(ctx, redis.PriceSeriesKey(a, from, to), s, c.ttl); err != nil {
			c.logger.WithError(err).WithField("asset", a).Warn("price cache write failed")
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"requested": len(assets),
		"cache_hit": len(assets) - len(missing),
	}).Debug("prices loaded")
	return out, nil
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"StockPulse/internal/domain/models"
	drepo "StockPulse/internal/domain/repository"
	"StockPulse/pkg/cache"
	applogger "StockPulse/pkg/logger"
)

// cachedBar is the cache wire form of a Bar. time.Time round-trips through
// JSON fine but an explicit shape keeps cached entries stable across
// refactors of the domain type.
type cachedBar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// CachedHistoryProvider is a read-through cache over a HistoryProvider.
// Misses and cache errors fall through to the upstream; a failed Set only
// logs, it never fails the read.
type CachedHistoryProvider struct {
	upstream drepo.HistoryProvider
	cache    cache.Service
	ttl      time.Duration
	log      *applogger.Logger
}

// NewCachedHistoryProvider wraps upstream with a cache.
func NewCachedHistoryProvider(upstream drepo.HistoryProvider, c cache.Service, ttl time.Duration, log *applogger.Logger) *CachedHistoryProvider {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedHistoryProvider{upstream: upstream, cache: c, ttl: ttl, log: log}
}

func (p *CachedHistoryProvider) GetHistory(ctx context.Context, symbol, period, interval string) (models.HistoricalSeries, error) {
	key := fmt.Sprintf("history:%s:%s:%s", symbol, period, interval)

	var cached []cachedBar
	err := p.cache.Get(ctx, key, &cached)
	if err == nil && len(cached) > 0 {
		return fromCached(cached), nil
	}
	if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		p.log.Warn("history cache get failed", applogger.String("key", key), applogger.Error(err))
	}

	series, err := p.upstream.GetHistory(ctx, symbol, period, interval)
	if err != nil {
		return nil, err
	}

	if err := p.cache.Set(ctx, key, toCached(series), p.ttl); err != nil {
		p.log.Warn("history cache set failed", applogger.String("key", key), applogger.Error(err))
	}
	return series, nil
}

// Invalidate drops cached entries for a symbol across the common variants.
func (p *CachedHistoryProvider) Invalidate(ctx context.Context, symbol, period, interval string) error {
	return p.cache.Delete(ctx, fmt.Sprintf("history:%s:%s:%s", symbol, period, interval))
}

func toCached(s models.HistoricalSeries) []cachedBar {
	out := make([]cachedBar, len(s))
	for i, b := range s {
		out[i] = cachedBar{Date: b.Date, Open: b.Open, High: b.High, Low: b.Low, Close: b.Close, Volume: b.Volume}
	}
	return out
}

func fromCached(rows []cachedBar) models.HistoricalSeries {
	out := make(models.HistoricalSeries, len(rows))
	for i, r := range rows {
		out[i] = models.Bar{Date: r.Date, Open: r.Open, High: r.High, Low: r.Low, Close: r.Close, Volume: r.Volume}
	}
	return out
}

var _ drepo.HistoryProvider = (*CachedHistoryProvider)(nil)

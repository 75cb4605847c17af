// Package service internal/application/service/rate_service.go
package service

import (
	"context"
	"strings"
	"time"

	"github.com/damon-houk/fx-rate-cache/internal/domain/entity"
	"github.com/damon-houk/fx-rate-cache/internal/domain/repository"
	domainservice "github.com/damon-houk/fx-rate-cache/internal/domain/service"
	"github.com/damon-houk/fx-rate-cache/internal/infrastructure/logger"
	"github.com/damon-houk/fx-rate-cache/internal/infrastructure/metrics"
	"github.com/damon-houk/fx-rate-cache/internal/infrastructure/middleware"
)

const (
	kindCurrent    = "current"
	kindHistorical = "historical"

	defaultPauseEvery = 5
	defaultPause      = time.Second
)

// RateService decides for every lookup whether to answer from the cache, the remote API,
// or sample data, and labels the answer with its provenance. It always returns rates.
type RateService struct {
	cache      repository.RateCache
	fetcher    domainservice.RateFetcher
	samples    domainservice.SampleSource
	logger     logger.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
	pauseEvery int
	pause      time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
}

// RateServiceOption configures a RateService
type RateServiceOption func(*RateService)

// WithClock replaces time.Now
func WithClock(now func() time.Time) RateServiceOption {
	return func(s *RateService) { s.now = now }
}

// WithPause inserts a pause of d after every n historical day fetches; n of zero disables it
func WithPause(n int, d time.Duration) RateServiceOption {
	return func(s *RateService) {
		s.pauseEvery = n
		s.pause = d
	}
}

// WithSleeper replaces the context-aware sleep used between historical fetches
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) RateServiceOption {
	return func(s *RateService) { s.sleep = sleep }
}

// WithMetrics sets the metrics collectors
func WithMetrics(m *metrics.Metrics) RateServiceOption {
	return func(s *RateService) { s.metrics = m }
}

// NewRateService creates a new rate service
func NewRateService(cache repository.RateCache, fetcher domainservice.RateFetcher, samples domainservice.SampleSource, log logger.Logger, opts ...RateServiceOption) *RateService {
	s := &RateService{
		cache:      cache,
		fetcher:    fetcher,
		samples:    samples,
		logger:     logger.OrDefault(log).WithField("component", "rate_service"),
		now:        time.Now,
		pauseEvery: defaultPauseEvery,
		pause:      defaultPause,
		sleep:      sleepContext,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// NormalizeCode upper-cases and trims a currency code
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsOnline reports whether the remote API looks reachable
func (s *RateService) IsOnline(ctx context.Context) bool {
	return s.fetcher.CheckConnectivity(ctx)
}

// GetCurrentRates returns the current rates for base. Unless forceRefresh is set, a fresh
// cache entry is served as is; otherwise the network is probed and the API queried, falling
// back to a stale cache entry and finally to sample data.
func (s *RateService) GetCurrentRates(ctx context.Context, base string, forceRefresh bool) *entity.CurrentRates {
	base = NormalizeCode(base)
	fields := map[string]interface{}{
		"request_id":    middleware.GetRequestID(ctx),
		"base":          base,
		"force_refresh": forceRefresh,
	}

	if !forceRefresh {
		if rates, expired, found := s.cache.GetCurrent(base); found && !expired {
			s.logger.Debug("Serving current rates from cache", fields)
			return s.currentResult(base, rates, s.now(), entity.ProvenanceCached)
		}
	}

	if !s.fetcher.CheckConnectivity(ctx) {
		s.logger.Warn("Network unreachable, falling back for current rates", fields)
		return s.currentFallback(base)
	}

	rates, updated, err := s.fetcher.FetchCurrent(ctx, base)
	if err != nil {
		fields["error"] = err.Error()
		s.logger.Warn("Failed to fetch current rates, falling back", fields)
		return s.currentFallback(base)
	}

	s.cache.PutCurrent(base, rates)
	s.logger.Info("Fetched live current rates", fields)

	return s.currentResult(base, rates, updated, entity.ProvenanceLive)
}

func (s *RateService) currentFallback(base string) *entity.CurrentRates {
	if rates, _, found := s.cache.GetCurrent(base); found {
		return s.currentResult(base, rates, s.now(), entity.ProvenanceOfflineCache)
	}

	return s.currentResult(base, s.samples.Current(base), s.now(), entity.ProvenanceSample)
}

func (s *RateService) currentResult(base string, rates entity.RateMapping, updated time.Time, provenance entity.Provenance) *entity.CurrentRates {
	s.metrics.ObserveLookup(kindCurrent, string(provenance))
	return &entity.CurrentRates{
		Base:       base,
		Rates:      rates,
		UpdatedAt:  updated.UTC(),
		Provenance: provenance,
	}
}

// window returns the calendar dates of a days-long series ending today, most recent first
func (s *RateService) window(days int) []time.Time {
	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	dates := make([]time.Time, days)
	for i := range dates {
		dates[i] = today.AddDate(0, 0, -i)
	}
	return dates
}

// GetHistoricalRates returns a series of exactly days dates ending today (days below one
// are treated as one). Days whose fetch fails are filled with sample data, and only a
// complete series is written to the cache.
func (s *RateService) GetHistoricalRates(ctx context.Context, base string, days int, forceRefresh bool) *entity.HistoricalRates {
	base = NormalizeCode(base)
	if days < 1 {
		days = 1
	}
	fields := map[string]interface{}{
		"request_id":    middleware.GetRequestID(ctx),
		"base":          base,
		"days":          days,
		"force_refresh": forceRefresh,
	}

	if !forceRefresh {
		if series, expired, found := s.cache.GetHistorical(base, days); found && !expired {
			s.logger.Debug("Serving historical rates from cache", fields)
			return s.historicalResult(base, days, series, entity.ProvenanceCached, false)
		}
	}

	dates := s.window(days)

	if !s.fetcher.CheckConnectivity(ctx) {
		s.logger.Warn("Network unreachable, falling back for historical rates", fields)
		if series, _, found := s.cache.GetHistorical(base, days); found {
			return s.historicalResult(base, days, series, entity.ProvenanceOfflineCache, false)
		}

		series := make(entity.HistoricalSeries, days)
		s.fillWithSamples(base, dates, series)
		return s.historicalResult(base, days, series, entity.ProvenanceSample, false)
	}

	series, fetched := s.fetchSeries(ctx, base, dates)

	if len(series) < days {
		s.logger.Warn("Historical fetch incomplete, backfilling", map[string]interface{}{
			"request_id": fields["request_id"],
			"base":       base,
			"days":       days,
			"assembled":  len(series),
		})
		s.backfill(base, days, dates, series)
	}

	if len(series) == days {
		s.cache.PutHistorical(base, days, series)
	}

	fields["fetched"] = fetched
	s.logger.Info("Assembled historical rates", fields)

	provenance := entity.ProvenanceLive
	if fetched == 0 {
		provenance = entity.ProvenanceSample
	}
	return s.historicalResult(base, days, series, provenance, fetched == days)
}

// fetchSeries fetches each date in turn, substituting sample data for failed days.
// It stops early, leaving dates unassembled, when the context is done.
func (s *RateService) fetchSeries(ctx context.Context, base string, dates []time.Time) (entity.HistoricalSeries, int) {
	series := make(entity.HistoricalSeries, len(dates))
	fetched := 0

	for i, date := range dates {
		if ctx.Err() != nil {
			break
		}
		if i > 0 && s.pauseEvery > 0 && i%s.pauseEvery == 0 {
			if err := s.sleep(ctx, s.pause); err != nil {
				break
			}
		}

		key := date.Format(entity.DateLayout)
		rates, err := s.fetcher.FetchHistoricalDay(ctx, base, date)
		if err != nil {
			s.logger.Debug("Historical day unavailable, using sample data", map[string]interface{}{
				"base":  base,
				"date":  key,
				"error": err.Error(),
			})
			s.metrics.ObserveSampleDay()
			rates = s.samples.HistoricalDay(base, i)
		} else {
			fetched++
		}
		series[key] = rates
	}

	return series, fetched
}

// backfill completes series from a stale cache entry first, then from sample data
func (s *RateService) backfill(base string, days int, dates []time.Time, series entity.HistoricalSeries) {
	if stale, _, found := s.cache.GetHistorical(base, days); found {
		for _, date := range dates {
			key := date.Format(entity.DateLayout)
			if _, ok := series[key]; ok {
				continue
			}
			if rates, ok := stale[key]; ok {
				series[key] = rates
			}
		}
	}

	s.fillWithSamples(base, dates, series)
}

func (s *RateService) fillWithSamples(base string, dates []time.Time, series entity.HistoricalSeries) {
	for i, date := range dates {
		key := date.Format(entity.DateLayout)
		if _, ok := series[key]; ok {
			continue
		}
		s.metrics.ObserveSampleDay()
		series[key] = s.samples.HistoricalDay(base, i)
	}
}

func (s *RateService) historicalResult(base string, days int, series entity.HistoricalSeries, provenance entity.Provenance, complete bool) *entity.HistoricalRates {
	s.metrics.ObserveLookup(kindHistorical, string(provenance))
	return &entity.HistoricalRates{
		Base:       base,
		Days:       days,
		Series:     series,
		Provenance: provenance,
		Complete:   complete,
	}
}

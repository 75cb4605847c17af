package service

import "github.com/damon-houk/fx-rate-cache/internal/domain/entity"

// SampleSource produces deterministic rates used when no live or cached data exists
type SampleSource interface {
	Current(base string) entity.RateMapping
	HistoricalDay(base string, daysAgo int) entity.RateMapping
}

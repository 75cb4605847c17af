// Package repository internal/domain/repository/rate_cache.go
package repository

import "github.com/damon-houk/fx-rate-cache/internal/domain/entity"

// RateCache defines the two-tier cache of current rates and historical series.
// Every lookup reports whether the entry was found and whether it is past its expiry window;
// expired entries are still returned so callers can use them as a fallback.
type RateCache interface {
	// GetCurrent looks up the current rates cached for a base currency
	GetCurrent(base string) (rates entity.RateMapping, expired bool, found bool)

	// PutCurrent stores current rates for a base currency
	PutCurrent(base string, rates entity.RateMapping)

	// GetHistorical looks up the series cached for a base currency and day count
	GetHistorical(base string, days int) (series entity.HistoricalSeries, expired bool, found bool)

	// PutHistorical stores a series for a base currency and day count
	PutHistorical(base string, days int, series entity.HistoricalSeries)
}

package service

import (
	"context"
	"time"

	"github.com/damon-houk/fx-rate-cache/internal/domain/entity"
)

// RateFetcher defines the interface for the remote exchange rate API.
// Every error returned wraps entity.ErrFetchFailed.
type RateFetcher interface {
	// CheckConnectivity reports whether the network looks reachable
	CheckConnectivity(ctx context.Context) bool

	// FetchCurrent retrieves the latest rates for a base currency and the upstream update time
	FetchCurrent(ctx context.Context, base string) (entity.RateMapping, time.Time, error)

	// FetchHistoricalDay retrieves the rates for a base currency on one calendar date
	FetchHistoricalDay(ctx context.Context, base string, date time.Time) (entity.RateMapping, error)
}

package internal

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/damon-houk/fx-rate-cache/internal/application/service"
	"github.com/damon-houk/fx-rate-cache/internal/domain/entity"
	"github.com/damon-houk/fx-rate-cache/internal/infrastructure/cache"
	"github.com/damon-houk/fx-rate-cache/internal/infrastructure/db"
	"github.com/damon-houk/fx-rate-cache/internal/infrastructure/logger"
	"github.com/damon-houk/fx-rate-cache/internal/infrastructure/sample"
	"github.com/damon-houk/fx-rate-cache/internal/mocks"
	"github.com/dgraph-io/badger/v3"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestPerformance(t *testing.T) {
	// Skip in short mode or CI
	if testing.Short() {
		t.Skip("Skipping performance test in short mode")
	}

	badgerDB, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLogger(nil))
	require.NoError(t, err, "failed to open database")
	defer badgerDB.Close()

	log := logger.Discard()
	bases := []string{"USD", "EUR", "GBP", "JPY"}

	fetcher := new(mocks.MockRateFetcher)
	fetcher.On("CheckConnectivity", mock.Anything).Return(true)
	for _, base := range bases {
		fetcher.On("FetchCurrent", mock.Anything, base).Return(sample.NewGenerator(log).Current(base), time.Now(), nil)
	}

	rateService := service.NewRateService(cache.NewRateCache(t.TempDir(), cache.WithLogger(log)), fetcher, sample.NewGenerator(log), log)
	conversionService := service.NewConversionService(rateService, db.NewBadgerConversionHistoryRepository(badgerDB, 10), log, nil)

	// Warm the cache
	ctx := context.Background()
	for _, base := range bases {
		result := rateService.GetCurrentRates(ctx, base, false)
		require.Equal(t, entity.ProvenanceLive, result.Provenance)
	}

	numLookups := 1000
	concurrency := 10
	perWorker := numLookups / concurrency

	t.Run("Cached Lookups", func(t *testing.T) {
		startTime := time.Now()

		var wg sync.WaitGroup
		wg.Add(concurrency)
		for i := 0; i < concurrency; i++ {
			go func(workerID int) {
				defer wg.Done()
				for j := 0; j < perWorker; j++ {
					result := rateService.GetCurrentRates(ctx, bases[(workerID+j)%len(bases)], false)
					if result.Provenance != entity.ProvenanceCached {
						t.Errorf("expected cached provenance, got %s", result.Provenance)
					}
				}
			}(i)
		}
		wg.Wait()

		duration := time.Since(startTime)
		t.Logf("Cached lookups: %d in %v (%.2f ops/sec)", numLookups, duration, float64(numLookups)/duration.Seconds())
	})

	t.Run("Conversions", func(t *testing.T) {
		startTime := time.Now()

		var wg sync.WaitGroup
		wg.Add(concurrency)
		for i := 0; i < concurrency; i++ {
			go func(workerID int) {
				defer wg.Done()
				for j := 0; j < perWorker; j++ {
					from := bases[(workerID+j)%len(bases)]
					to := bases[(workerID+j+1)%len(bases)]
					if _, err := conversionService.ConvertAndRecord(ctx, float64(j+1), from, to); err != nil {
						t.Errorf("conversion %s->%s failed: %v", from, to, err)
					}
				}
			}(i)
		}
		wg.Wait()

		duration := time.Since(startTime)
		t.Logf("Conversions: %d in %v (%.2f ops/sec)", numLookups, duration, float64(numLookups)/duration.Seconds())

		records, err := conversionService.History(ctx, 100)
		require.NoError(t, err)
		require.LessOrEqual(t, len(records), 10, fmt.Sprintf("history should be trimmed, got %d", len(records)))
	})

	fetcher.AssertNumberOfCalls(t, "FetchCurrent", len(bases))
}

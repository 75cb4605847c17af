package db

import (
	"context"
	"testing"
	"time"

	"github.com/damon-houk/fx-rate-cache/internal/domain/entity"
	"github.com/dgraph-io/badger/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()

	opts := badger.DefaultOptions(t.TempDir()).WithLogger(nil)
	opts.SyncWrites = false

	db, err := badger.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return db
}

func record(minute int, amount float64) *entity.ConversionRecord {
	return &entity.ConversionRecord{
		Timestamp: time.Date(2025, 5, 1, 12, minute, 0, 0, time.UTC),
		From:      "USD",
		To:        "EUR",
		Amount:    amount,
		Result:    amount * 0.93,
	}
}

func TestConversionHistory(t *testing.T) {
	repo := NewBadgerConversionHistoryRepository(openTestDB(t), 3)
	ctx := context.Background()

	empty, err := repo.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, empty)

	for minute := 0; minute < 5; minute++ {
		require.NoError(t, repo.Append(ctx, record(minute, float64(minute+1)*10)))
	}

	t.Run("most recent first, trimmed to the retention limit", func(t *testing.T) {
		records, err := repo.Recent(ctx, 0)
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, 50.0, records[0].Amount)
		assert.Equal(t, 40.0, records[1].Amount)
		assert.Equal(t, 30.0, records[2].Amount)
		assert.NotEmpty(t, records[0].ID)
		assert.Equal(t, "USD", records[0].From)
		assert.Equal(t, "EUR", records[0].To)
	})

	t.Run("limit on read", func(t *testing.T) {
		records, err := repo.Recent(ctx, 2)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, 50.0, records[0].Amount)
	})

	t.Run("records survive a reopen", func(t *testing.T) {
		dir := t.TempDir()
		db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
		require.NoError(t, err)
		require.NoError(t, NewBadgerConversionHistoryRepository(db, 10).Append(ctx, record(1, 7)))
		require.NoError(t, db.Close())

		db, err = badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
		require.NoError(t, err)
		defer db.Close()

		records, err := NewBadgerConversionHistoryRepository(db, 10).Recent(ctx, 10)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, 7.0, records[0].Amount)
	})
}

func TestConversionHistoryUnlimited(t *testing.T) {
	repo := NewBadgerConversionHistoryRepository(openTestDB(t), 0)
	ctx := context.Background()

	for minute := 0; minute < 4; minute++ {
		require.NoError(t, repo.Append(ctx, record(minute, 1)))
	}

	records, err := repo.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, records, 4)
}

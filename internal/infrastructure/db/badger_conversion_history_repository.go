package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/damon-houk/fx-rate-cache/internal/domain/entity"
	"github.com/dgraph-io/badger/v3"
	"github.com/google/uuid"
)

const conversionPrefix = "conv:"

// BadgerConversionHistoryRepository keeps the most recent conversions in BadgerDB
type BadgerConversionHistoryRepository struct {
	db    *badger.DB
	limit int
}

// NewBadgerConversionHistoryRepository creates a history log retaining at most limit records.
// A limit of zero or less keeps everything.
func NewBadgerConversionHistoryRepository(db *badger.DB, limit int) *BadgerConversionHistoryRepository {
	return &BadgerConversionHistoryRepository{db: db, limit: limit}
}

// keys sort by timestamp, so iteration order is chronological
func conversionKey(record *entity.ConversionRecord) []byte {
	return []byte(fmt.Sprintf("%s%020d:%s", conversionPrefix, record.Timestamp.UnixNano(), record.ID))
}

// Append saves a record and drops the oldest records beyond the retention limit
func (r *BadgerConversionHistoryRepository) Append(ctx context.Context, record *entity.ConversionRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal conversion record: %w", err)
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(conversionKey(record), data); err != nil {
			return err
		}
		if r.limit <= 0 {
			return nil
		}

		for _, key := range r.keysBeyondLimit(txn) {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		return fmt.Errorf("failed to store conversion record: %w", err)
	}

	return nil
}

func (r *BadgerConversionHistoryRepository) keysBeyondLimit(txn *badger.Txn) [][]byte {
	opts := badger.DefaultIteratorOptions
	opts.Reverse = true
	opts.PrefetchValues = false
	opts.Prefix = []byte(conversionPrefix)

	it := txn.NewIterator(opts)
	defer it.Close()

	var stale [][]byte
	seen := 0
	for it.Seek(seekLast()); it.Valid(); it.Next() {
		seen++
		if seen > r.limit {
			stale = append(stale, it.Item().KeyCopy(nil))
		}
	}
	return stale
}

func seekLast() []byte {
	return append([]byte(conversionPrefix), 0xFF)
}

// Recent returns up to limit records, most recent first. A limit of zero or less returns all.
func (r *BadgerConversionHistoryRepository) Recent(ctx context.Context, limit int) ([]*entity.ConversionRecord, error) {
	records := make([]*entity.ConversionRecord, 0)

	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(conversionPrefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(seekLast()); it.Valid(); it.Next() {
			if limit > 0 && len(records) >= limit {
				break
			}

			var record entity.ConversionRecord
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &record)
			}); err != nil {
				return err
			}
			records = append(records, &record)
		}
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to read conversion history: %w", err)
	}

	return records, nil
}

package repository

import (
	"context"

	"github.com/damon-houk/fx-rate-cache/internal/domain/entity"
)

// ConversionHistoryRepository defines the interface for the conversion history log
type ConversionHistoryRepository interface {
	// Append saves a conversion record
	Append(ctx context.Context, record *entity.ConversionRecord) error

	// Recent returns up to limit records, most recent first
	Recent(ctx context.Context, limit int) ([]*entity.ConversionRecord, error)
}

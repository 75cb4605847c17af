// Package service internal/application/service/conversion_service.go
package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/damon-houk/fx-rate-cache/internal/domain/entity"
	"github.com/damon-houk/fx-rate-cache/internal/domain/repository"
	"github.com/damon-houk/fx-rate-cache/internal/infrastructure/logger"
	"github.com/damon-houk/fx-rate-cache/internal/infrastructure/metrics"
	"github.com/damon-houk/fx-rate-cache/internal/infrastructure/middleware"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RateProvider resolves the current rates for a base currency
type RateProvider interface {
	GetCurrentRates(ctx context.Context, base string, forceRefresh bool) *entity.CurrentRates
}

// ConversionService converts amounts between currencies and keeps the conversion history
type ConversionService struct {
	rates   RateProvider
	history repository.ConversionHistoryRepository
	logger  logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewConversionService creates a new conversion service; history may be nil
func NewConversionService(rates RateProvider, history repository.ConversionHistoryRepository, log logger.Logger, m *metrics.Metrics) *ConversionService {
	return &ConversionService{
		rates:   rates,
		history: history,
		logger:  logger.OrDefault(log).WithField("component", "conversion_service"),
		metrics: m,
		now:     time.Now,
	}
}

// Convert converts amount from one currency to another using the current rates of from.
// Negative amounts are converted by absolute value. The only errors are
// entity.ErrUnresolvableCurrency and entity.ErrConversionFailed.
func (s *ConversionService) Convert(ctx context.Context, amount float64, from, to string) (float64, error) {
	requestID := middleware.GetRequestID(ctx)
	from, to = NormalizeCode(from), NormalizeCode(to)

	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		s.metrics.ObserveConversion("failed")
		return 0, fmt.Errorf("%w: %w", entity.ErrConversionFailed, entity.ErrInvalidAmount)
	}

	if from == to {
		s.metrics.ObserveConversion("identity")
		return amount, nil
	}

	if amount < 0 {
		s.logger.Warn("Negative amount provided for conversion, using absolute value", map[string]interface{}{
			"request_id": requestID,
			"amount":     amount,
			"from":       from,
			"to":         to,
		})
		amount = math.Abs(amount)
	}

	rate, err := s.resolveRate(ctx, from, to)
	if err != nil {
		s.metrics.ObserveConversion("failed")
		s.logger.Warn("Conversion failed", map[string]interface{}{
			"request_id": requestID,
			"from":       from,
			"to":         to,
			"error":      err.Error(),
		})
		return 0, err
	}

	result := decimal.NewFromFloat(amount).Mul(decimal.NewFromFloat(rate)).InexactFloat64()

	s.metrics.ObserveConversion("ok")
	s.logger.Debug("Conversion completed", map[string]interface{}{
		"request_id": requestID,
		"from":       from,
		"to":         to,
		"amount":     amount,
		"rate":       rate,
		"result":     result,
	})

	return result, nil
}

// resolveRate looks up the rate from -> to. A panic below this point is reported as a
// failed conversion.
func (s *ConversionService) resolveRate(ctx context.Context, from, to string) (rate float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			rate = 0
			err = fmt.Errorf("%w: %v", entity.ErrConversionFailed, r)
		}
	}()

	current := s.rates.GetCurrentRates(ctx, from, false)
	if current == nil || len(current.Rates) == 0 {
		return 0, fmt.Errorf("%w: no rates for %s", entity.ErrConversionFailed, from)
	}

	rate, ok := current.Rates[to]
	if !ok {
		return 0, fmt.Errorf("%w: %s not in rates for %s", entity.ErrUnresolvableCurrency, to, from)
	}
	return rate, nil
}

// ConvertAndRecord converts and appends the result to the conversion history.
// A history write failure is logged and does not fail the conversion.
func (s *ConversionService) ConvertAndRecord(ctx context.Context, amount float64, from, to string) (*entity.ConversionRecord, error) {
	result, err := s.Convert(ctx, amount, from, to)
	if err != nil {
		return nil, err
	}

	record := &entity.ConversionRecord{
		ID:        uuid.New().String(),
		Timestamp: s.now().UTC(),
		From:      NormalizeCode(from),
		To:        NormalizeCode(to),
		Amount:    amount,
		Result:    result,
	}

	if s.history != nil {
		if err := s.history.Append(ctx, record); err != nil {
			s.logger.Error("Failed to record conversion", map[string]interface{}{
				"request_id": middleware.GetRequestID(ctx),
				"id":         record.ID,
				"error":      err.Error(),
			})
		}
	}

	return record, nil
}

// History returns up to limit recent conversions, most recent first
func (s *ConversionService) History(ctx context.Context, limit int) ([]*entity.ConversionRecord, error) {
	if s.history == nil {
		return []*entity.ConversionRecord{}, nil
	}

	records, err := s.history.Recent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversion history: %w", err)
	}
	return records, nil
}

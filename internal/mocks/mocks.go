// internal/mocks/mocks.go
package mocks

import (
	"context"
	"time"

	"github.com/damon-houk/fx-rate-cache/internal/domain/entity"
	"github.com/damon-houk/fx-rate-cache/internal/infrastructure/logger"
	"github.com/stretchr/testify/mock"
)

// MockRateFetcher mocks the RateFetcher interface
type MockRateFetcher struct {
	mock.Mock
}

func (m *MockRateFetcher) CheckConnectivity(ctx context.Context) bool {
	args := m.Called(ctx)
	return args.Bool(0)
}

func (m *MockRateFetcher) FetchCurrent(ctx context.Context, base string) (entity.RateMapping, time.Time, error) {
	args := m.Called(ctx, base)
	var rates entity.RateMapping
	if args.Get(0) != nil {
		rates = args.Get(0).(entity.RateMapping)
	}
	var updated time.Time
	if args.Get(1) != nil {
		updated = args.Get(1).(time.Time)
	}
	return rates, updated, args.Error(2)
}

func (m *MockRateFetcher) FetchHistoricalDay(ctx context.Context, base string, date time.Time) (entity.RateMapping, error) {
	args := m.Called(ctx, base, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(entity.RateMapping), args.Error(1)
}

// MockRateCache mocks the RateCache interface
type MockRateCache struct {
	mock.Mock
}

func (m *MockRateCache) GetCurrent(base string) (entity.RateMapping, bool, bool) {
	args := m.Called(base)
	var rates entity.RateMapping
	if args.Get(0) != nil {
		rates = args.Get(0).(entity.RateMapping)
	}
	return rates, args.Bool(1), args.Bool(2)
}

func (m *MockRateCache) PutCurrent(base string, rates entity.RateMapping) {
	m.Called(base, rates)
}

func (m *MockRateCache) GetHistorical(base string, days int) (entity.HistoricalSeries, bool, bool) {
	args := m.Called(base, days)
	var series entity.HistoricalSeries
	if args.Get(0) != nil {
		series = args.Get(0).(entity.HistoricalSeries)
	}
	return series, args.Bool(1), args.Bool(2)
}

func (m *MockRateCache) PutHistorical(base string, days int, series entity.HistoricalSeries) {
	m.Called(base, days, series)
}

// MockSampleSource mocks the SampleSource interface
type MockSampleSource struct {
	mock.Mock
}

func (m *MockSampleSource) Current(base string) entity.RateMapping {
	args := m.Called(base)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(entity.RateMapping)
}

func (m *MockSampleSource) HistoricalDay(base string, daysAgo int) entity.RateMapping {
	args := m.Called(base, daysAgo)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(entity.RateMapping)
}

// MockConversionHistoryRepository mocks the ConversionHistoryRepository interface
type MockConversionHistoryRepository struct {
	mock.Mock
}

func (m *MockConversionHistoryRepository) Append(ctx context.Context, record *entity.ConversionRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockConversionHistoryRepository) Recent(ctx context.Context, limit int) ([]*entity.ConversionRecord, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.ConversionRecord), args.Error(1)
}

// MockRateProvider mocks the rate provider consumed by the conversion service
type MockRateProvider struct {
	mock.Mock
}

func (m *MockRateProvider) GetCurrentRates(ctx context.Context, base string, forceRefresh bool) *entity.CurrentRates {
	args := m.Called(ctx, base, forceRefresh)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*entity.CurrentRates)
}

// MockLogger mocks the logger interface
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Debug(msg string, fields map[string]interface{}) {
	m.Called(msg, fields)
}

func (m *MockLogger) Info(msg string, fields map[string]interface{}) {
	m.Called(msg, fields)
}

func (m *MockLogger) Warn(msg string, fields map[string]interface{}) {
	m.Called(msg, fields)
}

func (m *MockLogger) Error(msg string, fields map[string]interface{}) {
	m.Called(msg, fields)
}

func (m *MockLogger) Fatal(msg string, fields map[string]interface{}) {
	m.Called(msg, fields)
}

func (m *MockLogger) WithField(key string, value interface{}) logger.Logger {
	args := m.Called(key, value)
	if args.Get(0) == nil {
		return m
	}
	return args.Get(0).(logger.Logger)
}

func (m *MockLogger) WithFields(fields map[string]interface{}) logger.Logger {
	args := m.Called(fields)
	if args.Get(0) == nil {
		return m
	}
	return args.Get(0).(logger.Logger)
}

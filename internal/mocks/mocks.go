// internal/mocks/mocks.go
package mocks

import (
	"context"
	"time"

	"github.com/damon-houk/currency-converter/internal/domain/entity"
	"github.com/stretchr/testify/mock"
)

// MockRateSource mocks the RateSource interface
type MockRateSource struct {
	mock.Mock
}

func (m *MockRateSource) GetSupportedCurrencies(ctx context.Context) (map[string]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}

func (m *MockRateSource) GetLatestRates(ctx context.Context, base string, symbols []string) (*entity.LatestRates, error) {
	args := m.Called(ctx, base, symbols)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.LatestRates), args.Error(1)
}

func (m *MockRateSource) GetTimeSeries(ctx context.Context, base string, start, end time.Time, symbols []string) (*entity.TimeSeries, error) {
	args := m.Called(ctx, base, start, end, symbols)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.TimeSeries), args.Error(1)
}

// MockExchangeRateProvider mocks the ExchangeRateProvider interface
type MockExchangeRateProvider struct {
	mock.Mock
}

func (m *MockExchangeRateProvider) GetSupportedCurrencies(ctx context.Context) (map[string]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}

func (m *MockExchangeRateProvider) GetLatestRates(ctx context.Context, base string, symbols []string) (*entity.LatestRates, error) {
	args := m.Called(ctx, base, symbols)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.LatestRates), args.Error(1)
}

func (m *MockExchangeRateProvider) GetTimeSeries(ctx context.Context, base string, start, end time.Time, symbols []string) (*entity.TimeSeries, error) {
	args := m.Called(ctx, base, start, end, symbols)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.TimeSeries), args.Error(1)
}

// MockStore mocks the cache Store interface
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).([]byte), args.Bool(1), args.Error(2)
}

func (m *MockStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

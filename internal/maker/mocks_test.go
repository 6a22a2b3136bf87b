package maker

import (
	"context"
	"log/slog"
	"os"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"maker/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type MockMarketData struct {
	mock.Mock
}

func (m *MockMarketData) LastPrice(ctx context.Context, symbol model.Symbol) (decimal.Decimal, error) {
	args := m.Called(ctx, symbol)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockMarketData) Candles(ctx context.Context, symbol model.Symbol, interval string, limit int) ([]model.Candle, error) {
	args := m.Called(ctx, symbol, interval, limit)
	if candles, ok := args.Get(0).([]model.Candle); ok {
		return candles, args.Error(1)
	}
	return nil, args.Error(1)
}

type MockAccount struct {
	mock.Mock
}

func (m *MockAccount) AvailableBalance(ctx context.Context, asset string) (decimal.Decimal, error) {
	args := m.Called(ctx, asset)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockAccount) OrderLimits(ctx context.Context, symbol model.Symbol) (model.OrderLimits, error) {
	args := m.Called(ctx, symbol)
	return args.Get(0).(model.OrderLimits), args.Error(1)
}

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) OpenOrders(ctx context.Context, symbol model.Symbol) ([]model.Order, error) {
	args := m.Called(ctx, symbol)
	if orders, ok := args.Get(0).([]model.Order); ok {
		return orders, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockGateway) CancelOrder(ctx context.Context, symbol model.Symbol, orderID string) error {
	args := m.Called(ctx, symbol, orderID)
	return args.Error(0)
}

func (m *MockGateway) PlaceLimitOrder(ctx context.Context, symbol model.Symbol, side model.Side, amount, price decimal.Decimal) (model.Order, error) {
	args := m.Called(ctx, symbol, side, amount, price)
	return args.Get(0).(model.Order), args.Error(1)
}

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) LogOrderEvent(ctx context.Context, event model.OrderEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

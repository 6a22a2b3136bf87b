package exchange

import (
	"context"

	"github.com/shopspring/decimal"
	"maker/internal/model"
)

// MarketData supplies prices and candles for a symbol.
type MarketData interface {
	LastPrice(ctx context.Context, symbol model.Symbol) (decimal.Decimal, error)
	Candles(ctx context.Context, symbol model.Symbol, interval string, limit int) ([]model.Candle, error)
}

// Account supplies balances and venue trading limits.
type Account interface {
	AvailableBalance(ctx context.Context, asset string) (decimal.Decimal, error)
	OrderLimits(ctx context.Context, symbol model.Symbol) (model.OrderLimits, error)
}

// OrderGateway places, cancels and lists resting orders on the venue.
type OrderGateway interface {
	OpenOrders(ctx context.Context, symbol model.Symbol) ([]model.Order, error)
	CancelOrder(ctx context.Context, symbol model.Symbol, orderID string) error
	PlaceLimitOrder(ctx context.Context, symbol model.Symbol, side model.Side, amount, price decimal.Decimal) (model.Order, error)
}

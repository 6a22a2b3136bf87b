package maker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
	"maker/internal/exchange"
	"maker/internal/model"
)

// QuoteSizer computes one symmetric bid/ask quote per cycle, sized against the
// account's balances and the venue's order limits.
//
// Prices derive from the last trade, not from book depth, and balances are
// sliced evenly across all configured symbols. Both are approximations carried
// over from the original strategy; the slicing is not a reservation, so
// symbols sharing a quote asset can overcommit it between cycles.
type QuoteSizer struct {
	logger  *slog.Logger
	account exchange.Account

	spread           decimal.Decimal
	maxOrderValuePct decimal.Decimal
	chunkSize        decimal.Decimal
	symbolCount      int64
}

// NewQuoteSizer creates a new QuoteSizer. chunkSize is the amount step orders
// are floored to; zero disables quantization.
func NewQuoteSizer(logger *slog.Logger, account exchange.Account, spread, maxOrderValuePct, chunkSize decimal.Decimal, symbolCount int) *QuoteSizer {
	return &QuoteSizer{
		logger:           logger,
		account:          account,
		spread:           spread,
		maxOrderValuePct: maxOrderValuePct,
		chunkSize:        chunkSize,
		symbolCount:      int64(symbolCount),
	}
}

// ComputeQuote builds the quote for one cycle. A nil leg on the result means
// that side is skipped; an error means the whole symbol is skipped this cycle.
func (s *QuoteSizer) ComputeQuote(ctx context.Context, symbol model.Symbol, lastPrice decimal.Decimal) (model.Quote, error) {
	limits, err := s.account.OrderLimits(ctx, symbol)
	if err != nil {
		return model.Quote{}, fmt.Errorf("order limits for %s: %w", symbol, err)
	}
	quoteBalance, err := s.slicedBalance(ctx, symbol.Quote)
	if err != nil {
		return model.Quote{}, fmt.Errorf("quote balance for %s: %w", symbol, err)
	}
	baseBalance, err := s.slicedBalance(ctx, symbol.Base)
	if err != nil {
		return model.Quote{}, fmt.Errorf("base balance for %s: %w", symbol, err)
	}

	one := decimal.NewFromInt(1)
	buyPrice := lastPrice.Mul(one.Sub(s.spread))
	sellPrice := lastPrice.Mul(one.Add(s.spread))
	maxOrderValue := quoteBalance.Mul(s.maxOrderValuePct)

	quote := model.Quote{Symbol: symbol}

	// A buy consumes the quote asset, so its balance cap is value-based.
	buyAmount := s.clampAmount(maxOrderValue.Div(buyPrice), quoteBalance.Div(buyPrice), limits)
	if buyAmount.Mul(buyPrice).LessThanOrEqual(quoteBalance) {
		quote.Buy = &model.QuoteLeg{Price: buyPrice, Amount: buyAmount}
	}

	// A sell consumes the base asset directly.
	sellAmount := s.clampAmount(maxOrderValue.Div(sellPrice), baseBalance, limits)
	if sellAmount.LessThanOrEqual(baseBalance) {
		quote.Sell = &model.QuoteLeg{Price: sellPrice, Amount: sellAmount}
	}

	return quote, nil
}

// slicedBalance fetches the available balance for one asset and divides it
// evenly across the configured symbols.
func (s *QuoteSizer) slicedBalance(ctx context.Context, asset string) (decimal.Decimal, error) {
	available, err := s.account.AvailableBalance(ctx, asset)
	if err != nil {
		return decimal.Zero, err
	}
	sliced := available.Div(decimal.NewFromInt(s.symbolCount))
	s.logger.Info("balance read", "asset", asset, "available", available, "sliced", sliced)
	return sliced, nil
}

// clampAmount floors the raw amount to the chunk step, caps it at the
// balance-derived and venue maxima, then raises it to the venue minimum. The
// raise can push the result past what the side's balance covers; the caller
// skips the leg in that case.
func (s *QuoteSizer) clampAmount(raw, balanceMax decimal.Decimal, limits model.OrderLimits) decimal.Decimal {
	amount := raw
	if s.chunkSize.Sign() > 0 {
		amount = amount.Div(s.chunkSize).Floor().Mul(s.chunkSize)
	}
	amount = decimal.Min(amount, balanceMax, limits.MaxAmount)
	return decimal.Max(amount, limits.MinAmount)
}

package maker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"maker/internal/database"
	"maker/internal/exchange"
	"maker/internal/model"
)

// Controller runs one evaluation cycle per symbol: observe the price, prune
// stale orders, compute the quote, place the surviving legs.
type Controller struct {
	logger      *slog.Logger
	market      exchange.MarketData
	books       *BookManager
	sizer       *QuoteSizer
	gateway     exchange.OrderGateway
	repo        database.Repository
	callTimeout time.Duration
}

// NewController creates a new Controller. callTimeout bounds every venue call
// so a stalled call cannot starve the symbols behind it.
func NewController(logger *slog.Logger, market exchange.MarketData, books *BookManager, sizer *QuoteSizer,
	gateway exchange.OrderGateway, repo database.Repository, callTimeout time.Duration) *Controller {
	return &Controller{
		logger:      logger,
		market:      market,
		books:       books,
		sizer:       sizer,
		gateway:     gateway,
		repo:        repo,
		callTimeout: callTimeout,
	}
}

// RunCycle evaluates one symbol once. Every step is fault-isolated: a prune
// failure does not stop sizing, a sizing failure skips only this symbol's
// placements, and one leg failing does not stop the other.
func (c *Controller) RunCycle(ctx context.Context, symbol model.Symbol) error {
	lastPrice, err := c.lastPrice(ctx, symbol)
	if err != nil {
		return fmt.Errorf("ticker for %s: %w", symbol, err)
	}

	if _, err := c.prune(ctx, symbol, lastPrice); err != nil {
		c.logger.Error("prune failed", "symbol", symbol.String(), "error", err)
	}

	quote, err := c.computeQuote(ctx, symbol, lastPrice)
	if err != nil {
		return fmt.Errorf("sizing for %s: %w", symbol, err)
	}

	c.placeLeg(ctx, symbol, model.Buy, quote.Buy)
	c.placeLeg(ctx, symbol, model.Sell, quote.Sell)

	c.logger.Info("cycle completed", "symbol", symbol.String(), "last_price", lastPrice,
		"buy_quoted", quote.Buy != nil, "sell_quoted", quote.Sell != nil)
	return nil
}

func (c *Controller) lastPrice(ctx context.Context, symbol model.Symbol) (decimal.Decimal, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()
	return c.market.LastPrice(callCtx, symbol)
}

func (c *Controller) prune(ctx context.Context, symbol model.Symbol, lastPrice decimal.Decimal) ([]string, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()
	return c.books.Prune(callCtx, symbol, lastPrice)
}

func (c *Controller) computeQuote(ctx context.Context, symbol model.Symbol, lastPrice decimal.Decimal) (model.Quote, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()
	return c.sizer.ComputeQuote(callCtx, symbol, lastPrice)
}

// placeLeg places one side of the quote. Venue rejections are logged by
// class and never propagated; a skipped or failed leg leaves the other alone.
func (c *Controller) placeLeg(ctx context.Context, symbol model.Symbol, side model.Side, leg *model.QuoteLeg) {
	if leg == nil {
		c.logger.Info("leg skipped", "symbol", symbol.String(), "side", side)
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()
	order, err := c.gateway.PlaceLimitOrder(callCtx, symbol, side, leg.Amount, leg.Price)
	if err != nil {
		switch {
		case errors.Is(err, exchange.ErrInsufficientFunds):
			c.logger.Error("order rejected for insufficient funds",
				"symbol", symbol.String(), "side", side, "error", err)
		case errors.Is(err, exchange.ErrInvalidOrder):
			c.logger.Error("order rejected by venue rules, limits metadata may be stale",
				"symbol", symbol.String(), "side", side, "error", err)
		case exchange.IsTransient(err):
			c.logger.Error("transient venue failure placing order, next cycle re-attempts",
				"symbol", symbol.String(), "side", side, "error", err)
		default:
			c.logger.Error("failed to place order",
				"symbol", symbol.String(), "side", side, "error", err)
		}
		return
	}

	c.logger.Info("order placed", "symbol", symbol.String(), "side", side,
		"amount", leg.Amount, "price", leg.Price, "order_id", order.ID)

	event := model.OrderEvent{
		Timestamp: time.Now(),
		Symbol:    symbol.String(),
		Action:    model.EventPlaced,
		Side:      string(side),
		Price:     leg.Price,
		Amount:    leg.Amount,
		OrderID:   order.ID,
	}
	if err := c.repo.LogOrderEvent(ctx, event); err != nil {
		c.logger.Error("failed to journal placement", "order_id", order.ID, "error", err)
	}
}

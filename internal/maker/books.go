package maker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"maker/internal/database"
	"maker/internal/exchange"
	"maker/internal/model"
)

// BookManager tracks the resting orders for a symbol and cancels the ones
// that drifted too far from the current price.
type BookManager struct {
	logger    *slog.Logger
	gateway   exchange.OrderGateway
	repo      database.Repository
	deviation decimal.Decimal
}

// NewBookManager creates a new BookManager.
func NewBookManager(logger *slog.Logger, gateway exchange.OrderGateway, repo database.Repository, deviation decimal.Decimal) *BookManager {
	return &BookManager{logger: logger, gateway: gateway, repo: repo, deviation: deviation}
}

// Prune cancels stale resting orders and returns the ids it cancelled. The
// open-order set is re-fetched from the venue every call rather than cached,
// so missed fills and cancels self-correct on the next cycle. A failed cancel
// is logged and does not block the remaining orders.
func (m *BookManager) Prune(ctx context.Context, symbol model.Symbol, currentPrice decimal.Decimal) ([]string, error) {
	orders, err := m.gateway.OpenOrders(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("open orders for %s: %w", symbol, err)
	}

	one := decimal.NewFromInt(1)
	buyFloor := currentPrice.Mul(one.Sub(m.deviation))
	sellCeiling := currentPrice.Mul(one.Add(m.deviation))

	var cancelled []string
	for _, order := range orders {
		// Orders exactly at the threshold are kept.
		stale := (order.Side == model.Buy && order.Price.LessThan(buyFloor)) ||
			(order.Side == model.Sell && order.Price.GreaterThan(sellCeiling))
		if !stale {
			continue
		}
		if err := m.gateway.CancelOrder(ctx, symbol, order.ID); err != nil {
			m.logger.Error("failed to cancel stale order",
				"symbol", symbol.String(), "order_id", order.ID, "side", order.Side, "error", err)
			continue
		}
		m.logger.Info("order cancelled",
			"symbol", symbol.String(), "order_id", order.ID, "side", order.Side, "price", order.Price)
		m.journal(ctx, symbol, order)
		cancelled = append(cancelled, order.ID)
	}
	return cancelled, nil
}

func (m *BookManager) journal(ctx context.Context, symbol model.Symbol, order model.Order) {
	event := model.OrderEvent{
		Timestamp: time.Now(),
		Symbol:    symbol.String(),
		Action:    model.EventCancelled,
		Side:      string(order.Side),
		Price:     order.Price,
		Amount:    order.Amount,
		OrderID:   order.ID,
	}
	if err := m.repo.LogOrderEvent(ctx, event); err != nil {
		m.logger.Error("failed to journal cancellation", "order_id", order.ID, "error", err)
	}
}

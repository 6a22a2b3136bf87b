package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Symbol identifies a base/quote asset pair, e.g. SHIB/USDT.
type Symbol struct {
	Base  string
	Quote string
}

// ParseSymbol parses a "BASE/QUOTE" pair identifier.
func ParseSymbol(s string) (Symbol, error) {
	base, quote, ok := strings.Cut(s, "/")
	if !ok || base == "" || quote == "" {
		return Symbol{}, fmt.Errorf("malformed symbol %q, want BASE/QUOTE", s)
	}
	return Symbol{Base: strings.ToUpper(base), Quote: strings.ToUpper(quote)}, nil
}

func (s Symbol) String() string { return s.Base + "/" + s.Quote }

// Venue returns the venue's concatenated form, e.g. SHIBUSDT.
func (s Symbol) Venue() string { return s.Base + s.Quote }

// Side is an order side.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// OrderStatus is the venue-reported lifecycle state of an order.
type OrderStatus string

const (
	OrderOpen      OrderStatus = "open"
	OrderFilled    OrderStatus = "filled"
	OrderCancelled OrderStatus = "cancelled"
)

// Ticker is a single price observation. Produced fresh each cycle, never retained.
type Ticker struct {
	Symbol     Symbol
	LastPrice  decimal.Decimal
	ObservedAt time.Time
}

// Balance is the available (free) amount of one asset.
type Balance struct {
	Asset     string
	Available decimal.Decimal
}

// OrderLimits are the venue's minimum and maximum order amounts for a symbol.
type OrderLimits struct {
	Symbol    Symbol
	MinAmount decimal.Decimal
	MaxAmount decimal.Decimal
}

// Order is a transient view of a venue-owned order. The bot never mutates one
// directly, it only requests transitions through the gateway.
type Order struct {
	ID     string
	Symbol Symbol
	Side   Side
	Price  decimal.Decimal
	Amount decimal.Decimal
	Status OrderStatus
}

// Candle is one OHLCV bar.
type Candle struct {
	OpenTime time.Time
	Open     decimal.Decimal
	High     decimal.Decimal
	Low      decimal.Decimal
	Close    decimal.Decimal
	Volume   decimal.Decimal
}

// QuoteLeg is one side of a quote.
type QuoteLeg struct {
	Price  decimal.Decimal
	Amount decimal.Decimal
}

// Quote is the sizer's output for one evaluation cycle. A nil leg means that
// side is skipped this cycle.
type Quote struct {
	Symbol Symbol
	Buy    *QuoteLeg
	Sell   *QuoteLeg
}

// Order journal actions.
const (
	EventPlaced    = "placed"
	EventCancelled = "cancelled"
)

// OrderEvent is one row of the append-only order journal.
type OrderEvent struct {
	Timestamp time.Time       `db:"timestamp"`
	Symbol    string          `db:"symbol"`
	Action    string          `db:"action"`
	Side      string          `db:"side"`
	Price     decimal.Decimal `db:"price"`
	Amount    decimal.Decimal `db:"amount"`
	OrderID   string          `db:"order_id"`
}

package exchange

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"maker/internal/model"
)

// PriceCache holds the latest streamed trade price per symbol. Entries older
// than maxAge are treated as missing so a stalled stream degrades to REST.
type PriceCache struct {
	maxAge  time.Duration
	mu      sync.RWMutex
	entries map[string]priceEntry
}

type priceEntry struct {
	price decimal.Decimal
	seen  time.Time
}

// NewPriceCache creates an empty cache with the given staleness bound.
func NewPriceCache(maxAge time.Duration) *PriceCache {
	return &PriceCache{maxAge: maxAge, entries: make(map[string]priceEntry)}
}

// Get returns the cached price if it is fresh enough to quote from.
func (c *PriceCache) Get(symbol model.Symbol) (decimal.Decimal, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[symbol.Venue()]
	if !ok || time.Since(entry.seen) > c.maxAge {
		return decimal.Decimal{}, false
	}
	return entry.price, true
}

func (c *PriceCache) put(venueSymbol string, price decimal.Decimal) {
	c.mu.Lock()
	c.entries[venueSymbol] = priceEntry{price: price, seen: time.Now()}
	c.mu.Unlock()
}

// PriceFeed streams miniTicker updates for the configured symbols into a
// PriceCache over a single combined websocket connection.
type PriceFeed struct {
	logger  *slog.Logger
	wsURL   string
	symbols []model.Symbol
	cache   *PriceCache
}

// NewPriceFeed creates a new PriceFeed.
func NewPriceFeed(logger *slog.Logger, wsURL string, symbols []model.Symbol, cache *PriceCache) *PriceFeed {
	return &PriceFeed{logger: logger, wsURL: wsURL, symbols: symbols, cache: cache}
}

func (f *PriceFeed) streamURL() string {
	streams := make([]string, 0, len(f.symbols))
	for _, symbol := range f.symbols {
		streams = append(streams, strings.ToLower(symbol.Venue())+"@miniTicker")
	}
	return f.wsURL + "/stream?streams=" + strings.Join(streams, "/")
}

// Run connects and reads until ctx is cancelled, reconnecting with
// exponential backoff capped at 16s.
func (f *PriceFeed) Run(ctx context.Context) error {
	streamURL := f.streamURL()
	backoff := time.Second
	for {
		select {
		case <-ctx.Done():
			f.logger.Info("PriceFeed: context cancelled, shutting down")
			return nil
		default:
		}

		f.logger.Info("PriceFeed: connecting to WebSocket", "url", streamURL, "backoff", backoff)
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, streamURL, nil)
		if err != nil {
			f.logger.Error("PriceFeed: WebSocket connection failed", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
				backoff *= 2
				if backoff > 16*time.Second {
					backoff = 16 * time.Second
				}
			}
			continue
		}

		// Reset backoff on successful connection
		backoff = time.Second
		f.logger.Info("PriceFeed: connected successfully")
		f.readLoop(ctx, conn)
	}
}

func (f *PriceFeed) readLoop(ctx context.Context, conn *websocket.Conn) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()
	defer conn.Close()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				f.logger.Error("PriceFeed: failed to read message", "error", err)
			}
			return
		}

		var envelope struct {
			Data struct {
				Symbol string `json:"s"`
				Close  string `json:"c"`
			} `json:"data"`
		}
		if err := json.Unmarshal(message, &envelope); err != nil {
			f.logger.Warn("PriceFeed: failed to parse message", "error", err)
			continue
		}
		if envelope.Data.Symbol == "" {
			continue
		}
		price, err := decimal.NewFromString(envelope.Data.Close)
		if err != nil || price.Sign() <= 0 {
			f.logger.Warn("PriceFeed: bad price update", "symbol", envelope.Data.Symbol, "raw", envelope.Data.Close)
			continue
		}
		f.cache.put(envelope.Data.Symbol, price)
		f.logger.Debug("PriceFeed: price update", "symbol", envelope.Data.Symbol, "price", price)
	}
}

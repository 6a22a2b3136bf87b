package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"maker/internal/model"
)

// BinanceClient implements the MarketData, Account and OrderGateway ports
// against the Binance spot REST API.
type BinanceClient struct {
	logger  *slog.Logger
	baseURL string
	apiKey  string
	secret  string
	http    *http.Client
	cache   *PriceCache // optional live feed; nil means REST only

	mu     sync.Mutex
	limits map[string]model.OrderLimits // venue limits are quasi-static, cached per run
}

// NewBinanceClient creates a new BinanceClient. cache may be nil to disable
// the streamed-price fast path.
func NewBinanceClient(logger *slog.Logger, baseURL, apiKey, secret string, cache *PriceCache) *BinanceClient {
	return &BinanceClient{
		logger:  logger,
		baseURL: baseURL,
		apiKey:  apiKey,
		secret:  secret,
		http:    &http.Client{Timeout: 10 * time.Second},
		cache:   cache,
		limits:  make(map[string]model.OrderLimits),
	}
}

type apiError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// do issues one request. Signed requests get timestamp, recvWindow and an
// HMAC-SHA256 signature over the query string.
func (b *BinanceClient) do(ctx context.Context, method, path string, params url.Values, signed bool) ([]byte, error) {
	op := method + " " + path
	if params == nil {
		params = url.Values{}
	}
	query := params.Encode()
	if signed {
		params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
		params.Set("recvWindow", "5000")
		query = params.Encode()
		mac := hmac.New(sha256.New, []byte(b.secret))
		mac.Write([]byte(query))
		query += "&signature=" + hex.EncodeToString(mac.Sum(nil))
	}
	reqURL := b.baseURL + path
	if query != "" {
		reqURL += "?" + query
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
	if err != nil {
		return nil, err
	}
	if b.apiKey != "" {
		req.Header.Set("X-MBX-APIKEY", b.apiKey)
	}
	resp, err := b.http.Do(req)
	if err != nil {
		return nil, &TransientError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransientError{Op: op, Err: err}
	}
	if resp.StatusCode == http.StatusOK {
		return body, nil
	}
	var venueErr apiError
	if json.Unmarshal(body, &venueErr) == nil && venueErr.Code != 0 {
		return nil, mapVenueError(op, venueErr, resp.StatusCode)
	}
	return nil, &TransientError{Op: op, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
}

// mapVenueError converts Binance error codes into the bot's error taxonomy.
func mapVenueError(op string, e apiError, status int) error {
	switch {
	case e.Code == -2010:
		return fmt.Errorf("%s: %s: %w", op, e.Msg, ErrInsufficientFunds)
	case e.Code == -1013 || e.Code == -1111 || e.Code == -2011:
		return fmt.Errorf("%s: %s: %w", op, e.Msg, ErrInvalidOrder)
	case status == http.StatusTooManyRequests || status >= http.StatusInternalServerError:
		return &TransientError{Op: op, Err: fmt.Errorf("venue error %d: %s", e.Code, e.Msg)}
	default:
		return fmt.Errorf("%s: venue error %d: %s", op, e.Code, e.Msg)
	}
}

// LastPrice returns the most recent trade price, preferring the live feed and
// falling back to REST when the cached entry is missing or stale.
func (b *BinanceClient) LastPrice(ctx context.Context, symbol model.Symbol) (decimal.Decimal, error) {
	if b.cache != nil {
		if price, ok := b.cache.Get(symbol); ok {
			return price, nil
		}
	}
	params := url.Values{}
	params.Set("symbol", symbol.Venue())
	body, err := b.do(ctx, http.MethodGet, "/api/v3/ticker/price", params, false)
	if err != nil {
		return decimal.Zero, err
	}
	var out struct {
		Price string `json:"price"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return decimal.Zero, fmt.Errorf("parse ticker for %s: %w", symbol, err)
	}
	price, err := decimal.NewFromString(out.Price)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse ticker price %q for %s: %w", out.Price, symbol, err)
	}
	if price.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("non-positive last price %s for %s", price, symbol)
	}
	return price, nil
}

// Candles fetches recent OHLCV bars for a symbol.
func (b *BinanceClient) Candles(ctx context.Context, symbol model.Symbol, interval string, limit int) ([]model.Candle, error) {
	params := url.Values{}
	params.Set("symbol", symbol.Venue())
	params.Set("interval", interval)
	params.Set("limit", strconv.Itoa(limit))
	body, err := b.do(ctx, http.MethodGet, "/api/v3/klines", params, false)
	if err != nil {
		return nil, err
	}
	// Each kline is a positional array: openTime, open, high, low, close, volume, ...
	var rows [][]any
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("parse klines for %s: %w", symbol, err)
	}
	candles := make([]model.Candle, 0, len(rows))
	for _, row := range rows {
		if len(row) < 6 {
			continue
		}
		openMS, ok := row[0].(float64)
		if !ok {
			continue
		}
		candle := model.Candle{OpenTime: time.UnixMilli(int64(openMS))}
		fields := []*decimal.Decimal{&candle.Open, &candle.High, &candle.Low, &candle.Close, &candle.Volume}
		valid := true
		for i, field := range fields {
			raw, ok := row[i+1].(string)
			if !ok {
				valid = false
				break
			}
			value, err := decimal.NewFromString(raw)
			if err != nil {
				valid = false
				break
			}
			*field = value
		}
		if valid {
			candles = append(candles, candle)
		}
	}
	return candles, nil
}

// AvailableBalance returns the free balance for one asset. An asset absent
// from the account response is reported as zero, not as an error.
func (b *BinanceClient) AvailableBalance(ctx context.Context, asset string) (decimal.Decimal, error) {
	body, err := b.do(ctx, http.MethodGet, "/api/v3/account", nil, true)
	if err != nil {
		return decimal.Zero, err
	}
	var out struct {
		Balances []struct {
			Asset string `json:"asset"`
			Free  string `json:"free"`
		} `json:"balances"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return decimal.Zero, fmt.Errorf("parse account: %w", err)
	}
	for _, balance := range out.Balances {
		if !strings.EqualFold(balance.Asset, asset) {
			continue
		}
		free, err := decimal.NewFromString(balance.Free)
		if err != nil {
			return decimal.Zero, fmt.Errorf("parse balance %q for %s: %w", balance.Free, asset, err)
		}
		return free, nil
	}
	return decimal.Zero, nil
}

// OrderLimits returns the venue's LOT_SIZE bounds for a symbol. Limits are
// quasi-static, so the first successful fetch is cached for the run.
func (b *BinanceClient) OrderLimits(ctx context.Context, symbol model.Symbol) (model.OrderLimits, error) {
	b.mu.Lock()
	cached, ok := b.limits[symbol.Venue()]
	b.mu.Unlock()
	if ok {
		return cached, nil
	}

	params := url.Values{}
	params.Set("symbol", symbol.Venue())
	body, err := b.do(ctx, http.MethodGet, "/api/v3/exchangeInfo", params, false)
	if err != nil {
		return model.OrderLimits{}, err
	}
	var out struct {
		Symbols []struct {
			Symbol  string `json:"symbol"`
			Filters []struct {
				FilterType string `json:"filterType"`
				MinQty     string `json:"minQty"`
				MaxQty     string `json:"maxQty"`
			} `json:"filters"`
		} `json:"symbols"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return model.OrderLimits{}, fmt.Errorf("parse exchange info for %s: %w", symbol, err)
	}
	for _, info := range out.Symbols {
		if info.Symbol != symbol.Venue() {
			continue
		}
		for _, filter := range info.Filters {
			if filter.FilterType != "LOT_SIZE" {
				continue
			}
			minQty, err := decimal.NewFromString(filter.MinQty)
			if err != nil {
				return model.OrderLimits{}, fmt.Errorf("parse minQty %q for %s: %w", filter.MinQty, symbol, err)
			}
			maxQty, err := decimal.NewFromString(filter.MaxQty)
			if err != nil {
				return model.OrderLimits{}, fmt.Errorf("parse maxQty %q for %s: %w", filter.MaxQty, symbol, err)
			}
			limits := model.OrderLimits{Symbol: symbol, MinAmount: minQty, MaxAmount: maxQty}
			b.mu.Lock()
			b.limits[symbol.Venue()] = limits
			b.mu.Unlock()
			return limits, nil
		}
	}
	return model.OrderLimits{}, fmt.Errorf("no LOT_SIZE filter for %s", symbol)
}

type venueOrder struct {
	OrderID int64  `json:"orderId"`
	Price   string `json:"price"`
	OrigQty string `json:"origQty"`
	Side    string `json:"side"`
	Status  string `json:"status"`
}

func (o venueOrder) toModel(symbol model.Symbol) (model.Order, error) {
	price, err := decimal.NewFromString(o.Price)
	if err != nil {
		return model.Order{}, fmt.Errorf("parse order price %q: %w", o.Price, err)
	}
	amount, err := decimal.NewFromString(o.OrigQty)
	if err != nil {
		return model.Order{}, fmt.Errorf("parse order quantity %q: %w", o.OrigQty, err)
	}
	order := model.Order{
		ID:     strconv.FormatInt(o.OrderID, 10),
		Symbol: symbol,
		Price:  price,
		Amount: amount,
	}
	if strings.EqualFold(o.Side, "SELL") {
		order.Side = model.Sell
	} else {
		order.Side = model.Buy
	}
	switch o.Status {
	case "FILLED":
		order.Status = model.OrderFilled
	case "CANCELED", "EXPIRED", "REJECTED":
		order.Status = model.OrderCancelled
	default: // NEW, PARTIALLY_FILLED
		order.Status = model.OrderOpen
	}
	return order, nil
}

// OpenOrders lists the resting orders for a symbol.
func (b *BinanceClient) OpenOrders(ctx context.Context, symbol model.Symbol) ([]model.Order, error) {
	params := url.Values{}
	params.Set("symbol", symbol.Venue())
	body, err := b.do(ctx, http.MethodGet, "/api/v3/openOrders", params, true)
	if err != nil {
		return nil, err
	}
	var raw []venueOrder
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parse open orders for %s: %w", symbol, err)
	}
	orders := make([]model.Order, 0, len(raw))
	for _, entry := range raw {
		order, err := entry.toModel(symbol)
		if err != nil {
			b.logger.Warn("BinanceClient: skipping unparseable order", "symbol", symbol.String(), "error", err)
			continue
		}
		orders = append(orders, order)
	}
	return orders, nil
}

// CancelOrder requests cancellation of one resting order.
func (b *BinanceClient) CancelOrder(ctx context.Context, symbol model.Symbol, orderID string) error {
	params := url.Values{}
	params.Set("symbol", symbol.Venue())
	params.Set("orderId", orderID)
	_, err := b.do(ctx, http.MethodDelete, "/api/v3/order", params, true)
	return err
}

// PlaceLimitOrder submits a GTC limit order and returns the venue's view of it.
func (b *BinanceClient) PlaceLimitOrder(ctx context.Context, symbol model.Symbol, side model.Side, amount, price decimal.Decimal) (model.Order, error) {
	params := url.Values{}
	params.Set("symbol", symbol.Venue())
	params.Set("side", strings.ToUpper(string(side)))
	params.Set("type", "LIMIT")
	params.Set("timeInForce", "GTC")
	params.Set("quantity", amount.String())
	params.Set("price", price.String())
	body, err := b.do(ctx, http.MethodPost, "/api/v3/order", params, true)
	if err != nil {
		return model.Order{}, err
	}
	var raw venueOrder
	if err := json.Unmarshal(body, &raw); err != nil {
		return model.Order{}, fmt.Errorf("parse placed order for %s: %w", symbol, err)
	}
	// The ack echoes side/status but may omit price/origQty on some order
	// types; fall back to what we sent.
	order, err := raw.toModel(symbol)
	if err != nil {
		order = model.Order{
			ID:     strconv.FormatInt(raw.OrderID, 10),
			Symbol: symbol,
			Side:   side,
			Price:  price,
			Amount: amount,
			Status: model.OrderOpen,
		}
	}
	return order, nil
}

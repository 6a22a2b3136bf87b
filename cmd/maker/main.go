package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"maker/internal/config"
	"maker/internal/database"
	"maker/internal/exchange"
	"maker/internal/maker"
	"maker/internal/model"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Error("cannot load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	symbols := make([]model.Symbol, 0, len(cfg.Strategy.Symbols))
	for _, raw := range cfg.Strategy.Symbols {
		symbol, _ := model.ParseSymbol(raw) // validated above
		symbols = append(symbols, symbol)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cache := exchange.NewPriceCache(10 * time.Second)
	client := exchange.NewBinanceClient(logger, cfg.Exchange.BaseURL, cfg.Exchange.APIKey, cfg.Exchange.APISecret, cache)

	feed := exchange.NewPriceFeed(logger, cfg.Exchange.WSURL, symbols, cache)
	go feed.Run(ctx)

	var repo database.Repository = database.NoopRepository{}
	if cfg.Database.Host != "" {
		pool, err := pgxpool.New(ctx, cfg.Database.ConnString())
		if err != nil {
			logger.Error("cannot connect to journal database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		pg := &database.PostgresRepository{Pool: pool}
		if err := pg.Migrate(ctx); err != nil {
			logger.Error("cannot migrate journal database", "error", err)
			os.Exit(1)
		}
		repo = pg
	}

	probeCandles(ctx, logger, client, symbols)

	strategy := cfg.Strategy
	sizer := maker.NewQuoteSizer(logger, client,
		decimal.NewFromFloat(strategy.Spread),
		decimal.NewFromFloat(strategy.MaxOrderValuePct),
		decimal.NewFromFloat(strategy.ChunkSize),
		len(symbols))
	books := maker.NewBookManager(logger, client, repo, decimal.NewFromFloat(strategy.DeviationThreshold))
	controller := maker.NewController(logger, client, books, sizer, client, repo, strategy.CallTimeout())
	scheduler := maker.NewScheduler(logger, controller, symbols, strategy.CycleInterval())

	logger.Info("maker starting", "symbols", cfg.Strategy.Symbols, "interval", strategy.CycleInterval().String())
	scheduler.Run(ctx)
	logger.Info("maker stopped")
}

// probeCandles logs the latest hourly close per symbol as a startup sanity
// check of market-data connectivity. Failures are logged, not fatal.
func probeCandles(ctx context.Context, logger *slog.Logger, market exchange.MarketData, symbols []model.Symbol) {
	for _, symbol := range symbols {
		candles, err := market.Candles(ctx, symbol, "1h", 5)
		if err != nil {
			logger.Error("candle probe failed", "symbol", symbol.String(), "error", err)
			continue
		}
		if len(candles) == 0 {
			continue
		}
		last := candles[len(candles)-1]
		logger.Info("candle probe", "symbol", symbol.String(), "close", last.Close, "open_time", last.OpenTime)
	}
}

// Command papertrade-server runs the paper-trading simulator: a simulated
// account backed by live Alpaca quotes, matched on a poll loop and exposed
// over a JSON HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"papertrade/internal/broker"
	"papertrade/internal/config"
	"papertrade/internal/domain"
	"papertrade/internal/engine"
	"papertrade/internal/httpapi"
	"papertrade/internal/journal"
	"papertrade/internal/market"
	"papertrade/internal/oracle"
	"papertrade/internal/store"
	"papertrade/internal/util"
)

func main() {
	cfgPath := flag.String("config", "", "path to config YAML (defaults apply when empty)")
	flag.Parse()
	if *cfgPath == "" {
		if p := os.Getenv("PAPERTRADE_CONFIG"); p != "" {
			*cfgPath = p
		}
	}

	var cfg *config.Config
	var err error
	if *cfgPath != "" {
		cfg, err = config.Load(*cfgPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg = config.Default()
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Quotes come from Alpaca when credentials are configured, otherwise
	// from an empty static table that SetPrice-less runs will report as
	// unavailable.
	var quotes oracle.Oracle
	if cfg.Alpaca.APIKey != "" {
		quotes = oracle.NewAlpaca(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.DataURL, cfg.Trading.RateLimitPerMin)
		logger.Info("using alpaca quotes")
	} else {
		quotes = oracle.NewStatic(nil)
		logger.Warn("no alpaca credentials, quotes unavailable")
	}

	// The session calendar approximates exchange hours; with credentials
	// the authoritative Alpaca clock is used instead, holidays included.
	var calendar market.Calendar
	if cfg.Alpaca.APIKey != "" {
		calendar = market.NewAlpacaCalendar(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.BaseURL, logger)
		logger.Info("using alpaca trading calendar")
	} else {
		calendar, err = market.NewSession(domain.Market(cfg.Trading.Market))
		if err != nil {
			logger.Error("building trading calendar", "error", err)
			os.Exit(1)
		}
	}

	var (
		account broker.Broker
		fills   journal.FillJournal
	)
	switch cfg.Trading.Broker {
	case "alpaca":
		// Live routing: Alpaca matches and journals its own fills, so the
		// local execution loop and journal stay off.
		account = broker.NewAlpacaBroker(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.BaseURL, quotes, logger)
		logger.Info("routing orders to alpaca", "base_url", cfg.Alpaca.BaseURL)
	default:
		j, err := journal.NewSQLiteJournal(cfg.Storage.SQLitePath)
		if err != nil {
			logger.Error("opening fill journal", "path", cfg.Storage.SQLitePath, "error", err)
			os.Exit(1)
		}
		defer j.Close()
		fills = j

		paper := broker.NewPaperBroker(cfg.Trading.InitialBalance, quotes, calendar, logger,
			broker.WithJournal(j),
			broker.WithQuoteTimeout(cfg.Trading.QuoteTimeout()),
			broker.WithAssets(store.NewParquetStore(cfg.Storage.DataDir), domain.Market(cfg.Trading.Market)),
		)
		account = paper

		runner := engine.NewRunner(paper, cfg.Trading.PollInterval(), logger)
		go func() {
			if err := runner.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Error("execution loop exited", "error", err)
				cancel()
			}
		}()
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: httpapi.NewServer(account, fills, logger).Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown", "error", err)
		}
	}()

	logger.Info("papertrade-server listening",
		"addr", addr,
		"broker", account.Name(),
		"market", cfg.Trading.Market,
		"initial_balance", cfg.Trading.InitialBalance,
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server", "error", err)
		os.Exit(1)
	}
}

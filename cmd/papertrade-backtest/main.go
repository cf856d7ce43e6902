// Command papertrade-backtest replays stored daily bars through a strategy
// and prints the run's performance metrics.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"papertrade/internal/domain"
	"papertrade/internal/store"
	"papertrade/internal/strategy"
	"papertrade/internal/strategy/builtins"
	"papertrade/internal/util"
)

func main() {
	var (
		dataDir  = flag.String("data", "data", "bar data directory")
		mkt      = flag.String("market", "us", "market (us or in)")
		symbols  = flag.String("symbols", "", "comma-separated symbols (required)")
		start    = flag.String("start", "", "start date YYYY-MM-DD (required)")
		end      = flag.String("end", "", "end date YYYY-MM-DD (required)")
		capital  = flag.Float64("capital", 100000, "initial capital")
		name     = flag.String("strategy", "sma-cross", "strategy name")
		short    = flag.Int("short", 10, "sma-cross short period")
		long     = flag.Int("long", 30, "sma-cross long period")
		qty      = flag.Int64("qty", 10, "shares per signal")
		logLevel = flag.String("log-level", "warn", "log level")
	)
	flag.Parse()

	if *symbols == "" || *start == "" || *end == "" {
		flag.Usage()
		os.Exit(2)
	}

	startDate, err := time.Parse(time.DateOnly, *start)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid start date: %v\n", err)
		os.Exit(2)
	}
	endDate, err := time.Parse(time.DateOnly, *end)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid end date: %v\n", err)
		os.Exit(2)
	}
	// Include the end date's bars.
	endDate = endDate.Add(24*time.Hour - time.Nanosecond)

	logger := util.NewLogger(*logLevel, "text")

	smaCross, err := builtins.NewSMACross(*short, *long, *qty)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	registry := strategy.NewRegistry()
	registry.Register(smaCross)

	bt := strategy.NewBacktester(store.NewParquetStore(*dataDir), registry, logger)

	res, err := bt.Run(context.Background(), *name, domain.Market(*mkt),
		strings.Split(*symbols, ","), startDate, endDate, *capital)
	if err != nil {
		fmt.Fprintf(os.Stderr, "backtest failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("strategy:        %s\n", *name)
	fmt.Printf("period:          %s .. %s\n", *start, *end)
	fmt.Printf("initial capital: %.2f\n", res.InitialCapital)
	fmt.Printf("final equity:    %.2f\n", res.FinalEquity)
	fmt.Printf("total return:    %.2f%%\n", res.TotalReturn)
	fmt.Printf("max drawdown:    %.2f%%\n", res.MaxDrawdown)
	fmt.Printf("sharpe ratio:    %.2f\n", res.SharpeRatio)
	fmt.Printf("trades:          %d\n", res.TotalTrades)
	fmt.Printf("win rate:        %.0f%%\n", res.WinRate*100)
}

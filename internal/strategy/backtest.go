package strategy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"papertrade/internal/broker"
	"papertrade/internal/domain"
	"papertrade/internal/journal"
	"papertrade/internal/market"
	"papertrade/internal/oracle"
	"papertrade/internal/store"
)

// BacktestResult holds the summary metrics produced by a backtest run.
type BacktestResult struct {
	InitialCapital float64 `json:"initial_capital"`
	FinalEquity    float64 `json:"final_equity"`
	TotalReturn    float64 `json:"total_return"` // percent
	MaxDrawdown    float64 `json:"max_drawdown"` // percent, reported positive
	SharpeRatio    float64 `json:"sharpe_ratio"` // annualized from daily bars
	TotalTrades    int     `json:"total_trades"`
	WinRate        float64 `json:"win_rate"` // fraction of closing fills sold above cost
}

// Backtester replays stored bars through a strategy. Each replayed day the
// strategy's signals are submitted to a fresh paper-broker account and the
// open orders are matched against that day's closes, so backtests exercise
// the same reservation and fill rules as live paper trading.
type Backtester struct {
	store    store.BarStore
	registry *Registry
	log      *slog.Logger
}

// NewBacktester creates a Backtester over the given bar store and strategy
// registry.
func NewBacktester(barStore store.BarStore, registry *Registry, log *slog.Logger) *Backtester {
	return &Backtester{
		store:    barStore,
		registry: registry,
		log:      log.With("component", "backtest"),
	}
}

// Run backtests the named strategy over the symbols and date range,
// starting with initialCapital. Submissions rejected by the account
// (insufficient cash or shares) are logged and skipped; the run continues.
func (bt *Backtester) Run(
	ctx context.Context,
	strategyName string,
	mkt domain.Market,
	symbols []string,
	start, end time.Time,
	initialCapital float64,
) (*BacktestResult, error) {
	strat, ok := bt.registry.Get(strategyName)
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q", strategyName)
	}
	if err := strat.Init(ctx); err != nil {
		return nil, fmt.Errorf("initializing strategy %s: %w", strategyName, err)
	}

	days, err := bt.loadDays(ctx, mkt, symbols, start, end)
	if err != nil {
		return nil, err
	}
	if len(days) == 0 {
		return nil, fmt.Errorf("no bars stored for %v in %s between %s and %s",
			symbols, mkt, start.Format(time.DateOnly), end.Format(time.DateOnly))
	}

	replay := oracle.NewReplay()
	fills := &memoryJournal{}
	account := broker.NewPaperBroker(initialCapital, replay, market.Always{}, bt.log,
		broker.WithJournal(fills))

	equity := make([]float64, 0, len(days))
	for _, day := range days {
		for _, bar := range day {
			replay.Advance(bar)
		}

		for _, bar := range day {
			signals, err := strat.OnBar(ctx, bar)
			if err != nil {
				return nil, fmt.Errorf("strategy %s on %s bar %s: %w",
					strategyName, bar.Symbol, bar.Timestamp.Format(time.DateOnly), err)
			}
			for _, sig := range signals {
				bt.submit(ctx, account, sig)
			}
		}

		if _, err := account.ExecuteOpenOrders(ctx); err != nil {
			return nil, fmt.Errorf("matching orders on %s: %w",
				day[0].Timestamp.Format(time.DateOnly), err)
		}

		summary, err := account.AccountSummary(ctx)
		if err != nil {
			return nil, fmt.Errorf("marking to market: %w", err)
		}
		equity = append(equity, summary.Equity)
	}

	return bt.results(initialCapital, equity, fills.fills), nil
}

// loadDays reads all symbols' bars and buckets them by trading day, oldest
// day first.
func (bt *Backtester) loadDays(ctx context.Context, mkt domain.Market, symbols []string, start, end time.Time) ([][]domain.Bar, error) {
	byDay := make(map[string][]domain.Bar)
	for _, symbol := range symbols {
		bars, err := bt.store.ReadBars(ctx, mkt, symbol, start, end)
		if err != nil {
			return nil, fmt.Errorf("reading bars for %s: %w", symbol, err)
		}
		for _, b := range bars {
			key := b.Timestamp.Format(time.DateOnly)
			byDay[key] = append(byDay[key], b)
		}
	}

	keys := make([]string, 0, len(byDay))
	for k := range byDay {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	days := make([][]domain.Bar, 0, len(keys))
	for _, k := range keys {
		days = append(days, byDay[k])
	}
	return days, nil
}

func (bt *Backtester) submit(ctx context.Context, account *broker.PaperBroker, sig domain.Signal) {
	req := broker.TradeRequest{
		Symbol:   sig.Symbol,
		Qty:      sig.Qty,
		StopLoss: sig.StopLoss,
		Limit:    sig.Limit,
	}

	var err error
	switch sig.Side {
	case domain.SideBuy:
		_, err = account.SubmitBuy(ctx, req)
	case domain.SideSell:
		_, err = account.SubmitSell(ctx, req)
	default:
		err = fmt.Errorf("signal with unknown side %q", sig.Side)
	}

	if err != nil {
		// The account legitimately refuses signals it cannot fund.
		if errors.Is(err, broker.ErrInsufficientBalance) || errors.Is(err, broker.ErrInsufficientHoldings) {
			bt.log.Debug("signal skipped", "strategy", sig.StrategyID, "symbol", sig.Symbol, "side", sig.Side, "error", err)
			return
		}
		bt.log.Warn("signal submission failed", "strategy", sig.StrategyID, "symbol", sig.Symbol, "side", sig.Side, "error", err)
	}
}

// results computes the run's metrics from the equity curve and fill log.
func (bt *Backtester) results(initial float64, equity []float64, fills []domain.Fill) *BacktestResult {
	res := &BacktestResult{
		InitialCapital: initial,
		FinalEquity:    equity[len(equity)-1],
		TotalTrades:    len(fills),
	}
	if initial != 0 {
		res.TotalReturn = (res.FinalEquity - initial) / initial * 100
	}
	res.MaxDrawdown = maxDrawdown(equity)
	res.SharpeRatio = sharpe(initial, equity)
	res.WinRate = winRate(fills)
	return res
}

// maxDrawdown returns the largest peak-to-trough equity decline in percent.
func maxDrawdown(equity []float64) float64 {
	var peak, worst float64
	for _, e := range equity {
		if e > peak {
			peak = e
		}
		if peak > 0 {
			if dd := (peak - e) / peak * 100; dd > worst {
				worst = dd
			}
		}
	}
	return worst
}

// sharpe annualizes the mean daily return over its standard deviation,
// assuming 252 trading days and a zero risk-free rate.
func sharpe(initial float64, equity []float64) float64 {
	returns := make([]float64, 0, len(equity))
	prev := initial
	for _, e := range equity {
		if prev > 0 {
			returns = append(returns, e/prev-1)
		}
		prev = e
	}
	if len(returns) < 2 {
		return 0
	}

	var sum float64
	for _, r := range returns {
		sum += r
	}
	avg := sum / float64(len(returns))

	var varsum float64
	for _, r := range returns {
		varsum += (r - avg) * (r - avg)
	}
	std := math.Sqrt(varsum / float64(len(returns)-1))
	if std == 0 {
		return 0
	}
	return avg / std * math.Sqrt(252)
}

// winRate is the fraction of sell-side fills whose price exceeds the
// average cost of the buy-side fills seen so far for that symbol.
func winRate(fills []domain.Fill) float64 {
	type position struct {
		qty  int64
		cost float64
	}
	positions := make(map[string]*position)

	var sells, wins int
	for _, f := range fills {
		pos := positions[f.Symbol]
		if pos == nil {
			pos = &position{}
			positions[f.Symbol] = pos
		}

		if f.Kind.BuySide() {
			pos.qty += f.Qty
			pos.cost += float64(f.Qty) * f.Price
			continue
		}

		sells++
		if pos.qty > 0 && f.Price > pos.cost/float64(pos.qty) {
			wins++
		}
		// Reduce the position at average cost.
		if pos.qty > 0 {
			avg := pos.cost / float64(pos.qty)
			closed := min(f.Qty, pos.qty)
			pos.qty -= closed
			pos.cost -= float64(closed) * avg
		}
	}

	if sells == 0 {
		return 0
	}
	return float64(wins) / float64(sells)
}

// memoryJournal collects fills in memory for post-run analysis.
type memoryJournal struct {
	mu    sync.Mutex
	fills []domain.Fill
}

var _ journal.FillJournal = (*memoryJournal)(nil)

func (m *memoryJournal) Append(_ context.Context, fill domain.Fill) error {
	m.mu.Lock()
	m.fills = append(m.fills, fill)
	m.mu.Unlock()
	return nil
}

func (m *memoryJournal) List(_ context.Context, limit int) ([]domain.Fill, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Fill, len(m.fills))
	copy(out, m.fills)
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

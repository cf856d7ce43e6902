package strategy

import (
	"context"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"papertrade/internal/domain"
	"papertrade/internal/store"
)

// scriptedStrategy emits a fixed signal on selected days.
type scriptedStrategy struct {
	signals map[string]domain.Signal // keyed by YYYY-MM-DD
}

func (s *scriptedStrategy) Name() string                 { return "scripted" }
func (s *scriptedStrategy) Init(_ context.Context) error { return nil }
func (s *scriptedStrategy) OnBar(_ context.Context, bar domain.Bar) ([]domain.Signal, error) {
	sig, ok := s.signals[bar.Timestamp.Format(time.DateOnly)]
	if !ok {
		return nil, nil
	}
	sig.Symbol = bar.Symbol
	sig.CreatedAt = bar.Timestamp
	return []domain.Signal{sig}, nil
}

func testBars(symbol string, closes []float64) []domain.Bar {
	bars := make([]domain.Bar, len(closes))
	for i, c := range closes {
		bars[i] = domain.Bar{
			Symbol:    symbol,
			Timestamp: time.Date(2024, 1, i+1, 0, 0, 0, 0, time.UTC),
			Open:      c, High: c, Low: c, Close: c,
		}
	}
	return bars
}

func TestBacktesterRun(t *testing.T) {
	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	ps := store.NewParquetStore(t.TempDir())
	bars := testBars("AAPL", []float64{100, 110, 120, 90, 95})
	if err := ps.WriteBars(ctx, domain.MarketUS, bars); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}

	// Buy 10 on the second day at 110, sell on the fourth at 90.
	reg := NewRegistry()
	reg.Register(&scriptedStrategy{signals: map[string]domain.Signal{
		"2024-01-02": {StrategyID: "scripted", Side: domain.SideBuy, Qty: 10},
		"2024-01-04": {StrategyID: "scripted", Side: domain.SideSell, Qty: 10},
	}})

	bt := NewBacktester(ps, reg, log)
	res, err := bt.Run(ctx, "scripted", domain.MarketUS, []string{"AAPL"},
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		10000)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Bought 1100, sold back 900: 10000 - 1100 + 900.
	if res.FinalEquity != 9800 {
		t.Errorf("FinalEquity = %v, want 9800", res.FinalEquity)
	}
	if math.Abs(res.TotalReturn-(-2)) > 1e-9 {
		t.Errorf("TotalReturn = %v, want -2", res.TotalReturn)
	}
	if res.TotalTrades != 2 {
		t.Errorf("TotalTrades = %v, want 2", res.TotalTrades)
	}
	if res.WinRate != 0 {
		t.Errorf("WinRate = %v, want 0", res.WinRate)
	}
	if res.MaxDrawdown <= 0 {
		t.Errorf("MaxDrawdown = %v, want > 0", res.MaxDrawdown)
	}
}

func TestBacktesterUnknownStrategy(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	bt := NewBacktester(store.NewParquetStore(t.TempDir()), NewRegistry(), log)

	_, err := bt.Run(context.Background(), "nope", domain.MarketUS, []string{"AAPL"},
		time.Now().AddDate(0, -1, 0), time.Now(), 10000)
	if err == nil {
		t.Fatal("Run with unknown strategy returned nil error")
	}
}

func TestBacktesterNoBars(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := NewRegistry()
	reg.Register(&scriptedStrategy{})
	bt := NewBacktester(store.NewParquetStore(t.TempDir()), reg, log)

	_, err := bt.Run(context.Background(), "scripted", domain.MarketUS, []string{"AAPL"},
		time.Now().AddDate(0, -1, 0), time.Now(), 10000)
	if err == nil {
		t.Fatal("Run with no stored bars returned nil error")
	}
}

func TestBacktesterSkipsUnfundableSignals(t *testing.T) {
	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	ps := store.NewParquetStore(t.TempDir())
	if err := ps.WriteBars(ctx, domain.MarketUS, testBars("AAPL", []float64{100, 100})); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}

	// 1000 in capital cannot fund a 10000 buy; the run must not fail.
	reg := NewRegistry()
	reg.Register(&scriptedStrategy{signals: map[string]domain.Signal{
		"2024-01-01": {StrategyID: "scripted", Side: domain.SideBuy, Qty: 100},
	}})

	bt := NewBacktester(ps, reg, log)
	res, err := bt.Run(ctx, "scripted", domain.MarketUS, []string{"AAPL"},
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		1000)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.TotalTrades != 0 {
		t.Errorf("TotalTrades = %v, want 0", res.TotalTrades)
	}
	if res.FinalEquity != 1000 {
		t.Errorf("FinalEquity = %v, want 1000", res.FinalEquity)
	}
}

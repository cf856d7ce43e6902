package strategy

import (
	"context"
	"testing"

	"papertrade/internal/domain"
)

// stubStrategy is a minimal Strategy implementation used in registry tests.
type stubStrategy struct {
	name string
}

func (s *stubStrategy) Name() string                 { return s.name }
func (s *stubStrategy) Init(_ context.Context) error { return nil }
func (s *stubStrategy) OnBar(_ context.Context, _ domain.Bar) ([]domain.Signal, error) {
	return nil, nil
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubStrategy{name: "test-strategy"})

	got, ok := r.Get("test-strategy")
	if !ok {
		t.Fatal("Get returned false for registered strategy")
	}
	if got.Name() != "test-strategy" {
		t.Errorf("Get returned strategy with Name() = %q, want %q", got.Name(), "test-strategy")
	}
}

func TestRegistryGet_NotFound(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.Get("nonexistent"); ok {
		t.Error("Get returned true for unregistered strategy")
	}
}

func TestRegistryList(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubStrategy{name: "beta"})
	r.Register(&stubStrategy{name: "alpha"})

	names := r.List()
	if len(names) != 2 || names[0] != "alpha" || names[1] != "beta" {
		t.Errorf("List returned %v, want [alpha beta]", names)
	}
}

func TestMaxDrawdown(t *testing.T) {
	tests := []struct {
		name   string
		equity []float64
		want   float64
	}{
		{"monotonic rise", []float64{100, 110, 120}, 0},
		{"single dip", []float64{100, 80, 120}, 20},
		{"later deeper dip", []float64{100, 90, 120, 60}, 50},
		{"empty", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := maxDrawdown(tt.equity); got != tt.want {
				t.Errorf("maxDrawdown(%v) = %v, want %v", tt.equity, got, tt.want)
			}
		})
	}
}

func TestWinRate(t *testing.T) {
	fills := []domain.Fill{
		{Symbol: "AAPL", Kind: domain.KindBuy, Qty: 10, Price: 100},
		{Symbol: "AAPL", Kind: domain.KindSell, Qty: 10, Price: 110}, // win
		{Symbol: "MSFT", Kind: domain.KindBuy, Qty: 5, Price: 400},
		{Symbol: "MSFT", Kind: domain.KindSell, Qty: 5, Price: 390}, // loss
	}
	if got := winRate(fills); got != 0.5 {
		t.Errorf("winRate = %v, want 0.5", got)
	}

	if got := winRate(nil); got != 0 {
		t.Errorf("winRate(nil) = %v, want 0", got)
	}
}

func TestWinRateAverageCost(t *testing.T) {
	// Two buys at different prices; the sell wins only against the
	// average cost.
	fills := []domain.Fill{
		{Symbol: "AAPL", Kind: domain.KindBuy, Qty: 10, Price: 100},
		{Symbol: "AAPL", Kind: domain.KindBuy, Qty: 10, Price: 120},
		{Symbol: "AAPL", Kind: domain.KindSell, Qty: 20, Price: 115},
	}
	// Average cost is 110; selling at 115 is a win.
	if got := winRate(fills); got != 1 {
		t.Errorf("winRate = %v, want 1", got)
	}
}

// Package builtins provides the strategy implementations that ship with
// papertrade.
package builtins

import (
	"context"
	"fmt"

	"papertrade/internal/domain"
	"papertrade/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*SMACross)(nil)

// SMACross is a simple moving average crossover strategy. Per symbol it
// tracks the close-price history and emits a buy signal when the
// short-period average crosses above the long-period average, and a sell
// signal when it crosses back below.
type SMACross struct {
	shortPeriod int
	longPeriod  int
	qty         int64

	closes map[string][]float64
	// above tracks, per symbol, whether the short SMA was above the long
	// SMA on the previous bar. A crossover is a change of this state.
	above map[string]bool
}

// NewSMACross creates an SMACross with the given short and long moving
// average periods. Each signal trades qty shares.
func NewSMACross(short, long int, qty int64) (*SMACross, error) {
	if short <= 0 || long <= short {
		return nil, fmt.Errorf("sma-cross: need 0 < short < long, got short=%d long=%d", short, long)
	}
	if qty <= 0 {
		return nil, fmt.Errorf("sma-cross: qty must be positive, got %d", qty)
	}
	return &SMACross{
		shortPeriod: short,
		longPeriod:  long,
		qty:         qty,
		closes:      make(map[string][]float64),
		above:       make(map[string]bool),
	}, nil
}

// Name returns "sma-cross".
func (s *SMACross) Name() string { return "sma-cross" }

// Init resets all per-symbol state.
func (s *SMACross) Init(_ context.Context) error {
	s.closes = make(map[string][]float64)
	s.above = make(map[string]bool)
	return nil
}

// OnBar appends the bar's close to the symbol's history and emits a signal
// when the short SMA crosses the long SMA. No signal is emitted until the
// long window is full, and the first full window only seeds the state.
func (s *SMACross) OnBar(_ context.Context, bar domain.Bar) ([]domain.Signal, error) {
	history := append(s.closes[bar.Symbol], bar.Close)
	if len(history) > s.longPeriod {
		history = history[len(history)-s.longPeriod:]
	}
	s.closes[bar.Symbol] = history

	if len(history) < s.longPeriod {
		return nil, nil
	}

	short := mean(history[len(history)-s.shortPeriod:])
	long := mean(history)
	above := short > long

	prev, seeded := s.above[bar.Symbol]
	s.above[bar.Symbol] = above
	if !seeded || prev == above {
		return nil, nil
	}

	side := domain.SideSell
	if above {
		side = domain.SideBuy
	}
	return []domain.Signal{{
		StrategyID: s.Name(),
		Symbol:     bar.Symbol,
		Side:       side,
		Qty:        s.qty,
		CreatedAt:  bar.Timestamp,
	}}, nil
}

func mean(vals []float64) float64 {
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

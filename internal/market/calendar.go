// Package market provides the trading-calendar contract used to gate order
// execution, with wall-clock and Alpaca-backed implementations.
package market

import (
	"fmt"
	"time"

	"papertrade/internal/domain"
)

// Calendar reports whether trading is currently permitted. Execution passes
// run only while the calendar is open.
type Calendar interface {
	IsTradingOpen() bool
}

// ---------------------------------------------------------------------------
// Always: calendar that never closes
// ---------------------------------------------------------------------------

// Compile-time interface check.
var _ Calendar = Always{}

// Always is a Calendar that is always open. Backtests use it so that every
// replayed bar triggers an execution pass.
type Always struct{}

// IsTradingOpen always returns true.
func (Always) IsTradingOpen() bool { return true }

// ---------------------------------------------------------------------------
// Session: wall-clock session windows
// ---------------------------------------------------------------------------

// session describes one market's regular trading window in its local zone.
type session struct {
	zone      string
	openHour  int
	openMin   int
	closeHour int
	closeMin  int
}

var sessions = map[domain.Market]session{
	domain.MarketUS: {zone: "America/New_York", openHour: 9, openMin: 30, closeHour: 16, closeMin: 0},
	domain.MarketIN: {zone: "Asia/Kolkata", openHour: 9, openMin: 15, closeHour: 15, closeMin: 30},
}

// Compile-time interface check.
var _ Calendar = (*Session)(nil)

// Session is a Calendar based on the market's regular session hours in its
// local time zone, Monday through Friday. Exchange holidays are not
// modelled; live deployments use the Alpaca calendar instead.
type Session struct {
	s   session
	loc *time.Location
	now func() time.Time // injectable for tests
}

// NewSession creates a Session calendar for the given market.
func NewSession(m domain.Market) (*Session, error) {
	s, ok := sessions[m]
	if !ok {
		return nil, fmt.Errorf("no session hours for market %q", m)
	}
	loc, err := time.LoadLocation(s.zone)
	if err != nil {
		return nil, fmt.Errorf("loading %s timezone: %w", s.zone, err)
	}
	return &Session{s: s, loc: loc, now: time.Now}, nil
}

// IsTradingOpen reports whether the current local time falls inside the
// market's regular session on a weekday.
func (c *Session) IsTradingOpen() bool {
	now := c.now().In(c.loc)

	switch now.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}

	open := time.Date(now.Year(), now.Month(), now.Day(), c.s.openHour, c.s.openMin, 0, 0, c.loc)
	close := time.Date(now.Year(), now.Month(), now.Day(), c.s.closeHour, c.s.closeMin, 0, 0, c.loc)
	return !now.Before(open) && now.Before(close)
}

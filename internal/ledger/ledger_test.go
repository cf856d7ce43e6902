package ledger

import (
	"errors"
	"testing"
	"time"

	"papertrade/internal/domain"
)

func TestAccountDebitCredit(t *testing.T) {
	a := NewAccount(100000)

	a.Debit(1550)
	if got := a.Balance(); got != 98450 {
		t.Errorf("Balance after debit = %v, want 98450", got)
	}

	a.Credit(1550)
	if got := a.Balance(); got != 100000 {
		t.Errorf("Balance after credit = %v, want 100000", got)
	}

	if got := a.InitialBalance(); got != 100000 {
		t.Errorf("InitialBalance = %v, want 100000", got)
	}
}

func TestAccountAdjustPosition(t *testing.T) {
	a := NewAccount(0)

	if err := a.AdjustPosition("AAPL", 10); err != nil {
		t.Fatalf("AdjustPosition(+10): %v", err)
	}
	if got := a.Position("AAPL"); got != 10 {
		t.Errorf("Position = %d, want 10", got)
	}

	if err := a.AdjustPosition("AAPL", -4); err != nil {
		t.Fatalf("AdjustPosition(-4): %v", err)
	}
	if got := a.Position("AAPL"); got != 6 {
		t.Errorf("Position = %d, want 6", got)
	}

	// Driving a holding to exactly zero removes the key entirely.
	if err := a.AdjustPosition("AAPL", -6); err != nil {
		t.Fatalf("AdjustPosition(-6): %v", err)
	}
	if _, ok := a.Holdings()["AAPL"]; ok {
		t.Error("zero holding should be removed from the map, not kept as 0")
	}
}

func TestAccountAdjustPositionNegative(t *testing.T) {
	a := NewAccount(0)
	if err := a.AdjustPosition("AAPL", 5); err != nil {
		t.Fatalf("AdjustPosition(+5): %v", err)
	}

	err := a.AdjustPosition("AAPL", -6)
	if !errors.Is(err, ErrNegativeHoldings) {
		t.Fatalf("AdjustPosition(-6) = %v, want ErrNegativeHoldings", err)
	}
	// Failed adjustment must leave the holding untouched.
	if got := a.Position("AAPL"); got != 5 {
		t.Errorf("Position after failed adjust = %d, want 5", got)
	}
}

func TestAccountHoldingsIsCopy(t *testing.T) {
	a := NewAccount(0)
	if err := a.AdjustPosition("MSFT", 3); err != nil {
		t.Fatal(err)
	}

	h := a.Holdings()
	h["MSFT"] = 999
	if got := a.Position("MSFT"); got != 3 {
		t.Errorf("mutating the snapshot changed the account: %d", got)
	}
}

func TestOrderBookLifecycle(t *testing.T) {
	b := NewOrderBook()

	o := &domain.Order{
		ID: "o-1", Symbol: "AAPL", Qty: 10, Price: 155,
		Kind: domain.KindBuy, Status: domain.OrderStatusOpen,
		CreatedAt: time.Now(),
	}
	b.Add(o)

	if b.Open("o-1") == nil {
		t.Fatal("order missing from open set after Add")
	}
	if b.Settled("o-1") != nil {
		t.Fatal("order present in settled history before Settle")
	}

	b.Settle(o)

	if b.Open("o-1") != nil {
		t.Error("order still open after Settle")
	}
	got := b.Settled("o-1")
	if got == nil {
		t.Fatal("order missing from settled history after Settle")
	}
	if got.Status != domain.OrderStatusFilled {
		t.Errorf("settled order status = %q, want %q", got.Status, domain.OrderStatusFilled)
	}

	// Settling twice must not duplicate the history entry.
	b.Settle(o)
	if n := b.SettledCount(); n != 1 {
		t.Errorf("SettledCount after double Settle = %d, want 1", n)
	}
}

func TestOrderBookRemove(t *testing.T) {
	b := NewOrderBook()
	b.Add(&domain.Order{ID: "o-1", Kind: domain.KindSell, Status: domain.OrderStatusOpen, CreatedAt: time.Now()})

	if !b.Remove("o-1") {
		t.Error("Remove returned false for an open order")
	}
	if b.Remove("o-1") {
		t.Error("Remove returned true for an already-removed order")
	}
	if b.Remove("nope") {
		t.Error("Remove returned true for an unknown order")
	}
}

func TestOrderBookSnapshotOrdering(t *testing.T) {
	b := NewOrderBook()
	base := time.Now()
	b.Add(&domain.Order{ID: "c", CreatedAt: base.Add(2 * time.Second)})
	b.Add(&domain.Order{ID: "a", CreatedAt: base})
	b.Add(&domain.Order{ID: "b", CreatedAt: base.Add(time.Second)})

	snap := b.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("Snapshot length = %d, want 3", len(snap))
	}
	for i, want := range []string{"a", "b", "c"} {
		if snap[i].ID != want {
			t.Errorf("Snapshot[%d].ID = %q, want %q", i, snap[i].ID, want)
		}
	}

	// The snapshot is detached: removing from the live set must not shrink it.
	b.Remove("a")
	if len(snap) != 3 {
		t.Error("snapshot shrank when the live set changed")
	}
}

func TestOrderBookOpenQtyByKind(t *testing.T) {
	b := NewOrderBook()
	b.Add(&domain.Order{ID: "s1", Symbol: "AAPL", Qty: 10, Kind: domain.KindStopSell})
	b.Add(&domain.Order{ID: "s2", Symbol: "AAPL", Qty: 5, Kind: domain.KindStopSell})
	b.Add(&domain.Order{ID: "s3", Symbol: "MSFT", Qty: 7, Kind: domain.KindStopSell})
	b.Add(&domain.Order{ID: "l1", Symbol: "AAPL", Qty: 3, Kind: domain.KindLimitSell})

	if got := b.OpenQtyByKind("AAPL", domain.KindStopSell); got != 15 {
		t.Errorf("OpenQtyByKind(AAPL, sl_sell) = %d, want 15", got)
	}
	if got := b.OpenQtyByKind("MSFT", domain.KindStopSell); got != 7 {
		t.Errorf("OpenQtyByKind(MSFT, sl_sell) = %d, want 7", got)
	}
	if got := b.OpenQtyByKind("GOOG", domain.KindStopSell); got != 0 {
		t.Errorf("OpenQtyByKind(GOOG, sl_sell) = %d, want 0", got)
	}

	b.Settle(b.Open("s1"))
	if got := b.OpenQtyByKind("AAPL", domain.KindStopSell); got != 5 {
		t.Errorf("OpenQtyByKind(AAPL, sl_sell) after settle = %d, want 5", got)
	}
}

package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"papertrade/internal/domain"
)

func TestSQLiteJournalAppendList(t *testing.T) {
	dir := t.TempDir()
	j, err := NewSQLiteJournal(filepath.Join(dir, "fills.db"))
	if err != nil {
		t.Fatalf("NewSQLiteJournal: %v", err)
	}
	defer j.Close()

	ctx := context.Background()
	base := time.Date(2024, 6, 5, 14, 30, 0, 0, time.UTC)

	fills := []domain.Fill{
		{OrderID: "o-1", Symbol: "AAPL", Kind: domain.KindBuy, Qty: 10, Price: 155.0, FilledAt: base},
		{OrderID: "o-2", Symbol: "AAPL", Kind: domain.KindSell, Qty: 5, Price: 165.0, FilledAt: base.Add(time.Minute)},
		{OrderID: "o-3", Symbol: "MSFT", Kind: domain.KindLimitBuy, Qty: 2, Price: 400.0, FilledAt: base.Add(2 * time.Minute)},
	}
	for _, f := range fills {
		if err := j.Append(ctx, f); err != nil {
			t.Fatalf("Append(%s): %v", f.OrderID, err)
		}
	}

	got, err := j.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("List returned %d fills, want 3", len(got))
	}
	// Newest first.
	if got[0].OrderID != "o-3" || got[2].OrderID != "o-1" {
		t.Errorf("List order = [%s %s %s], want newest first", got[0].OrderID, got[1].OrderID, got[2].OrderID)
	}
	if got[0].Kind != domain.KindLimitBuy {
		t.Errorf("Kind = %q, want %q", got[0].Kind, domain.KindLimitBuy)
	}
	if !got[0].FilledAt.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("FilledAt = %v, want %v", got[0].FilledAt, base.Add(2*time.Minute))
	}
}

func TestSQLiteJournalListLimit(t *testing.T) {
	dir := t.TempDir()
	j, err := NewSQLiteJournal(filepath.Join(dir, "fills.db"))
	if err != nil {
		t.Fatalf("NewSQLiteJournal: %v", err)
	}
	defer j.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		f := domain.Fill{
			OrderID:  string(rune('a' + i)),
			Symbol:   "AAPL",
			Kind:     domain.KindBuy,
			Qty:      1,
			Price:    100,
			FilledAt: time.Date(2024, 6, 5, 14, 30, i, 0, time.UTC),
		}
		if err := j.Append(ctx, f); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, err := j.List(ctx, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("List(2) returned %d fills, want 2", len(got))
	}
	if got[0].OrderID != "e" {
		t.Errorf("List(2)[0].OrderID = %q, want %q", got[0].OrderID, "e")
	}
}

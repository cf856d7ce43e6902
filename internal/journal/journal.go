// Package journal persists the append-only record of filled orders.
package journal

import (
	"context"

	"papertrade/internal/domain"
)

// FillJournal records settled orders. The paper broker treats it as an
// observer: a journal failure is logged, never allowed to block a fill.
type FillJournal interface {
	// Append records one fill.
	Append(ctx context.Context, fill domain.Fill) error

	// List returns the most recent fills, newest first, up to limit.
	// limit <= 0 means no limit.
	List(ctx context.Context, limit int) ([]domain.Fill, error)
}

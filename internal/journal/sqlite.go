package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"papertrade/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ FillJournal = (*SQLiteJournal)(nil)

// SQLiteJournal implements FillJournal backed by a SQLite database.
type SQLiteJournal struct {
	db *sql.DB
}

const fillsSchema = `
CREATE TABLE IF NOT EXISTS fills (
	order_id  TEXT    NOT NULL,
	symbol    TEXT    NOT NULL,
	kind      TEXT    NOT NULL,
	qty       INTEGER NOT NULL,
	price     REAL    NOT NULL,
	filled_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_fills_symbol ON fills(symbol);
CREATE INDEX IF NOT EXISTS idx_fills_filled_at ON fills(filled_at);
`

// NewSQLiteJournal opens (or creates) a SQLite database at dbPath and
// ensures the fills table exists.
func NewSQLiteJournal(dbPath string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(fillsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating fills schema: %w", err)
	}
	return &SQLiteJournal{db: db}, nil
}

// Close closes the underlying database connection.
func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

// Append records one fill.
func (j *SQLiteJournal) Append(ctx context.Context, fill domain.Fill) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO fills (order_id, symbol, kind, qty, price, filled_at) VALUES (?, ?, ?, ?, ?, ?)`,
		fill.OrderID, fill.Symbol, string(fill.Kind), fill.Qty, fill.Price, fill.FilledAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("inserting fill %s: %w", fill.OrderID, err)
	}
	return nil
}

// List returns the most recent fills, newest first, up to limit.
func (j *SQLiteJournal) List(ctx context.Context, limit int) ([]domain.Fill, error) {
	query := `SELECT order_id, symbol, kind, qty, price, filled_at FROM fills ORDER BY filled_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying fills: %w", err)
	}
	defer rows.Close()

	var fills []domain.Fill
	for rows.Next() {
		var (
			f        domain.Fill
			kind     string
			filledAt int64
		)
		if err := rows.Scan(&f.OrderID, &f.Symbol, &kind, &f.Qty, &f.Price, &filledAt); err != nil {
			return nil, fmt.Errorf("scanning fill: %w", err)
		}
		f.Kind = domain.OrderKind(kind)
		f.FilledAt = time.UnixMilli(filledAt)
		fills = append(fills, f)
	}
	return fills, rows.Err()
}

// Package journal persists closed baskets so a run can be audited and
// summarized after the fact.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/evdnx/gotsgrid/basket"
	"github.com/evdnx/gotsgrid/types"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS baskets (
    id            TEXT PRIMARY KEY,
    symbol        TEXT    NOT NULL,
    side          TEXT    NOT NULL,
    slices        TEXT    NOT NULL,
    slice_count   INTEGER NOT NULL,
    total_volume  REAL    NOT NULL,
    average_price REAL    NOT NULL,
    exit_price    REAL    NOT NULL,
    reason        TEXT    NOT NULL,
    pnl           REAL    NOT NULL,
    closed_at     DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_baskets_closed ON baskets(closed_at DESC);
CREATE INDEX IF NOT EXISTS idx_baskets_symbol ON baskets(symbol);
`

// Entry is one closed basket.
type Entry struct {
	BasketID     string
	Symbol       string
	Side         types.Direction
	Slices       []basket.Slice
	TotalVolume  float64
	AveragePrice float64
	ExitPrice    float64
	Reason       string
	PnL          float64
	ClosedAt     time.Time
}

// Stats aggregates the journal.
type Stats struct {
	Baskets int
	Wins    int
	Losses  int
	NetPnL  float64
}

// SQLiteJournal stores entries in SQLite (pure Go, no cgo).
type SQLiteJournal struct {
	db *sql.DB
}

// NewSQLiteJournal opens (or creates) the database at path; ":memory:" works
// for tests and throwaway backtests.
func NewSQLiteJournal(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("journal.NewSQLiteJournal: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // single writer; also keeps :memory: on one connection
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal.NewSQLiteJournal: apply schema: %w", err)
	}
	return &SQLiteJournal{db: db}, nil
}

func (j *SQLiteJournal) Close() error { return j.db.Close() }

// Record inserts e. Recording the same basket twice is an error.
func (j *SQLiteJournal) Record(ctx context.Context, e Entry) error {
	slices, err := json.Marshal(e.Slices)
	if err != nil {
		return fmt.Errorf("journal.Record: encode slices: %w", err)
	}
	_, err = j.db.ExecContext(ctx,
		`INSERT INTO baskets (id, symbol, side, slices, slice_count, total_volume, average_price, exit_price, reason, pnl, closed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.BasketID, e.Symbol, string(e.Side), string(slices), len(e.Slices),
		e.TotalVolume, e.AveragePrice, e.ExitPrice, e.Reason, e.PnL, e.ClosedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("journal.Record: insert %s: %w", e.BasketID, err)
	}
	return nil
}

// History returns the most recently closed baskets first; limit <= 0 returns all.
func (j *SQLiteJournal) History(ctx context.Context, limit int) ([]Entry, error) {
	q := `SELECT id, symbol, side, slices, total_volume, average_price, exit_price, reason, pnl, closed_at
	      FROM baskets ORDER BY closed_at DESC, rowid DESC`
	args := []interface{}{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := j.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("journal.History: query: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var side, slices string
		if err := rows.Scan(&e.BasketID, &e.Symbol, &side, &slices, &e.TotalVolume,
			&e.AveragePrice, &e.ExitPrice, &e.Reason, &e.PnL, &e.ClosedAt); err != nil {
			return nil, fmt.Errorf("journal.History: scan: %w", err)
		}
		e.Side = types.Direction(side)
		if err := json.Unmarshal([]byte(slices), &e.Slices); err != nil {
			return nil, fmt.Errorf("journal.History: decode slices of %s: %w", e.BasketID, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Stats summarizes every recorded basket. A zero-profit basket counts as a win,
// matching the sizing reset rule.
func (j *SQLiteJournal) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	var net sql.NullFloat64
	err := j.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN pnl >= 0 THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN pnl < 0 THEN 1 ELSE 0 END), 0),
		        SUM(pnl)
		 FROM baskets`).Scan(&s.Baskets, &s.Wins, &s.Losses, &net)
	if err != nil {
		return Stats{}, fmt.Errorf("journal.Stats: %w", err)
	}
	s.NetPnL = net.Float64
	return s, nil
}

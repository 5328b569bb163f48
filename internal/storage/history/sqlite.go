package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"github.com/newthinker/strata/internal/backtest"
	"github.com/newthinker/strata/internal/core"
)

var _ Store = (*SQLiteStore)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS backtests (
	id            TEXT PRIMARY KEY,
	ticker        TEXT NOT NULL,
	period        TEXT NOT NULL,
	mode          TEXT NOT NULL,
	strategy      TEXT NOT NULL,
	total_trades  INTEGER NOT NULL,
	total_return  REAL NOT NULL,
	win_rate      REAL NOT NULL,
	max_drawdown  REAL NOT NULL,
	sharpe_ratio  REAL NOT NULL,
	final_capital REAL NOT NULL,
	created_at    INTEGER NOT NULL,
	result        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_backtests_ticker ON backtests (ticker, created_at);
`

const summaryColumns = `id, ticker, period, mode, strategy, total_trades, total_return,
	win_rate, max_drawdown, sharpe_ratio, final_capital, created_at`

// SQLiteStore implements Store backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and applies
// the schema.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// one writer; avoids SQLITE_BUSY under concurrent requests
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Save inserts r, replacing any row with the same ID.
func (s *SQLiteStore) Save(ctx context.Context, r *backtest.Result) error {
	doc, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	sum := Summarize(r)

	_, err = s.db.ExecContext(ctx, `INSERT OR REPLACE INTO backtests (`+summaryColumns+`, result)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sum.ID, sum.Ticker, sum.Period, sum.Mode, sum.Strategy, sum.TotalTrades, sum.TotalReturn,
		sum.WinRate, sum.MaxDrawdown, sum.SharpeRatio, sum.FinalCapital, sum.CreatedAt.UnixNano(), string(doc),
	)
	return err
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*backtest.Result, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT result FROM backtests WHERE id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.Errorf(core.ErrNotFound, "backtest %s", id)
	}
	if err != nil {
		return nil, err
	}

	var r backtest.Result
	if err := json.Unmarshal([]byte(doc), &r); err != nil {
		return nil, fmt.Errorf("decoding result %s: %w", id, err)
	}
	return &r, nil
}

func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]Summary, error) {
	where, args := whereClause(filter)
	query := `SELECT ` + summaryColumns + ` FROM backtests` + where + ` ORDER BY created_at DESC, id`

	limit := filter.Limit
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	query += ` LIMIT ? OFFSET ?`
	args = append(args, limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []Summary{}
	for rows.Next() {
		var (
			sum     Summary
			created int64
		)
		if err := rows.Scan(&sum.ID, &sum.Ticker, &sum.Period, &sum.Mode, &sum.Strategy,
			&sum.TotalTrades, &sum.TotalReturn, &sum.WinRate, &sum.MaxDrawdown,
			&sum.SharpeRatio, &sum.FinalCapital, &created); err != nil {
			return nil, err
		}
		sum.CreatedAt = time.Unix(0, created).UTC()
		result = append(result, sum)
	}
	return result, rows.Err()
}

func (s *SQLiteStore) Count(ctx context.Context, filter ListFilter) (int, error) {
	where, args := whereClause(filter)
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM backtests`+where, args...).Scan(&n)
	return n, err
}

func whereClause(filter ListFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if filter.Ticker != "" {
		conds = append(conds, "ticker = ?")
		args = append(args, filter.Ticker)
	}
	if filter.Strategy != "" {
		conds = append(conds, "strategy = ?")
		args = append(args, filter.Strategy)
	}
	if !filter.From.IsZero() {
		conds = append(conds, "created_at >= ?")
		args = append(args, filter.From.UnixNano())
	}
	if !filter.To.IsZero() {
		conds = append(conds, "created_at <= ?")
		args = append(args, filter.To.UnixNano())
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// Package persistence holds the optional ledger sink. The simulation never
// depends on it; a nil store skips persistence entirely.
package persistence

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/XabiBlaz/Regime-Aware-trading-strategy/internal/backtest"
)

// LedgerStore persists completed backtest runs
type LedgerStore interface {
	SaveRun(ctx context.Context, result *backtest.Result) error
}

// Schema creates the run and ledger tables
const Schema = `
CREATE TABLE IF NOT EXISTS backtest_runs (
    run_id       TEXT PRIMARY KEY,
    start_date   DATE NOT NULL,
    end_date     DATE NOT NULL,
    days         INT NOT NULL,
    total_return DOUBLE PRECISION NOT NULL,
    cagr         DOUBLE PRECISION NOT NULL,
    sharpe       DOUBLE PRECISION NOT NULL,
    max_drawdown DOUBLE PRECISION NOT NULL,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS backtest_ledger (
    run_id             TEXT NOT NULL REFERENCES backtest_runs(run_id),
    date               DATE NOT NULL,
    turnover           DOUBLE PRECISION NOT NULL,
    transaction_cost   DOUBLE PRECISION NOT NULL,
    daily_return       DOUBLE PRECISION NOT NULL,
    equity             DOUBLE PRECISION NOT NULL,
    regime_label       TEXT NOT NULL,
    p_high_smoothed    DOUBLE PRECISION NOT NULL,
    confidence         DOUBLE PRECISION NOT NULL,
    risk_mode          TEXT NOT NULL,
    cooldown_remaining INT NOT NULL,
    drawdown           DOUBLE PRECISION NOT NULL,
    PRIMARY KEY (run_id, date)
);
`

// PostgresStore writes runs to Postgres via sqlx
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore connects and ensures the schema exists
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// Close releases the connection pool
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// SaveRun inserts the run header and all ledger entries in one transaction
func (s *PostgresStore) SaveRun(ctx context.Context, result *backtest.Result) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO backtest_runs
			(run_id, start_date, end_date, days, total_return, cagr, sharpe, max_drawdown)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		result.RunID, result.StartDate, result.EndDate, result.Summary.Days,
		result.Summary.TotalReturn, result.Summary.CAGR,
		result.Summary.Sharpe, result.Summary.MaxDrawdown)
	if err != nil {
		return fmt.Errorf("failed to insert run header: %w", err)
	}

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO backtest_ledger
			(run_id, date, turnover, transaction_cost, daily_return, equity,
			 regime_label, p_high_smoothed, confidence, risk_mode,
			 cooldown_remaining, drawdown)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`)
	if err != nil {
		return fmt.Errorf("failed to prepare ledger insert: %w", err)
	}
	defer stmt.Close()

	for _, entry := range result.Ledger {
		if _, err := stmt.ExecContext(ctx,
			result.RunID, entry.Date, entry.Turnover, entry.TransactionCost,
			entry.DailyReturn, entry.Equity, entry.RegimeLabel,
			entry.PHighSmoothed, entry.Confidence, entry.RiskMode,
			entry.CooldownRemaining, entry.Drawdown); err != nil {
			return fmt.Errorf("failed to insert ledger entry %s: %w",
				entry.Date.Format("2006-01-02"), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run %s: %w", result.RunID, err)
	}

	log.Info().
		Str("run_id", result.RunID).
		Int("entries", len(result.Ledger)).
		Msg("Persisted backtest run")

	return nil
}

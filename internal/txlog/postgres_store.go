package txlog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/ticktrace/ticktrace/internal/risk"
)

// PostgresStore persists the transaction log in PostgreSQL. The BIGSERIAL
// primary key provides strictly increasing ids; a rolled-back insert burns a
// sequence value, so ids can gap, unlike the in-memory store's exact 1..n.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed transaction log.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the transactions table if it doesn't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS transactions (
			id          BIGSERIAL PRIMARY KEY,
			amount      DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK (amount >= 0),
			source      TEXT NOT NULL DEFAULT '',
			dest        TEXT NOT NULL DEFAULT '',
			tick        BIGINT NOT NULL DEFAULT 0,
			procedure   TEXT NOT NULL DEFAULT '',
			time        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			risk_score  INT NOT NULL CHECK (risk_score >= 0 AND risk_score <= 100),
			risk_level  VARCHAR(10) NOT NULL CHECK (risk_level IN ('LOW', 'MEDIUM', 'HIGH', 'CRITICAL')),
			reasons     TEXT[] NOT NULL DEFAULT '{}'
		);

		CREATE INDEX IF NOT EXISTS idx_transactions_level ON transactions (risk_level, id DESC);
		CREATE INDEX IF NOT EXISTS idx_transactions_source ON transactions (source, id DESC);
		CREATE INDEX IF NOT EXISTS idx_transactions_dest ON transactions (dest, id DESC);
	`)
	return err
}

func (s *PostgresStore) Append(ctx context.Context, tx *Transaction) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO transactions (amount, source, dest, tick, procedure, time, risk_score, risk_level, reasons)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`,
		tx.Amount,
		tx.Source,
		tx.Dest,
		tx.Tick,
		tx.Procedure,
		tx.Time,
		tx.RiskScore,
		string(tx.RiskLevel),
		pq.Array(tx.Reasons),
	).Scan(&tx.ID)
	if err != nil {
		return fmt.Errorf("failed to append transaction: %w", err)
	}
	return nil
}

const txColumns = `id, amount, source, dest, tick, procedure, time, risk_score, risk_level, reasons`

func (s *PostgresStore) List(ctx context.Context, f Filter) ([]*Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions WHERE TRUE`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Level != "" {
		query += ` AND risk_level = ` + arg(string(f.Level))
	}
	if f.MinAmount != nil {
		query += ` AND amount >= ` + arg(*f.MinAmount)
	}
	if f.MaxAmount != nil {
		query += ` AND amount <= ` + arg(*f.MaxAmount)
	}
	query += ` ORDER BY id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ` + arg(f.Limit)
	}

	return s.queryTransactions(ctx, query, args...)
}

func (s *PostgresStore) Latest(ctx context.Context) (*Transaction, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+txColumns+` FROM transactions ORDER BY id DESC LIMIT 1`)
	tx, err := scanTransaction(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest transaction: %w", err)
	}
	return tx, nil
}

func (s *PostgresStore) ByWallet(ctx context.Context, walletID string, limit int) ([]*Transaction, error) {
	query := `
		SELECT ` + txColumns + ` FROM transactions
		WHERE source = $1 OR dest = $1
		ORDER BY id DESC`
	args := []any{walletID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	return s.queryTransactions(ctx, query, args...)
}

func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) TotalVolume(ctx context.Context) (float64, error) {
	var total float64
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(amount), 0) FROM transactions`).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum transaction volume: %w", err)
	}
	return total, nil
}

func (s *PostgresStore) CountsByLevel(ctx context.Context) (map[risk.Level]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT risk_level, COUNT(*) FROM transactions GROUP BY risk_level`)
	if err != nil {
		return nil, fmt.Errorf("failed to count transactions by level: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[risk.Level]int64)
	for rows.Next() {
		var level string
		var n int64
		if err := rows.Scan(&level, &n); err != nil {
			return nil, fmt.Errorf("failed to scan level count: %w", err)
		}
		counts[risk.Level(level)] = n
	}
	return counts, rows.Err()
}

func (s *PostgresStore) queryTransactions(ctx context.Context, query string, args ...any) ([]*Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		result = append(result, tx)
	}
	return result, rows.Err()
}

func scanTransaction(scan func(dest ...any) error) (*Transaction, error) {
	var tx Transaction
	var level string
	if err := scan(
		&tx.ID,
		&tx.Amount,
		&tx.Source,
		&tx.Dest,
		&tx.Tick,
		&tx.Procedure,
		&tx.Time,
		&tx.RiskScore,
		&level,
		pq.Array(&tx.Reasons),
	); err != nil {
		return nil, err
	}
	tx.RiskLevel = risk.Level(level)
	tx.Time = tx.Time.UTC()
	return &tx, nil
}

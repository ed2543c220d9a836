package wallet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PostgresStore persists wallet snapshots in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed snapshot store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the wallet_stats table if it doesn't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS wallet_stats (
			wallet_id     TEXT PRIMARY KEY,
			tx_count      BIGINT NOT NULL DEFAULT 0,
			total_volume  DOUBLE PRECISION NOT NULL DEFAULT 0,
			avg_risk      DOUBLE PRECISION NOT NULL DEFAULT 0,
			last_tick     BIGINT,
			last_time     TIMESTAMPTZ
		);

		CREATE INDEX IF NOT EXISTS idx_wallet_stats_avg_risk
			ON wallet_stats (avg_risk DESC, wallet_id ASC);
	`)
	return err
}

func (s *PostgresStore) Get(ctx context.Context, walletID string) (*Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT wallet_id, tx_count, total_volume, avg_risk, last_tick, last_time
		FROM wallet_stats
		WHERE wallet_id = $1
	`, walletID)

	snap, err := scanSnapshot(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet snapshot: %w", err)
	}
	return snap, nil
}

func (s *PostgresStore) Put(ctx context.Context, snap *Snapshot) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO wallet_stats (wallet_id, tx_count, total_volume, avg_risk, last_tick, last_time)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (wallet_id) DO UPDATE SET
			tx_count = EXCLUDED.tx_count,
			total_volume = EXCLUDED.total_volume,
			avg_risk = EXCLUDED.avg_risk,
			last_tick = EXCLUDED.last_tick,
			last_time = EXCLUDED.last_time
	`,
		snap.WalletID,
		snap.TxCount,
		snap.TotalVolume,
		snap.AvgRisk,
		snap.LastTick,
		snap.LastTime,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert wallet snapshot: %w", err)
	}
	return nil
}

func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM wallet_stats`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count wallets: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) TopByAvgRisk(ctx context.Context, limit int) ([]*Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT wallet_id, tx_count, total_volume, avg_risk, last_tick, last_time
		FROM wallet_stats
		ORDER BY avg_risk DESC, wallet_id ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list top wallets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan wallet snapshot: %w", err)
		}
		result = append(result, snap)
	}
	return result, rows.Err()
}

func scanSnapshot(scan func(dest ...any) error) (*Snapshot, error) {
	var snap Snapshot
	var lastTick sql.NullInt64
	var lastTime sql.NullTime

	if err := scan(&snap.WalletID, &snap.TxCount, &snap.TotalVolume, &snap.AvgRisk, &lastTick, &lastTime); err != nil {
		return nil, err
	}
	if lastTick.Valid {
		snap.LastTick = &lastTick.Int64
	}
	if lastTime.Valid {
		t := lastTime.Time.UTC()
		snap.LastTime = &t
	}
	return &snap, nil
}

package receipts

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists receipts through a pgx pool.
//
// Schema:
//
//	CREATE TABLE IF NOT EXISTS resolution_receipts (
//	    id               UUID PRIMARY KEY,
//	    shipment_id_hash TEXT NOT NULL,
//	    outcome          TEXT NOT NULL,
//	    duration_ms      BIGINT NOT NULL,
//	    created_at       TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX IF NOT EXISTS idx_resolution_receipts_created_at
//	    ON resolution_receipts (created_at);
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the receipts schema. Safe to call on every startup.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS resolution_receipts (
			id               UUID PRIMARY KEY,
			shipment_id_hash TEXT NOT NULL,
			outcome          TEXT NOT NULL,
			duration_ms      BIGINT NOT NULL,
			created_at       TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_resolution_receipts_created_at
			ON resolution_receipts (created_at);
	`)
	if err != nil {
		return fmt.Errorf("migrate resolution_receipts: %w", err)
	}
	return nil
}

func (s *PostgresStore) Record(ctx context.Context, receipt Receipt) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO resolution_receipts (id, shipment_id_hash, outcome, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, receipt.ID, receipt.ShipmentIDHash, receipt.Outcome, receipt.Duration.Milliseconds(), receipt.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert receipt: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]Receipt, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, shipment_id_hash, outcome, duration_ms, created_at
		FROM resolution_receipts
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list receipts: %w", err)
	}
	defer rows.Close()

	var receipts []Receipt
	for rows.Next() {
		var r Receipt
		var durationMS int64
		if err := rows.Scan(&r.ID, &r.ShipmentIDHash, &r.Outcome, &durationMS, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan receipt: %w", err)
		}
		r.Duration = time.Duration(durationMS) * time.Millisecond
		receipts = append(receipts, r)
	}
	return receipts, rows.Err()
}

func (s *PostgresStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM resolution_receipts WHERE created_at < $1
	`, before)
	if err != nil {
		return 0, fmt.Errorf("prune receipts: %w", err)
	}
	return tag.RowsAffected(), nil
}

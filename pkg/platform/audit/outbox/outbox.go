// Package outbox relays audit events from the Postgres outbox table to
// Kafka. Writers insert into the outbox inside their own transactions; the
// relay polls unpublished rows, produces them, and stamps published_at, so
// an event is never lost between the database and the broker.
package outbox

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"

	"blockship/pkg/platform/circuit"
)

// Publisher produces one outbox payload. The key is the aggregate ID so all
// events of one session land in one partition, preserving their order.
type Publisher interface {
	Publish(ctx context.Context, key, value []byte) error
}

// KafkaPublisher publishes to a single topic through a franz-go client.
type KafkaPublisher struct {
	client *kgo.Client
	topic  string
}

func NewKafkaPublisher(client *kgo.Client, topic string) *KafkaPublisher {
	return &KafkaPublisher{client: client, topic: topic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, key, value []byte) error {
	record := &kgo.Record{Topic: p.topic, Key: key, Value: value}
	return p.client.ProduceSync(ctx, record).FirstErr()
}

// Relay polls the outbox and publishes pending rows. A circuit breaker
// pauses publishing while the broker is down so the relay does not hammer
// it; unpublished rows simply wait for the next pass.
type Relay struct {
	db        *sql.DB
	publisher Publisher
	breaker   *circuit.Breaker
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
}

func NewRelay(db *sql.DB, publisher Publisher, interval time.Duration, logger *slog.Logger) *Relay {
	return &Relay{
		db:        db,
		publisher: publisher,
		breaker:   circuit.New("audit-outbox", circuit.WithFailureThreshold(5), circuit.WithSuccessThreshold(2)),
		logger:    logger,
		interval:  interval,
		batchSize: 100,
	}
}

// Run polls until the context is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			published, err := r.RelayOnce(ctx)
			if err != nil {
				r.logger.WarnContext(ctx, "outbox relay pass failed", "error", err)
				continue
			}
			if published > 0 {
				r.logger.DebugContext(ctx, "outbox relayed", "events", published)
			}
		}
	}
}

// RelayOnce publishes up to one batch of pending rows. Rows are locked with
// SKIP LOCKED so multiple gateway instances can relay concurrently without
// duplicating events.
func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin outbox tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `
		SELECT id, aggregate_id, payload
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, r.batchSize)
	if err != nil {
		return 0, fmt.Errorf("query outbox: %w", err)
	}

	type pending struct {
		id          uuid.UUID
		aggregateID string
		payload     []byte
	}
	var batch []pending
	for rows.Next() {
		var p pending
		if err := rows.Scan(&p.id, &p.aggregateID, &p.payload); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan outbox row: %w", err)
		}
		batch = append(batch, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate outbox rows: %w", err)
	}

	published := 0
	for _, p := range batch {
		if r.breaker.IsOpen() {
			break
		}
		if err := r.publisher.Publish(ctx, []byte(p.aggregateID), p.payload); err != nil {
			r.breaker.RecordFailure()
			r.logger.WarnContext(ctx, "outbox publish failed",
				"outbox_id", p.id.String(),
				"error", err,
			)
			break
		}
		r.breaker.RecordSuccess()

		if _, err := tx.ExecContext(ctx,
			`UPDATE outbox SET published_at = $1 WHERE id = $2`,
			time.Now(), p.id,
		); err != nil {
			return published, fmt.Errorf("mark outbox row published: %w", err)
		}
		published++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit outbox tx: %w", err)
	}
	return published, nil
}

// Prune deletes published rows older than the cutoff.
func (r *Relay) Prune(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM outbox WHERE published_at IS NOT NULL AND published_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("prune outbox: %w", err)
	}
	return result.RowsAffected()
}

// Migrate creates the outbox and audit_events tables. Safe to call on every
// startup.
func Migrate(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS outbox (
			id             UUID PRIMARY KEY,
			aggregate_type TEXT        NOT NULL,
			aggregate_id   TEXT        NOT NULL,
			event_type     TEXT        NOT NULL,
			payload        JSONB       NOT NULL,
			created_at     TIMESTAMPTZ NOT NULL,
			published_at   TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS outbox_pending_idx
			ON outbox (created_at) WHERE published_at IS NULL`,
		`CREATE TABLE IF NOT EXISTS audit_events (
			id              UUID PRIMARY KEY,
			category        TEXT        NOT NULL,
			timestamp       TIMESTAMPTZ NOT NULL,
			session_id      UUID,
			subject         TEXT        NOT NULL DEFAULT '',
			action          TEXT        NOT NULL,
			decision        TEXT        NOT NULL DEFAULT '',
			reason          TEXT        NOT NULL DEFAULT '',
			wallet_address  TEXT        NOT NULL DEFAULT '',
			shipment_id     TEXT        NOT NULL DEFAULT '',
			request_id      TEXT        NOT NULL DEFAULT '',
			actor_id        TEXT        NOT NULL DEFAULT '',
			subject_id_hash TEXT        NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS audit_events_session_idx
			ON audit_events (session_id, timestamp DESC)`,
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate audit outbox schema: %w", err)
		}
	}
	return nil
}

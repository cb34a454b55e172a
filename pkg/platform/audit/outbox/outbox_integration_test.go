//go:build integration

package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/suite"

	id "blockship/pkg/domain"
	"blockship/pkg/platform/audit"
	auditpg "blockship/pkg/platform/audit/store/postgres"
	"blockship/pkg/testutil/containers"
)

// AGENTS.MD JUSTIFICATION: the outbox relay is the durability boundary of
// the audit trail. The integration test runs the real SQL against Postgres
// to verify that rows flow insert -> publish -> published_at exactly once,
// and that publish failures leave rows pending.

// capturePublisher records payloads; fail makes every publish error.
type capturePublisher struct {
	published [][]byte
	keys      []string
	fail      bool
}

func (p *capturePublisher) Publish(_ context.Context, key, value []byte) error {
	if p.fail {
		return errors.New("broker unavailable")
	}
	p.keys = append(p.keys, string(key))
	p.published = append(p.published, value)
	return nil
}

type OutboxSuite struct {
	suite.Suite
	db        *sql.DB
	store     *auditpg.Store
	publisher *capturePublisher
	relay     *Relay
}

func TestOutboxSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	pg := containers.NewPostgresContainer(t)

	db, err := sql.Open("postgres", pg.DSN)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	if err := Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	suite.Run(t, &OutboxSuite{db: db})
}

func (s *OutboxSuite) SetupTest() {
	_, err := s.db.Exec(`TRUNCATE outbox, audit_events`)
	s.Require().NoError(err)

	s.store = auditpg.New(s.db)
	s.publisher = &capturePublisher{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.relay = NewRelay(s.db, s.publisher, 50*time.Millisecond, logger)
}

func (s *OutboxSuite) append(event audit.Event) {
	s.Require().NoError(s.store.Append(context.Background(), event))
}

func (s *OutboxSuite) pendingCount() int {
	var n int
	s.Require().NoError(s.db.QueryRow(
		`SELECT count(*) FROM outbox WHERE published_at IS NULL`).Scan(&n))
	return n
}

func (s *OutboxSuite) TestRelayOnce() {
	sessionID := id.NewSessionID()
	s.append(audit.Event{
		Timestamp: time.Now(),
		SessionID: sessionID,
		Action:    string(audit.EventWalletConnected),
		Decision:  "connected",
	})
	s.append(audit.Event{
		Timestamp: time.Now(),
		SessionID: sessionID,
		Action:    string(audit.EventShipmentSearched),
		Subject:   "SHIP-001",
	})

	published, err := s.relay.RelayOnce(context.Background())
	s.Require().NoError(err)
	s.Equal(2, published)
	s.Zero(s.pendingCount())

	// Session-keyed so one session's events share a partition.
	s.Require().Len(s.publisher.keys, 2)
	s.Equal(s.publisher.keys[0], s.publisher.keys[1])

	var payload map[string]any
	s.Require().NoError(json.Unmarshal(s.publisher.published[0], &payload))
	s.Equal("wallet_connected", payload["Action"])
	s.Equal("compliance", payload["Category"])
}

func (s *OutboxSuite) TestRelayIsIdempotentAcrossPasses() {
	s.append(audit.Event{Timestamp: time.Now(), Action: string(audit.EventSessionOpened)})

	published, err := s.relay.RelayOnce(context.Background())
	s.Require().NoError(err)
	s.Equal(1, published)

	published, err = s.relay.RelayOnce(context.Background())
	s.Require().NoError(err)
	s.Zero(published)
	s.Len(s.publisher.published, 1)
}

func (s *OutboxSuite) TestPublishFailureLeavesRowsPending() {
	s.publisher.fail = true
	s.append(audit.Event{Timestamp: time.Now(), Action: string(audit.EventSessionOpened)})

	published, err := s.relay.RelayOnce(context.Background())
	s.Require().NoError(err)
	s.Zero(published)
	s.Equal(1, s.pendingCount())

	// Broker recovers; the next pass drains the backlog.
	s.publisher.fail = false
	published, err = s.relay.RelayOnce(context.Background())
	s.Require().NoError(err)
	s.Equal(1, published)
	s.Zero(s.pendingCount())
}

func (s *OutboxSuite) TestPrune() {
	s.append(audit.Event{Timestamp: time.Now(), Action: string(audit.EventSessionOpened)})
	_, err := s.relay.RelayOnce(context.Background())
	s.Require().NoError(err)

	pruned, err := s.relay.Prune(context.Background(), time.Now().Add(time.Minute))
	s.Require().NoError(err)
	s.Equal(int64(1), pruned)
}

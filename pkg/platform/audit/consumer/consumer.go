// Package consumer materializes audit events from the Kafka audit topic
// into the audit_events table so the trail is queryable. Kafka is the
// source of truth; materialization is idempotent on the event ID, so
// reprocessing a partition after a rebalance is harmless.
package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"

	id "blockship/pkg/domain"
	"blockship/pkg/platform/audit"
)

// Materializer persists one event under its stable ID.
type Materializer interface {
	AppendWithID(ctx context.Context, eventID uuid.UUID, event audit.Event) error
}

// Consumer polls the audit topic and materializes every record.
type Consumer struct {
	client *kgo.Client
	store  Materializer
	logger *slog.Logger
}

// New builds a consumer. brokers and topic come from the Kafka config; the
// consumer group makes multiple gateway instances share partitions.
func New(brokers []string, topic, group string, store Materializer, logger *slog.Logger) (*Consumer, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumerGroup(group),
		kgo.AutoCommitMarks(),
	)
	if err != nil {
		return nil, fmt.Errorf("create audit consumer: %w", err)
	}
	return &Consumer{client: client, store: store, logger: logger}, nil
}

// Run polls until the context is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.client.Close()

	for {
		fetches := c.client.PollFetches(ctx)
		if err := ctx.Err(); err != nil {
			return err
		}
		if errs := fetches.Errors(); len(errs) > 0 {
			for _, fe := range errs {
				c.logger.WarnContext(ctx, "audit fetch error",
					"topic", fe.Topic,
					"error", fe.Err,
				)
			}
		}

		fetches.EachRecord(func(record *kgo.Record) {
			if err := c.materialize(ctx, record); err != nil {
				// Leave the record unmarked; it is retried on the next poll.
				c.logger.ErrorContext(ctx, "audit event not materialized",
					"offset", record.Offset,
					"error", err,
				)
				return
			}
			c.client.MarkCommitRecords(record)
		})
	}
}

// payload mirrors the outbox JSON structure.
type payload struct {
	ID            string `json:"ID"`
	Category      string `json:"Category"`
	Timestamp     string `json:"Timestamp"`
	SessionID     string `json:"SessionID,omitempty"`
	Subject       string `json:"Subject"`
	Action        string `json:"Action"`
	Decision      string `json:"Decision,omitempty"`
	Reason        string `json:"Reason,omitempty"`
	WalletAddress string `json:"WalletAddress,omitempty"`
	ShipmentID    string `json:"ShipmentID,omitempty"`
	RequestID     string `json:"RequestID,omitempty"`
	ActorID       string `json:"ActorID,omitempty"`
	SubjectIDHash string `json:"SubjectIDHash,omitempty"`
}

func (c *Consumer) materialize(ctx context.Context, record *kgo.Record) error {
	var p payload
	if err := json.Unmarshal(record.Value, &p); err != nil {
		// A malformed record never becomes parseable; log and move on
		// rather than wedging the partition.
		c.logger.ErrorContext(ctx, "malformed audit payload dropped",
			"offset", record.Offset,
			"error", err,
		)
		return nil
	}

	eventID, err := uuid.Parse(p.ID)
	if err != nil {
		c.logger.ErrorContext(ctx, "audit payload with invalid id dropped",
			"offset", record.Offset,
			"error", err,
		)
		return nil
	}

	event := audit.Event{
		Category:      audit.EventCategory(p.Category),
		Subject:       p.Subject,
		Action:        p.Action,
		Decision:      p.Decision,
		Reason:        p.Reason,
		WalletAddress: p.WalletAddress,
		ShipmentID:    p.ShipmentID,
		RequestID:     p.RequestID,
		ActorID:       p.ActorID,
		SubjectIDHash: p.SubjectIDHash,
	}
	if ts, err := time.Parse(time.RFC3339Nano, p.Timestamp); err == nil {
		event.Timestamp = ts
	}
	if p.SessionID != "" {
		if sid, err := id.ParseSessionID(p.SessionID); err == nil {
			event.SessionID = sid
		}
	}

	return c.store.AppendWithID(ctx, eventID, event)
}

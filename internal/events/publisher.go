// Package events announces finished reconciliation runs to downstream
// consumers.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"ledger-reconciliation-backend/internal/models"
)

const ReconciliationCompleted = "reconciliation_completed"

type ReconciliationCompletedEvent struct {
	Type       string                      `json:"type"`
	Scope      string                      `json:"scope"`
	RunID      uuid.UUID                   `json:"run_id"`
	Status     models.RunStatus            `json:"status"`
	Report     models.ReconciliationReport `json:"report"`
	OccurredAt time.Time                   `json:"occurred_at"`
}

func NewReconciliationCompleted(run models.ReconciliationRun, report models.ReconciliationReport) ReconciliationCompletedEvent {
	return ReconciliationCompletedEvent{
		Type:       ReconciliationCompleted,
		Scope:      run.Scope,
		RunID:      run.ID,
		Status:     run.Status,
		Report:     report,
		OccurredAt: time.Now().UTC(),
	}
}

type Publisher interface {
	PublishReconciliationCompleted(ctx context.Context, event ReconciliationCompletedEvent) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer messageWriter
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.LeastBytes{},
			AllowAutoTopicCreation: true,
		},
	}
}

// PublishReconciliationCompleted keys the message by scope so a scope's
// events stay ordered on one partition.
func (p *KafkaPublisher) PublishReconciliationCompleted(ctx context.Context, event ReconciliationCompletedEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Scope),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

type NoopPublisher struct{}

func (NoopPublisher) PublishReconciliationCompleted(context.Context, ReconciliationCompletedEvent) error {
	return nil
}

func (NoopPublisher) Close() error { return nil }

package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kirillkom/farmsure/internal/core/domain"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher produces claim notifications to a Kafka topic.
type Publisher struct {
	writer messageWriter
	logger *slog.Logger
}

func New(brokers []string, topic string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
	}
	return &Publisher{writer: w, logger: logger}
}

func (p *Publisher) PublishClaimSubmitted(ctx context.Context, evt domain.ClaimSubmitted) error {
	msg, err := serializeToMessage(evt)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return domain.WrapError(domain.ErrTemporary, "kafka publish", err)
	}
	p.logger.Debug("claim_event_published", "claim_id", evt.ClaimID)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage keys messages by claim id so all events for a claim share a partition.
func serializeToMessage(evt domain.ClaimSubmitted) (kafkago.Message, error) {
	data, err := json.Marshal(evt)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize claim event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(evt.ClaimID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte("claim.submitted")},
			{Key: "created_at", Value: []byte(evt.CreatedAt.UTC().Format(time.RFC3339))},
		},
	}, nil
}

// internal/events/publisher.go
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"partner-payouts/internal/domain"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const publishTimeout = 10 * time.Second

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Publisher emits payout lifecycle and reconciliation events to kafka.
type Publisher struct {
	writer         messageWriter
	payoutTopic    string
	reconcileTopic string
	logger         *zap.Logger
}

func NewPublisher(writer messageWriter, payoutTopic, reconcileTopic string, logger *zap.Logger) *Publisher {
	return &Publisher{
		writer:         writer,
		payoutTopic:    payoutTopic,
		reconcileTopic: reconcileTopic,
		logger:         logger,
	}
}

// NewWriter builds a topic-less writer; every message names its own topic.
func NewWriter(brokers []string, logger *zap.Logger) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.LeastBytes{},
		RequiredAcks:           kafka.RequireOne,
		MaxAttempts:            3,
		BatchTimeout:           10 * time.Millisecond,
		WriteTimeout:           publishTimeout,
		AllowAutoTopicCreation: true,
		Logger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Debug(fmt.Sprintf(msg, args...))
		}),
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Warn(fmt.Sprintf(msg, args...))
		}),
	}
}

func (p *Publisher) PublishPayoutSent(ctx context.Context, event *domain.PayoutSentEvent) error {
	event.Type = domain.EventPayoutSent
	if event.SentAt.IsZero() {
		event.SentAt = time.Now().UTC()
	}
	return p.publish(ctx, p.payoutTopic, event.PartnerID, event)
}

func (p *Publisher) PublishPayoutConfirmed(ctx context.Context, event *domain.PayoutConfirmedEvent) error {
	event.Type = domain.EventPayoutConfirmed
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	return p.publish(ctx, p.payoutTopic, event.VendorRef, event)
}

// PublishReconcile records a failed cleanup side effect for later repair.
func (p *Publisher) PublishReconcile(ctx context.Context, event *domain.ReconcileEvent) error {
	event.Type = domain.EventReconcileRequired
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	return p.publish(ctx, p.reconcileTopic, event.Subject, event)
}

func (p *Publisher) publish(ctx context.Context, topic, key string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: payload,
		Time:  time.Now(),
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("failed to publish event",
			zap.String("topic", topic),
			zap.String("key", key),
			zap.Error(err))
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}

	p.logger.Debug("event published", zap.String("topic", topic), zap.String("key", key))
	return nil
}

package publisher

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/theAriful7/E-CommerceBackend/internal/repository"
	"go.uber.org/zap"
)

// MessageWriter is the subset of kafka.Writer the poller needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// NewKafkaWriter builds the writer for the order events topic.
func NewKafkaWriter(brokers ...string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  "order-events",
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
}

// OutboxPoller drains the outbox table: events are written in the same
// transaction as the order mutation they describe and published here with
// at-least-once delivery. Consumers dedupe by event id.
type OutboxPoller struct {
	tick      time.Duration
	batchSize int
	store     repository.Store
	writer    MessageWriter
	logger    *zap.Logger
}

func NewOutboxPoller(store repository.Store, writer MessageWriter, logger *zap.Logger) *OutboxPoller {
	return &OutboxPoller{
		tick:      time.Second,
		batchSize: 100,
		store:     store,
		writer:    writer,
		logger:    logger,
	}
}

func (p *OutboxPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.processUnpublishedEvents(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) {
	events, err := p.store.Outbox().GetUnprocessed(ctx, p.batchSize)
	if err != nil {
		p.logger.Error("failed to fetch outbox events", zap.Error(err))
		return
	}

	for _, event := range events {
		if errPublish := p.publish(ctx, event); errPublish != nil {
			p.logger.Error("failed to publish outbox event",
				zap.Int64("event_id", event.ID), zap.Error(errPublish))
			continue
		}

		if errMark := p.store.Outbox().MarkProcessed(ctx, event.ID); errMark != nil {
			p.logger.Error("failed to mark outbox event as processed",
				zap.Int64("event_id", event.ID), zap.Error(errMark))
			continue
		}
	}
}

func (p *OutboxPoller) publish(ctx context.Context, event *repository.OutboxEvent) error {
	msg := kafka.Message{
		Key:   []byte(event.AggregateID), // order number, for per-order ordering
		Value: event.Payload,             // Already JSON from the outbox table
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}
	return p.writer.WriteMessages(ctx, msg)
}

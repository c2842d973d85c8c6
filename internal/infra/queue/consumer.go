package queue

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/NewsSearch/internal/domain"
	"github.com/NewsSearch/internal/infra/metrics"
	"github.com/segmentio/kafka-go"
)

type KafkaConsumer struct {
	reader      *kafka.Reader
	dlqProducer domain.EventProducer
}

func NewKafkaConsumer(brokers []string, topic string, groupID string, dlqProducer domain.EventProducer) *KafkaConsumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})
	slog.Info("Kafka Consumer initialized", "brokers", brokers, "topic", topic, "group", groupID)
	return &KafkaConsumer{
		reader:      r,
		dlqProducer: dlqProducer,
	}
}

type MessageHandler func(ctx context.Context, event *domain.ArticleViewed) error

// Start reads until ctx is cancelled or the reader is closed.
func (c *KafkaConsumer) Start(ctx context.Context, handler MessageHandler) {
	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				slog.Info("Kafka consumer stopped")
			} else {
				slog.Error("Error reading kafka message", "error", err)
			}
			return
		}
		c.handle(ctx, m, handler)
	}
}

func (c *KafkaConsumer) handle(ctx context.Context, m kafka.Message, handler MessageHandler) {
	event, err := decodeEvent(m)
	if err != nil {
		slog.Error("Error unmarshaling view event", "offset", m.Offset, "error", err)
		return
	}

	slog.Debug("Received view event", "url", event.Article.URL, "partition", m.Partition)

	if err := handler(ctx, event); err != nil {
		slog.Error("Error handling view event", "url", event.Article.URL, "error", err)

		if c.dlqProducer == nil {
			return
		}
		slog.Info("Publishing failed event to DLQ", "url", event.Article.URL)
		if dlqErr := c.dlqProducer.Publish(ctx, event); dlqErr != nil {
			slog.Error("Failed to publish to DLQ", "url", event.Article.URL, "error", dlqErr)
			return
		}
		metrics.DLQMessagesPublished.Inc()
	}
}

func (c *KafkaConsumer) Close() error {
	return c.reader.Close()
}

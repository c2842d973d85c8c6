package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/NewsSearch/internal/domain"
	"github.com/segmentio/kafka-go"
)

type KafkaProducer struct {
	writer *kafka.Writer
}

func NewKafkaProducer(brokers []string, topic string) *KafkaProducer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},         // views of the same article land on the same partition
		BatchTimeout:           10 * time.Millisecond, // one event per detail view, don't wait for a batch
		AllowAutoTopicCreation: true,
	}
	slog.Info("Kafka Producer initialized", "brokers", brokers, "topic", topic)
	return &KafkaProducer{writer: w}
}

func (p *KafkaProducer) Publish(ctx context.Context, event *domain.ArticleViewed) error {
	msg, err := encodeEvent(event)
	if err != nil {
		return err
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		slog.Error("Failed to write to kafka", "topic", p.writer.Topic, "error", err)
		return err
	}

	slog.Debug("Published view event", "url", event.Article.URL, "session_id", event.SessionID)
	return nil
}

func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}

func encodeEvent(event *domain.ArticleViewed) (kafka.Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(event.Article.URL),
		Value: payload,
	}, nil
}

func decodeEvent(m kafka.Message) (*domain.ArticleViewed, error) {
	var event domain.ArticleViewed
	if err := json.Unmarshal(m.Value, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// Package factory provides dependency injection constructors for infrastructure components.
package factory

import (
	"context"
	"errors"
	"time"

	"github.com/NewsSearch/internal/infra/queue"
	"github.com/NewsSearch/pkg/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/fx"
)

// NewMongoClient creates a MongoDB client with lifecycle management.
func NewMongoClient(lc fx.Lifecycle, cfg *config.Config) (*mongo.Client, error) {
	if cfg.MongoURI == "" {
		return nil, errors.New("mongo URI not configured")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Disconnect(ctx)
		},
	})

	return client, nil
}

// NewViewProducer creates the Kafka producer for article view events.
func NewViewProducer(cfg *config.Config, lc fx.Lifecycle) (*queue.KafkaProducer, error) {
	return newProducer(cfg, cfg.KafkaViewTopic, lc)
}

// NewDLQProducer creates a Kafka producer for the Dead Letter Queue.
func NewDLQProducer(cfg *config.Config, lc fx.Lifecycle) (*queue.KafkaProducer, error) {
	return newProducer(cfg, cfg.KafkaDLQTopic, lc)
}

func newProducer(cfg *config.Config, topic string, lc fx.Lifecycle) (*queue.KafkaProducer, error) {
	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("kafka brokers not configured")
	}
	if topic == "" {
		return nil, errors.New("kafka topic not configured")
	}

	producer := queue.NewKafkaProducer(cfg.KafkaBrokers, topic)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return producer.Close()
		},
	})
	return producer, nil
}

// NewKafkaConsumer creates the view-event consumer with DLQ support.
func NewKafkaConsumer(
	cfg *config.Config,
	dlqProducer *queue.KafkaProducer,
) (*queue.KafkaConsumer, error) {
	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("kafka brokers not configured")
	}
	if cfg.KafkaViewTopic == "" {
		return nil, errors.New("kafka view topic not configured")
	}
	if cfg.KafkaGroupID == "" {
		return nil, errors.New("kafka group id not configured")
	}

	return queue.NewKafkaConsumer(cfg.KafkaBrokers, cfg.KafkaViewTopic, cfg.KafkaGroupID, dlqProducer), nil
}

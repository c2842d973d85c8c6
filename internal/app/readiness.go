package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/segmentio/kafka-go"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const readinessPollInterval = 2 * time.Second

// ReadinessWaiter blocks startup until the history store and the view-event
// topic are reachable. The news API is not checked; its failures surface
// per page.
type ReadinessWaiter struct {
	mongoClient *mongo.Client
	brokers     []string
	topic       string
}

func NewReadinessWaiter(mongoClient *mongo.Client, brokers []string, topic string) *ReadinessWaiter {
	return &ReadinessWaiter{
		mongoClient: mongoClient,
		brokers:     brokers,
		topic:       topic,
	}
}

func (w *ReadinessWaiter) WaitForDependencies(ctx context.Context) error {
	if err := poll(ctx, "MongoDB", w.checkMongo); err != nil {
		return err
	}
	return poll(ctx, "Kafka", w.checkKafka)
}

// poll retries check until it succeeds or ctx ends. There is no deadline:
// in dev the dependencies may take a while to come up.
func poll(ctx context.Context, name string, check func(context.Context) error) error {
	slog.Info("Waiting for dependency", "dependency", name)
	ticker := time.NewTicker(readinessPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := check(ctx); err != nil {
				slog.Warn("Dependency not ready yet", "dependency", name, "error", err)
				continue
			}
			slog.Info("Dependency is ready", "dependency", name)
			return nil
		}
	}
}

func (w *ReadinessWaiter) checkMongo(ctx context.Context) error {
	return w.mongoClient.Ping(ctx, readpref.Primary())
}

func (w *ReadinessWaiter) checkKafka(ctx context.Context) error {
	if len(w.brokers) == 0 {
		return errors.New("no brokers configured")
	}

	for _, broker := range w.brokers {
		conn, err := net.DialTimeout("tcp", broker, 2*time.Second)
		if err != nil {
			return fmt.Errorf("failed to connect to broker %s: %w", broker, err)
		}
		_ = conn.Close()
	}

	conn, err := kafka.DialContext(ctx, "tcp", w.brokers[0])
	if err != nil {
		return fmt.Errorf("failed to dial kafka: %w", err)
	}
	defer func() {
		_ = conn.Close()
	}()

	partitions, err := conn.ReadPartitions(w.topic)
	if err != nil {
		return fmt.Errorf("failed to read partitions for topic %s: %w", w.topic, err)
	}
	if len(partitions) == 0 {
		return fmt.Errorf("topic %s has no partitions", w.topic)
	}
	return nil
}

package factory

import (
	"errors"
	"fmt"

	"github.com/NewsSearch/internal/app"
	"github.com/NewsSearch/internal/domain"
	"github.com/NewsSearch/internal/infra/queue"
	"github.com/NewsSearch/internal/infra/repository"
	"github.com/NewsSearch/pkg/config"
	"go.mongodb.org/mongo-driver/mongo"
)

// NewHistoryRepository creates the MongoDB history repository.
func NewHistoryRepository(client *mongo.Client, cfg *config.Config) (domain.HistoryRepository, error) {
	if cfg.MongoDBName == "" {
		return nil, errors.New("mongo database name not configured")
	}
	if cfg.MongoSearchCollection == "" || cfg.MongoViewCollection == "" {
		return nil, errors.New("mongo collection names not configured")
	}
	return repository.NewMongoRepository(client, cfg.MongoDBName, cfg.MongoSearchCollection, cfg.MongoViewCollection)
}

// NewEventProducer wraps the Kafka producer as an EventProducer.
func NewEventProducer(p *queue.KafkaProducer) (domain.EventProducer, error) {
	if p == nil {
		return nil, errors.New("kafka producer is nil")
	}
	return p, nil
}

// NewSearchService creates the session service with validation.
func NewSearchService(
	client domain.NewsClient,
	repo domain.HistoryRepository,
	events domain.EventProducer,
	cfg *config.Config,
) (*app.SearchService, error) {
	if client == nil {
		return nil, errors.New("news client is nil")
	}
	if cfg.PageSize < 1 || cfg.PageSize > 100 {
		return nil, fmt.Errorf("invalid page size: %d (must be 1-100)", cfg.PageSize)
	}
	return app.NewSearchService(client, repo, events, cfg.PageSize), nil
}

// NewHistoryService creates the read side of the history.
func NewHistoryService(repo domain.HistoryRepository) *app.HistoryService {
	return app.NewHistoryService(repo, repo)
}

// NewHistorySyncService creates the view-event sync service.
func NewHistorySyncService(consumer *queue.KafkaConsumer, repo domain.HistoryRepository) (*app.HistorySyncService, error) {
	if consumer == nil {
		return nil, errors.New("kafka consumer is nil")
	}
	if repo == nil {
		return nil, errors.New("history repository is nil")
	}
	return app.NewHistorySyncService(consumer, repo), nil
}

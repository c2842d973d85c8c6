package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/NewsSearch/internal/domain"
	"github.com/NewsSearch/internal/infra/metrics"
	"github.com/NewsSearch/internal/infra/queue"
)

// ViewConsumer delivers view events to a handler until its context ends.
type ViewConsumer interface {
	Start(ctx context.Context, handler queue.MessageHandler)
	Close() error
}

// HistorySyncService folds consumed view events into the history store.
type HistorySyncService struct {
	consumer ViewConsumer
	views    domain.ViewWriter
}

func NewHistorySyncService(consumer ViewConsumer, views domain.ViewWriter) *HistorySyncService {
	return &HistorySyncService{
		consumer: consumer,
		views:    views,
	}
}

func (s *HistorySyncService) Start(ctx context.Context) {
	slog.Info("Starting history sync service (Kafka consumer)")
	go s.consumer.Start(ctx, s.handleEvent)
}

func (s *HistorySyncService) handleEvent(ctx context.Context, event *domain.ArticleViewed) error {
	start := time.Now()
	slog.Debug("Consuming view event", "url", event.Article.URL, "query", event.Query)

	err := s.views.RecordView(ctx, event)
	metrics.HistorySyncDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		slog.Error("Failed to record article view", "url", event.Article.URL, "error", err)
		metrics.HistorySyncErrors.Inc()
		return err
	}
	return nil
}

func (s *HistorySyncService) Stop() error {
	return s.consumer.Close()
}

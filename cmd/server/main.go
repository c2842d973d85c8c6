package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/NewsSearch/cmd/server/factory"
	"github.com/NewsSearch/internal/app"
	"github.com/NewsSearch/internal/infra/tracing"
	transport "github.com/NewsSearch/internal/transport/http"
	"github.com/NewsSearch/pkg/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/fx"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	fx.New(
		fx.Provide(
			// Config
			config.Load,

			// Infrastructure
			factory.NewMongoClient,
			factory.NewHistoryRepository,
			fx.Annotate(
				factory.NewViewProducer,
				fx.ResultTags(`name:"view_producer"`),
			),
			fx.Annotate(
				factory.NewDLQProducer,
				fx.ResultTags(`name:"dlq_producer"`),
			),
			fx.Annotate(
				factory.NewKafkaConsumer,
				fx.ParamTags(``, `name:"dlq_producer"`),
			),
			fx.Annotate(
				factory.NewEventProducer,
				fx.ParamTags(`name:"view_producer"`),
			),
			factory.NewNewsClient,

			// Services
			factory.NewSearchService,
			factory.NewHistoryService,
			factory.NewHistorySyncService,

			// HTTP Server
			transport.NewHandler,
			transport.NewHTTPServer,
		),
		fx.Invoke(
			SetupTracer,
			WaitForReady, // Block until dependencies are ready
			RegisterHooks,
			StartServer,
		),
	).Run()
}

// --- Invokers ---

func RegisterHooks(lc fx.Lifecycle, search *app.SearchService, syncService *app.HistorySyncService) {
	ctx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			syncService.Start(ctx)
			return nil
		},
		OnStop: func(_ context.Context) error {
			cancel()
			search.Close()
			return syncService.Stop()
		},
	})
}

func SetupTracer(lc fx.Lifecycle) error {
	ctx := context.Background()
	shutdown, err := tracing.InitTracer(ctx, "news-search")
	if err != nil {
		slog.Error("Failed to initialize tracer", "error", err)
		return err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			slog.Info("Shutting down tracer provider")
			return shutdown(ctx)
		},
	})
	return nil
}

// WaitForReady blocks until all dependencies are ready.
func WaitForReady(cfg *config.Config, mongoClient *mongo.Client) error {
	waiter := app.NewReadinessWaiter(mongoClient, cfg.KafkaBrokers, cfg.KafkaViewTopic)
	return waiter.WaitForDependencies(context.Background())
}

func StartServer(lc fx.Lifecycle, server *http.Server) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go func() {
				slog.Info("Starting HTTP server", "address", server.Addr)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					slog.Error("HTTP server failed", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return server.Shutdown(ctx)
		},
	})
}

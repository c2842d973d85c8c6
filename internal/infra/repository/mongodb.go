package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/NewsSearch/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepository keeps search and article view history. View documents are
// keyed by article URL.
type MongoRepository struct {
	db       *mongo.Database
	searches *mongo.Collection
	views    *mongo.Collection
}

var _ domain.HistoryRepository = (*MongoRepository)(nil)

func NewMongoRepository(client *mongo.Client, dbName, searchCollection, viewCollection string) (*MongoRepository, error) {
	db := client.Database(dbName)
	repo := &MongoRepository{
		db:       db,
		searches: db.Collection(searchCollection),
		views:    db.Collection(viewCollection),
	}

	if err := repo.createIndexes(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	return repo, nil
}

func (r *MongoRepository) createIndexes(ctx context.Context) error {
	opts := options.CreateIndexes().SetMaxTime(10 * time.Second)

	_, err := r.searches.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "searched_at", Value: -1}},
			Options: options.Index().SetName("searched_at_idx"),
		},
		{
			Keys: bson.D{
				{Key: "session_id", Value: 1},
				{Key: "searched_at", Value: -1},
			},
			Options: options.Index().SetName("session_searched_at_idx"),
		},
	}, opts)
	if err != nil {
		return err
	}

	_, err = r.views.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "views", Value: -1},
				{Key: "last_viewed_at", Value: -1},
			},
			Options: options.Index().SetName("views_last_viewed_idx"),
		},
	}, opts)
	return err
}

func (r *MongoRepository) RecordSearch(ctx context.Context, record domain.SearchRecord) error {
	if _, err := r.searches.InsertOne(ctx, record); err != nil {
		return fmt.Errorf("failed to record search: %w", err)
	}
	return nil
}

func (r *MongoRepository) RecentSearches(ctx context.Context, limit int) ([]domain.SearchRecord, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "searched_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.searches.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list searches: %w", err)
	}
	defer closeCursor(ctx, cursor)

	records := make([]domain.SearchRecord, 0, limit)
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode searches: %w", err)
	}
	return records, nil
}

// RecordView upserts the article document and bumps its view count.
func (r *MongoRepository) RecordView(ctx context.Context, event *domain.ArticleViewed) error {
	filter := bson.M{"_id": event.Article.URL}
	update := bson.M{
		"$set": bson.M{
			"article":        event.Article,
			"last_query":     event.Query,
			"last_viewed_at": event.ViewedAt,
		},
		"$inc": bson.M{"views": 1},
	}
	opts := options.Update().SetUpsert(true)

	if _, err := r.views.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to record view: %w", err)
	}
	return nil
}

func (r *MongoRepository) MostViewed(ctx context.Context, limit int) ([]domain.ViewedArticle, error) {
	opts := options.Find().
		SetSort(bson.D{
			{Key: "views", Value: -1},
			{Key: "last_viewed_at", Value: -1},
		}).
		SetLimit(int64(limit))

	cursor, err := r.views.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list viewed articles: %w", err)
	}
	defer closeCursor(ctx, cursor)

	viewed := make([]domain.ViewedArticle, 0, limit)
	for cursor.Next(ctx) {
		var v domain.ViewedArticle
		if err := cursor.Decode(&v); err != nil {
			slog.Warn("Skipping malformed view document", "error", err)
			continue
		}
		viewed = append(viewed, v)
	}
	return viewed, cursor.Err()
}

func closeCursor(ctx context.Context, cursor *mongo.Cursor) {
	if err := cursor.Close(ctx); err != nil {
		slog.Warn("Failed to close cursor", "error", err)
	}
}

package mocks

import (
	"context"

	"github.com/NewsSearch/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockNewsClient struct {
	mock.Mock
}

var _ domain.NewsClient = (*MockNewsClient)(nil)

func (m *MockNewsClient) FetchPage(ctx context.Context, query string, page domain.PageKey, pageSize int) (*domain.SearchResponse, error) {
	args := m.Called(ctx, query, page, pageSize)

	// Handle nil response
	var resp *domain.SearchResponse
	if args.Get(0) != nil {
		resp = args.Get(0).(*domain.SearchResponse)
	}
	return resp, args.Error(1)
}

type MockHistoryRepository struct {
	mock.Mock
}

var _ domain.HistoryRepository = (*MockHistoryRepository)(nil)

func (m *MockHistoryRepository) RecordSearch(ctx context.Context, record domain.SearchRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockHistoryRepository) RecentSearches(ctx context.Context, limit int) ([]domain.SearchRecord, error) {
	args := m.Called(ctx, limit)
	var records []domain.SearchRecord
	if args.Get(0) != nil {
		records = args.Get(0).([]domain.SearchRecord)
	}
	return records, args.Error(1)
}

func (m *MockHistoryRepository) RecordView(ctx context.Context, event *domain.ArticleViewed) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockHistoryRepository) MostViewed(ctx context.Context, limit int) ([]domain.ViewedArticle, error) {
	args := m.Called(ctx, limit)
	var viewed []domain.ViewedArticle
	if args.Get(0) != nil {
		viewed = args.Get(0).([]domain.ViewedArticle)
	}
	return viewed, args.Error(1)
}

type MockEventProducer struct {
	mock.Mock
}

var _ domain.EventProducer = (*MockEventProducer)(nil)

func (m *MockEventProducer) Publish(ctx context.Context, event *domain.ArticleViewed) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventProducer) Close() error {
	args := m.Called()
	return args.Error(0)
}

package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/NewsSearch/internal/domain"
	"github.com/NewsSearch/internal/domain/mocks"
	"github.com/NewsSearch/internal/infra/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeConsumer struct {
	events []*domain.ArticleViewed
	errs   chan error
	closed bool
}

func (c *fakeConsumer) Start(ctx context.Context, handler queue.MessageHandler) {
	for _, e := range c.events {
		c.errs <- handler(ctx, e)
	}
}

func (c *fakeConsumer) Close() error {
	c.closed = true
	return nil
}

func TestHistorySyncService_RecordsViews(t *testing.T) {
	views := new(mocks.MockHistoryRepository)
	ok := &domain.ArticleViewed{Query: "chile", Article: domain.Article{URL: "https://example.com/a"}, ViewedAt: fixedNow}
	bad := &domain.ArticleViewed{Query: "chile", Article: domain.Article{URL: "https://example.com/b"}, ViewedAt: fixedNow}
	consumer := &fakeConsumer{events: []*domain.ArticleViewed{ok, bad}, errs: make(chan error, 2)}

	views.On("RecordView", mock.Anything, ok).Return(nil).Once()
	views.On("RecordView", mock.Anything, bad).Return(errors.New("write conflict")).Once()

	svc := NewHistorySyncService(consumer, views)
	svc.Start(context.Background())

	for _, want := range []bool{true, false} {
		select {
		case err := <-consumer.errs:
			assert.Equal(t, want, err == nil)
		case <-time.After(time.Second):
			t.Fatal("consumer did not deliver events")
		}
	}

	require.NoError(t, svc.Stop())
	assert.True(t, consumer.closed)
	views.AssertExpectations(t)
}

func TestHistoryService_ClampsLimit(t *testing.T) {
	repo := new(mocks.MockHistoryRepository)
	svc := NewHistoryService(repo, repo)

	repo.On("RecentSearches", mock.Anything, DefaultHistoryLimit).Return([]domain.SearchRecord{{Query: "chile"}}, nil).Once()
	repo.On("MostViewed", mock.Anything, MaxHistoryLimit).Return(nil, nil).Once()
	repo.On("MostViewed", mock.Anything, 5).Return([]domain.ViewedArticle{{Views: 3}}, nil).Once()

	records, err := svc.RecentSearches(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	_, err = svc.MostViewed(context.Background(), 1000)
	require.NoError(t, err)

	viewed, err := svc.MostViewed(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, int64(3), viewed[0].Views)
	repo.AssertExpectations(t)
}

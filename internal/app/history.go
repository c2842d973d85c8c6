package app

import (
	"context"

	"github.com/NewsSearch/internal/domain"
)

const (
	DefaultHistoryLimit = 10
	MaxHistoryLimit     = 100
)

// HistoryService serves the read side of the search and view history.
type HistoryService struct {
	searches domain.SearchReader
	views    domain.ViewReader
}

func NewHistoryService(searches domain.SearchReader, views domain.ViewReader) *HistoryService {
	return &HistoryService{searches: searches, views: views}
}

func (s *HistoryService) RecentSearches(ctx context.Context, limit int) ([]domain.SearchRecord, error) {
	return s.searches.RecentSearches(ctx, clampLimit(limit))
}

func (s *HistoryService) MostViewed(ctx context.Context, limit int) ([]domain.ViewedArticle, error) {
	return s.views.MostViewed(ctx, clampLimit(limit))
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		return MaxHistoryLimit
	default:
		return limit
	}
}
